// Package console wraps the process output streams with the extra bits the
// commands need to know about them.
package console

import (
	"io"
	"os"
	"sync"
)

// Writer is an output stream together with its TTY-ness and a mutex shared
// between stdout and stderr, so concurrent prints to the two never interleave
// mid-line.
type Writer struct {
	// RawOut is the unwrapped stream, exposed for the rare caller that needs
	// the file descriptor. Writes to it bypass the mutex.
	RawOut *os.File
	Mutex  *sync.Mutex
	Writer io.Writer
	IsTTY  bool
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (n int, err error) {
	w.Mutex.Lock()
	defer w.Mutex.Unlock()
	return w.Writer.Write(p)
}
