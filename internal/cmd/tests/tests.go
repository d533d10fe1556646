// Package tests contains the shared harness of the automeet command tests:
// a TestMain with goroutine leak detection and a fully in-memory GlobalState
// replacement, so whole commands can run without touching the host.
package tests

import (
	"fmt"
	"net/http"
	"os"
	"testing"

	"go.uber.org/goleak"
)

// Main is a TestMain function that can be imported by other test packages
// that want goroutine leak detection and other features useful for
// integration tests.
func Main(m *testing.M) {
	exitCode := 1 // error out by default
	defer func() {
		os.Exit(exitCode)
	}()

	defer func() {
		// Keep-alive connections from client command tests hold goroutines
		// until they are explicitly closed.
		http.DefaultClient.CloseIdleConnections()
		// TODO: figure out why logrus' `Entry.WriterLevel` goroutine sticks
		// around and remove this exception.
		opt := goleak.IgnoreTopFunction("io.(*pipe).read")
		if err := goleak.Find(opt); err != nil {
			fmt.Println(err) //nolint:forbidigo
			exitCode = 3
		}
	}()

	exitCode = m.Run()
}
