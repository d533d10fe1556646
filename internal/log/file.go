package log

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/automeet/automeet/lib/fsext"
)

// fileHookQueueSize bounds how many formatted lines Fire can queue before it
// blocks on the Listen goroutine.
const fileHookQueueSize = 100

// fileHook buffers formatted log entries and writes them to a local file
// from its Listen goroutine. Fire never touches the disk.
type fileHook struct {
	path     string
	file     io.WriteCloser
	buf      *bufio.Writer
	queue    chan []byte
	levels   []logrus.Level
	fallback logrus.FieldLogger
}

// FileHookFromConfigLine builds a file hook from a `file=path,level=...`
// configuration line. Relative paths are resolved against getCwd, and the
// directory has to exist already.
func FileHookFromConfigLine(
	fs fsext.Fs, getCwd func() (string, error),
	fallbackLogger logrus.FieldLogger, line string,
) (AsyncHook, error) {
	path, levels, err := parseFileLine(line)
	if err != nil {
		return nil, err
	}

	path, file, err := openLogFile(fs, getCwd, path)
	if err != nil {
		return nil, err
	}

	return &fileHook{
		path:     path,
		file:     file,
		buf:      bufio.NewWriter(file),
		queue:    make(chan []byte, fileHookQueueSize),
		levels:   levels,
		fallback: fallbackLogger,
	}, nil
}

// parseFileLine splits the configuration line into the logfile path and the
// levels the hook should receive. The first token selects the output and has
// to be `file=...`.
func parseFileLine(line string) (string, []logrus.Level, error) {
	tokens := strings.Split(line, ",")

	head, path, _ := strings.Cut(tokens[0], "=")
	if head != "file" {
		return "", nil, fmt.Errorf("logfile configuration should be in the form `file=path-to-local-file` but is `%s`", line)
	}
	if path == "" {
		return "", nil, fmt.Errorf("filepath must not be empty")
	}

	levels := logrus.AllLevels
	for _, token := range tokens[1:] {
		key, value, _ := strings.Cut(token, "=")
		switch key {
		case "level":
			parsed, err := parseLevels(value)
			if err != nil {
				return "", nil, err
			}
			levels = parsed
		default:
			return "", nil, fmt.Errorf("unknown logfile config key %s", key)
		}
	}

	return path, levels, nil
}

func openLogFile(fs fsext.Fs, getCwd func() (string, error), path string) (string, io.WriteCloser, error) {
	if !filepath.IsAbs(path) {
		cwd, err := getCwd()
		if err != nil {
			return "", nil, fmt.Errorf("'%s' is a relative path but could not determine CWD: %w", path, err)
		}
		path = filepath.Join(cwd, path)
	}

	if _, err := fs.Stat(filepath.Dir(path)); errors.Is(err, iofs.ErrNotExist) {
		return "", nil, fmt.Errorf("provided directory '%s' does not exist", filepath.Dir(path))
	}

	file, err := fs.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o600)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open logfile %s: %w", path, err)
	}

	return path, file, nil
}

// Listen writes queued lines until ctx ends, then drains what Fire already
// queued and closes the file after a final flush.
func (h *fileHook) Listen(ctx context.Context) {
	for {
		select {
		case line := <-h.queue:
			h.write(line)
		case <-ctx.Done():
			h.drain()
			if err := h.buf.Flush(); err != nil {
				h.fallback.Errorf("failed to flush buffer: %v", err)
			}
			if err := h.file.Close(); err != nil {
				h.fallback.Errorf("failed to close logfile: %v", err)
			}
			return
		}
	}
}

// drain empties the queue without blocking. The context ends only after the
// command finished, so nothing new arrives while it runs.
func (h *fileHook) drain() {
	for {
		select {
		case line := <-h.queue:
			h.write(line)
		default:
			return
		}
	}
}

func (h *fileHook) write(line []byte) {
	if _, err := h.buf.Write(line); err != nil {
		h.fallback.Errorf("failed to write a log message to a logfile: %v", err)
	}
}

// Fire queues the formatted entry for the Listen goroutine.
func (h *fileHook) Fire(entry *logrus.Entry) error {
	line, err := entry.Bytes()
	if err != nil {
		return fmt.Errorf("failed to get a log entry bytes: %w", err)
	}

	h.queue <- line

	return nil
}

// Levels returns the levels the hook is configured for.
func (h *fileHook) Levels() []logrus.Level {
	return h.levels
}
