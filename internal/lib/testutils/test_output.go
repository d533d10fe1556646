// Package testutils contains the shared helpers of the automeet tests: a
// logger that writes through testing.TB, a logrus hook for asserting on log
// output, and an in-memory filesystem builder.
package testutils

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

// testOutput makes the test a valid io.Writer, useful for passing it as an
// output for logs and CLI help messages.
type testOutput struct{ testing.TB }

func (to testOutput) Write(p []byte) (n int, err error) {
	to.Logf("%s", p)

	return len(p), nil
}

// NewTestOutput returns a simple io.Writer implementation that uses the
// test's logger as an output.
func NewTestOutput(t testing.TB) io.Writer {
	return testOutput{t}
}

func newLogger(t testing.TB, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetLevel(level)
	if t == nil {
		l.SetOutput(io.Discard)
	} else {
		l.SetOutput(NewTestOutput(t))
	}
	return l
}

// NewLogger returns a new logger instance. If the given argument is not nil,
// the logger will log everything through its t.Logf() method. If it is nil,
// all messages are discarded.
func NewLogger(t testing.TB) *logrus.Logger {
	return newLogger(t, logrus.DebugLevel)
}

// NewLoggerWithHook calls NewLogger() and attaches a hook with the given
// levels. If no levels are specified, logrus.AllLevels is used.
func NewLoggerWithHook(t testing.TB, levels ...logrus.Level) (*logrus.Logger, *SimpleLogrusHook) {
	if len(levels) == 0 {
		levels = logrus.AllLevels
	}

	l := newLogger(t, logrus.DebugLevel)
	hook := &SimpleLogrusHook{HookedLevels: levels}
	l.AddHook(hook)
	return l, hook
}
