// Package errext contains extensions for normal Go errors that are used in
// automeet: exit codes the process should finish with when an error bubbles up
// to the top of the CLI, and human-readable hints with suggestions on how an
// error might be fixed.
package errext

import (
	"errors"

	"github.com/automeet/automeet/errext/exitcodes"
)

// HasExitCode is a wrapper around an error with an attached exit code.
type HasExitCode interface {
	error
	ExitCode() exitcodes.ExitCode
}

// WithExitCodeIfNone attaches an exit code to the given error, unless the
// error already has one. It does nothing when err is nil.
func WithExitCodeIfNone(err error, exitCode exitcodes.ExitCode) error {
	if err == nil {
		return nil
	}
	var ecerr HasExitCode
	if errors.As(err, &ecerr) {
		return err
	}
	return withExitCode{err, exitCode}
}

type withExitCode struct {
	error
	exitCode exitcodes.ExitCode
}

func (w withExitCode) Unwrap() error { return w.error }

func (w withExitCode) ExitCode() exitcodes.ExitCode { return w.exitCode }

var _ HasExitCode = withExitCode{}

// HasHint is a wrapper around an error with an attached user hint.
type HasHint interface {
	error
	Hint() string
}

// WithHint attaches a hint to the given error. If the error already had a
// hint, the new one wraps it as "new hint (old hint)". It does nothing when
// err is nil.
func WithHint(err error, hint string) error {
	if err == nil {
		return nil
	}
	return withHint{err, hint}
}

type withHint struct {
	error
	hint string
}

func (w withHint) Unwrap() error { return w.error }

func (w withHint) Hint() string {
	hint := w.hint
	var oldhint HasHint
	if errors.As(w.error, &oldhint) {
		hint = hint + " (" + oldhint.Hint() + ")"
	}
	return hint
}

var _ HasHint = withHint{}
