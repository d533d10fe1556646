// Package poll provides the bounded retry-until primitive shared by the
// device mute pollers, the join-control poller and the countdown widget
// reinsertion checks. Every loop built on it terminates: either the check
// succeeds, the timeout elapses, or the context is cancelled.
package poll

import (
	"context"
	"errors"
	"time"
)

// Defaults used by all page-control pollers.
const (
	DefaultInterval = 300 * time.Millisecond
	DefaultTimeout  = 15 * time.Second
)

// ErrTimeout is returned by Until when the check never succeeded within the
// timeout. Callers that poll best-effort (the mute pollers) swallow it.
var ErrTimeout = errors.New("polling timed out")

// Check is a single poll attempt. Returning true stops the polling with
// success; returning an error stops it immediately.
type Check func(ctx context.Context) (bool, error)

// Until runs check immediately and then once per interval until it succeeds,
// fails, the timeout elapses (ErrTimeout) or ctx is cancelled (ctx.Err()).
func Until(ctx context.Context, interval, timeout time.Duration, check Check) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := check(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrTimeout
			}
			return ctx.Err()
		}
	}
}
