// Package autojoin clicks the join control of a waiting meeting, either
// immediately (one-shot override) or after a spoken, cancellable countdown.
package autojoin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/automeet/automeet/event"
	"github.com/automeet/automeet/internal/meet"
	"github.com/automeet/automeet/internal/poll"
	"github.com/automeet/automeet/internal/settings"
	"github.com/automeet/automeet/internal/store"
)

// defaultTick is the countdown cadence.
const defaultTick = time.Second

// teardownTimeout bounds the widget cleanup evals that run after the
// countdown's own context is already cancelled.
const teardownTimeout = 2 * time.Second

// errInCall aborts the join-control polling once the page turns out to be on
// an active call already.
var errInCall = errors.New("already on an active call")

// Speaker voices countdown announcements. The speech service implements it.
type Speaker interface {
	Speak(text string)
}

// Params configures a Joiner.
type Params struct {
	Surface meet.Surface
	Store   store.Store
	Speaker Speaker
	Events  *event.System
	Logger  logrus.FieldLogger

	// PollInterval and PollTimeout bound the join-control polling and
	// default to the poll package defaults. Tick defaults to one second.
	PollInterval time.Duration
	PollTimeout  time.Duration
	Tick         time.Duration
}

// Joiner runs the auto-join flow for one page. At most one flow is active at
// a time: starting a new one first cancels and waits out the previous one.
type Joiner struct {
	surface meet.Surface
	store   store.Store
	speaker Speaker
	events  *event.System
	logger  logrus.FieldLogger

	pollInterval time.Duration
	pollTimeout  time.Duration
	tick         time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an idle Joiner.
func New(params Params) *Joiner {
	tick := params.Tick
	if tick <= 0 {
		tick = defaultTick
	}
	return &Joiner{
		surface:      params.Surface,
		store:        params.Store,
		speaker:      params.Speaker,
		events:       params.Events,
		logger:       params.Logger.WithField("component", "autojoin"),
		pollInterval: params.PollInterval,
		pollTimeout:  params.PollTimeout,
		tick:         tick,
	}
}

// Start launches the join flow appropriate for the given preferences,
// cancelling any flow already running. With override set the countdown is
// bypassed and the join happens as soon as a control shows up; otherwise a
// countdown runs only when the preferences ask for auto-join.
func (j *Joiner) Start(ctx context.Context, prefs settings.Preferences, override bool) {
	if !override && !prefs.AutoJoin.Bool {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.cancelAndWaitLocked()

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	j.cancel, j.done = cancel, done

	go func() {
		defer close(done)
		if override {
			j.joinNow(runCtx)
			return
		}
		j.countdown(runCtx, prefs)
	}()
}

// Cancel stops any running flow and waits for its cleanup. It is idempotent
// and safe to call on an idle Joiner.
func (j *Joiner) Cancel() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cancelAndWaitLocked()
}

func (j *Joiner) cancelAndWaitLocked() {
	if j.cancel == nil {
		return
	}
	j.cancel()
	<-j.done
	j.cancel, j.done = nil, nil
}

// joinNow is the override path: wait for a join control while not on a call,
// clear the one-shot override flag and click once.
func (j *Joiner) joinNow(ctx context.Context) {
	err := poll.Until(ctx, j.pollInterval, j.pollTimeout, func(ctx context.Context) (bool, error) {
		info, err := meet.Observe(ctx, j.surface)
		if err != nil {
			j.logger.WithError(err).Debug("page observation failed, retrying")
			return false, nil
		}
		if info.InCall() {
			return false, errInCall
		}
		return info.JoinControl, nil
	})
	switch {
	case errors.Is(err, errInCall):
		j.logger.Debug("already on a call, override consumed by navigation")
		j.clearOverride(ctx)
		return
	case errors.Is(err, poll.ErrTimeout):
		j.logger.Debug("no join control appeared, giving up on override join")
		return
	case err != nil:
		return
	}

	j.clearOverride(ctx)
	j.click(ctx)
}

// countdown is the announced path: wait for a join control, then count down
// and click when the counter elapses.
func (j *Joiner) countdown(ctx context.Context, prefs settings.Preferences) {
	err := poll.Until(ctx, j.pollInterval, j.pollTimeout, func(ctx context.Context) (bool, error) {
		info, err := meet.Observe(ctx, j.surface)
		if err != nil {
			j.logger.WithError(err).Debug("page observation failed, retrying")
			return false, nil
		}
		if info.InCall() {
			return false, errInCall
		}
		return info.JoinControl, nil
	})
	if err != nil {
		if errors.Is(err, poll.ErrTimeout) {
			j.logger.Debug("no join control appeared, giving up on auto-join")
		}
		return
	}

	// Drop widget state a previous countdown may have left on the page.
	j.evalBestEffort(ctx, meet.RemoveCountdownScript())

	duration := prefs.CountdownSeconds()
	interval := prefs.AnnounceIntervalSeconds()
	j.logger.WithFields(logrus.Fields{
		"duration": duration,
		"interval": interval,
	}).Debug("starting auto-join countdown")

	for remaining := duration; remaining > 0; remaining-- {
		// Never reinsert the widget over a cancellation the user already made.
		var flag bool
		if err := j.surface.Eval(ctx, meet.CancelRequestedScript(), &flag); err == nil && flag {
			j.userCancelled()
			return
		}

		var shown bool
		if err := j.surface.Eval(ctx, meet.ShowCountdownScript(remaining), &shown); err != nil || !shown {
			j.logger.Debug("join control disappeared, aborting countdown")
			j.teardown()
			return
		}

		switch {
		case remaining == duration:
			j.speaker.Speak(fmt.Sprintf("Auto-joining meeting in %d seconds", remaining))
		case remaining%interval == 0:
			j.speaker.Speak(fmt.Sprintf("Auto-joining in %d seconds", remaining))
		}

		cancelled, err := j.waitTick(ctx)
		if err != nil {
			j.teardown()
			return
		}
		if cancelled {
			j.userCancelled()
			return
		}
	}

	j.speaker.Speak("Joining meeting now")
	j.teardown()
	j.click(ctx)
}

func (j *Joiner) userCancelled() {
	j.speaker.Speak("Auto-join cancelled")
	j.teardown()
	j.emit(event.CountdownCancelled)
	j.logger.Debug("auto-join countdown cancelled by the user")
}

// waitTick sleeps one countdown tick while watching the page's cancel flag.
func (j *Joiner) waitTick(ctx context.Context) (cancelled bool, err error) {
	deadline := time.NewTimer(j.tick)
	defer deadline.Stop()
	checks := time.NewTicker(j.tick / 4)
	defer checks.Stop()

	for {
		select {
		case <-deadline.C:
			return false, nil
		case <-checks.C:
			var flag bool
			if err := j.surface.Eval(ctx, meet.CancelRequestedScript(), &flag); err == nil && flag {
				return true, nil
			}
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}

// click clicks the re-resolved join control once and reports the join.
func (j *Joiner) click(ctx context.Context) {
	var clicked bool
	if err := j.surface.Eval(ctx, meet.ClickJoinScript(), &clicked); err != nil {
		j.logger.WithError(err).Debug("join click failed")
		return
	}
	if !clicked {
		j.logger.Debug("join control disappeared right before the click")
		return
	}
	j.logger.Info("joined meeting")
	j.emit(event.MeetingJoined)
}

func (j *Joiner) clearOverride(ctx context.Context) {
	if err := store.SetAutoJoinOverride(ctx, j.store, false); err != nil {
		j.logger.WithError(err).Warn("could not clear the auto-join override flag")
	}
}

// teardown removes the countdown widget. It runs on a fresh context so the
// cleanup still happens when the flow itself was cancelled.
func (j *Joiner) teardown() {
	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()
	j.evalBestEffort(ctx, meet.RemoveCountdownScript())
}

func (j *Joiner) evalBestEffort(ctx context.Context, expr string) {
	if err := j.surface.Eval(ctx, expr, nil); err != nil {
		j.logger.WithError(err).Debug("page script failed")
	}
}

func (j *Joiner) emit(typ event.Type) {
	if j.events == nil {
		return
	}
	data := event.TargetData{TargetID: j.surface.TargetID()}
	if location, err := j.surface.Location(context.Background()); err == nil {
		data.Code = meet.CodeFromURL(location)
	}
	j.events.Emit(&event.Event{Type: typ, Data: data})
}
