// Package redirect implements the meeting-link handoff between ordinary
// browser tabs and the installed app window: the app window navigates to
// pending meetings, originating tabs get notified and closed, and conflicts
// with an ongoing call are put to the user.
package redirect

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/automeet/automeet/event"
	"github.com/automeet/automeet/internal/meet"
	"github.com/automeet/automeet/internal/poll"
	"github.com/automeet/automeet/internal/store"
)

// defaultConflictTimeout bounds how long the switch/dismiss prompt waits for
// the user; expiry counts as a dismissal.
const defaultConflictTimeout = 60 * time.Second

// defaultStartupDelay gives an app window that was already open time to
// finish rendering before the one-shot startup check observes it.
const defaultStartupDelay = 3 * time.Second

// Pipeline starts the device auto-mute and auto-join flows on the handler's
// page. The override flag forces an immediate join.
type Pipeline func(ctx context.Context, override bool)

// PWAParams configures a PWAHandler.
type PWAParams struct {
	Surface       meet.Surface
	Store         store.Store
	Events        *event.System
	Logger        logrus.FieldLogger
	StartPipeline Pipeline

	// PollInterval paces the conflict-choice polling and defaults to the
	// poll package default. ConflictTimeout and StartupDelay default to 60s
	// and 3s respectively.
	PollInterval    time.Duration
	ConflictTimeout time.Duration
	StartupDelay    time.Duration
}

// PWAHandler reacts to pending-meeting changes inside the installed app
// window: it navigates to the meeting, asks the user when a different call is
// ongoing, and signals the originating tab to close.
type PWAHandler struct {
	surface       meet.Surface
	store         store.Store
	events        *event.System
	logger        logrus.FieldLogger
	startPipeline Pipeline

	pollInterval    time.Duration
	conflictTimeout time.Duration
	startupDelay    time.Duration
}

// NewPWAHandler creates a handler for one app window page.
func NewPWAHandler(params PWAParams) *PWAHandler {
	conflictTimeout := params.ConflictTimeout
	if conflictTimeout <= 0 {
		conflictTimeout = defaultConflictTimeout
	}
	startupDelay := params.StartupDelay
	if startupDelay <= 0 {
		startupDelay = defaultStartupDelay
	}
	return &PWAHandler{
		surface:         params.Surface,
		store:           params.Store,
		events:          params.Events,
		logger:          params.Logger.WithField("component", "redirect"),
		startPipeline:   params.StartPipeline,
		pollInterval:    params.PollInterval,
		conflictTimeout: conflictTimeout,
		startupDelay:    startupDelay,
	}
}

// HandlePendingChange processes one change notification on the
// pending-meeting record.
func (h *PWAHandler) HandlePendingChange(ctx context.Context, change store.Change) error {
	pending, err := store.DecodePendingMeeting(change.New)
	if err != nil {
		return err
	}
	// The sentinel marks the store's own resets and is never actionable.
	if pending.IsZero() {
		return nil
	}

	destination, err := meet.NormalizeTarget(pending.Target)
	if err != nil {
		return err
	}
	code := meet.CodeFromURL(destination)

	info, err := meet.Observe(ctx, h.surface)
	if err != nil {
		return err
	}

	switch {
	case info.InCall() && info.Code == code:
		// Already on this meeting; just release the originating tab. This
		// also absorbs the record the app window wrote about its own
		// navigation.
		h.logger.WithField("code", code).Debug("already on the pending meeting")
		return store.RequestTabClose(ctx, h.store, pending.ID, time.Now().UnixMilli())

	case info.InCall():
		return h.resolveConflict(ctx, pending.ID, destination, code)

	default:
		return h.navigate(ctx, info, pending.ID, destination, code, false)
	}
}

// resolveConflict prompts the user to switch away from the ongoing call. A
// dismissal, a timeout and a prompt failure all keep the current call.
func (h *PWAHandler) resolveConflict(ctx context.Context, pendingID, destination, code string) error {
	logger := h.logger.WithField("code", code)
	logger.Debug("pending meeting conflicts with an ongoing call")

	if err := h.surface.Eval(ctx, meet.ShowConflictPromptScript(code), nil); err != nil {
		return err
	}
	defer h.removePrompt()

	choice := ""
	err := poll.Until(ctx, h.pollInterval, h.conflictTimeout, func(ctx context.Context) (bool, error) {
		if err := h.surface.Eval(ctx, meet.ConflictChoiceScript(), &choice); err != nil {
			logger.WithError(err).Debug("conflict choice poll failed, retrying")
			return false, nil
		}
		return choice != "", nil
	})
	if err != nil && !errors.Is(err, poll.ErrTimeout) {
		return err
	}

	if choice != "switch" {
		logger.WithField("choice", choice).Debug("user kept the ongoing call")
		return h.decline(ctx, pendingID)
	}

	// Switching an ongoing call skips the countdown on arrival.
	if err := store.SetAutoJoinOverride(ctx, h.store, true); err != nil {
		return err
	}
	info, err := meet.Observe(ctx, h.surface)
	if err != nil {
		return err
	}
	return h.navigate(ctx, info, pendingID, destination, code, true)
}

// decline resets the pending record to the sentinel and stamps the decline,
// so the originating tab drops its redirect notice.
func (h *PWAHandler) decline(ctx context.Context, pendingID string) error {
	if err := store.ResetPendingMeeting(ctx, h.store); err != nil {
		return err
	}
	return store.MarkDeclined(ctx, h.store, pendingID, time.Now().UnixMilli())
}

// navigate loads the destination unless the page is already there, releases
// the originating tab and starts the join pipeline.
func (h *PWAHandler) navigate(ctx context.Context, info meet.PageInfo, pendingID, destination, code string, override bool) error {
	if info.Location != destination {
		if err := h.surface.Navigate(ctx, destination); err != nil {
			return err
		}
		h.logger.WithFields(logrus.Fields{
			"code": code,
			"url":  destination,
		}).Info("redirected app window to meeting")
	} else {
		h.logger.WithField("code", code).Debug("already at the destination, skipping navigation")
	}

	if h.events != nil {
		h.events.Emit(&event.Event{Type: event.RedirectPerformed, Data: event.TargetData{
			TargetID: h.surface.TargetID(),
			Code:     code,
			URL:      destination,
		}})
	}

	if err := store.RequestTabClose(ctx, h.store, pendingID, time.Now().UnixMilli()); err != nil {
		return err
	}

	if h.startPipeline != nil {
		h.startPipeline(ctx, override)
	}
	return nil
}

func (h *PWAHandler) removePrompt() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.surface.Eval(ctx, meet.RemoveConflictPromptScript(), nil); err != nil {
		h.logger.WithError(err).Debug("could not remove conflict prompt")
	}
}

// Startup runs the one-shot delayed check covering an app window that was
// already sitting on the target meeting when the daemon started: if the page
// is on a meeting URL but not yet in the call, the join pipeline starts.
func (h *PWAHandler) Startup(ctx context.Context) {
	select {
	case <-time.After(h.startupDelay):
	case <-ctx.Done():
		return
	}

	info, err := meet.Observe(ctx, h.surface)
	if err != nil {
		h.logger.WithError(err).Debug("startup page observation failed")
		return
	}
	if info.Code == "" || info.InCall() {
		return
	}

	h.logger.WithField("code", info.Code).Debug("app window already on a meeting page, starting pipeline")
	if h.startPipeline != nil {
		h.startPipeline(ctx, false)
	}
}
