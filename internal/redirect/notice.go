package redirect

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/automeet/automeet/internal/meet"
	"github.com/automeet/automeet/internal/store"
)

// NoticeHandler runs for ordinary tabs: when this tab's meeting is handed
// over to the app window it covers the page with a notice, and it removes the
// notice again if the app window declines the switch.
//
// Both handlers run on the agent's watch loop, so the handoff bookkeeping
// needs no locking.
type NoticeHandler struct {
	surface meet.Surface
	logger  logrus.FieldLogger

	// shownFor is the ID of the handoff the overlay is currently up for.
	shownFor string
}

// NewNoticeHandler creates a handler for one ordinary tab.
func NewNoticeHandler(surface meet.Surface, logger logrus.FieldLogger) *NoticeHandler {
	return &NoticeHandler{
		surface: surface,
		logger:  logger.WithField("component", "redirect"),
	}
}

// HandlePendingChange shows the redirect overlay when this tab originated
// the pending meeting. Records originating elsewhere are none of this tab's
// business.
func (h *NoticeHandler) HandlePendingChange(ctx context.Context, change store.Change) error {
	pending, err := store.DecodePendingMeeting(change.New)
	if err != nil {
		return err
	}
	if pending.IsZero() || pending.OriginTab != h.surface.TargetID() {
		return nil
	}

	h.logger.Debug("showing redirect notice")
	if err := h.surface.Eval(ctx, meet.ShowOverlayScript(), nil); err != nil {
		return err
	}
	h.shownFor = pending.ID
	return nil
}

// HandleOutcomeChange removes the overlay once the app window declined the
// switch, leaving this tab the active one. Declines of other handoffs leave
// the overlay alone.
func (h *NoticeHandler) HandleOutcomeChange(ctx context.Context, change store.Change) error {
	old, _ := store.DecodeMeetingOutcome(change.Old)
	outcome, err := store.DecodeMeetingOutcome(change.New)
	if err != nil {
		return err
	}
	if outcome.DeclinedAt == 0 || outcome.DeclinedAt == old.DeclinedAt {
		return nil
	}
	if h.shownFor == "" || outcome.PendingID != h.shownFor {
		return nil
	}

	var removed bool
	if err := h.surface.Eval(ctx, meet.RemoveOverlayScript(), &removed); err != nil {
		return err
	}
	h.shownFor = ""
	if removed {
		h.logger.Debug("removed redirect notice after decline")
	}
	return nil
}
