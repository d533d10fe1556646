package redirect

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/automeet/automeet/internal/store"
)

// TabCloser closes browser targets. The browser supervisor implements it.
type TabCloser interface {
	CloseTarget(ctx context.Context, targetID string) error
}

// Coordinator completes the handoff at daemon level: once the app window
// signals it took over a meeting, the originating ordinary tab is closed.
// Pending records originating from the app window itself or from the REST
// API have no tab to close.
type Coordinator struct {
	store  store.Store
	closer TabCloser
	logger logrus.FieldLogger
}

// NewCoordinator creates a coordinator using the given closer.
func NewCoordinator(st store.Store, closer TabCloser, logger logrus.FieldLogger) *Coordinator {
	return &Coordinator{
		store:  st,
		closer: closer,
		logger: logger.WithField("component", "redirect"),
	}
}

// HandleOutcomeChange reacts to a fresh close request on the meeting-outcome
// record.
func (c *Coordinator) HandleOutcomeChange(ctx context.Context, change store.Change) error {
	old, _ := store.DecodeMeetingOutcome(change.Old)
	outcome, err := store.DecodeMeetingOutcome(change.New)
	if err != nil {
		return err
	}
	if outcome.CloseRequestedAt == 0 || outcome.CloseRequestedAt == old.CloseRequestedAt {
		return nil
	}

	pending, err := store.ReadPendingMeeting(ctx, c.store)
	if err != nil {
		return err
	}
	// A mismatched ID means a newer handoff replaced the one this close
	// request answered; its origin tab must stay open.
	if pending.ID == "" || pending.ID != outcome.PendingID {
		c.logger.Debug("close request for a superseded handoff, ignoring")
		return nil
	}
	if pending.Source != store.SourceTab || pending.OriginTab == "" {
		c.logger.WithField("source", pending.Source).Debug("close request without an ordinary-tab origin")
		return nil
	}

	c.logger.WithField("target", pending.OriginTab).Info("closing originating tab")
	return c.closer.CloseTarget(ctx, pending.OriginTab)
}

// Run watches the store for close requests until ctx ends.
func (c *Coordinator) Run(ctx context.Context) {
	subID, changes := c.store.Watch()
	defer c.store.Unsubscribe(subID)

	for {
		select {
		case change, ok := <-changes:
			if !ok {
				return
			}
			if change.Key != store.KeyMeetingOutcome {
				continue
			}
			if err := c.HandleOutcomeChange(ctx, change); err != nil && ctx.Err() == nil {
				c.logger.WithError(err).Warn("could not complete the tab handoff")
			}
		case <-ctx.Done():
			return
		}
	}
}
