// Package automute suppresses the microphone and camera on meeting pages. It
// polls for the pre-join device toggles and clicks each at most once; if a
// toggle never appears the poller expires silently. Muting is best-effort and
// never blocks a join.
package automute

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/automeet/automeet/internal/meet"
	"github.com/automeet/automeet/internal/poll"
	"github.com/automeet/automeet/internal/settings"
)

// Params configures one auto-mute run.
type Params struct {
	Surface     meet.Surface
	Preferences settings.Preferences
	Logger      logrus.FieldLogger

	// Interval and Timeout default to the poll package defaults.
	Interval time.Duration
	Timeout  time.Duration
}

// Run starts one bounded poller per disabled device and blocks until both
// finished, clicked or not. It never returns an error: a control that never
// appears is not a failure.
func Run(ctx context.Context, params Params) {
	logger := params.Logger.WithField("component", "automute")

	var wg sync.WaitGroup
	if params.Preferences.DisableMic.Bool {
		wg.Add(1)
		go func() {
			defer wg.Done()
			muteDevice(ctx, params, meet.MicLabel, logger.WithField("device", "microphone"))
		}()
	}
	if params.Preferences.DisableVideo.Bool {
		wg.Add(1)
		go func() {
			defer wg.Done()
			muteDevice(ctx, params, meet.CameraLabel, logger.WithField("device", "camera"))
		}()
	}
	wg.Wait()
}

func muteDevice(ctx context.Context, params Params, label string, logger logrus.FieldLogger) {
	script := meet.ClickByLabelScript(label)

	err := poll.Until(ctx, params.Interval, params.Timeout, func(ctx context.Context) (bool, error) {
		var clicked bool
		if err := params.Surface.Eval(ctx, script, &clicked); err != nil {
			// The page may still be loading or mid-navigation; keep polling
			// until the timeout settles it.
			logger.WithError(err).Debug("mute attempt failed, retrying")
			return false, nil
		}
		return clicked, nil
	})

	switch {
	case err == nil:
		logger.Debug("device muted")
	case errors.Is(err, poll.ErrTimeout):
		logger.Debug("mute control never appeared")
	default:
		logger.WithError(err).Debug("mute polling stopped")
	}
}
