// Package agent runs the per-target behavior of the daemon. Every attached
// Google Meet page gets one Agent: it figures out whether the page is the
// installed app window or an ordinary tab, announces meeting navigations on
// the shared store, dispatches store changes to the role's handlers, and
// starts the auto-mute / auto-join pipeline when its page arrives on a
// meeting.
package agent

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/automeet/automeet/event"
	"github.com/automeet/automeet/internal/autojoin"
	"github.com/automeet/automeet/internal/automute"
	"github.com/automeet/automeet/internal/meet"
	"github.com/automeet/automeet/internal/poll"
	"github.com/automeet/automeet/internal/redirect"
	"github.com/automeet/automeet/internal/settings"
	"github.com/automeet/automeet/internal/store"
)

// Role tells the two kinds of Meet windows apart.
type Role string

const (
	// RolePWA is the installed app window (standalone display mode).
	RolePWA Role = "pwa"
	// RoleTab is an ordinary browser tab.
	RoleTab Role = "tab"
)

// defaultLocationInterval is how often the agent re-reads the page location
// to notice meeting navigations.
const defaultLocationInterval = time.Second

// Params configure an Agent.
type Params struct {
	Surface meet.Surface
	Store   store.Store
	Events  *event.System
	Speaker autojoin.Speaker
	Logger  logrus.FieldLogger
	// Env feeds environment overrides into the consolidated preferences.
	Env map[string]string

	// Zero values mean production defaults.
	PollInterval     time.Duration
	PollTimeout      time.Duration
	Tick             time.Duration
	ConflictTimeout  time.Duration
	StartupDelay     time.Duration
	LocationInterval time.Duration
}

// Agent drives one Meet page.
type Agent struct {
	surface meet.Surface
	store   store.Store
	events  *event.System
	logger  logrus.FieldLogger
	env     map[string]string

	pollInterval     time.Duration
	pollTimeout      time.Duration
	conflictTimeout  time.Duration
	startupDelay     time.Duration
	locationInterval time.Duration

	joiner *autojoin.Joiner

	mu     sync.Mutex
	role   Role
	pwa    *redirect.PWAHandler
	notice *redirect.NoticeHandler
}

// New returns an agent for the given page. Call Run to start it.
func New(params Params) *Agent {
	locationInterval := params.LocationInterval
	if locationInterval <= 0 {
		locationInterval = defaultLocationInterval
	}
	a := &Agent{
		surface: params.Surface,
		store:   params.Store,
		events:  params.Events,
		logger: params.Logger.WithFields(logrus.Fields{
			"component": "agent",
			"target":    params.Surface.TargetID(),
		}),
		env:              params.Env,
		pollInterval:     params.PollInterval,
		pollTimeout:      params.PollTimeout,
		conflictTimeout:  params.ConflictTimeout,
		startupDelay:     params.StartupDelay,
		locationInterval: locationInterval,
	}
	a.joiner = autojoin.New(autojoin.Params{
		Surface:      params.Surface,
		Store:        params.Store,
		Speaker:      params.Speaker,
		Events:       params.Events,
		Logger:       params.Logger,
		PollInterval: params.PollInterval,
		PollTimeout:  params.PollTimeout,
		Tick:         params.Tick,
	})
	return a
}

// Run drives the page until ctx ends.
func (a *Agent) Run(ctx context.Context) {
	role := a.detectRole(ctx)
	if ctx.Err() != nil {
		return
	}
	a.setRole(role)
	logger := a.logger.WithField("role", string(role))
	logger.Info("agent started")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.watchStore(ctx)
	}()
	go func() {
		defer wg.Done()
		a.watchLocation(ctx)
	}()
	if role == RolePWA {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.pwaHandler().Startup(ctx)
		}()
	}
	wg.Wait()

	a.joiner.Cancel()
	logger.Debug("agent stopped")
}

// Role returns the detected role, or "" while detection is still running.
func (a *Agent) Role() Role {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.role
}

func (a *Agent) setRole(role Role) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.role = role
	if role == RolePWA {
		a.pwa = redirect.NewPWAHandler(redirect.PWAParams{
			Surface:         a.surface,
			Store:           a.store,
			Events:          a.events,
			Logger:          a.logger,
			StartPipeline:   a.startPipeline,
			PollInterval:    a.pollInterval,
			ConflictTimeout: a.conflictTimeout,
			StartupDelay:    a.startupDelay,
		})
		return
	}
	a.notice = redirect.NewNoticeHandler(a.surface, a.logger)
}

func (a *Agent) pwaHandler() *redirect.PWAHandler {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pwa
}

func (a *Agent) noticeHandler() *redirect.NoticeHandler {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.notice
}

// detectRole asks the page for its display mode. A page that cannot answer
// within the poll window is treated as an ordinary tab.
func (a *Agent) detectRole(ctx context.Context) Role {
	standalone := false
	err := poll.Until(ctx, a.pollInterval, a.pollTimeout, func(ctx context.Context) (bool, error) {
		var out bool
		if err := a.surface.Eval(ctx, meet.DisplayModeStandaloneScript(), &out); err != nil {
			// The page may still be loading.
			return false, nil
		}
		standalone = out
		return true, nil
	})
	if err != nil {
		if ctx.Err() == nil {
			a.logger.WithError(err).Warn("could not read the window display mode, assuming an ordinary tab")
		}
		return RoleTab
	}
	if standalone {
		return RolePWA
	}
	return RoleTab
}

// watchStore dispatches store changes to the role's handlers until ctx ends.
func (a *Agent) watchStore(ctx context.Context) {
	subID, changes := a.store.Watch()
	defer a.store.Unsubscribe(subID)

	for {
		select {
		case change, ok := <-changes:
			if !ok {
				return
			}
			a.dispatch(ctx, change)
		case <-ctx.Done():
			return
		}
	}
}

func (a *Agent) dispatch(ctx context.Context, change store.Change) {
	switch change.Key {
	case store.KeyPendingMeeting:
		if a.Role() == RolePWA {
			if err := a.pwaHandler().HandlePendingChange(ctx, change); err != nil && ctx.Err() == nil {
				a.logger.WithError(err).Warn("could not handle the pending meeting")
			}
			return
		}
		if err := a.noticeHandler().HandlePendingChange(ctx, change); err != nil && ctx.Err() == nil {
			a.logger.WithError(err).Warn("could not show the redirect notice")
		}
	case store.KeyMeetingOutcome:
		if a.Role() != RoleTab {
			return
		}
		if err := a.noticeHandler().HandleOutcomeChange(ctx, change); err != nil && ctx.Err() == nil {
			a.logger.WithError(err).Warn("could not update the redirect notice")
		}
	}
}

// watchLocation notices the page landing on a meeting and announces it as a
// pending meeting. A meeting the page was already in a call on when observed
// is absorbed silently, so attaching to a long-running call never drags it
// into the app window.
func (a *Agent) watchLocation(ctx context.Context) {
	ticker := time.NewTicker(a.locationInterval)
	defer ticker.Stop()

	lastCode := ""
	for {
		select {
		case <-ticker.C:
			lastCode = a.observeLocation(ctx, lastCode)
		case <-ctx.Done():
			return
		}
	}
}

// observeLocation returns the meeting code to compare against on the next
// tick: leaving a meeting re-arms the watcher, transient failures keep the
// previous code so the navigation is retried.
func (a *Agent) observeLocation(ctx context.Context, lastCode string) string {
	loc, err := a.surface.Location(ctx)
	if err != nil {
		return lastCode
	}
	code := meet.CodeFromURL(loc)
	if code == "" || code == lastCode {
		return code
	}

	info, err := meet.Observe(ctx, a.surface)
	if err != nil {
		a.logger.WithError(err).Debug("could not classify the page, retrying")
		return lastCode
	}
	if info.InCall() {
		return code
	}
	if err := a.announce(ctx, loc); err != nil {
		if ctx.Err() == nil {
			a.logger.WithError(err).Warn("could not announce the meeting navigation")
		}
		return lastCode
	}
	return code
}

// announce writes the pending-meeting record the other contexts react to.
func (a *Agent) announce(ctx context.Context, loc string) error {
	u, err := url.Parse(loc)
	if err != nil {
		return fmt.Errorf("unparseable page location %q: %w", loc, err)
	}
	target := u.Path
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}

	source := store.SourceTab
	if a.Role() == RolePWA {
		source = store.SourcePWA
	}
	pending := store.PendingMeeting{
		Target:    target,
		OriginTab: a.surface.TargetID(),
		Source:    source,
	}
	if err := store.WritePendingMeeting(ctx, a.store, pending); err != nil {
		return err
	}
	a.logger.WithField("meeting", target).Info("meeting navigation announced")
	return nil
}

// startPipeline kicks off the device auto-mute pollers and the auto-joiner.
// It consumes the stored one-shot override when the caller didn't already
// carry one.
func (a *Agent) startPipeline(ctx context.Context, override bool) {
	prefs, err := a.preferences(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		a.logger.WithError(err).Warn("could not load preferences, using defaults")
		prefs = settings.NewPreferences()
	}
	if !override {
		armed, err := store.ReadAutoJoinOverride(ctx, a.store)
		if err != nil {
			a.logger.WithError(err).Warn("could not read the auto-join override")
		} else {
			override = armed
		}
	}

	go automute.Run(ctx, automute.Params{
		Surface:     a.surface,
		Preferences: prefs,
		Logger:      a.logger,
		Interval:    a.pollInterval,
		Timeout:     a.pollTimeout,
	})
	a.joiner.Start(ctx, prefs, override)
}

// preferences assembles the effective preferences: defaults, then the
// environment, then the stored record.
func (a *Agent) preferences(ctx context.Context) (settings.Preferences, error) {
	stored, err := a.store.Get(ctx, settings.StoredKeys()...)
	if err != nil {
		return settings.Preferences{}, err
	}
	return settings.GetConsolidatedPreferences(stored, a.env)
}
