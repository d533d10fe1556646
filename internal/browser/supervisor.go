// Package browser attaches the daemon to Chrome over the DevTools protocol.
// It either connects to an already running browser or launches one, keeps
// watching the browser's target list for Google Meet pages, and hands every
// discovered page to the rest of the daemon as a meet.Surface.
package browser

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/automeet/automeet/event"
	"github.com/automeet/automeet/internal/meet"
)

const (
	// startTimeout bounds the first contact with the browser.
	startTimeout = 15 * time.Second
	// defaultRescanInterval is how often the target list is re-read.
	defaultRescanInterval = 2 * time.Second
)

// OnTargetFunc is called once for every Meet page the supervisor attaches to.
// The context ends when the target disappears or the supervisor shuts down.
type OnTargetFunc func(ctx context.Context, page *Page)

// SupervisorParams configure a Supervisor.
type SupervisorParams struct {
	Config   Config
	Events   *event.System
	Logger   logrus.FieldLogger
	OnTarget OnTargetFunc

	// RescanInterval overrides how often targets are re-read. Zero means the
	// default.
	RescanInterval time.Duration
	// OpTimeout overrides the per-operation timeout of attached pages. Zero
	// means the default.
	OpTimeout time.Duration
}

// Supervisor owns the CDP connection. It discovers Meet pages among the
// browser's targets, attaches a Page to each, reaps the ones that disappear,
// and closes tabs on request.
type Supervisor struct {
	cfg      Config
	events   *event.System
	logger   logrus.FieldLogger
	onTarget OnTargetFunc
	rescan   time.Duration
	opTime   time.Duration

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu    sync.Mutex
	pages map[target.ID]*Page
	urls  map[target.ID]string

	watching atomic.Bool
	done     chan struct{}
}

// NewSupervisor returns an unstarted Supervisor.
func NewSupervisor(params SupervisorParams) *Supervisor {
	rescan := params.RescanInterval
	if rescan <= 0 {
		rescan = defaultRescanInterval
	}
	opTime := params.OpTimeout
	if opTime <= 0 {
		opTime = defaultOpTimeout
	}
	return &Supervisor{
		cfg:      params.Config,
		events:   params.Events,
		logger:   params.Logger.WithField("component", "browser"),
		onTarget: params.OnTarget,
		rescan:   rescan,
		opTime:   opTime,
		pages:    make(map[target.ID]*Page),
		urls:     make(map[target.ID]string),
		done:     make(chan struct{}),
	}
}

// Start connects to (or launches) the browser, attaches to the Meet pages it
// already has, and begins watching for new ones. It returns once the browser
// answered or the start timeout expired.
func (s *Supervisor) Start(ctx context.Context) error {
	allocCtx, allocCancel, err := s.allocator(ctx)
	if err != nil {
		return err
	}
	s.allocCancel = allocCancel
	s.browserCtx, s.browserCancel = chromedp.NewContext(allocCtx)

	// First contact doubles as the initial scan. chromedp connects lazily, so
	// listing targets is what actually dials the browser.
	startCtx, startDone := context.WithTimeout(ctx, startTimeout)
	defer startDone()

	type listing struct {
		infos []*target.Info
		err   error
	}
	firstCh := make(chan listing, 1)
	go func() {
		infos, err := chromedp.Targets(s.browserCtx)
		firstCh <- listing{infos, err}
	}()

	select {
	case first := <-firstCh:
		if first.err != nil {
			s.teardown()
			return fmt.Errorf("could not reach the browser: %w", first.err)
		}
		s.inspect(first.infos)
	case <-startCtx.Done():
		s.teardown()
		return fmt.Errorf("browser did not answer within %s", startTimeout)
	}

	s.watching.Store(true)
	go s.watch()
	return nil
}

// allocator builds the chromedp allocator context: an exec allocator when the
// config names a binary to launch, a remote one otherwise.
func (s *Supervisor) allocator(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if s.cfg.Launches() {
		s.logger.WithField("execPath", s.cfg.ExecPath.String).Info("launching browser")
		allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), launchOpts(s.cfg)...)
		return allocCtx, cancel, nil
	}

	address := s.cfg.Address.String
	wsURL, err := ResolveDebuggerURL(ctx, address)
	if err != nil {
		return nil, nil, err
	}
	s.logger.WithField("address", address).Info("attaching to running browser")
	allocCtx, cancel := chromedp.NewRemoteAllocator(context.Background(), wsURL)
	return allocCtx, cancel, nil
}

// launchOpts translates the config into Chrome command line options. The
// background throttling flags matter: the countdown widget runs page-side
// timers in tabs the user may not have focused.
func launchOpts(cfg Config) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.ExecPath(cfg.ExecPath.String),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-session-crashed-bubble", true),
		chromedp.Flag("hide-crash-restore-bubble", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.WindowSize(1366, 768),
	}
	if cfg.UserDataDir.Valid && cfg.UserDataDir.String != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir.String))
	}
	if cfg.Headless.Bool {
		opts = append(opts, chromedp.Headless)
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	return opts
}

// watch re-reads the target list until the supervisor stops.
func (s *Supervisor) watch() {
	defer close(s.done)

	ticker := time.NewTicker(s.rescan)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			infos, err := chromedp.Targets(s.browserCtx)
			if err != nil {
				if s.browserCtx.Err() != nil {
					return
				}
				s.logger.WithError(err).Warn("could not list browser targets")
				continue
			}
			s.inspect(infos)
		case <-s.browserCtx.Done():
			return
		}
	}
}

// inspect reconciles the attached pages with a fresh target listing: Meet
// pages get attached, vanished ones get reaped. A tab that navigated away
// from the Meet host counts as vanished.
func (s *Supervisor) inspect(infos []*target.Info) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[target.ID]bool, len(infos))
	for _, info := range infos {
		if info.Type != "page" || !meet.MatchesHost(info.URL) {
			continue
		}
		seen[info.TargetID] = true
		s.urls[info.TargetID] = info.URL
		if _, ok := s.pages[info.TargetID]; ok {
			continue
		}
		s.attach(info)
	}

	for id, page := range s.pages {
		if seen[id] {
			continue
		}
		page.detach()
		delete(s.pages, id)
		delete(s.urls, id)
		s.logger.WithField("target", id).Info("meet page went away")
		s.events.Emit(&event.Event{
			Type: event.TargetDetached,
			Data: event.TargetData{TargetID: string(id)},
		})
	}
}

// attach wires up a newly discovered Meet page. Callers hold s.mu.
func (s *Supervisor) attach(info *target.Info) {
	tabCtx, tabCancel := chromedp.NewContext(s.browserCtx, chromedp.WithTargetID(info.TargetID))
	page := &Page{
		id:         info.TargetID,
		ctx:        tabCtx,
		cancel:     tabCancel,
		opTimeout:  s.opTime,
		navTimeout: defaultNavigateTimeout,
	}
	s.pages[info.TargetID] = page

	s.logger.WithFields(logrus.Fields{
		"target": info.TargetID,
		"url":    info.URL,
	}).Info("attached to meet page")
	s.events.Emit(&event.Event{
		Type: event.TargetAttached,
		Data: event.TargetData{
			TargetID: string(info.TargetID),
			Code:     meet.CodeFromURL(info.URL),
			URL:      info.URL,
		},
	})

	if s.onTarget != nil {
		go s.onTarget(tabCtx, page)
	}
}

// CloseTarget closes the tab behind an attached target.
func (s *Supervisor) CloseTarget(ctx context.Context, targetID string) error {
	s.mu.Lock()
	page, ok := s.pages[target.ID(targetID)]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("no attached target %q", targetID)
	}
	return page.CloseTab(ctx)
}

// Snapshot lists the currently attached Meet pages with their last observed
// URLs, ordered by target ID.
func (s *Supervisor) Snapshot() []event.TargetData {
	s.mu.Lock()
	defer s.mu.Unlock()

	targets := make([]event.TargetData, 0, len(s.pages))
	for id := range s.pages {
		url := s.urls[id]
		targets = append(targets, event.TargetData{
			TargetID: string(id),
			Code:     meet.CodeFromURL(url),
			URL:      url,
		})
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].TargetID < targets[j].TargetID })
	return targets
}

// Stop disconnects from the browser and waits for the watcher to exit. A
// launched browser process is terminated; an attached one keeps running.
func (s *Supervisor) Stop() {
	s.teardown()
	if s.watching.Load() {
		<-s.done
	}
}

func (s *Supervisor) teardown() {
	s.mu.Lock()
	for id, page := range s.pages {
		page.detach()
		delete(s.pages, id)
		delete(s.urls, id)
	}
	s.mu.Unlock()

	if s.browserCancel != nil {
		s.browserCancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
}
