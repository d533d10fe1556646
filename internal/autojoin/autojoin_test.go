package autojoin

import (
	"context"
	"regexp"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"

	"github.com/automeet/automeet/event"
	"github.com/automeet/automeet/internal/lib/testutils"
	"github.com/automeet/automeet/internal/meet"
	"github.com/automeet/automeet/internal/meet/meettest"
	"github.com/automeet/automeet/internal/settings"
	"github.com/automeet/automeet/internal/store"
	"github.com/automeet/automeet/lib/fsext"
)

const lobbyHTML = `<html><body>
<div role="button">Ask to join</div>
</body></html>`

const inCallHTML = `<html><body>
<div aria-label="Call controls"><button>leave</button></div>
</body></html>`

var remainingRe = regexp.MustCompile(`'Auto-joining in ' \+ (\d+) \+`)

// fakePage scripts a meeting page for the joiner: it serves lobby HTML and
// answers the injected scripts, recording clicks and widget updates.
type fakePage struct {
	*meettest.FakeSurface

	mu         sync.Mutex
	clicks     int
	cancelFlag bool
	shows      []int64
	widgetGone bool
}

func newFakePage(html string) *fakePage {
	p := &fakePage{
		FakeSurface: meettest.NewFakeSurface("T1", "https://meet.google.com/abc-defg-hij?authuser=0", html),
	}
	p.EvalFn = p.eval
	return p
}

func (p *fakePage) eval(_ context.Context, expr string, out any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch expr {
	case meet.ClickJoinScript():
		p.clicks++
		return meettest.Resolve(out, true)
	case meet.CancelRequestedScript():
		return meettest.Resolve(out, p.cancelFlag)
	case meet.RemoveCountdownScript():
		return meettest.Resolve(out, true)
	}
	if m := remainingRe.FindStringSubmatch(expr); m != nil {
		remaining, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return err
		}
		if p.widgetGone {
			return meettest.Resolve(out, false)
		}
		p.shows = append(p.shows, remaining)
		return meettest.Resolve(out, true)
	}
	return meettest.Resolve(out, false)
}

func (p *fakePage) clickCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clicks
}

func (p *fakePage) setCancel(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelFlag = v
}

func (p *fakePage) setWidgetGone(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.widgetGone = v
}

func (p *fakePage) showCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.shows)
}

type fakeSpeaker struct {
	mu    sync.Mutex
	texts []string
}

func (s *fakeSpeaker) Speak(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
}

func (s *fakeSpeaker) spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

func (s *fakeSpeaker) count(text string) int {
	n := 0
	for _, spoken := range s.spoken() {
		if spoken == text {
			n++
		}
	}
	return n
}

func openStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.New(context.Background(), store.Params{
		DefaultPath: "/data/settings.json",
		FS:          fsext.NewMemMapFs(),
		Logger:      testutils.NewLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func prefsWithCountdown(duration, interval int64) settings.Preferences {
	return settings.Preferences{
		AutoJoin:                null.BoolFrom(true),
		CountdownDuration:       null.IntFrom(duration),
		TTSAnnouncementInterval: null.IntFrom(interval),
	}
}

func newTestJoiner(t *testing.T, page *fakePage, speaker *fakeSpeaker, events *event.System) *Joiner {
	t.Helper()
	return New(Params{
		Surface:      page,
		Store:        openStore(t),
		Speaker:      speaker,
		Events:       events,
		Logger:       testutils.NewLogger(t),
		PollInterval: time.Millisecond,
		PollTimeout:  time.Second,
		Tick:         5 * time.Millisecond,
	})
}

func TestCountdownSpokenSequence(t *testing.T) {
	t.Parallel()
	page := newFakePage(lobbyHTML)
	speaker := &fakeSpeaker{}
	joiner := newTestJoiner(t, page, speaker, nil)

	joiner.Start(context.Background(), prefsWithCountdown(3, 1), false)

	require.Eventually(t, func() bool {
		return page.clickCount() == 1
	}, time.Second, time.Millisecond)
	joiner.Cancel() // joins the finished flow

	assert.Equal(t, []string{
		"Auto-joining meeting in 3 seconds",
		"Auto-joining in 2 seconds",
		"Auto-joining in 1 seconds",
		"Joining meeting now",
	}, speaker.spoken())
	assert.Equal(t, 1, page.clickCount())
}

func TestCountdownAnnouncementSchedule(t *testing.T) {
	t.Parallel()
	page := newFakePage(lobbyHTML)
	speaker := &fakeSpeaker{}
	joiner := newTestJoiner(t, page, speaker, nil)

	joiner.Start(context.Background(), prefsWithCountdown(7, 3), false)

	require.Eventually(t, func() bool {
		return page.clickCount() == 1
	}, time.Second, time.Millisecond)
	joiner.Cancel()

	// One announcement at the start, one per interval multiple in between,
	// one at completion.
	assert.Equal(t, []string{
		"Auto-joining meeting in 7 seconds",
		"Auto-joining in 6 seconds",
		"Auto-joining in 3 seconds",
		"Joining meeting now",
	}, speaker.spoken())
}

func TestCountdownZeroDurationJoinsImmediately(t *testing.T) {
	t.Parallel()
	page := newFakePage(lobbyHTML)
	speaker := &fakeSpeaker{}
	joiner := newTestJoiner(t, page, speaker, nil)

	joiner.Start(context.Background(), prefsWithCountdown(0, 5), false)

	require.Eventually(t, func() bool {
		return page.clickCount() == 1
	}, time.Second, time.Millisecond)
	joiner.Cancel()

	assert.Equal(t, []string{"Joining meeting now"}, speaker.spoken())
	assert.Zero(t, page.showCount(), "no widget for an immediate join")
}

func TestCancelNeverJoins(t *testing.T) {
	t.Parallel()
	page := newFakePage(lobbyHTML)
	speaker := &fakeSpeaker{}
	logger := testutils.NewLogger(t)
	events := event.NewSystem(logger)
	_, eventsCh := events.Subscribe(event.CountdownCancelled)
	joiner := newTestJoiner(t, page, speaker, events)

	joiner.Start(context.Background(), prefsWithCountdown(1000, 30), false)

	require.Eventually(t, func() bool {
		return page.showCount() >= 1
	}, time.Second, time.Millisecond)
	page.setCancel(true)

	select {
	case evt := <-eventsCh:
		assert.Equal(t, event.CountdownCancelled, evt.Type)
	case <-time.After(time.Second):
		t.Fatal("no cancellation event")
	}
	joiner.Cancel()

	spoken := speaker.spoken()
	require.NotEmpty(t, spoken)
	assert.Equal(t, "Auto-join cancelled", spoken[len(spoken)-1])
	assert.Zero(t, page.clickCount(), "a cancelled countdown must never click join")
	assert.Zero(t, speaker.count("Joining meeting now"))
}

func TestStartCancelsPriorCountdown(t *testing.T) {
	t.Parallel()
	page := newFakePage(lobbyHTML)
	speaker := &fakeSpeaker{}
	joiner := newTestJoiner(t, page, speaker, nil)
	ctx := context.Background()

	joiner.Start(ctx, prefsWithCountdown(1000, 30), false)
	require.Eventually(t, func() bool {
		return page.showCount() >= 1
	}, time.Second, time.Millisecond)

	// The second flow must displace the first: exactly one join happens, and
	// it is the short countdown's.
	joiner.Start(ctx, prefsWithCountdown(2, 30), false)

	require.Eventually(t, func() bool {
		return page.clickCount() == 1
	}, time.Second, time.Millisecond)
	joiner.Cancel()

	assert.Equal(t, 1, speaker.count("Auto-joining meeting in 2 seconds"))
	assert.Equal(t, 1, speaker.count("Joining meeting now"))
	assert.Equal(t, 1, page.clickCount())

	// Give a lingering first countdown a chance to misbehave.
	time.Sleep(25 * time.Millisecond)
	assert.Equal(t, 1, page.clickCount())
}

func TestCountdownAbortsWhenJoinControlVanishes(t *testing.T) {
	t.Parallel()
	page := newFakePage(lobbyHTML)
	speaker := &fakeSpeaker{}
	joiner := newTestJoiner(t, page, speaker, nil)

	joiner.Start(context.Background(), prefsWithCountdown(1000, 30), false)
	require.Eventually(t, func() bool {
		return page.showCount() >= 1
	}, time.Second, time.Millisecond)

	page.setWidgetGone(true)

	require.Eventually(t, func() bool {
		// The flow ends without a click and without the completion text.
		joiner.mu.Lock()
		defer joiner.mu.Unlock()
		return joiner.cancel == nil || channelClosed(joiner.done)
	}, time.Second, time.Millisecond)
	joiner.Cancel()

	assert.Zero(t, page.clickCount())
	assert.Zero(t, speaker.count("Joining meeting now"))
}

func channelClosed(ch chan struct{}) bool {
	if ch == nil {
		return true
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestOverrideJoinsWithoutCountdown(t *testing.T) {
	t.Parallel()
	page := newFakePage(lobbyHTML)
	speaker := &fakeSpeaker{}
	logger := testutils.NewLogger(t)
	events := event.NewSystem(logger)
	_, eventsCh := events.Subscribe(event.MeetingJoined)

	joiner := New(Params{
		Surface:      page,
		Store:        openStore(t),
		Speaker:      speaker,
		Events:       events,
		Logger:       logger,
		PollInterval: time.Millisecond,
		PollTimeout:  time.Second,
		Tick:         5 * time.Millisecond,
	})
	ctx := context.Background()
	require.NoError(t, store.SetAutoJoinOverride(ctx, joiner.store, true))

	// Auto-join is off; the override alone must drive the join.
	joiner.Start(ctx, settings.Preferences{AutoJoin: null.BoolFrom(false)}, true)

	select {
	case evt := <-eventsCh:
		assert.Equal(t, event.MeetingJoined, evt.Type)
	case <-time.After(time.Second):
		t.Fatal("no join event")
	}
	joiner.Cancel()

	assert.Equal(t, 1, page.clickCount())
	assert.Empty(t, speaker.spoken(), "the override path is silent")
	assert.Zero(t, page.showCount(), "the override path renders no widget")

	armed, err := store.ReadAutoJoinOverride(ctx, joiner.store)
	require.NoError(t, err)
	assert.False(t, armed, "the override is one-shot and must be cleared on consumption")
}

func TestOverrideConsumedWhenAlreadyInCall(t *testing.T) {
	t.Parallel()
	page := newFakePage(inCallHTML)
	speaker := &fakeSpeaker{}
	joiner := newTestJoiner(t, page, speaker, nil)
	ctx := context.Background()
	require.NoError(t, store.SetAutoJoinOverride(ctx, joiner.store, true))

	joiner.Start(ctx, settings.Preferences{}, true)

	require.Eventually(t, func() bool {
		armed, err := store.ReadAutoJoinOverride(ctx, joiner.store)
		return err == nil && !armed
	}, time.Second, time.Millisecond)
	joiner.Cancel()

	assert.Zero(t, page.clickCount(), "no join click on a page that is already in the call")
}

func TestStartWithoutAutoJoinIsANoop(t *testing.T) {
	t.Parallel()
	page := newFakePage(lobbyHTML)
	joiner := newTestJoiner(t, page, &fakeSpeaker{}, nil)

	joiner.Start(context.Background(), settings.Preferences{AutoJoin: null.BoolFrom(false)}, false)
	joiner.Cancel()

	assert.Empty(t, page.Evals())
}

func TestCancelIsIdempotent(t *testing.T) {
	t.Parallel()
	joiner := newTestJoiner(t, newFakePage(lobbyHTML), &fakeSpeaker{}, nil)
	joiner.Cancel()
	joiner.Cancel()
}

func TestCountdownGivesUpWhenNoJoinControlAppears(t *testing.T) {
	t.Parallel()
	page := newFakePage(`<html><body><p>nothing to click</p></body></html>`)
	speaker := &fakeSpeaker{}
	joiner := New(Params{
		Surface:      page,
		Store:        openStore(t),
		Speaker:      speaker,
		Logger:       testutils.NewLogger(t),
		PollInterval: time.Millisecond,
		PollTimeout:  20 * time.Millisecond,
		Tick:         5 * time.Millisecond,
	})

	joiner.Start(context.Background(), prefsWithCountdown(3, 1), false)
	time.Sleep(60 * time.Millisecond)
	joiner.Cancel()

	assert.Zero(t, page.clickCount())
	assert.Empty(t, speaker.spoken())
}
