package browser

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/automeet/automeet/event"
	"github.com/automeet/automeet/internal/lib/testutils"
)

func TestMain(m *testing.M) {
	code := m.Run()
	http.DefaultClient.CloseIdleConnections()
	if err := goleak.Find(); err != nil {
		fmt.Println(err)
		if code == 0 {
			code = 1
		}
	}
	os.Exit(code)
}

// newTestSupervisor builds a supervisor around a disconnected chromedp
// context. Target bookkeeping never talks to a browser until an action runs,
// so the reconciliation logic is testable offline.
func newTestSupervisor(t *testing.T, events *event.System, onTarget OnTargetFunc) *Supervisor {
	t.Helper()
	s := NewSupervisor(SupervisorParams{
		Config:   NewConfig(),
		Events:   events,
		Logger:   testutils.NewLogger(t),
		OnTarget: onTarget,
	})
	browserCtx, cancel := chromedp.NewContext(context.Background())
	t.Cleanup(cancel)
	s.browserCtx, s.browserCancel = browserCtx, cancel
	return s
}

func pageInfo(id, url string) *target.Info {
	return &target.Info{TargetID: target.ID(id), Type: "page", URL: url}
}

func receiveEvent(t *testing.T, ch <-chan *event.Event) *event.Event {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for an event")
		return nil
	}
}

func TestSupervisorAttachesMeetPages(t *testing.T) {
	t.Parallel()

	events := event.NewSystem(testutils.NewLogger(t))
	_, eventsCh := events.Subscribe(event.TargetAttached)

	attached := make(chan *Page, 4)
	s := newTestSupervisor(t, events, func(_ context.Context, p *Page) { attached <- p })

	infos := []*target.Info{
		pageInfo("T1", "https://meet.google.com/abc-defg-hij"),
		pageInfo("T2", "https://example.com/"),
		{TargetID: "T3", Type: "service_worker", URL: "https://meet.google.com/"},
	}
	s.inspect(infos)

	evt := receiveEvent(t, eventsCh)
	data, ok := evt.Data.(event.TargetData)
	require.True(t, ok)
	assert.Equal(t, "T1", data.TargetID)
	assert.Equal(t, "abc-defg-hij", data.Code)

	select {
	case p := <-attached:
		assert.Equal(t, "T1", p.TargetID())
	case <-time.After(time.Second):
		t.Fatal("the page was never handed to the callback")
	}

	snapshot := s.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "https://meet.google.com/abc-defg-hij", snapshot[0].URL)

	// A repeated listing must not attach the same target twice.
	s.inspect(infos)
	require.Len(t, s.Snapshot(), 1)
	select {
	case <-attached:
		t.Fatal("the callback ran again for an already attached target")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSupervisorReapsVanishedPages(t *testing.T) {
	t.Parallel()

	events := event.NewSystem(testutils.NewLogger(t))
	_, eventsCh := events.Subscribe(event.TargetDetached)

	attached := make(chan *Page, 1)
	s := newTestSupervisor(t, events, func(_ context.Context, p *Page) { attached <- p })

	s.inspect([]*target.Info{pageInfo("T1", "https://meet.google.com/abc-defg-hij")})
	page := <-attached

	s.inspect(nil)

	evt := receiveEvent(t, eventsCh)
	data, ok := evt.Data.(event.TargetData)
	require.True(t, ok)
	assert.Equal(t, "T1", data.TargetID)
	assert.Empty(t, s.Snapshot())
	require.Error(t, page.Context().Err(), "a reaped page's context must end")
}

func TestSupervisorReapsPagesLeavingMeet(t *testing.T) {
	t.Parallel()

	events := event.NewSystem(testutils.NewLogger(t))
	_, eventsCh := events.Subscribe(event.TargetDetached)

	s := newTestSupervisor(t, events, nil)
	s.inspect([]*target.Info{pageInfo("T1", "https://meet.google.com/abc-defg-hij")})
	require.Len(t, s.Snapshot(), 1)

	// The same target navigated somewhere else entirely.
	s.inspect([]*target.Info{pageInfo("T1", "https://example.com/")})

	receiveEvent(t, eventsCh)
	assert.Empty(t, s.Snapshot())
}

func TestSupervisorSnapshotTracksURLChanges(t *testing.T) {
	t.Parallel()

	s := newTestSupervisor(t, event.NewSystem(testutils.NewLogger(t)), nil)

	s.inspect([]*target.Info{pageInfo("T1", "https://meet.google.com/landing")})
	s.inspect([]*target.Info{pageInfo("T1", "https://meet.google.com/abc-defg-hij")})

	snapshot := s.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "abc-defg-hij", snapshot[0].Code)
}

func TestSupervisorCloseTargetUnknown(t *testing.T) {
	t.Parallel()

	s := newTestSupervisor(t, event.NewSystem(testutils.NewLogger(t)), nil)
	err := s.CloseTarget(context.Background(), "missing")
	require.ErrorContains(t, err, `no attached target "missing"`)
}

func TestPageRunHonorsCallerContext(t *testing.T) {
	t.Parallel()

	page := &Page{
		ctx:        context.Background(),
		cancel:     func() {},
		opTimeout:  defaultOpTimeout,
		navTimeout: defaultNavigateTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := page.Eval(ctx, "1 + 1", nil)
	require.ErrorIs(t, err, context.Canceled)
}
