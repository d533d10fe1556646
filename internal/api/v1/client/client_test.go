package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gopkg.in/guregu/null.v3"

	"github.com/automeet/automeet/event"
	"github.com/automeet/automeet/internal/agent"
	v1 "github.com/automeet/automeet/internal/api/v1"
	"github.com/automeet/automeet/internal/lib/testutils"
	"github.com/automeet/automeet/internal/settings"
	"github.com/automeet/automeet/internal/speech"
	"github.com/automeet/automeet/internal/store"
	"github.com/automeet/automeet/lib/fsext"
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

type staticSpeech string

func (s staticSpeech) Description() string { return string(s) }

func newTestAPI(t *testing.T) (*Client, *v1.ControlSurface) {
	t.Helper()
	logger := testutils.NewLogger(t)

	st, err := store.New(context.Background(), store.Params{
		DefaultPath: "/data/settings.json",
		FS:          fsext.NewMemMapFs(),
		Logger:      logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, st.Close()) })

	cs := &v1.ControlSurface{
		RunCtx:  context.Background(),
		Version: "1.2.3",
		Store:   st,
		Events:  event.NewSystem(logger),
		Agents:  agent.NewRegistry(),
		Speech:  staticSpeech("noop"),
		Env:     map[string]string{},
		Logger:  logger,
	}

	srv := httptest.NewServer(v1.NewHandler(cs))
	t.Cleanup(srv.Close)

	c, err := New(srv.Listener.Addr().String(), WithLogger(logrus.NewEntry(logger)))
	require.NoError(t, err)
	return c, cs
}

func TestStatus(t *testing.T) {
	t.Parallel()

	c, _ := newTestAPI(t)
	status, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", status.Version)
	assert.Equal(t, "file", status.Store)
	assert.Empty(t, status.Agents)
}

func TestSettingsRoundTrip(t *testing.T) {
	t.Parallel()

	c, _ := newTestAPI(t)
	patched, err := c.PatchSettings(context.Background(), settings.Preferences{
		AutoJoin:          null.BoolFrom(true),
		CountdownDuration: null.IntFrom(3),
	})
	require.NoError(t, err)
	assert.True(t, patched.AutoJoin)
	assert.EqualValues(t, 3, patched.CountdownDuration)

	got, err := c.Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, patched, got)
}

func TestOpenMeeting(t *testing.T) {
	t.Parallel()

	t.Run("accepted", func(t *testing.T) {
		t.Parallel()

		c, cs := newTestAPI(t)
		doc, err := c.OpenMeeting(context.Background(), "abc-defg-hij")
		require.NoError(t, err)
		assert.Equal(t, "https://meet.google.com/abc-defg-hij?authuser=0", doc.Target)

		pending, err := store.ReadPendingMeeting(context.Background(), cs.Store)
		require.NoError(t, err)
		assert.Equal(t, doc.Target, pending.Target)
		assert.Equal(t, store.SourceAPI, pending.Source)
	})

	t.Run("rejected", func(t *testing.T) {
		t.Parallel()

		c, _ := newTestAPI(t)
		_, err := c.OpenMeeting(context.Background(), "not a meeting")
		var apiErr v1.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "Invalid meeting target", apiErr.Title)
	})
}

func TestSpeak(t *testing.T) {
	t.Parallel()

	t.Run("queued", func(t *testing.T) {
		t.Parallel()

		c, cs := newTestAPI(t)
		_, eventsCh := cs.Events.Subscribe(event.SpeakRequested)

		require.NoError(t, c.Speak(context.Background(), speech.Request{Text: "hello"}))

		select {
		case evt := <-eventsCh:
			req, ok := evt.Data.(speech.Request)
			require.True(t, ok)
			assert.Equal(t, "hello", req.Text)
		case <-time.After(time.Second):
			t.Fatal("no speak request reached the bus")
		}
	})

	t.Run("rejected", func(t *testing.T) {
		t.Parallel()

		c, _ := newTestAPI(t)
		err := c.Speak(context.Background(), speech.Request{Text: "  "})
		var apiErr v1.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "Invalid data", apiErr.Title)
	})
}
