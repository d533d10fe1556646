package v1

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automeet/automeet/event"
	"github.com/automeet/automeet/internal/store"
)

// rawFrame mirrors EventFrame with an undecoded payload, so tests can decode
// Data into the concrete type the frame type implies.
type rawFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func dialEvents(t *testing.T, srvURL string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srvURL, "http") + "/v1/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil) //nolint:bodyclose
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) rawFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame rawFrame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestGetEventsStreamsStoreChanges(t *testing.T) {
	t.Parallel()

	cs := newTestSurface(t)
	srv := httptest.NewServer(NewHandler(cs))
	t.Cleanup(srv.Close)
	conn := dialEvents(t, srv.URL)

	require.NoError(t, cs.Store.Set(context.Background(), map[string]string{"autoJoin": "true"}))

	frame := readFrame(t, conn)
	require.Equal(t, "storeChange", frame.Type)

	var change store.Change
	require.NoError(t, json.Unmarshal(frame.Data, &change))
	assert.Equal(t, store.Change{Key: "autoJoin", Old: "", New: "true"}, change)
}

func TestGetEventsStreamsBusEvents(t *testing.T) {
	t.Parallel()

	cs := newTestSurface(t)
	srv := httptest.NewServer(NewHandler(cs))
	t.Cleanup(srv.Close)
	conn := dialEvents(t, srv.URL)

	cs.Events.Emit(&event.Event{
		Type: event.MeetingJoined,
		Data: event.TargetData{TargetID: "T1", Code: "abc-defg-hij"},
	})

	frame := readFrame(t, conn)
	require.Equal(t, string(event.MeetingJoined), frame.Type)

	var data event.TargetData
	require.NoError(t, json.Unmarshal(frame.Data, &data))
	assert.Equal(t, "T1", data.TargetID)
	assert.Equal(t, "abc-defg-hij", data.Code)
}

func TestGetEventsEndsOnShutdown(t *testing.T) {
	t.Parallel()

	cs := newTestSurface(t)
	runCtx, cancel := context.WithCancel(context.Background())
	cs.RunCtx = runCtx

	srv := httptest.NewServer(NewHandler(cs))
	t.Cleanup(srv.Close)
	conn := dialEvents(t, srv.URL)

	cancel()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "the daemon going away must end the stream")
}
