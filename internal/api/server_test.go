package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/automeet/automeet/event"
	"github.com/automeet/automeet/internal/agent"
	v1 "github.com/automeet/automeet/internal/api/v1"
	"github.com/automeet/automeet/internal/lib/testutils"
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

func newTestServer(t *testing.T) (*httptest.Server, *v1.ControlSurface) {
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

	srv := httptest.NewServer(GetServer("localhost:0", cs).Handler)
	t.Cleanup(srv.Close)
	return srv, cs
}

func testHTTPHandler(rw http.ResponseWriter, _ *http.Request) {
	rw.Header().Add("Content-Type", "text/plain; charset=utf-8")
	if _, err := fmt.Fprint(rw, "ok"); err != nil {
		panic(err.Error())
	}
}

func TestLogger(t *testing.T) {
	t.Parallel()
	for _, method := range []string{"GET", "POST", "PUT", "PATCH"} {
		method := method
		t.Run("method="+method, func(t *testing.T) {
			t.Parallel()
			for _, path := range []string{"/", "/test", "/test/path"} {
				path := path
				t.Run("path="+path, func(t *testing.T) {
					t.Parallel()
					rw := httptest.NewRecorder()
					r := httptest.NewRequest(method, "http://example.com"+path, nil)

					l, hook := logtest.NewNullLogger()
					l.Level = logrus.DebugLevel
					withLoggingHandler(l, http.HandlerFunc(testHTTPHandler))(rw, r)

					res := rw.Result()
					assert.Equal(t, http.StatusOK, res.StatusCode)
					assert.Equal(t, "text/plain; charset=utf-8", res.Header.Get("Content-Type"))
					assert.NoError(t, res.Body.Close())

					if !assert.Len(t, hook.Entries, 1) {
						return
					}

					e := hook.LastEntry()
					assert.Equal(t, logrus.DebugLevel, e.Level)
					assert.Equal(t, fmt.Sprintf("%s %s", method, path), e.Message)
					assert.Equal(t, http.StatusOK, e.Data["status"])
				})
			}
		})
	}
}

func TestLoggerKeepsErrorStatuses(t *testing.T) {
	t.Parallel()

	rw := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "http://example.com/missing", nil)

	l, hook := logtest.NewNullLogger()
	l.Level = logrus.DebugLevel
	withLoggingHandler(l, http.NotFoundHandler())(rw, r)

	res := rw.Result()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.NoError(t, res.Body.Close())

	if assert.Len(t, hook.Entries, 1) {
		assert.Equal(t, http.StatusNotFound, hook.LastEntry().Data["status"])
	}
}

func TestPing(t *testing.T) {
	t.Parallel()
	mux := handlePing(testutils.NewLogger(t))

	rw := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/ping", nil)
	mux.ServeHTTP(rw, r)

	res := rw.Result()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, []byte{'o', 'k'}, rw.Body.Bytes())
	assert.NoError(t, res.Body.Close())
}

func TestV1IsMounted(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	res, err := http.Get(srv.URL + "/v1/status") //nolint:noctx
	require.NoError(t, err)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.NoError(t, res.Body.Close())

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/json; charset=utf-8", res.Header.Get("Content-Type"))

	var doc v1.Status
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, "1.2.3", doc.Version)
	assert.Equal(t, "file", doc.Store)
}

// The logging middleware wraps every response writer; the event stream only
// works if that wrapper can still hand the connection over to the websocket
// upgrade.
func TestEventStreamUpgradesBehindLogging(t *testing.T) {
	t.Parallel()

	srv, cs := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil) //nolint:bodyclose
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, cs.Store.Set(context.Background(), map[string]string{"autoJoin": "true"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame v1.EventFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "storeChange", frame.Type)
}
