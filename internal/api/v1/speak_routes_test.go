package v1

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automeet/automeet/event"
	"github.com/automeet/automeet/internal/speech"
)

func TestPostSpeak(t *testing.T) {
	t.Parallel()

	t.Run("queues an utterance", func(t *testing.T) {
		t.Parallel()

		cs := newTestSurface(t)
		_, eventsCh := cs.Events.Subscribe(event.SpeakRequested)

		rw := httptest.NewRecorder()
		body := []byte(`{"text":"meeting starts soon","rate":1.25}`)
		NewHandler(cs).ServeHTTP(rw, httptest.NewRequest(http.MethodPost, "/v1/speak", bytes.NewReader(body)))
		res := rw.Result()
		t.Cleanup(func() {
			assert.NoError(t, res.Body.Close())
		})

		require.Equal(t, http.StatusAccepted, res.StatusCode)

		select {
		case evt := <-eventsCh:
			require.Equal(t, event.SpeakRequested, evt.Type)
			req, ok := evt.Data.(speech.Request)
			require.True(t, ok)
			assert.Equal(t, "meeting starts soon", req.Text)
			assert.Equal(t, 1.25, req.Rate)
		case <-time.After(time.Second):
			t.Fatal("no speak request reached the bus")
		}
	})

	t.Run("rejected requests", func(t *testing.T) {
		t.Parallel()

		cases := map[string]string{
			"empty text":      `{"text":""}`,
			"whitespace text": `{"text":"   "}`,
			"malformed body":  `{`,
		}
		for name, payload := range cases {
			name, payload := name, payload
			t.Run(name, func(t *testing.T) {
				t.Parallel()

				cs := newTestSurface(t)
				rw := httptest.NewRecorder()
				NewHandler(cs).ServeHTTP(rw, httptest.NewRequest(http.MethodPost, "/v1/speak", bytes.NewReader([]byte(payload))))
				res := rw.Result()
				t.Cleanup(func() {
					assert.NoError(t, res.Body.Close())
				})

				assert.Equal(t, http.StatusBadRequest, res.StatusCode)
			})
		}
	})
}
