package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automeet/automeet/internal/settings"
)

func getSettings(t *testing.T, cs *ControlSurface) Settings {
	t.Helper()

	rw := httptest.NewRecorder()
	NewHandler(cs).ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/v1/settings", nil))
	res := rw.Result()
	t.Cleanup(func() {
		assert.NoError(t, res.Body.Close())
	})
	require.Equal(t, http.StatusOK, res.StatusCode)

	var doc Settings
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &doc))
	return doc
}

func TestGetSettings(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		doc := getSettings(t, newTestSurface(t))
		assert.Equal(t, Settings{
			DisableMic:              true,
			DisableVideo:            true,
			AutoJoin:                false,
			CountdownDuration:       10,
			TTSAnnouncementInterval: 5,
		}, doc)
	})

	t.Run("environment seeds the values", func(t *testing.T) {
		t.Parallel()

		cs := newTestSurface(t)
		cs.Env = map[string]string{"AUTOMEET_AUTO_JOIN": "true"}
		assert.True(t, getSettings(t, cs).AutoJoin)
	})

	t.Run("the store beats the environment", func(t *testing.T) {
		t.Parallel()

		cs := newTestSurface(t)
		cs.Env = map[string]string{"AUTOMEET_AUTO_JOIN": "true"}
		require.NoError(t, cs.Store.Set(context.Background(), map[string]string{"autoJoin": "false"}))
		assert.False(t, getSettings(t, cs).AutoJoin)
	})
}

func TestPatchSettings(t *testing.T) {
	t.Parallel()

	testData := map[string]struct {
		payload            string
		expectedStatusCode int
		check              func(t *testing.T, cs *ControlSurface, doc Settings)
	}{
		"disable mic off": {
			payload:            `{"disableMic":false}`,
			expectedStatusCode: 200,
			check: func(t *testing.T, cs *ControlSurface, doc Settings) {
				assert.False(t, doc.DisableMic)
				assert.True(t, doc.DisableVideo)

				stored, err := cs.Store.Get(context.Background(), settings.StoredKeys()...)
				require.NoError(t, err)
				prefs, err := settings.FromStore(stored)
				require.NoError(t, err)
				assert.True(t, prefs.DisableMic.Valid)
				assert.False(t, prefs.DisableMic.Bool)
				assert.False(t, prefs.DisableVideo.Valid, "untouched fields must stay unset in the store")
			},
		},
		"countdown duration": {
			payload:            `{"countdownDuration":3,"autoJoin":true}`,
			expectedStatusCode: 200,
			check: func(t *testing.T, _ *ControlSurface, doc Settings) {
				assert.EqualValues(t, 3, doc.CountdownDuration)
				assert.True(t, doc.AutoJoin)
			},
		},
		"announcement interval is clamped on read": {
			payload:            `{"ttsAnnouncementInterval":99}`,
			expectedStatusCode: 200,
			check: func(t *testing.T, cs *ControlSurface, doc Settings) {
				assert.EqualValues(t, settings.MaxAnnounceInterval, doc.TTSAnnouncementInterval)

				stored, err := cs.Store.Get(context.Background(), "ttsAnnouncementInterval")
				require.NoError(t, err)
				assert.Equal(t, "99", stored["ttsAnnouncementInterval"], "the store keeps what the user wrote")
			},
		},
		"empty patch changes nothing": {
			payload:            `{}`,
			expectedStatusCode: 200,
			check: func(t *testing.T, _ *ControlSurface, doc Settings) {
				assert.True(t, doc.DisableMic)
				assert.EqualValues(t, 10, doc.CountdownDuration)
			},
		},
		"wrong value type": {
			payload:            `{"countdownDuration":"ten"}`,
			expectedStatusCode: 400,
		},
		"malformed body": {
			payload:            `{`,
			expectedStatusCode: 400,
		},
	}

	for name, testCase := range testData {
		name, testCase := name, testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cs := newTestSurface(t)
			rw := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPatch, "/v1/settings", bytes.NewReader([]byte(testCase.payload)))
			NewHandler(cs).ServeHTTP(rw, req)
			res := rw.Result()
			t.Cleanup(func() {
				assert.NoError(t, res.Body.Close())
			})

			require.Equal(t, "application/json; charset=utf-8", rw.Header().Get("Content-Type"))
			require.Equal(t, testCase.expectedStatusCode, res.StatusCode)

			if testCase.expectedStatusCode != 200 {
				var errs ErrorResponse
				require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &errs))
				require.NotEmpty(t, errs.Errors)
				return
			}

			var doc Settings
			require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &doc))
			if testCase.check != nil {
				testCase.check(t, cs, doc)
			}
		})
	}
}
