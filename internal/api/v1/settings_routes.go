package v1

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/automeet/automeet/internal/settings"
)

// Settings is the resolved preferences document served by GET /v1/settings.
// PATCH accepts the same field names with partial-update semantics: fields
// absent from the body keep their current value.
type Settings struct {
	DisableMic              bool  `json:"disableMic" yaml:"disableMic"`
	DisableVideo            bool  `json:"disableVideo" yaml:"disableVideo"`
	AutoJoin                bool  `json:"autoJoin" yaml:"autoJoin"`
	CountdownDuration       int64 `json:"countdownDuration" yaml:"countdownDuration"`
	TTSAnnouncementInterval int64 `json:"ttsAnnouncementInterval" yaml:"ttsAnnouncementInterval"`
}

func newSettings(prefs settings.Preferences) Settings {
	return Settings{
		DisableMic:              prefs.DisableMic.Bool,
		DisableVideo:            prefs.DisableVideo.Bool,
		AutoJoin:                prefs.AutoJoin.Bool,
		CountdownDuration:       prefs.CountdownSeconds(),
		TTSAnnouncementInterval: prefs.AnnounceIntervalSeconds(),
	}
}

func consolidatedSettings(cs *ControlSurface, r *http.Request) (Settings, error) {
	stored, err := cs.Store.Get(r.Context(), settings.StoredKeys()...)
	if err != nil {
		return Settings{}, err
	}
	prefs, err := settings.GetConsolidatedPreferences(stored, cs.Env)
	if err != nil {
		return Settings{}, err
	}
	return newSettings(prefs), nil
}

func writeSettings(rw http.ResponseWriter, doc Settings) {
	data, err := json.Marshal(doc)
	if err != nil {
		apiError(rw, "Encoding error", err.Error(), http.StatusInternalServerError)
		return
	}
	rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = rw.Write(data)
}

func handleGetSettings(cs *ControlSurface, rw http.ResponseWriter, r *http.Request) {
	doc, err := consolidatedSettings(cs, r)
	if err != nil {
		apiError(rw, "Couldn't read settings", err.Error(), http.StatusInternalServerError)
		return
	}
	writeSettings(rw, doc)
}

func handlePatchSettings(cs *ControlSurface, rw http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		apiError(rw, "Couldn't read request", err.Error(), http.StatusBadRequest)
		return
	}

	var patch settings.Preferences
	if err := json.Unmarshal(body, &patch); err != nil {
		apiError(rw, "Invalid data", err.Error(), http.StatusBadRequest)
		return
	}

	values, err := patch.ToStore()
	if err != nil {
		apiError(rw, "Encoding error", err.Error(), http.StatusInternalServerError)
		return
	}
	if err := cs.Store.Set(r.Context(), values); err != nil {
		apiError(rw, "Couldn't persist settings", err.Error(), http.StatusInternalServerError)
		return
	}

	doc, err := consolidatedSettings(cs, r)
	if err != nil {
		apiError(rw, "Couldn't read settings", err.Error(), http.StatusInternalServerError)
		return
	}
	writeSettings(rw, doc)
}
