package v1

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/automeet/automeet/internal/meet"
	"github.com/automeet/automeet/internal/store"
)

// Meeting is the request and response document of POST /v1/meetings. Target
// accepts a full meeting URL, a bare meeting code or a host-relative path;
// the response echoes the normalized URL the installed app will open.
type Meeting struct {
	Target string `json:"target"`
}

func handlePostMeeting(cs *ControlSurface, rw http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		apiError(rw, "Couldn't read request", err.Error(), http.StatusBadRequest)
		return
	}

	var doc Meeting
	if err := json.Unmarshal(body, &doc); err != nil {
		apiError(rw, "Invalid data", err.Error(), http.StatusBadRequest)
		return
	}

	target, err := meet.NormalizeTarget(doc.Target)
	if err != nil {
		apiError(rw, "Invalid meeting target", err.Error(), http.StatusBadRequest)
		return
	}

	// OriginTab stays empty: there is no tab to close once the app takes over.
	pending := store.PendingMeeting{Target: target, Source: store.SourceAPI}
	if err := store.WritePendingMeeting(r.Context(), cs.Store, pending); err != nil {
		apiError(rw, "Couldn't publish the meeting", err.Error(), http.StatusInternalServerError)
		return
	}

	data, err := json.Marshal(Meeting{Target: target})
	if err != nil {
		apiError(rw, "Encoding error", err.Error(), http.StatusInternalServerError)
		return
	}
	rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.WriteHeader(http.StatusAccepted)
	_, _ = rw.Write(data)
}
