package v1

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/automeet/automeet/event"
	"github.com/automeet/automeet/internal/speech"
)

func handlePostSpeak(cs *ControlSurface, rw http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		apiError(rw, "Couldn't read request", err.Error(), http.StatusBadRequest)
		return
	}

	var req speech.Request
	if err := json.Unmarshal(body, &req); err != nil {
		apiError(rw, "Invalid data", err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		apiError(rw, "Invalid data", "text must not be empty", http.StatusBadRequest)
		return
	}

	// The utterance is queued, not spoken: 202 means the daemon took it, not
	// that anything was heard yet.
	cs.Events.Emit(&event.Event{Type: event.SpeakRequested, Data: req})
	rw.WriteHeader(http.StatusAccepted)
}
