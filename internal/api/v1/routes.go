// Package v1 implements v1 of the automeet REST API.
package v1

import (
	"net/http"
)

// NewHandler returns the mux for the v1 routes.
func NewHandler(cs *ControlSurface) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/status", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handleGetStatus(cs, rw, r)
	})

	mux.HandleFunc("/v1/settings", func(rw http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handleGetSettings(cs, rw, r)
		case http.MethodPatch:
			handlePatchSettings(cs, rw, r)
		default:
			rw.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/v1/meetings", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handlePostMeeting(cs, rw, r)
	})

	mux.HandleFunc("/v1/speak", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handlePostSpeak(cs, rw, r)
	})

	mux.HandleFunc("/v1/events", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handleGetEvents(cs, rw, r)
	})

	return mux
}
