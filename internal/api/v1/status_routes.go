package v1

import (
	"encoding/json"
	"net/http"

	"github.com/automeet/automeet/internal/agent"
)

// Status is the document returned by GET /v1/status: daemon identity plus one
// entry per attached Meet page.
type Status struct {
	Version string         `json:"version" yaml:"version"`
	Browser string         `json:"browser" yaml:"browser"`
	Store   string         `json:"store" yaml:"store"`
	Speech  string         `json:"speech" yaml:"speech"`
	Agents  []agent.Status `json:"agents" yaml:"agents"`
}

func newStatus(cs *ControlSurface, r *http.Request) Status {
	return Status{
		Version: cs.Version,
		Browser: cs.Browser,
		Store:   cs.Store.Name(),
		Speech:  cs.Speech.Description(),
		Agents:  cs.Agents.Snapshot(r.Context()),
	}
}

func handleGetStatus(cs *ControlSurface, rw http.ResponseWriter, r *http.Request) {
	status := newStatus(cs, r)

	data, err := json.Marshal(status)
	if err != nil {
		apiError(rw, "Encoding error", err.Error(), http.StatusInternalServerError)
		return
	}
	rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = rw.Write(data)
}
