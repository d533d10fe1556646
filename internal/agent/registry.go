package agent

import (
	"context"
	"sort"
	"sync"

	"github.com/automeet/automeet/internal/meet"
)

// Status is one agent's view of its page, as reported by the control API.
type Status struct {
	TargetID string `json:"targetId" yaml:"targetId"`
	Role     Role   `json:"role,omitempty" yaml:"role,omitempty"`
	URL      string `json:"url,omitempty" yaml:"url,omitempty"`
	Code     string `json:"code,omitempty" yaml:"code,omitempty"`
	InCall   bool   `json:"inCall" yaml:"inCall"`
}

// Status inspects the agent's page. Pages that cannot be observed right now
// report only their identity.
func (a *Agent) Status(ctx context.Context) Status {
	st := Status{TargetID: a.surface.TargetID(), Role: a.Role()}
	info, err := meet.Observe(ctx, a.surface)
	if err != nil {
		return st
	}
	st.URL = info.Location
	st.Code = info.Code
	st.InCall = info.InCall()
	return st
}

// Registry tracks the live agents so the control API can enumerate them.
type Registry struct {
	mu     sync.Mutex
	agents map[string]*Agent
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]*Agent)}
}

// Add registers an agent under its page's target ID.
func (r *Registry) Add(a *Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[a.surface.TargetID()] = a
}

// Remove drops the agent registered under targetID, if any.
func (r *Registry) Remove(targetID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, targetID)
}

// Len returns the number of live agents.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.agents)
}

// Snapshot reports the status of every live agent, ordered by target ID.
func (r *Registry) Snapshot(ctx context.Context) []Status {
	r.mu.Lock()
	agents := make([]*Agent, 0, len(r.agents))
	for _, a := range r.agents {
		agents = append(agents, a)
	}
	r.mu.Unlock()

	statuses := make([]Status, 0, len(agents))
	for _, a := range agents {
		statuses = append(statuses, a.Status(ctx))
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].TargetID < statuses[j].TargetID })
	return statuses
}
