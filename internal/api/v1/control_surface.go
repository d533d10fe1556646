package v1

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/automeet/automeet/event"
	"github.com/automeet/automeet/internal/agent"
	"github.com/automeet/automeet/internal/store"
)

// ControlSurface includes everything the REST API can use to inspect and
// steer the rest of the daemon.
type ControlSurface struct {
	RunCtx  context.Context
	Version string
	// Browser describes the browser attachment, as printed on startup.
	Browser string
	Store   store.Store
	Events  *event.System
	Agents  *agent.Registry
	Speech  SpeechEngine
	Env     map[string]string
	Logger  logrus.FieldLogger
}

// SpeechEngine is the slice of the speech service the API needs: a
// description for the status document. Speak requests themselves travel over
// the event bus.
type SpeechEngine interface {
	Description() string
}
