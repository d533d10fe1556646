// Package store implements the shared settings store: a small persisted
// key-value mapping readable and writable from every automeet execution
// context, with change notifications delivered to all subscribers. The
// transient coordination records exchanged between Meet tabs (pending
// meeting, meeting outcome, auto-join override) live here next to the
// persisted user preferences.
//
// Two backends exist, selected by URL: a JSON file on a local filesystem
// (the default), and Redis, where pub/sub carries the change notifications
// across OS processes.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/automeet/automeet/lib/fsext"
)

// Change describes a single key transition in the store. Old and New hold the
// raw JSON-encoded values; an empty string means the key was absent.
type Change struct {
	Key string `json:"key"`
	Old string `json:"old"`
	New string `json:"new"`
}

// Store is the shared key-value store. Set semantics are "partial record,
// last write wins": only the given keys are touched, and keys whose stored
// value already equals the new value are skipped without a notification, so
// subscribers never observe a change that changed nothing.
type Store interface {
	// Name identifies the backend ("file" or "redis") for status reporting.
	Name() string
	// Get returns the values for the given keys; with no keys it returns
	// everything. Absent keys are simply missing from the result.
	Get(ctx context.Context, keys ...string) (map[string]string, error)
	// Set applies a partial record and notifies subscribers of every key
	// whose value actually changed.
	Set(ctx context.Context, values map[string]string) error
	// Watch subscribes to change notifications.
	Watch() (subID uint64, ch <-chan Change)
	// Unsubscribe removes a subscription and closes its channel.
	Unsubscribe(subID uint64)
	// Close releases the backend and closes all subscriber channels.
	Close() error
}

// Params contains everything a backend may need.
type Params struct {
	// URL selects the backend: "" or "file=<path>" for the file backend,
	// "redis://..." / "rediss://..." for Redis.
	URL string
	// DefaultPath is the file backend path used when URL is empty.
	DefaultPath string
	FS          fsext.Fs
	Logger      logrus.FieldLogger
}

// New opens the store backend selected by params.URL.
func New(ctx context.Context, params Params) (Store, error) {
	switch {
	case params.URL == "":
		return newFileStore(params.FS, params.DefaultPath, params.Logger)
	case strings.HasPrefix(params.URL, "file="):
		return newFileStore(params.FS, strings.TrimPrefix(params.URL, "file="), params.Logger)
	case strings.HasPrefix(params.URL, "redis://"), strings.HasPrefix(params.URL, "rediss://"):
		return newRedisStore(ctx, params.URL, params.Logger)
	default:
		return nil, fmt.Errorf("unknown store URL %q, expected file=<path> or redis://...", params.URL)
	}
}
