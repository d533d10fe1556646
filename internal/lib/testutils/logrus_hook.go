package testutils

import (
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// SimpleLogrusHook implements the logrus.Hook interface and can be used to
// check if log messages were outputted.
type SimpleLogrusHook struct {
	HookedLevels []logrus.Level
	mutex        sync.Mutex
	messageCache []logrus.Entry
}

// Levels just returns whatever was stored in the HookedLevels slice.
func (h *SimpleLogrusHook) Levels() []logrus.Level {
	return h.HookedLevels
}

// Fire saves whatever message the logrus library passed in the cache.
func (h *SimpleLogrusHook) Fire(e *logrus.Entry) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.messageCache = append(h.messageCache, *e)
	return nil
}

// Drain returns the currently stored messages and deletes them from the cache.
func (h *SimpleLogrusHook) Drain() []logrus.Entry {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	res := h.messageCache
	h.messageCache = nil
	return res
}

// Lines returns the messages of all logged entries.
func (h *SimpleLogrusHook) Lines() []string {
	entries := h.Drain()
	lines := make([]string, len(entries))
	for i, entry := range entries {
		lines[i] = entry.Message
	}
	return lines
}

// Contains reports whether any logged message contains the given substring.
func (h *SimpleLogrusHook) Contains(substr string) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for _, entry := range h.messageCache {
		if strings.Contains(entry.Message, substr) {
			return true
		}
	}
	return false
}
