package store

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// watcherBuffer is the per-subscriber channel buffer. Notifications are
// best-effort: a subscriber that lags this far behind loses the notification,
// not the data, since the store always serves the latest value on the next
// Get.
const watcherBuffer = 64

// watchers is the subscriber registry shared by the store backends.
type watchers struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]chan Change
	logger logrus.FieldLogger
}

func newWatchers(logger logrus.FieldLogger) *watchers {
	return &watchers{
		subs:   make(map[uint64]chan Change),
		logger: logger,
	}
}

func (w *watchers) subscribe() (uint64, <-chan Change) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	ch := make(chan Change, watcherBuffer)
	w.subs[w.nextID] = ch
	return w.nextID, ch
}

func (w *watchers) unsubscribe(subID uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if ch, ok := w.subs[subID]; ok {
		close(ch)
		delete(w.subs, subID)
	}
}

func (w *watchers) notify(change Change) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for subID, ch := range w.subs {
		select {
		case ch <- change:
		default:
			w.logger.WithFields(logrus.Fields{
				"subscriptionID": subID,
				"key":            change.Key,
			}).Warn("store subscriber lagging, change notification dropped")
		}
	}
}

func (w *watchers) closeAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for subID, ch := range w.subs {
		close(ch)
		delete(w.subs, subID)
	}
}
