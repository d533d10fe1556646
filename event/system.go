package event

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// defaultBuffer is the per-subscriber channel buffer. Events are dropped (with
// a warning) when a subscriber lags this far behind; every consumer is
// expected to re-read authoritative state on wake-up, so a dropped event never
// loses data, only a wake-up.
const defaultBuffer = 64

// Subscriber is the limited interface of System that only allows subscribing
// and unsubscribing.
type Subscriber interface {
	Subscribe(events ...Type) (subID uint64, eventsCh <-chan *Event)
	Unsubscribe(subID uint64)
}

// System keeps track of subscribers, and allows subscribing to and emitting
// events.
type System struct {
	subMx       sync.RWMutex
	subIDCount  uint64
	subscribers map[Type]map[uint64]chan *Event
	logger      logrus.FieldLogger
}

// NewSystem returns a new event System.
func NewSystem(logger logrus.FieldLogger) *System {
	return &System{
		subscribers: make(map[Type]map[uint64]chan *Event),
		logger:      logger.WithField("component", "event-system"),
	}
}

// Subscribe to one or more event types. It returns a subscriber ID that can
// be used to unsubscribe, and a channel events will be delivered on.
// It panics if events is empty.
func (s *System) Subscribe(events ...Type) (subID uint64, eventsCh <-chan *Event) {
	if len(events) == 0 {
		panic("must subscribe to at least 1 event type")
	}

	s.subMx.Lock()
	defer s.subMx.Unlock()
	s.subIDCount++
	subID = s.subIDCount

	evtCh := make(chan *Event, defaultBuffer)
	for _, evt := range events {
		if s.subscribers[evt] == nil {
			s.subscribers[evt] = make(map[uint64]chan *Event)
		}
		s.subscribers[evt][subID] = evtCh
	}

	s.logger.WithFields(logrus.Fields{
		"subscriptionID": subID,
		"events":         events,
	}).Debug("created event subscription")

	return subID, evtCh
}

// Emit delivers the event to all subscribers of its type. Delivery is
// non-blocking; a subscriber that cannot keep up loses the event.
func (s *System) Emit(event *Event) {
	s.subMx.RLock()
	defer s.subMx.RUnlock()

	for subID, evtCh := range s.subscribers[event.Type] {
		select {
		case evtCh <- event:
		default:
			s.logger.WithFields(logrus.Fields{
				"subscriptionID": subID,
				"type":           event.Type,
			}).Warn("subscriber lagging, event dropped")
		}
	}
}

// Unsubscribe removes the subscription with ID subID and closes its channel.
func (s *System) Unsubscribe(subID uint64) {
	s.subMx.Lock()
	defer s.subMx.Unlock()

	var closed bool
	for _, sub := range s.subscribers {
		if evtCh, ok := sub[subID]; ok {
			if !closed {
				close(evtCh)
				closed = true
			}
			delete(sub, subID)
		}
	}

	if closed {
		s.logger.WithField("subscriptionID", subID).Debug("removed event subscription")
	}
}

// UnsubscribeAll removes all subscriptions and closes their channels.
func (s *System) UnsubscribeAll() {
	s.subMx.Lock()
	defer s.subMx.Unlock()

	seen := make(map[uint64]struct{})
	for _, sub := range s.subscribers {
		for subID, evtCh := range sub {
			if _, ok := seen[subID]; !ok {
				close(evtCh)
				seen[subID] = struct{}{}
			}
			delete(sub, subID)
		}
	}

	if len(seen) > 0 {
		s.logger.WithField("subscriptions", len(seen)).Debug("removed all event subscriptions")
	}
}
