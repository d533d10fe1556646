// Package speech relays spoken announcements to a platform text-to-speech
// capability. Synthesis failures are logged and swallowed: a missing or
// broken synthesizer must never break joining a meeting.
package speech

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/automeet/automeet/event"
)

// queueSize bounds the utterance backlog. Announcements are short-lived by
// nature, so excess requests are dropped rather than queued indefinitely.
const queueSize = 32

// utteranceTimeout bounds a single synthesis, in case an engine process
// wedges with the audio device.
const utteranceTimeout = 30 * time.Second

// Request is one utterance. Rate, pitch and volume are multipliers of the
// engine defaults; zero means "use the default".
type Request struct {
	Text   string  `json:"text"`
	Rate   float64 `json:"rate"`
	Pitch  float64 `json:"pitch"`
	Volume float64 `json:"volume"`
}

func (r Request) withDefaults() Request {
	if r.Rate <= 0 {
		r.Rate = 1.0
	}
	if r.Pitch <= 0 {
		r.Pitch = 1.0
	}
	if r.Volume <= 0 {
		r.Volume = 1.0
	}
	return r
}

// Params configures a speech service.
type Params struct {
	// Engine defaults to Detect's result when nil.
	Engine Engine
	Logger logrus.FieldLogger
	// Events is optional; when set, the service also speaks every
	// event.SpeakRequested emitted on it.
	Events *event.System
}

// Service serializes utterances through a single worker, so overlapping
// announcements never talk over each other.
type Service struct {
	engine Engine
	logger logrus.FieldLogger
	events *event.System

	queue chan Request
	stop  chan struct{}
	done  chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
}

// New creates a stopped speech service; call Start to begin speaking.
func New(params Params) *Service {
	logger := params.Logger.WithField("component", "speech")
	engine := params.Engine
	if engine == nil {
		engine = Detect(logger)
	}
	return &Service{
		engine: engine,
		logger: logger,
		events: params.Events,
		queue:  make(chan Request, queueSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Description names the engine behind the service, for status reporting.
func (s *Service) Description() string {
	return s.engine.Name()
}

// Start launches the worker goroutine.
func (s *Service) Start() error {
	s.startOnce.Do(func() {
		var subID uint64
		var eventsCh <-chan *event.Event
		if s.events != nil {
			subID, eventsCh = s.events.Subscribe(event.SpeakRequested)
		}
		s.started.Store(true)
		go s.run(subID, eventsCh)
	})
	return nil
}

// Stop terminates the worker. Queued utterances are dropped; the one being
// spoken finishes.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	if s.started.Load() {
		<-s.done
	}
}

// Speak enqueues a plain announcement with default voice parameters.
func (s *Service) Speak(text string) {
	s.Enqueue(Request{Text: text})
}

// Enqueue adds an utterance to the queue without blocking. When the queue is
// full the request is dropped with a warning.
func (s *Service) Enqueue(req Request) {
	select {
	case s.queue <- req.withDefaults():
	default:
		s.logger.WithField("text", req.Text).Warn("speech queue full, dropping utterance")
	}
}

func (s *Service) run(subID uint64, eventsCh <-chan *event.Event) {
	defer close(s.done)
	if s.events != nil {
		defer s.events.Unsubscribe(subID)
	}

	for {
		select {
		case req := <-s.queue:
			s.speak(req)
		case evt, ok := <-eventsCh:
			if !ok {
				eventsCh = nil
				continue
			}
			req, ok := evt.Data.(Request)
			if !ok {
				s.logger.WithField("type", evt.Type).Warn("discarding malformed speak request event")
				continue
			}
			s.speak(req.withDefaults())
		case <-s.stop:
			return
		}
	}
}

func (s *Service) speak(req Request) {
	if req.Text == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), utteranceTimeout)
	defer cancel()

	if err := s.engine.Speak(ctx, req); err != nil {
		// Synthesis failures are logged only; they are invisible to the user
		// and never retried.
		s.logger.WithError(err).WithField("text", req.Text).Warn("speech synthesis failed")
	}
}
