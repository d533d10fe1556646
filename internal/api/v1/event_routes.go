package v1

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/automeet/automeet/event"
)

// writeWait bounds a single frame write, so one stuck client cannot pin the
// handler forever.
const writeWait = 10 * time.Second

// streamedTypes are the bus events forwarded on /v1/events, next to every
// store change.
var streamedTypes = []event.Type{
	event.TargetAttached,
	event.TargetDetached,
	event.RedirectPerformed,
	event.MeetingJoined,
	event.CountdownCancelled,
	event.SpeakRequested,
	event.Exit,
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The server binds to localhost, but browser pages carry their own
	// Origin; without this the Meet tabs themselves could not subscribe.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventFrame is one message on the /v1/events stream: either a bus event,
// with Type holding the event type, or a store change with Type
// "storeChange".
type EventFrame struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

func handleGetEvents(cs *ControlSurface, rw http.ResponseWriter, r *http.Request) {
	// Subscriptions come first: whatever happens after the handshake finished
	// is guaranteed to reach the client.
	storeSub, changes := cs.Store.Watch()
	defer cs.Store.Unsubscribe(storeSub)
	busSub, events := cs.Events.Subscribe(streamedTypes...)
	defer cs.Events.Unsubscribe(busSub)

	conn, err := upgrader.Upgrade(rw, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		cs.Logger.WithError(err).Debug("could not upgrade the event stream")
		return
	}
	defer func() { _ = conn.Close() }()

	// The read pump only serves the close handshake; client frames carry no
	// meaning. Closing the connection unblocks it.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		var frame EventFrame
		select {
		case change, ok := <-changes:
			if !ok {
				return
			}
			frame = EventFrame{Type: "storeChange", Data: change}
		case evt, ok := <-events:
			if !ok {
				return
			}
			frame = EventFrame{Type: string(evt.Type), Data: evt.Data}
		case <-gone:
			return
		case <-cs.RunCtx.Done():
			return
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(frame); err != nil {
			cs.Logger.WithError(err).Debug("event stream write failed, dropping the client")
			return
		}
	}
}
