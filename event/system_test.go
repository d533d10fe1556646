package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automeet/automeet/internal/lib/testutils"
)

func TestSubscribeAndEmit(t *testing.T) {
	t.Parallel()
	sys := NewSystem(testutils.NewLogger(t))

	subID, ch := sys.Subscribe(TargetAttached, SpeakRequested)
	require.Equal(t, uint64(1), subID)

	sys.Emit(&Event{Type: TargetAttached, Data: "tab-1"})
	sys.Emit(&Event{Type: MeetingJoined}) // not subscribed, must not arrive
	sys.Emit(&Event{Type: SpeakRequested, Data: "hello"})

	evt := <-ch
	assert.Equal(t, TargetAttached, evt.Type)
	assert.Equal(t, "tab-1", evt.Data)

	evt = <-ch
	assert.Equal(t, SpeakRequested, evt.Type)
}

func TestSubscribeWithoutEventsPanics(t *testing.T) {
	t.Parallel()
	sys := NewSystem(testutils.NewLogger(t))
	assert.Panics(t, func() { sys.Subscribe() })
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()
	sys := NewSystem(testutils.NewLogger(t))

	subID, ch := sys.Subscribe(Exit)
	sys.Unsubscribe(subID)

	_, open := <-ch
	assert.False(t, open)

	// Unsubscribing twice must be a no-op.
	sys.Unsubscribe(subID)

	// Emitting to a type without subscribers must not block or panic.
	sys.Emit(&Event{Type: Exit})
}

func TestLaggingSubscriberDropsEvents(t *testing.T) {
	t.Parallel()
	sys := NewSystem(testutils.NewLogger(t))

	_, ch := sys.Subscribe(TargetDetached)
	for i := 0; i < defaultBuffer+10; i++ {
		sys.Emit(&Event{Type: TargetDetached, Data: i})
	}

	// The buffer worth of events is there, the overflow was dropped and
	// nothing deadlocked.
	received := 0
	for {
		select {
		case <-ch:
			received++
		case <-time.After(10 * time.Millisecond):
			assert.Equal(t, defaultBuffer, received)
			return
		}
	}
}

func TestUnsubscribeAll(t *testing.T) {
	t.Parallel()
	sys := NewSystem(testutils.NewLogger(t))

	_, ch1 := sys.Subscribe(TargetAttached)
	_, ch2 := sys.Subscribe(TargetAttached, TargetDetached)

	sys.UnsubscribeAll()

	_, open := <-ch1
	assert.False(t, open)
	_, open = <-ch2
	assert.False(t, open)
}
