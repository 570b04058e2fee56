package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_PublishReachesSubscribers(t *testing.T) {
	bus := NewBus()

	var got []string
	bus.Subscribe(NotesChanged, func(e Event) { got = append(got, e.Name) })
	bus.Subscribe(WentOnline, func(e Event) { got = append(got, e.Name) })

	bus.Publish(Event{Name: NotesChanged})
	bus.Publish(Event{Name: NotesChanged})
	bus.Publish(Event{Name: WentOnline})

	assert.Equal(t, []string{NotesChanged, NotesChanged, WentOnline}, got)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	unsub := bus.Subscribe(NotesChanged, func(Event) { calls++ })

	bus.Publish(Event{Name: NotesChanged})
	unsub()
	bus.Publish(Event{Name: NotesChanged})

	assert.Equal(t, 1, calls)
}

func TestBus_PayloadDelivered(t *testing.T) {
	bus := NewBus()

	var payload any
	bus.Subscribe(NotesChanged, func(e Event) { payload = e.Payload })

	bus.Publish(Event{Name: NotesChanged, Payload: []string{"u1", "u2"}})
	assert.Equal(t, []string{"u1", "u2"}, payload)
}
