// Package events provides a small typed event bus. The sync orchestrator
// subscribes to it for push notifications and connectivity changes, so it
// never depends on the transport that produced them.
package events

import "sync"

// Event names used across the client.
const (
	NotesChanged  = "notes.changed"
	WentOnline    = "network.online"
	WentOffline   = "network.offline"
	Authenticated = "auth.login"
	LoggedOut     = "auth.logout"
)

// Event carries a name and an optional payload.
type Event struct {
	Name    string
	Payload any
}

// Handler receives published events. Handlers run synchronously on the
// publisher's goroutine and must not block.
type Handler func(Event)

// Bus is a subscribe/publish hub keyed by event name.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]Handler
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[int]Handler)}
}

// Subscribe registers a handler for the named event and returns an
// unsubscribe function.
func (b *Bus) Subscribe(name string, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[name] == nil {
		b.subs[name] = make(map[int]Handler)
	}
	id := b.nextID
	b.nextID++
	b.subs[name][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[name], id)
	}
}

// Publish delivers the event to all current subscribers of its name.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[e.Name]))
	for _, h := range b.subs[e.Name] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}
