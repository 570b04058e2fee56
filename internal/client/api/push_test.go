package api

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoronova/notekeeper/internal/client/events"
	"github.com/avoronova/notekeeper/internal/logging"
	"github.com/avoronova/notekeeper/internal/wire"
)

func waitEvent(t *testing.T, ch <-chan events.Event, name string) events.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %s event", name)
		return events.Event{}
	}
}

func TestPushListener_ConnectionSignalsConnectivity(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeTokens(w, "tok", "ref")
	})
	mux.HandleFunc("/api/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		_ = wsjson.Write(r.Context(), conn, wire.Event{
			Type:      wire.EventNotesChanged,
			NoteUUIDs: []string{"u1"},
		})
		conn.Close(websocket.StatusNormalClosure, "")
	})

	c := newTestClient(t, mux)
	require.NoError(t, c.Login(context.Background(), "a@b.c", "pw"))

	bus := events.NewBus()
	online := make(chan events.Event, 4)
	offline := make(chan events.Event, 4)
	changed := make(chan events.Event, 4)
	bus.Subscribe(events.WentOnline, func(ev events.Event) { online <- ev })
	bus.Subscribe(events.WentOffline, func(ev events.Event) { offline <- ev })
	bus.Subscribe(events.NotesChanged, func(ev events.Event) { changed <- ev })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		NewPushListener(c, bus, logging.NewJSONLogger(io.Discard)).Run(ctx)
		close(done)
	}()

	waitEvent(t, online, "online")
	ev := waitEvent(t, changed, "notes changed")
	assert.Equal(t, []string{"u1"}, ev.Payload)
	waitEvent(t, offline, "offline")

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("listener did not stop on cancel")
	}
}
