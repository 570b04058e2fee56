package ws

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoronova/notekeeper/internal/logging"
	"github.com/avoronova/notekeeper/internal/wire"
)

// dial opens a websocket against a test server that registers every
// connection with the hub under the given user and client IDs.
func dial(t *testing.T, hub *Hub, userID int64, clientID string) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		remove := hub.Add(conn, userID, clientID)
		defer remove()

		// hold the connection open until the peer goes away
		for {
			if _, _, err := conn.Read(r.Context()); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func waitForCount(t *testing.T, hub *Hub, want int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Count() == want },
		2*time.Second, 10*time.Millisecond)
}

func TestBroadcast_SkipsOriginatingClient(t *testing.T) {
	hub := NewHub(logging.NewJSONLogger(io.Discard))

	dial(t, hub, 1, "client-a")
	other := dial(t, hub, 1, "client-b")
	waitForCount(t, hub, 2)

	hub.Broadcast(context.Background(), 1, "client-a",
		wire.Event{Type: wire.EventNotesChanged, NoteUUIDs: []string{"u1"}})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var ev wire.Event
	require.NoError(t, wsjson.Read(ctx, other, &ev))
	assert.Equal(t, wire.EventNotesChanged, ev.Type)
	assert.Equal(t, []string{"u1"}, ev.NoteUUIDs)
}

func TestBroadcast_ScopedToUser(t *testing.T) {
	hub := NewHub(logging.NewJSONLogger(io.Discard))

	stranger := dial(t, hub, 2, "client-x")
	waitForCount(t, hub, 1)

	hub.Broadcast(context.Background(), 1, "",
		wire.Event{Type: wire.EventNotesChanged, NoteUUIDs: []string{"u1"}})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var ev wire.Event
	err := wsjson.Read(ctx, stranger, &ev)
	assert.Error(t, err)
}

func TestBroadcast_NoClientsIsNoop(t *testing.T) {
	hub := NewHub(logging.NewJSONLogger(io.Discard))
	hub.Broadcast(context.Background(), 1, "", wire.Event{Type: wire.EventNotesChanged})
	assert.Zero(t, hub.Count())
}
