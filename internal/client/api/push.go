package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/avoronova/notekeeper/internal/client/events"
	"github.com/avoronova/notekeeper/internal/common"
	"github.com/avoronova/notekeeper/internal/logging"
	"github.com/avoronova/notekeeper/internal/wire"
)

const (
	reconnectMin = time.Second
	reconnectMax = 30 * time.Second
)

// PushListener keeps a websocket to the server's event channel and turns
// incoming change notifications into bus events. The connection drops
// whenever the token rotates or the network blips; the listener just
// reconnects with backoff until ctx is cancelled.
type PushListener struct {
	client *Client
	bus    *events.Bus
	log    logging.Logger
}

func NewPushListener(client *Client, bus *events.Bus, log logging.Logger) *PushListener {
	return &PushListener{client: client, bus: bus, log: log}
}

// Run maintains the push connection until ctx is cancelled. It waits out
// unauthenticated periods instead of failing.
func (p *PushListener) Run(ctx context.Context) {
	backoff := reconnectMin
	for {
		if ctx.Err() != nil {
			return
		}
		if !p.client.IsAuthenticated() {
			if !sleep(ctx, reconnectMin) {
				return
			}
			continue
		}

		err := p.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			p.log.Debug(ctx, "push connection lost", "error", err, "retry_in", backoff)
		}

		if !sleep(ctx, backoff) {
			return
		}
		backoff *= 2
		if backoff > reconnectMax {
			backoff = reconnectMax
		}
		if err == nil {
			backoff = reconnectMin
		}
	}
}

// listen holds one connection open and pumps events until it breaks.
func (p *PushListener) listen(ctx context.Context) error {
	header := http.Header{}
	p.client.mu.RLock()
	header.Set(common.AuthorizationHeader, "Bearer "+p.client.accessToken)
	p.client.mu.RUnlock()
	header.Set(common.ClientIDHeader, p.client.clientID)

	conn, _, err := websocket.Dial(ctx, p.client.baseURL+"/api/ws", &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	p.log.Debug(ctx, "push channel connected")

	// The push channel doubles as a liveness signal: holding a connection
	// means the server is reachable, losing it means we may be offline.
	p.bus.Publish(events.Event{Name: events.WentOnline})
	defer p.bus.Publish(events.Event{Name: events.WentOffline})

	for {
		var ev wire.Event
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			var closeErr websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code == websocket.StatusNormalClosure {
				return nil
			}
			return err
		}
		if ev.Type == wire.EventNotesChanged {
			p.bus.Publish(events.Event{Name: events.NotesChanged, Payload: ev.NoteUUIDs})
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
