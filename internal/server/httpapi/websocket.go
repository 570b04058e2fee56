package httpapi

import (
	"net/http"

	"github.com/coder/websocket"

	"github.com/avoronova/notekeeper/internal/common"
)

// serveWS upgrades the connection and parks it in the hub until the
// client goes away. The read loop exists only to notice disconnects;
// clients never send anything on this channel.
func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Debug(r.Context(), "websocket accept failed", "error", err)
		return
	}

	userID := userIDFrom(r.Context())
	clientID := r.Header.Get(common.ClientIDHeader)

	remove := h.hub.Add(conn, userID, clientID)
	defer remove()
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}
