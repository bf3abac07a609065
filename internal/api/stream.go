package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"portal/internal/backend"
	"portal/internal/ws"
)

// Origins are checked by corsMiddleware before the upgrade.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type StreamHandler struct {
	hub *ws.Hub
}

func NewStreamHandler(hub *ws.Hub) *StreamHandler {
	return &StreamHandler{hub: hub}
}

// GET /api/v1/portal/stream
func (h *StreamHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "request_id", requestID(r.Context()), "error", err)
		return
	}

	client := ws.NewClient(h.hub, conn, requestID(r.Context()))
	if !h.hub.Register(client) {
		client.Close()
		return
	}

	go client.Serve()
}

// PublishInfo returns a watcher callback that pushes info updates to the
// browsers following the feed.
func PublishInfo(hub *ws.Hub) func(*backend.Info) {
	return func(info *backend.Info) {
		hub.BroadcastDispatch(ws.EventInfoUpdate, modelInfoFromBackend(info))
	}
}

// PublishStreamState returns a watcher callback that tells browsers whether
// live updates are flowing.
func PublishStreamState(hub *ws.Hub) func(bool) {
	return func(connected bool) {
		hub.BroadcastDispatch(ws.EventStreamState, ws.StreamStatePayload{Connected: connected})
	}
}
