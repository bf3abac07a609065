package ws

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

const (
	maxDroppedMessagesBeforeDisconnect = 100

	broadcastBufferSize = 64
)

type registerRequest struct {
	client *Client
	done   chan struct{}
}

// Hub fans info feed events out to connected browsers. New clients get
// HELLO followed by the latest stream state and info update.
type Hub struct {
	clients      map[*Client]bool
	broadcast    chan *WSMessage
	registerSync chan registerRequest
	unregister   chan *Client
	shutdown     chan struct{}
	shutdownOnce sync.Once
	sequence     int64

	// latest messages per event type, replayed to new clients
	latest map[string]*WSMessage
	mu     sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:      make(map[*Client]bool),
		broadcast:    make(chan *WSMessage, broadcastBufferSize),
		registerSync: make(chan registerRequest),
		unregister:   make(chan *Client),
		shutdown:     make(chan struct{}),
		latest:       make(map[string]*WSMessage),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.shutdown:
			h.mu.Lock()
			for client := range h.clients {
				client.CloseSend()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			slog.Info("shutdown complete", "component", "hub")
			return

		case req := <-h.registerSync:
			h.mu.Lock()
			h.clients[req.client] = true
			h.sendToClientLocked(req.client, &WSMessage{
				Op:   OpHello,
				Data: HelloPayload{
					ProtocolVersion: ProtocolVersion,
					PingIntervalMS:  pingPeriod.Milliseconds(),
				},
			})
			for _, eventType := range replayOrder {
				if msg, ok := h.latest[eventType]; ok {
					h.sendToClientLocked(req.client, msg)
				}
			}
			h.mu.Unlock()
			close(req.done)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.CloseSend()
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			h.latest[message.Type] = message
			for client := range h.clients {
				h.sendToClientLocked(client, message)
			}
			h.mu.Unlock()
		}
	}
}

// Register adds client and blocks until the hub has queued its greeting.
// It returns false once the hub is shut down.
func (h *Hub) Register(client *Client) bool {
	req := registerRequest{client: client, done: make(chan struct{})}
	select {
	case h.registerSync <- req:
	case <-h.shutdown:
		return false
	}
	<-req.done
	return true
}

func (h *Hub) remove(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.shutdown:
	}
}

// Caller must hold a lock on h.mu.
func (h *Hub) sendToClientLocked(client *Client, msg *WSMessage) {
	if client.IsClosed() {
		return
	}
	select {
	case client.send <- msg:
	default:
		dropped := client.dropped.Add(1)
		if dropped%10 == 1 {
			slog.Warn("dropped messages for slow client", "component", "hub", "client", client.id, "dropped", dropped)
		}
		if dropped >= maxDroppedMessagesBeforeDisconnect {
			slog.Warn("disconnecting slow client", "component", "hub", "client", client.id, "dropped", dropped)
			// The read loop notices the closed conn and unregisters.
			client.Close()
		}
	}
}

func (h *Hub) nextSequence() int64 {
	return atomic.AddInt64(&h.sequence, 1)
}

// BroadcastDispatch sends a DISPATCH message to all clients with sequence number
func (h *Hub) BroadcastDispatch(eventType string, data any) {
	seq := h.nextSequence()
	msg := &WSMessage{
		Op:   OpDispatch,
		Type: eventType,
		Data: data,
		Seq:  &seq,
	}
	select {
	case h.broadcast <- msg:
	case <-h.shutdown:
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Shutdown() {
	h.shutdownOnce.Do(func() { close(h.shutdown) })
}
