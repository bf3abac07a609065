package ws

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ClientState is the lifecycle of a feed connection.
type ClientState int32

const (
	ClientStateConnected ClientState = iota
	ClientStateClosing
	ClientStateClosed
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 15 * time.Second
	pingPeriod = pongWait * 2 / 3

	// The feed is one-way; browsers only send control frames.
	maxMessageSize = 512

	clientSendBufferSize = 16
)

// Client is one browser following the info feed.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan *WSMessage

	closeOnce sync.Once
	state     atomic.Int32
	dropped   atomic.Int64
}

// NewClient wraps conn. id only labels log lines.
func NewClient(hub *Hub, conn *websocket.Conn, id string) *Client {
	c := &Client{
		id:   id,
		hub:  hub,
		conn: conn,
		send: make(chan *WSMessage, clientSendBufferSize),
	}
	c.state.Store(int32(ClientStateConnected))
	return c
}

// Serve starts the writer and reads until the peer goes away, then
// unregisters the client. It must be called after a successful Register.
func (c *Client) Serve() {
	go c.writeLoop()
	c.readLoop()
}

// Close drops the connection without touching the send channel, which the
// hub owns.
func (c *Client) Close() {
	moved := c.transitionTo(ClientStateClosing)
	c.closeConn()
	if moved {
		c.transitionTo(ClientStateClosed)
	}
}

// CloseSend is called by the hub when it forgets the client.
func (c *Client) CloseSend() {
	if c.transitionTo(ClientStateClosing) {
		close(c.send)
		c.closeConn()
		c.transitionTo(ClientStateClosed)
	}
}

func (c *Client) closeConn() {
	c.closeOnce.Do(func() {
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

func (c *Client) readLoop() {
	defer func() {
		c.hub.remove(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("feed read error", "component", "feed", "client", c.id, "error", err)
			}
			return
		}
	}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				slog.Debug("feed write error", "component", "feed", "client", c.id, "error", err)
				return
			}

		case <-ticker.C:
			if c.IsClosed() {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) State() ClientState {
	return ClientState(c.state.Load())
}

func (c *Client) IsClosed() bool {
	return c.State() != ClientStateConnected
}

func isValidClientTransition(from, to ClientState) bool {
	switch from {
	case ClientStateConnected:
		return to == ClientStateClosing
	case ClientStateClosing:
		return to == ClientStateClosed
	default:
		return false
	}
}

func (c *Client) transitionTo(next ClientState) bool {
	for {
		current := ClientState(c.state.Load())
		if !isValidClientTransition(current, next) {
			return false
		}
		if c.state.CompareAndSwap(int32(current), int32(next)) {
			return true
		}
	}
}
