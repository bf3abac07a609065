package backend

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a ping to the backend
	writeWait = 10 * time.Second

	// Time allowed to read the next message or pong from the backend
	pongWait = 60 * time.Second

	// Send pings with this period. Must be less than pongWait
	pingPeriod = 50 * time.Second

	maxMessageSize = 65536

	minReconnectDelay = time.Second
	maxReconnectDelay = time.Minute
)

// InfoState is a point-in-time view of the community info feed.
type InfoState struct {
	Data      *Info
	Loading   bool
	Err       error
	Connected bool
}

type infoFetcher interface {
	FetchInfo(ctx context.Context) (*Info, error)
	StreamURL() string
}

// InfoWatcher keeps the latest community info. It fetches once on start,
// then follows the backend's update stream and reconnects when it drops.
type InfoWatcher struct {
	client infoFetcher
	dialer *websocket.Dialer
	logger *slog.Logger
	onConn func(connected bool)
	onData func(info *Info)

	mu    sync.RWMutex
	state InfoState
}

func NewInfoWatcher(client infoFetcher, logger *slog.Logger) *InfoWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &InfoWatcher{
		client: client,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger: logger.With("component", "info_watcher"),
		state:  InfoState{Loading: true},
	}
}

func (w *InfoWatcher) Snapshot() InfoState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Refetch loads info over HTTP. The previous data is kept on failure.
func (w *InfoWatcher) Refetch(ctx context.Context) error {
	w.mu.Lock()
	w.state.Loading = true
	w.mu.Unlock()

	info, err := w.client.FetchInfo(ctx)

	w.mu.Lock()
	w.state.Loading = false
	w.state.Err = err
	if err == nil {
		w.state.Data = info
	}
	w.mu.Unlock()

	if err == nil && w.onData != nil {
		w.onData(info)
	}
	return err
}

// OnUpdate registers fn to run with every new info value, whether fetched
// or pushed by the stream. It must be called before Run.
func (w *InfoWatcher) OnUpdate(fn func(info *Info)) {
	w.onData = fn
}

// OnConnectionChange registers fn to run each time the stream connects or
// drops. It must be called before Run.
func (w *InfoWatcher) OnConnectionChange(fn func(connected bool)) {
	w.onConn = fn
}

func (w *InfoWatcher) setConnected(connected bool) {
	w.mu.Lock()
	w.state.Connected = connected
	w.mu.Unlock()

	if w.onConn != nil {
		w.onConn(connected)
	}
}

func (w *InfoWatcher) setData(info *Info) {
	w.mu.Lock()
	w.state.Data = info
	w.state.Err = nil
	w.state.Loading = false
	w.mu.Unlock()

	if w.onData != nil {
		w.onData(info)
	}
}

// Run blocks until ctx is done.
func (w *InfoWatcher) Run(ctx context.Context) {
	if err := w.Refetch(ctx); err != nil {
		w.logger.Warn("initial info fetch failed", "error", err)
	}

	delay := minReconnectDelay
	for {
		connectedAt := time.Now()
		err := w.follow(ctx)
		if ctx.Err() != nil {
			return
		}
		if time.Since(connectedAt) > maxReconnectDelay {
			delay = minReconnectDelay
		}
		w.logger.Warn("info stream disconnected", "error", err, "retry_in", delay.String())

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

func (w *InfoWatcher) follow(ctx context.Context) error {
	conn, _, err := w.dialer.DialContext(ctx, w.client.StreamURL(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	w.setConnected(true)
	defer w.setConnected(false)
	w.logger.Info("info stream connected")

	done := make(chan struct{})
	defer close(done)
	go w.keepAlive(ctx, conn, done)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var info Info
		if err := json.Unmarshal(message, &info); err != nil {
			w.logger.Warn("invalid info update", "error", err)
			continue
		}
		w.setData(&info)
	}
}

// keepAlive pings the backend and closes conn when ctx ends so the read
// loop returns.
func (w *InfoWatcher) keepAlive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			_ = conn.Close()
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
