package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestInfoWatcherFollowsStream(t *testing.T) {
	updates := make(chan Info, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/info", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(Info{Discord: DiscordStats{MemberCount: 10}})
	})
	mux.HandleFunc("/info/stream", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for info := range updates {
			if err := conn.WriteJSON(info); err != nil {
				return
			}
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := NewClient(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	w := NewInfoWatcher(client, quietLogger())
	if !w.Snapshot().Loading {
		t.Fatal("new watcher is not loading")
	}

	var changes atomic.Int32
	w.OnConnectionChange(func(bool) { changes.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(stopped)
	}()

	waitFor(t, func() bool { return w.Snapshot().Connected })
	if got := w.Snapshot(); got.Data == nil || got.Data.Discord.MemberCount != 10 || got.Loading {
		t.Fatalf("Snapshot() after fetch = %+v", got)
	}

	updates <- Info{Discord: DiscordStats{MemberCount: 11}, YouTube: YouTubeStats{Subscribers: 5}}
	waitFor(t, func() bool {
		s := w.Snapshot()
		return s.Data != nil && s.Data.Discord.MemberCount == 11
	})

	cancel()
	close(updates)
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
	if w.Snapshot().Connected {
		t.Fatal("watcher still connected after stop")
	}
	if got := changes.Load(); got != 2 {
		t.Fatalf("connection changes = %d, want 2", got)
	}
}

type stubFetcher struct {
	info *Info
	err  error
}

func (s *stubFetcher) FetchInfo(context.Context) (*Info, error) { return s.info, s.err }
func (s *stubFetcher) StreamURL() string                        { return "ws://127.0.0.1:1/info/stream" }

func TestInfoWatcherRefetchKeepsDataOnError(t *testing.T) {
	stub := &stubFetcher{info: &Info{Discord: DiscordStats{ServerName: "Dreamer's Land"}}}
	w := NewInfoWatcher(stub, quietLogger())

	if err := w.Refetch(context.Background()); err != nil {
		t.Fatalf("Refetch() error = %v", err)
	}

	stub.info, stub.err = nil, errors.New("backend down")
	if err := w.Refetch(context.Background()); err == nil {
		t.Fatal("Refetch() error = nil, want error")
	}

	got := w.Snapshot()
	if got.Err == nil || got.Loading {
		t.Fatalf("Snapshot() = %+v, want error and not loading", got)
	}
	if got.Data == nil || got.Data.Discord.ServerName != "Dreamer's Land" {
		t.Fatalf("Snapshot().Data = %+v, want previous data", got.Data)
	}
}
