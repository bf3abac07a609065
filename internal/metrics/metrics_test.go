package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSessionCounters(t *testing.T) {
	m := New("test")

	m.ObserveRead("present")
	m.ObserveRead("purged")
	m.ObserveRead("present")
	m.ObserveWrite(nil)
	m.ObserveWrite(errors.New("disk full"))
	m.ObserveClear(nil)

	if got := testutil.ToFloat64(m.sessionReads.WithLabelValues("present")); got != 2 {
		t.Errorf("present reads = %f, want 2", got)
	}
	if got := testutil.ToFloat64(m.sessionReads.WithLabelValues("purged")); got != 1 {
		t.Errorf("purged reads = %f, want 1", got)
	}
	if got := testutil.ToFloat64(m.sessionWrites.WithLabelValues("error")); got != 1 {
		t.Errorf("failed writes = %f, want 1", got)
	}
	if got := testutil.ToFloat64(m.sessionClears.WithLabelValues("ok")); got != 1 {
		t.Errorf("clears = %f, want 1", got)
	}
}

func TestStreamGauge(t *testing.T) {
	m := New("test")

	m.SetStreamConnected(true)
	if got := testutil.ToFloat64(m.streamConnected); got != 1 {
		t.Fatalf("connected = %f, want 1", got)
	}
	m.SetStreamConnected(false)
	if got := testutil.ToFloat64(m.streamConnected); got != 0 {
		t.Fatalf("connected = %f, want 0", got)
	}
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New("portal")
	m.ObserveRead("absent")
	m.ObserveRequest("/api/v1/session", http.StatusOK, 25*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`portal_session_reads_total{outcome="absent"} 1`,
		`portal_http_request_duration_seconds`,
		`portal_info_stream_connected 0`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
