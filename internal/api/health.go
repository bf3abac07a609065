package api

import (
	"context"
	"net/http"
	"time"

	"portal/internal/backend"
	"portal/internal/storage"
)

type infoSource interface {
	Snapshot() backend.InfoState
	Refetch(ctx context.Context) error
}

type HealthHandler struct {
	storage storage.Pinger
	info    infoSource
}

// NewHealthHandler takes a nil pinger when storage lives in cookies.
func NewHealthHandler(pinger storage.Pinger, info infoSource) *HealthHandler {
	return &HealthHandler{storage: pinger, info: info}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	storageStatus := "ok"
	status := http.StatusOK

	if h.storage != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.storage.Ping(ctx); err != nil {
			storageStatus = "error"
			status = http.StatusServiceUnavailable
		}
	}

	// The info stream reconnects on its own, so it never degrades health.
	streamStatus := "disconnected"
	if h.info.Snapshot().Connected {
		streamStatus = "connected"
	}

	result := "ok"
	if status != http.StatusOK {
		result = "degraded"
	}

	writeJSON(w, status, map[string]any{
		"status": result,
		"checks": map[string]string{
			"storage":     storageStatus,
			"info_stream": streamStatus,
		},
	})
}
