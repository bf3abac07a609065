package api

import (
	"log/slog"
	"net/http"

	"portal/internal/models"
)

const infoUnavailableMessage = "Could not load community info"

type PortalHandler struct {
	serverName string
	auth       *AuthHandler
	info       infoSource
}

func NewPortalHandler(name string, authHandler *AuthHandler, info infoSource) *PortalHandler {
	return &PortalHandler{
		serverName: name,
		auth:       authHandler,
		info:       info,
	}
}

// GET /api/v1/portal
func (h *PortalHandler) Get(w http.ResponseWriter, r *http.Request) {
	// One read per request; the page renders from this snapshot.
	d := StoreFrom(r).Read(r.Context())
	state := h.info.Snapshot()

	resp := models.Portal{
		ServerName:    h.serverName,
		User:          modelUserFromLogin(d),
		LoginURL:      h.auth.LoginURL(deviceFrom(r)),
		LogoutURL:     "/auth/logout",
		VerifyURL:     "/verify/now",
		Info:          modelInfoFromBackend(state.Data),
		InfoLoading:   state.Loading,
		InfoConnected: state.Connected,
	}
	if state.Err != nil {
		// The cause names backend addresses; browsers get the fixed text.
		slog.Debug("serving portal with stale info", "request_id", requestID(r.Context()), "error", state.Err)
		resp.InfoError = infoUnavailableMessage
	}

	writeJSON(w, http.StatusOK, resp)
}

// POST /api/v1/portal/refetch
func (h *PortalHandler) Refetch(w http.ResponseWriter, r *http.Request) {
	if err := h.info.Refetch(r.Context()); err != nil {
		slog.Warn("info refetch failed", "request_id", requestID(r.Context()), "error", err)
		backendUnavailable(w, infoUnavailableMessage)
		return
	}

	state := h.info.Snapshot()
	writeJSON(w, http.StatusOK, modelInfoFromBackend(state.Data))
}
