package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"portal/internal/backend"
	"portal/internal/cdn"
	"portal/internal/models"
)

type verifier interface {
	FetchVerifyData(ctx context.Context, token string) (*backend.VerifyData, error)
	OAuth2StartURL(token string) string
}

type VerifyHandler struct {
	backend verifier
}

func NewVerifyHandler(v verifier) *VerifyHandler {
	return &VerifyHandler{backend: v}
}

// GET /verify
func (h *VerifyHandler) Show(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Redirect(w, r, "/verify/now", http.StatusFound)
		return
	}

	data, err := h.backend.FetchVerifyData(r.Context(), token)
	if err != nil {
		slog.Warn("verify lookup failed", "request_id", requestID(r.Context()), "error", err)
		redirectToError(w, r, verifyErrorMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, models.Verification{
		DiscordID:   data.DiscordID,
		DisplayName: plainText(data.DisplayName),
		DiscordTag:  plainText(data.DiscordTag),
		AvatarURL:   cdn.AvatarForID(data.DiscordID, data.Avatar),
		ConnectURL:  "/verify/connect?token=" + url.QueryEscape(data.Token),
	})
}

// GET /verify/connect
func (h *VerifyHandler) Connect(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Redirect(w, r, "/verify/now", http.StatusFound)
		return
	}
	http.Redirect(w, r, h.backend.OAuth2StartURL(token), http.StatusFound)
}

func verifyErrorMessage(err error) string {
	var statusErr *backend.StatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" {
		return statusErr.Message
	}
	if errors.Is(err, backend.ErrBackend) {
		return "Verification service is unavailable"
	}
	return "Unknown error occurred"
}
