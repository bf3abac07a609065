package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"portal/internal/login"
	"portal/internal/models"
)

type SessionHandler struct {
	scope *SessionScope
}

func NewSessionHandler(scope *SessionScope) *SessionHandler {
	return &SessionHandler{scope: scope}
}

// SessionRequest is a login record pushed by the auth redirect service for
// the device it got from the login redirect.
type SessionRequest struct {
	UserID           int64                   `json:"userid" validate:"gt=0"`
	Username         string                  `json:"username" validate:"required,max=32"`
	Name             string                  `json:"name" validate:"max=64"`
	Avatar           string                  `json:"avatar" validate:"max=64"`
	Banner           *string                 `json:"banner" validate:"omitempty,max=64"`
	AccentColor      int                     `json:"accent_color" validate:"min=0,lte=16777215"`
	AvatarDecoration *login.AvatarDecoration `json:"avatar_decoration_data"`
	Verified         bool                    `json:"verified"`
	AuthAt           string                  `json:"authAt" validate:"required"`
}

// GET /api/v1/session
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	d := StoreFrom(r).Read(r.Context())
	writeJSON(w, http.StatusOK, models.Session{
		LoggedIn: d != nil,
		User:     modelUserFromLogin(d),
	})
}

// PUT /api/v1/devices/{device}/session
func (h *SessionHandler) PutDevice(w http.ResponseWriter, r *http.Request) {
	store, ok := h.deviceStore(w, r)
	if !ok {
		return
	}

	var req SessionRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	d := &login.Data{
		UserID:           req.UserID,
		Username:         req.Username,
		Name:             req.Name,
		Avatar:           req.Avatar,
		Banner:           req.Banner,
		AccentColor:      req.AccentColor,
		AvatarDecoration: req.AvatarDecoration,
		Verified:         req.Verified,
		AuthAt:           req.AuthAt,
	}
	store.Write(r.Context(), d)
	slog.Info("user logged in", "request_id", requestID(r.Context()), "user_id", d.UserID, "via", "device_put")

	writeJSON(w, http.StatusOK, models.Session{
		LoggedIn: true,
		User:     modelUserFromLogin(d),
	})
}

// DELETE /api/v1/devices/{device}/session
func (h *SessionHandler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	store, ok := h.deviceStore(w, r)
	if !ok {
		return
	}
	store.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) deviceStore(w http.ResponseWriter, r *http.Request) (*login.Store, bool) {
	store, err := h.scope.DeviceStore(chi.URLParam(r, "device"))
	switch {
	case errors.Is(err, errNoSharedStorage):
		writeError(w, http.StatusConflict, ErrCodeInvalidRequest, "Device sessions need a shared storage driver")
		return nil, false
	case err != nil:
		badRequest(w, "Invalid device id")
		return nil, false
	}
	return store, true
}

// DELETE /api/v1/session
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	StoreFrom(r).Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
