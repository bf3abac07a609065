package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"portal/internal/auth"
)

type AuthHandler struct {
	jwtService      *auth.JWTService
	loginURL        string
	defaultRedirect string
}

func NewAuthHandler(jwtService *auth.JWTService, loginURL, defaultRedirect string) *AuthHandler {
	return &AuthHandler{
		jwtService:      jwtService,
		loginURL:        loginURL,
		defaultRedirect: defaultRedirect,
	}
}

// GET /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.loginRedirect(r.URL.Query().Get("to"), deviceFrom(r)), http.StatusFound)
}

// LoginURL is where the portal sends users to sign in with Discord. device
// is passed along so the auth redirect service can write that browser's
// slot through the device session endpoint; it is empty under the cookie
// driver.
func (h *AuthHandler) LoginURL(device string) string {
	return h.loginRedirect("", device)
}

func (h *AuthHandler) loginRedirect(to, device string) string {
	u, err := url.Parse(h.loginURL)
	if err != nil {
		return h.loginURL
	}
	q := u.Query()
	q.Set("to", localPath(to, h.defaultRedirect))
	if device != "" {
		q.Set("device", device)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// GET /auth/callback
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		redirectToError(w, r, "Missing login token")
		return
	}

	d, err := h.jwtService.ValidateHandoff(token)
	if err != nil {
		slog.Warn("rejected login hand-off", "request_id", requestID(r.Context()), "error", err)
		redirectToError(w, r, "Login link is invalid or expired")
		return
	}

	StoreFrom(r).Write(r.Context(), d)
	slog.Info("user logged in", "request_id", requestID(r.Context()), "user_id", d.UserID)

	http.Redirect(w, r, localPath(r.URL.Query().Get("to"), h.defaultRedirect), http.StatusFound)
}

// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	StoreFrom(r).Clear(r.Context())
	http.Redirect(w, r, h.defaultRedirect, http.StatusFound)
}

// localPath returns to when it is a path on this site, otherwise fallback.
func localPath(to, fallback string) string {
	if to == "" || !strings.HasPrefix(to, "/") || strings.HasPrefix(to, "//") || strings.HasPrefix(to, "/\\") {
		return fallback
	}
	u, err := url.Parse(to)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return to
}

func redirectToError(w http.ResponseWriter, r *http.Request, message string) {
	http.Redirect(w, r, "/error?msg="+url.QueryEscape(message), http.StatusFound)
}
