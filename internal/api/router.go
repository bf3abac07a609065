package api

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"portal/internal/auth"
	"portal/internal/config"
	"portal/internal/login"
	"portal/internal/storage"
	"portal/internal/ws"
)

type Server struct {
	router *chi.Mux
	config *config.Config
}

// Deps are the collaborators a Server is built from. Shared is nil when
// login records live in cookies.
type Deps struct {
	Shared   login.Storage
	Backend  verifier
	Info     infoSource
	Feed     *ws.Hub
	Metrics  metricsDeps
	Recorder login.Recorder
}

// metricsDeps is satisfied by *metrics.Metrics.
type metricsDeps interface {
	requestObserver
	Handler() http.Handler
}

func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	ipResolver, err := NewClientIPResolver(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("initializing client IP resolver: %w", err)
	}

	handoffJWT := auth.NewJWTService(cfg.Auth.CallbackSecret, cfg.Auth.Issuer, cfg.Auth.HandoffTTL)
	cookieJWT := auth.NewJWTService(cfg.Storage.CookieSecret, cfg.Server.BaseURL, 0)

	storeOpts := []login.Option{login.WithRecorder(deps.Recorder)}
	scope := NewSessionScope(
		deps.Shared,
		cookieJWT,
		storage.CookieOptions{
			Secure: cfg.Storage.CookieSecure,
			MaxAge: cfg.Storage.CookieMaxAge,
		},
		cfg.Storage.DeviceCookie,
		storeOpts...,
	)

	var pinger storage.Pinger
	if p, ok := deps.Shared.(storage.Pinger); ok {
		pinger = p
	}

	authHandler := NewAuthHandler(handoffJWT, cfg.Auth.LoginURL, cfg.Auth.DefaultRedirect)
	sessionHandler := NewSessionHandler(scope)
	portalHandler := NewPortalHandler(cfg.Server.Name, authHandler, deps.Info)
	verifyHandler := NewVerifyHandler(deps.Backend)
	healthHandler := NewHealthHandler(pinger, deps.Info)

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(slogRequestLogger(deps.Metrics, ipResolver))
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(cfg.Server.AllowedOrigins))
	r.Use(securityHeadersMiddleware)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		notFound(w, "Not found")
	})

	r.Get("/health", healthHandler.Check)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}
	r.Get("/error", errorPage)

	r.Route("/auth", func(r chi.Router) {
		r.Use(scope.Middleware)
		r.Get("/login", authHandler.Login)
		r.With(RateLimit(20, time.Minute, ipResolver)).Get("/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(maxBodySizeMiddleware(int64(cfg.Server.MaxBodySize.Bytes())))

		// Browser routes: the store is the caller's own slot.
		r.Group(func(r chi.Router) {
			r.Use(scope.Middleware)

			r.Get("/session", sessionHandler.Get)
			r.Delete("/session", sessionHandler.Delete)

			r.Get("/portal", portalHandler.Get)
			r.With(RateLimit(10, time.Minute, ipResolver)).Post("/portal/refetch", portalHandler.Refetch)

			if deps.Feed != nil {
				streamHandler := NewStreamHandler(deps.Feed)
				r.With(RateLimit(30, time.Minute, ipResolver)).Get("/portal/stream", streamHandler.ServeWS)
			}
		})

		// Server-to-server routes for the auth redirect service.
		r.Group(func(r chi.Router) {
			r.Use(RateLimit(30, time.Minute, ipResolver))
			r.Use(requireCallbackSecret(cfg.Auth.CallbackSecret))

			r.Put("/devices/{device}/session", sessionHandler.PutDevice)
			r.Delete("/devices/{device}/session", sessionHandler.DeleteDevice)
		})
	})

	r.Route("/verify", func(r chi.Router) {
		r.Use(RateLimit(30, time.Minute, ipResolver))
		r.Get("/", verifyHandler.Show)
		r.Get("/connect", verifyHandler.Connect)
	})

	return &Server{
		router: r,
		config: cfg,
	}, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !slices.Contains(allowedOrigins, origin) && !isLoopbackOrigin(origin) {
				writeError(w, http.StatusForbidden, ErrCodeInvalidRequest, "Origin not allowed")
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+CallbackSecretHeader)
			w.Header().Add("Vary", "Origin")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isLoopbackOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func maxBodySizeMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
