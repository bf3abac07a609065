package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"portal/internal/login"
	"portal/internal/storage"
)

type contextKey string

const (
	storeKey     contextKey = "loginStore"
	deviceKey    contextKey = "deviceID"
	requestIDKey contextKey = "requestID"
)

// CallbackSecretHeader authenticates server-to-server session writes.
const CallbackSecretHeader = "X-Portal-Secret"

// SessionScope builds the login store for one request. With a shared
// backend, each browser gets its own namespace keyed by a device cookie;
// without one, the record lives in a signed cookie.
type SessionScope struct {
	shared       login.Storage
	sealer       storage.Sealer
	cookieOpts   storage.CookieOptions
	deviceCookie string
	storeOpts    []login.Option
}

func NewSessionScope(shared login.Storage, sealer storage.Sealer, cookieOpts storage.CookieOptions, deviceCookie string, storeOpts ...login.Option) *SessionScope {
	return &SessionScope{
		shared:       shared,
		sealer:       sealer,
		cookieOpts:   cookieOpts,
		deviceCookie: deviceCookie,
		storeOpts:    storeOpts,
	}
}

var (
	errNoSharedStorage = errors.New("login records live in browser cookies")
	errInvalidDevice   = errors.New("device id is not a uuid")
)

func (s *SessionScope) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var slot login.Storage
		if s.shared == nil {
			slot = storage.NewCookie(w, r, s.sealer, s.cookieOpts)
		} else {
			id := s.deviceID(w, r)
			slot = deviceStorage(s.shared, id)
			ctx = context.WithValue(ctx, deviceKey, id)
		}
		ctx = context.WithValue(ctx, storeKey, login.NewStore(slot, s.storeOpts...))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// DeviceStore returns the store of another browser's slot, for writes made
// by the auth redirect service. Cookie-held records cannot be reached from
// outside the browser, so it fails without a shared backend.
func (s *SessionScope) DeviceStore(device string) (*login.Store, error) {
	if s.shared == nil {
		return nil, errNoSharedStorage
	}
	id, err := uuid.Parse(device)
	if err != nil {
		return nil, errInvalidDevice
	}
	return login.NewStore(deviceStorage(s.shared, id.String()), s.storeOpts...), nil
}

func deviceStorage(shared login.Storage, id string) login.Storage {
	return storage.WithPrefix(shared, "device:"+id+":")
}

// deviceFrom returns the device id of the request, or "" under the cookie
// driver.
func deviceFrom(r *http.Request) string {
	id, _ := r.Context().Value(deviceKey).(string)
	return id
}

// deviceID returns the browser's device id, issuing a new one when the
// cookie is missing or not a uuid.
func (s *SessionScope) deviceID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(s.deviceCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     s.deviceCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.cookieOpts.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   s.cookieOpts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// StoreFrom returns the login store attached by SessionScope.Middleware.
func StoreFrom(r *http.Request) *login.Store {
	if v, ok := r.Context().Value(storeKey).(*login.Store); ok {
		return v
	}
	return nil
}

func requireCallbackSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(CallbackSecretHeader)
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				unauthorized(w, "Invalid callback secret")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

type requestObserver interface {
	ObserveRequest(route string, status int, d time.Duration)
}

// unmatchedRoute labels requests no route pattern matched, so arbitrary
// paths cannot grow the metric's label set.
const unmatchedRoute = "unmatched"

func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return unmatchedRoute
}

func slogRequestLogger(observer requestObserver, resolver *ClientIPResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			route := routeLabel(r)
			if observer != nil {
				observer.ObserveRequest(route, ww.Status(), duration)
			}

			slog.Info("http request",
				"request_id", requestID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", duration.String(),
				"client_ip", resolver.Resolve(r),
			)
		})
	}
}
