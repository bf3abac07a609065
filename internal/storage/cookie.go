package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"portal/internal/login"
)

// Sealer signs cookie values and opens them again.
type Sealer interface {
	SealCookie(value string, ttl time.Duration) (string, error)
	OpenCookie(token string) (string, error)
}

type CookieOptions struct {
	Path     string
	Secure   bool
	SameSite http.SameSite
	// MaxAge of zero makes the cookie last for the browser session.
	MaxAge time.Duration
}

// Cookie is request-scoped storage where each key is a signed cookie. It
// must be used before the response header is written.
type Cookie struct {
	w      http.ResponseWriter
	r      *http.Request
	sealer Sealer
	opts   CookieOptions

	// pending holds writes made during this request; nil marks a removal.
	pending map[string]*string
}

func NewCookie(w http.ResponseWriter, r *http.Request, sealer Sealer, opts CookieOptions) *Cookie {
	if opts.Path == "" {
		opts.Path = "/"
	}
	if opts.SameSite == 0 {
		opts.SameSite = http.SameSiteLaxMode
	}
	return &Cookie{
		w:       w,
		r:       r,
		sealer:  sealer,
		opts:    opts,
		pending: make(map[string]*string),
	}
}

func (c *Cookie) GetItem(_ context.Context, key string) (string, bool, error) {
	if v, ok := c.pending[key]; ok {
		if v == nil {
			return "", false, nil
		}
		return *v, true, nil
	}

	cookie, err := c.r.Cookie(key)
	if errors.Is(err, http.ErrNoCookie) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading cookie %s: %w", key, err)
	}

	value, err := c.sealer.OpenCookie(cookie.Value)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", login.ErrMalformed, err)
	}
	return value, true, nil
}

func (c *Cookie) SetItem(_ context.Context, key, value string) error {
	sealed, err := c.sealer.SealCookie(value, c.opts.MaxAge)
	if err != nil {
		return fmt.Errorf("sealing cookie %s: %w", key, err)
	}

	http.SetCookie(c.w, &http.Cookie{
		Name:     key,
		Value:    sealed,
		Path:     c.opts.Path,
		MaxAge:   int(c.opts.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   c.opts.Secure,
		SameSite: c.opts.SameSite,
	})
	c.pending[key] = &value
	return nil
}

func (c *Cookie) RemoveItem(_ context.Context, key string) error {
	if v, ok := c.pending[key]; ok && v == nil {
		return nil
	}
	http.SetCookie(c.w, &http.Cookie{
		Name:     key,
		Value:    "",
		Path:     c.opts.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.opts.Secure,
		SameSite: c.opts.SameSite,
	})
	c.pending[key] = nil
	return nil
}
