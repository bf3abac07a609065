package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"portal/internal/auth"
	"portal/internal/login"
)

func testSealer() *auth.JWTService {
	return auth.NewJWTService("0123456789abcdef0123456789abcdef", "", 0)
}

func TestCookieWriteThenReadAcrossRequests(t *testing.T) {
	ctx := context.Background()
	sealer := testSealer()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/callback", nil)
	store := login.NewStore(NewCookie(rr, req, sealer, CookieOptions{MaxAge: time.Hour}))

	want := &login.Data{UserID: 99, Username: "n", Name: "N", AuthAt: "t"}
	store.Write(ctx, want)
	if got := store.Read(ctx); got == nil || got.UserID != 99 {
		t.Fatalf("Read() in same request = %+v, want UserID 99", got)
	}

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != login.Key {
		t.Fatalf("cookies = %v, want one %s cookie", cookies, login.Key)
	}
	if !cookies[0].HttpOnly {
		t.Fatal("login cookie is not HttpOnly")
	}

	next := httptest.NewRequest(http.MethodGet, "/portal", nil)
	next.AddCookie(cookies[0])
	nextStore := login.NewStore(NewCookie(httptest.NewRecorder(), next, sealer, CookieOptions{}))
	if got := nextStore.Read(ctx); got == nil || *got != *want {
		t.Fatalf("Read() on next request = %+v, want %+v", got, want)
	}
}

func TestCookieTamperedIsPurged(t *testing.T) {
	ctx := context.Background()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/portal", nil)
	req.AddCookie(&http.Cookie{Name: login.Key, Value: "eyJhbGciOiJIUzI1NiJ9.e30.forged"})
	store := login.NewStore(NewCookie(rr, req, testSealer(), CookieOptions{}))

	if store.IsActive(ctx) {
		t.Fatal("IsActive() = true for forged cookie")
	}

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("cookies = %v, want one expiring %s cookie", cookies, login.Key)
	}
}

func TestCookieClear(t *testing.T) {
	ctx := context.Background()
	sealer := testSealer()

	sealed, err := sealer.SealCookie(`{"userid":1,"username":"a","name":"A","accent_color":0,"verified":false,"authAt":"t"}`, 0)
	if err != nil {
		t.Fatalf("SealCookie() error = %v", err)
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: login.Key, Value: sealed})
	store := login.NewStore(NewCookie(rr, req, sealer, CookieOptions{}))

	if !store.IsActive(ctx) {
		t.Fatal("IsActive() = false before clear")
	}
	store.Clear(ctx)
	store.Clear(ctx)
	if store.IsActive(ctx) {
		t.Fatal("IsActive() = true after clear")
	}
	if got := len(rr.Result().Cookies()); got != 1 {
		t.Fatalf("Set-Cookie count = %d, want 1", got)
	}
}
