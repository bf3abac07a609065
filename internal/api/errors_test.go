package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{name: "short", in: "abc", n: 5, want: "abc"},
		{name: "exact", in: "abc", n: 3, want: "abc"},
		{name: "ascii", in: "abcdef", n: 4, want: "abcd"},
		{name: "inside_rune", in: "aé", n: 2, want: "a"},
		{name: "after_rune", in: "éa", n: 2, want: "é"},
		{name: "four_byte", in: "x😀", n: 3, want: "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateRunes(tt.in, tt.n); got != tt.want {
				t.Fatalf("truncateRunes(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
		})
	}
}

func TestErrorPageTruncatesOnRuneBoundary(t *testing.T) {
	// "a" shifts every "é" so the byte limit lands inside one.
	msg := "a" + strings.Repeat("é", maxErrorMessageLen)

	rr := httptest.NewRecorder()
	errorPage(rr, httptest.NewRequest(http.MethodGet, "/error?msg="+url.QueryEscape(msg), nil))

	var resp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	got := resp.Error.Message
	if !utf8.ValidString(got) || strings.ContainsRune(got, utf8.RuneError) {
		t.Fatalf("message is not clean UTF-8: %q", got)
	}
	if len(got) > maxErrorMessageLen || len(got) < maxErrorMessageLen-1 {
		t.Fatalf("len(message) = %d, want %d or %d", len(got), maxErrorMessageLen-1, maxErrorMessageLen)
	}
}
