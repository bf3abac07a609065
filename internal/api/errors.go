package api

import (
	"net/http"
	"strings"
	"unicode/utf8"
)

const maxErrorMessageLen = 500

// GET /error
func errorPage(w http.ResponseWriter, r *http.Request) {
	msg := strings.TrimSpace(plainText(r.URL.Query().Get("msg")))
	if msg == "" {
		msg = "Unknown error occurred"
	}
	writeError(w, http.StatusBadRequest, ErrCodeVerificationFailed, truncateRunes(msg, maxErrorMessageLen))
}

// truncateRunes cuts s to at most n bytes without splitting a UTF-8
// sequence.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
