package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-session-auth/auth"
)

const (
	// sessionCookieName carries the signed session reference
	sessionCookieName = "session"

	contentTypeJSON = "application/json"
	maxBodyBytes    = 1 << 20

	defaultReturnURL = RouteSession
)

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes an error response
func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}

// writeAuthFailure sends the same body for every failed authentication so
// callers cannot tell a rejection from a fault.
func writeAuthFailure(w http.ResponseWriter, statusCode int) {
	writeJSONError(w, "authentication_failed", auth.PublicFailureMessage, statusCode)
}

// safeReturnURL keeps redirects on this host.
func safeReturnURL(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return defaultReturnURL
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" {
		return defaultReturnURL
	}
	return raw
}

// isJSONRequest reports whether the body should be decoded as JSON rather than a form.
func isJSONRequest(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), contentTypeJSON)
}
