// Package identity resolves the conversational session a request
// belongs to.
package identity

import (
	"context"
	"net/http"
	"regexp"
	"strings"
)

const (
	// SessionHeaderName carries the session id on RPC requests.
	SessionHeaderName = "X-Blog-Session-ID"
	// DefaultSessionIDValue is used when a request names no session.
	DefaultSessionIDValue = "default"
)

type contextKey int

const sessionIDKey contextKey = iota

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// SessionIDFromContext extracts the session id from the request
// context.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return DefaultSessionIDValue
}

// WithSessionID returns a context carrying the session id.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, SanitizeSessionID(id))
}

// SanitizeSessionID normalizes a caller-supplied session id. Malformed
// ids fall back to the default session rather than erroring, matching
// the conversational audience: a bad header should not break the chat.
func SanitizeSessionID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || !sessionIDPattern.MatchString(id) {
		return DefaultSessionIDValue
	}
	return id
}

// Middleware injects the session id from the request header (falling
// back to the query parameter for websocket clients) into the request
// context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(SessionHeaderName)
		if id == "" {
			id = r.URL.Query().Get("session")
		}
		ctx := WithSessionID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
