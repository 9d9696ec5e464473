package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/nssukenkyu-prog/SCC-reception-system/internal/identity"
)

type contextKey string

const sessionKey contextKey = "session"

// TokenParser validates a bearer token into a session.
type TokenParser interface {
	Parse(token string) (identity.Session, error)
}

// SessionAuth admits any valid session and injects it into the request
// context. Role-specific gates are layered on top.
func SessionAuth(parser TokenParser) func(http.Handler) http.Handler {
	return requireRole(parser, "")
}

// PatientAuth admits patient sessions only.
func PatientAuth(parser TokenParser) func(http.Handler) http.Handler {
	return requireRole(parser, identity.RolePatient)
}

// StaffAuth admits staff sessions only.
func StaffAuth(parser TokenParser) func(http.Handler) http.Handler {
	return requireRole(parser, identity.RoleStaff)
}

func requireRole(parser TokenParser, role identity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				http.Error(w, "missing credentials", http.StatusUnauthorized)
				return
			}
			sess, err := parser.Parse(token)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			if role != "" && sess.Role != role {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			ctx := context.WithValue(r.Context(), sessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the session token from the Authorization header,
// falling back to the token query parameter. Browser WebSocket clients
// cannot set request headers, so the websocket endpoints authenticate
// via the query string.
func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if !strings.HasPrefix(auth, "Bearer ") {
			return ""
		}
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// SessionFromContext returns the authenticated session, if any.
func SessionFromContext(ctx context.Context) (identity.Session, bool) {
	sess, ok := ctx.Value(sessionKey).(identity.Session)
	return sess, ok
}

// WithSession injects a session for tests.
func WithSession(ctx context.Context, sess identity.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}
