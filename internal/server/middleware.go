package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/sparklink-app/sparklink/internal/svcerr"
	"github.com/sparklink-app/sparklink/internal/token"
)

type ctxKey int

const userIDKey ctxKey = iota

// UserID returns the authenticated user id stored by the auth middleware.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// extractToken pulls the credential from the Authorization header, falling
// back to the token query parameter. The query fallback exists because
// browser EventSource cannot set headers on the SSE request.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return after
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// Auth verifies the request's bearer/query token and stores the resolved
// user id in the request context. Requests without a valid token get 401.
func Auth(tokens *token.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractToken(r)
			if raw == "" {
				svcerr.WriteError(w, r, svcerr.Unauthorized("missing credentials"))
				return
			}

			userID, err := tokens.Verify(raw)
			if err != nil {
				svcerr.WriteError(w, r, svcerr.Unauthorized("invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
