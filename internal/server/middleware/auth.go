// Package middleware holds the HTTP middleware chain: bearer auth, request
// logging, and telemetry.
package middleware

import (
	"net/http"
	"strings"

	"hybrid-session-hub/internal/security"
	"hybrid-session-hub/internal/server/respond"
)

const bearerPrefix = "bearer "

// Auth returns middleware that validates the Bearer access token and sets the
// account id in the request context. Paths in publicPaths (exact match) pass
// through without a token; a valid token on a public path still sets identity.
func Auth(tokens *security.TokenProvider, publicPaths map[string]bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			public := publicPaths[r.URL.Path]
			token := extractBearer(r)
			if token == "" {
				if public {
					next.ServeHTTP(w, r)
					return
				}
				respond.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid authorization")
				return
			}
			accountID, err := tokens.VerifyAccess(token)
			if err != nil {
				if public {
					next.ServeHTTP(w, r)
					return
				}
				respond.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid authorization")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAccountID(r.Context(), accountID)))
		})
	}
}

// extractBearer returns the Bearer token from the Authorization header, or ""
// if missing or malformed.
func extractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
