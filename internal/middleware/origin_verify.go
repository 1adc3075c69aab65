package middleware

import (
	"net/http"
	"strings"
)

// OriginVerifyHeader is the header name checked by OriginVerify.
const OriginVerifyHeader = "X-Origin-Verify"

// OriginVerify builds middleware that validates the X-Origin-Verify
// header against expectedKey. This ensures geo-surface requests only
// arrive through whatever edge/gateway layer injects the header, not
// directly against the process.
//
// If expectedKey is empty, the middleware is a no-op (local dev,
// testing, or deployments that front the service with some other
// perimeter control).
//
// Paths that bypass verification:
//   - /health (for infra health checks that may bypass the gateway)
//   - /swagger/* (for local development)
func OriginVerify(expectedKey string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expectedKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			if strings.HasPrefix(r.URL.Path, "/swagger") {
				next.ServeHTTP(w, r)
				return
			}

			providedKey := r.Header.Get(OriginVerifyHeader)
			if providedKey != expectedKey {
				// Generic 403: don't reveal that the header is the issue.
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
