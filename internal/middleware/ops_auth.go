// File: ops_auth.go
// Purpose: Clerk-gated guard for cross-tenant operator endpoints
// Pattern: middleware
// Dependencies: Clerk session verification
// Frequency: low - only the /ops/* operator surface, not the per-tenant
// geo API (which is gated by its own HMAC app/geo tokens)

package middleware

import (
	"log/slog"
	"net/http"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkhttp "github.com/clerk/clerk-sdk-go/v2/http"
)

// RequireOperator wraps next with Clerk session verification. It is
// distinct from the per-tenant AppToken/GeoToken scheme: operator
// routes (exporting any tenant's roster snapshot) are
// authenticated against this service's own operator directory, not a
// single tenant's HMAC key.
func RequireOperator(next http.Handler) http.Handler {
	return clerkhttp.WithHeaderAuthorization()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := clerk.SessionClaimsFromContext(r.Context())
		if !ok {
			slog.Warn("operator auth failed: no session claims", "path", r.URL.Path)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		slog.Info("operator request authenticated", "subject", claims.Subject, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	}))
}
