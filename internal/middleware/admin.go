package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/laurikarhu/sxmproxy/internal/config"
)

// DebugGuard protects the debug/metrics surface with a static API key.
// Adapted from the admin-key guard; there is no multi-tenant admin concept
// in this proxy (§9 Non-goals), only an operator-facing debug endpoint.
type DebugGuard struct {
	cfg *config.Config
}

// NewDebugGuard creates a new debug-endpoint guard.
func NewDebugGuard(cfg *config.Config) *DebugGuard {
	return &DebugGuard{cfg: cfg}
}

// Require returns a middleware that requires a valid X-Admin-Key header. If
// no key is configured, the endpoint is open — suitable for a trusted local
// deployment, per the default of running this proxy on localhost.
func (m *DebugGuard) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.cfg.AdminAPIKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := r.Header.Get("X-Admin-Key")
		if apiKey == "" {
			http.Error(w, "Missing API key", http.StatusUnauthorized)
			return
		}

		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(m.cfg.AdminAPIKey)) != 1 {
			http.Error(w, "Invalid API key", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
