package auth

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/chordserve/chordserve/pkg/domain"
)

// APIKeyHeader is the HTTP header carrying the caller's credential.
const APIKeyHeader = "X-API-Key"

// Guard wraps privileged handlers with API key authentication. Paths listed
// in the open set (health check, documentation, metrics) pass through without
// a credential; everything else requires a key that satisfies the policy.
type Guard struct {
	policy *Policy
	open   map[string]struct{}
	logger *slog.Logger
}

// NewGuard creates a Guard. openPaths is the explicit allowlist of
// unauthenticated routes.
func NewGuard(policy *Policy, openPaths []string, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	open := make(map[string]struct{}, len(openPaths))
	for _, p := range openPaths {
		open[p] = struct{}{}
	}
	return &Guard{
		policy: policy,
		open:   open,
		logger: logger,
	}
}

// Wrap wraps an HTTP handler with credential verification.
func (g *Guard) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := g.open[r.URL.Path]; ok {
			next.ServeHTTP(w, r)
			return
		}

		// Development mode disables all protection. LoadPolicy already
		// warned loudly at startup.
		if g.policy.DevelopmentMode() {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(APIKeyHeader)
		if key == "" || !g.policy.IsValid(key) {
			g.logger.Warn("unauthorized request",
				"remote_addr", ClientIP(r),
				"path", r.URL.Path,
			)
			writeUnauthorized(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeUnauthorized emits the 401 response. The body never mentions which
// keys exist or why the comparison failed.
func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(domain.ErrorResponse{
		Code:    domain.CodeAuthenticationFailed,
		Message: "valid API key required; include the X-API-Key header",
	})
}

// ClientIP extracts the client IP from the request, preferring proxy headers.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
