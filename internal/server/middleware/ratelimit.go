package middleware

import (
	"net/http"

	"github.com/rs/zerolog"

	"creator-access-gate/internal/ratelimit"
)

// RateLimit rejects requests with 429 once the peer address exhausts its bucket. The key comes
// from trust.PeerIP, so forwarding headers only count behind a trusted proxy.
// A limiter backend failure lets the request through and is logged.
func RateLimit(l ratelimit.Limiter, trust *ProxyTrust, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := trust.PeerIP(r)
			allowed, err := l.Allow(r.Context(), ip)
			if err != nil {
				logger.Warn().Err(err).Str("client_ip", ip).Msg("rate limiter unavailable; allowing request")
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "Too many attempts, try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
