package middleware

import (
	"fmt"
	"log"
	"net"
	"net/http"

	"github.com/reelacademy/ra-lms/internal/ratelimit"
)

// LimitSource provides the live per-route limits; config.Manager satisfies
// it so hot-reloaded values apply without a restart.
type LimitSource interface {
	EndpointLimit(route string) ratelimit.LimitConfig
}

type RateLimit struct {
	limiter *ratelimit.Limiter
	limits  LimitSource
}

func NewRateLimit(l *ratelimit.Limiter, limits LimitSource) *RateLimit {
	return &RateLimit{limiter: l, limits: limits}
}

// ByIP throttles a route per caller address. Fail-open on Redis trouble:
// losing the limiter must not take license validation down with it.
func (m *RateLimit) ByIP(route string) func(http.Handler) http.Handler {
	return m.wrap(route, ratelimit.ScopeIP)
}

// ByEndpoint throttles a route as a whole, independent of caller.
func (m *RateLimit) ByEndpoint(route string) func(http.Handler) http.Handler {
	return m.wrap(route, ratelimit.ScopeEndpoint)
}

func (m *RateLimit) wrap(route string, scope ratelimit.Scope) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cfg := m.limits.EndpointLimit(route)
			if cfg.Rate <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			id := route
			if scope == ratelimit.ScopeIP {
				host, _, err := net.SplitHostPort(r.RemoteAddr)
				if err != nil {
					host = r.RemoteAddr
				}
				id = fmt.Sprintf("%s:%s", route, m.limiter.HashIP(host))
			}

			decision, err := m.limiter.Check(r.Context(), scope, id, cfg)
			if err != nil {
				log.Printf("ratelimit: check failed on %s: %v", route, err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", fmt.Sprint(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprint(decision.Remaining))

			if !decision.Allowed {
				w.Header().Set("Retry-After", fmt.Sprint(decision.RetryAfter))
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
