package middleware

import (
	"net/http"
	"strconv"
	"time"
)

// HTTPObserver is satisfied by metrics.Collector.
type HTTPObserver interface {
	ObserveHTTP(route, status string, d time.Duration)
}

// Metrics records request timings against the route pattern, not the raw
// path, to keep label cardinality bounded.
func Metrics(obs HTTPObserver, route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)
			obs.ObserveHTTP(route, strconv.Itoa(rw.status), time.Since(start))
		})
	}
}
