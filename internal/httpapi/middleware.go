package httpapi

import (
	"net/http"
	"time"

	"github.com/nferreyra/cerbero/internal/logging"
)

func loggingMiddleware(logger logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now().UTC()
		next.ServeHTTP(w, r)
		logger.Info(r.Context(), "request",
			"method", r.Method, "path", r.URL.Path, "from", r.RemoteAddr, "dur", time.Since(start).String())
	})
}

// rateLimited applies the shared scan-surface token bucket.  Hardware
// scanners retry aggressively when a network blip clears; the bucket keeps
// that burst off the decision path.
func (s *Server) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next(w, r)
	}
}
