package adminhttp

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/bavix/dobson/internal/metrics"
)

// RateLimitMiddleware rejects requests beyond the shared token bucket.
// A non-positive rate disables limiting.
func RateLimitMiddleware(requestsPerSecond, burst int) func(http.Handler) http.Handler {
	if requestsPerSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	limiter := rate.NewLimiter(rate.Limit(requestsPerSecond), max(burst, 1))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, errorDTO{Error: "rate limit exceeded"})

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// MetricsMiddleware counts requests by route template and status.
func MetricsMiddleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}

			metrics.RecordHTTP(r.Method, route, wrapped.statusCode)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter

	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

type errorDTO struct {
	Error string `json:"error"`
}

func jsonError(w http.ResponseWriter, r *http.Request, status int, err error) {
	render.Status(r, status)
	render.JSON(w, r, errorDTO{Error: err.Error()})
}
