package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/DanielPopoola/ocrbot/internal/metrics"
)

// Metrics records request counts and latency labelled with the mux pattern
// that matched, so path parameters never become label values.
func Metrics(mux *http.ServeMux) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			metrics.HTTPRequest(r.Method, routeOf(mux, r), rec.status, time.Since(start))
		})
	}
}

func routeOf(mux *http.ServeMux, r *http.Request) string {
	_, pattern := mux.Handler(r)
	if pattern == "" {
		return "unmatched"
	}
	// "POST /v1/extract" -> "/v1/extract"
	if i := strings.IndexByte(pattern, ' '); i >= 0 {
		pattern = pattern[i+1:]
	}
	return pattern
}

// redactPath hides the webhook secret in logs.
func redactPath(path string) string {
	if strings.HasPrefix(path, "/webhook/") {
		return "/webhook/<secret>"
	}
	return path
}
