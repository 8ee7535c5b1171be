package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/DanielPopoola/ocrbot/internal/interfaces/rest/middleware"
)

// NewRouter wires the routes behind the middleware chain:
// Recovery, Logging, Metrics, Timeout and OpenAPI validation on /v1.
func NewRouter(h *Handlers, doc *openapi3.T, metrics http.Handler, timeout time.Duration, logger *slog.Logger) (http.Handler, error) {
	mux := http.NewServeMux()
	h.Register(mux, metrics)

	validate, err := middleware.OpenAPIValidator(doc, "/v1/", logger)
	if err != nil {
		return nil, err
	}

	handler := validate(mux)
	handler = middleware.Timeout(timeout, "/metrics")(handler)
	handler = middleware.Metrics(mux)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Recovery(logger)(handler)
	return handler, nil
}
