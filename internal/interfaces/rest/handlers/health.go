package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/DanielPopoola/ocrbot/internal/interfaces/rest"
)

const readinessTimeout = 5 * time.Second

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	rest.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// Readyz reports whether the OCR engine can run and the store answers.
func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: map[string]string{}}
	status := http.StatusOK

	check := func(name string, err error) {
		if err != nil {
			h.logger.Warn("readiness check failed", "check", name, "error", err)
			resp.Checks[name] = err.Error()
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			return
		}
		resp.Checks[name] = "ok"
	}

	check("ocr", h.engine.Available(ctx))
	check("storage", h.records.Ping(ctx))

	rest.WriteJSON(w, status, resp)
}

func (h *Handlers) OpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(rest.OpenAPIDocument)
}
