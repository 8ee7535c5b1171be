// Package handlers serves the bot's HTTP surface: probes, the Telegram webhook,
// direct OCR uploads and record lookups.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/DanielPopoola/ocrbot/internal/application"
	"github.com/DanielPopoola/ocrbot/internal/application/services"
	"github.com/DanielPopoola/ocrbot/internal/domain"
	"github.com/DanielPopoola/ocrbot/internal/infrastructure/telegram"
)

// UpdateTranslator turns a raw Telegram update into an inbound message,
// downloading its image. A nil message means the update carries nothing to handle.
type UpdateTranslator interface {
	Inbound(ctx context.Context, u telegram.Update) (*domain.InboundMessage, error)
}

type Submitter interface {
	Submit(ctx context.Context, msg *domain.InboundMessage)
}

type Handlers struct {
	engine        application.OCREngine
	records       application.RecordStore
	queryService  *services.QueryService
	pipeline      *services.PipelineService
	translator    UpdateTranslator
	submitter     Submitter
	webhookSecret string
	maxImageBytes int64
	logger        *slog.Logger

	inflight sync.WaitGroup
}

type Deps struct {
	Engine        application.OCREngine
	Records       application.RecordStore
	QueryService  *services.QueryService
	Pipeline      *services.PipelineService
	Translator    UpdateTranslator
	Submitter     Submitter
	WebhookSecret string
	MaxImageBytes int64
	Logger        *slog.Logger
}

func NewHandlers(d Deps) *Handlers {
	return &Handlers{
		engine:        d.Engine,
		records:       d.Records,
		queryService:  d.QueryService,
		pipeline:      d.Pipeline,
		translator:    d.Translator,
		submitter:     d.Submitter,
		webhookSecret: d.WebhookSecret,
		maxImageBytes: d.MaxImageBytes,
		logger:        d.Logger,
	}
}

// Register mounts every route on mux. The webhook route is only mounted when
// a secret is configured.
func (h *Handlers) Register(mux *http.ServeMux, metrics http.Handler) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	mux.HandleFunc("GET /openapi.yaml", h.OpenAPI)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	if h.webhookSecret != "" && h.translator != nil && h.submitter != nil {
		mux.HandleFunc("POST /webhook/{secret}", h.Webhook)
	}
	mux.HandleFunc("POST /v1/extract", h.Extract)
	mux.HandleFunc("GET /v1/records", h.ListRecords)
	mux.HandleFunc("GET /v1/records/{key}", h.GetRecord)
}

// Wait blocks until every update accepted by the webhook has been handed to
// the dispatcher.
func (h *Handlers) Wait() {
	h.inflight.Wait()
}
