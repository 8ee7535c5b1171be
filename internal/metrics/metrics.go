// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	messagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocrbot_messages_processed_total",
			Help: "Inbound messages by final processing state",
		},
		[]string{"state"},
	)

	ocrDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ocrbot_ocr_duration_seconds",
			Help:    "Duration of OCR engine calls",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"engine", "outcome"},
	)

	ocrFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocrbot_ocr_failures_total",
			Help: "Failed extractions by failure kind",
		},
		[]string{"kind"},
	)

	broadcastDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocrbot_broadcast_deliveries_total",
			Help: "Broadcast messages by delivery result",
		},
		[]string{"target", "result"},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocrbot_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ocrbot_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	pollErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ocrbot_poll_errors_total",
			Help: "Failed getUpdates calls",
		},
	)
)

func MessageProcessed(state string) {
	messagesProcessed.WithLabelValues(state).Inc()
}

func OCRCompleted(engine string, success bool, took time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	ocrDuration.WithLabelValues(engine, outcome).Observe(took.Seconds())
}

func OCRFailed(kind string) {
	ocrFailures.WithLabelValues(kind).Inc()
}

func BroadcastDelivered(target string, ok bool) {
	result := "sent"
	if !ok {
		result = "failed"
	}
	broadcastDeliveries.WithLabelValues(target, result).Inc()
}

func HTTPRequest(method, route string, status int, took time.Duration) {
	httpRequests.WithLabelValues(method, route, statusLabel(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(took.Seconds())
}

func PollFailed() {
	pollErrors.Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
