package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/DanielPopoola/ocrbot/internal/config"
	"github.com/DanielPopoola/ocrbot/internal/domain"
	"github.com/DanielPopoola/ocrbot/internal/infrastructure/telegram"
	"github.com/DanielPopoola/ocrbot/internal/metrics"
)

// UpdateSource is the part of the Bot API client the poller needs.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int64, limit int, timeout time.Duration) ([]telegram.Update, error)
	Inbound(ctx context.Context, u telegram.Update) (*domain.InboundMessage, error)
}

// Submitter accepts messages for asynchronous processing, blocking while all
// workers are busy.
type Submitter interface {
	Submit(ctx context.Context, msg *domain.InboundMessage)
}

// Poller long-polls getUpdates and hands every message to the dispatcher.
// The offset only advances past updates that were submitted, so a crash
// replays at most the batch in flight.
type Poller struct {
	source       UpdateSource
	dispatcher   Submitter
	pollTimeout  time.Duration
	limit        int
	errorBackoff time.Duration
	maxBackoff   time.Duration
	logger       *slog.Logger

	offset int64
}

func NewPoller(source UpdateSource, dispatcher Submitter, cfg config.WorkerConfig, logger *slog.Logger) *Poller {
	return &Poller{
		source:       source,
		dispatcher:   dispatcher,
		pollTimeout:  cfg.PollTimeout,
		limit:        cfg.PollLimit,
		errorBackoff: cfg.ErrorBackoff,
		maxBackoff:   cfg.MaxBackoff,
		logger:       logger,
	}
}

// Start polls until ctx is cancelled.
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("update poller started", "poll_timeout", p.pollTimeout, "limit", p.limit)

	backoff := p.errorBackoff
	for {
		if ctx.Err() != nil {
			p.logger.Info("update poller stopping", "offset", p.offset)
			return
		}

		n, err := p.poll(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				continue
			}
			metrics.PollFailed()
			p.logger.Error("polling updates failed", "error", err, "retry_in", backoff)

			if !sleep(ctx, p.retryDelay(err, backoff)) {
				continue
			}
			backoff = min(backoff*2, p.maxBackoff)
			continue
		}

		backoff = p.errorBackoff
		if n > 0 {
			p.logger.Debug("submitted updates", "count", n, "offset", p.offset)
		}
	}
}

func (p *Poller) poll(ctx context.Context) (int, error) {
	updates, err := p.source.GetUpdates(ctx, p.offset, p.limit, p.pollTimeout)
	if err != nil {
		return 0, err
	}

	for _, u := range updates {
		msg, err := p.source.Inbound(ctx, u)
		if err != nil {
			p.logger.Warn("dropping update", "update_id", u.UpdateID, "error", err)
		} else if msg != nil {
			// Submitted work outlives the poll loop; shutdown drains it.
			p.dispatcher.Submit(context.WithoutCancel(ctx), msg)
		}
		p.offset = u.UpdateID + 1
	}
	return len(updates), nil
}

func (p *Poller) retryDelay(err error, backoff time.Duration) time.Duration {
	if apiErr, ok := telegram.IsAPIError(err); ok && apiErr.RetryAfter > backoff {
		return apiErr.RetryAfter
	}
	return backoff
}

// Offset is the next update id the poller will ask for.
func (p *Poller) Offset() int64 {
	return p.offset
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
