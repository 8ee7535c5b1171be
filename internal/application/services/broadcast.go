package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/DanielPopoola/ocrbot/internal/application"
	"github.com/DanielPopoola/ocrbot/internal/domain"
	"github.com/DanielPopoola/ocrbot/internal/metrics"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type BroadcastSummary struct {
	Target domain.Target
	Sent   int
	Failed int
	Total  int
}

// BroadcastService delivers one message to every user of a target audience.
// Deliveries run concurrently but never faster than the configured rate.
type BroadcastService struct {
	audience    application.AudienceStore
	messenger   application.Messenger
	limiter     *rate.Limiter
	concurrency int
	logger      *slog.Logger
}

func NewBroadcastService(
	audience application.AudienceStore,
	messenger application.Messenger,
	perSecond float64,
	concurrency int,
	logger *slog.Logger,
) *BroadcastService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &BroadcastService{
		audience:    audience,
		messenger:   messenger,
		limiter:     rate.NewLimiter(rate.Limit(perSecond), 1),
		concurrency: concurrency,
		logger:      logger,
	}
}

// Recipients returns the users a broadcast to target would reach.
func (s *BroadcastService) Recipients(ctx context.Context, target domain.Target) ([]int64, error) {
	audience, err := s.audience.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return audience.Select(target), nil
}

// Send delivers b and returns the delivery counts. Individual delivery failures
// are counted and aggregated into the returned error; they do not stop the run.
func (s *BroadcastService) Send(ctx context.Context, b *domain.Broadcast) (BroadcastSummary, error) {
	summary := BroadcastSummary{Target: b.Target}

	recipients, err := s.Recipients(ctx, b.Target)
	if err != nil {
		return summary, fmt.Errorf("load audience: %w", err)
	}
	summary.Total = len(recipients)

	var (
		mu     sync.Mutex
		result *multierror.Error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, userID := range recipients {
		g.Go(func() error {
			if err := s.limiter.Wait(gctx); err != nil {
				return err
			}

			err := s.messenger.Send(gctx, application.OutgoingMessage{
				ChatID:  userID,
				Text:    b.Text,
				Buttons: b.Buttons,
			})
			metrics.BroadcastDelivered(string(b.Target), err == nil)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Error("failed to deliver broadcast",
					"user_id", userID,
					"error", err,
				)
				summary.Failed++
				result = multierror.Append(result, fmt.Errorf("user %d: %w", userID, err))
				return nil
			}
			summary.Sent++
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		summary.Failed = summary.Total - summary.Sent
		result = multierror.Append(result, err)
	}

	s.logger.Info("broadcast finished",
		"target", b.Target,
		"sent", summary.Sent,
		"failed", summary.Failed,
		"total", summary.Total,
	)

	return summary, result.ErrorOrNil()
}
