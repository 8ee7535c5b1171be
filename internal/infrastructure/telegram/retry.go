package telegram

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/DanielPopoola/ocrbot/internal/application"
)

// RetryMessenger retries sends that failed on the network, were rate limited
// or hit a server error. Telegram's retry_after hint takes precedence over the
// exponential backoff.
type RetryMessenger struct {
	inner    application.Messenger
	attempts uint
	delay    time.Duration
	logger   *slog.Logger
}

func NewRetryMessenger(inner application.Messenger, attempts uint, delay time.Duration, logger *slog.Logger) *RetryMessenger {
	if attempts == 0 {
		attempts = 1
	}
	return &RetryMessenger{
		inner:    inner,
		attempts: attempts,
		delay:    delay,
		logger:   logger,
	}
}

func (r *RetryMessenger) Send(ctx context.Context, msg application.OutgoingMessage) error {
	return retry.Do(
		func() error {
			return r.inner.Send(ctx, msg)
		},
		retry.Context(ctx),
		retry.Attempts(r.attempts),
		retry.Delay(r.delay),
		retry.DelayType(delayFor),
		retry.RetryIf(isRetryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			r.logger.Warn("retrying telegram send",
				"chat_id", msg.ChatID,
				"attempt", n+1,
				"error", err,
			)
		}),
	)
}

func delayFor(n uint, err error, config *retry.Config) time.Duration {
	if apiErr, ok := IsAPIError(err); ok && apiErr.RetryAfter > 0 {
		return apiErr.RetryAfter
	}
	return retry.BackOffDelay(n, err, config)
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if apiErr, ok := IsAPIError(err); ok {
		return apiErr.IsRetryable()
	}
	return true
}
