package ocr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DanielPopoola/ocrbot/internal/application"
	"github.com/DanielPopoola/ocrbot/internal/domain"
)

// BoundedEngine caps every Extract call at a fixed duration. The call returns
// OcrTimeout as soon as the bound is reached, even if the wrapped engine
// ignores cancellation. Panics in the wrapped engine become OcrUnavailable.
type BoundedEngine struct {
	inner   application.OCREngine
	timeout time.Duration
}

func WithTimeout(inner application.OCREngine, timeout time.Duration) *BoundedEngine {
	return &BoundedEngine{inner: inner, timeout: timeout}
}

func (e *BoundedEngine) Name() string { return e.inner.Name() }

func (e *BoundedEngine) Available(ctx context.Context) error { return e.inner.Available(ctx) }

type extraction struct {
	result domain.OcrResult
	err    error
}

func (e *BoundedEngine) Extract(ctx context.Context, image []byte, languageHint string) (domain.OcrResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan extraction, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- extraction{err: domain.NewOcrUnavailableError(fmt.Errorf("engine panic: %v", r))}
			}
		}()
		result, err := e.inner.Extract(ctx, image, languageHint)
		done <- extraction{result: result, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && errors.Is(out.err, context.DeadlineExceeded) {
			return domain.OcrResult{}, domain.NewOcrTimeoutError(e.timeout)
		}
		return out.result, out.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.OcrResult{}, domain.NewOcrTimeoutError(e.timeout)
		}
		return domain.OcrResult{}, domain.NewOcrUnavailableError(ctx.Err())
	}
}
