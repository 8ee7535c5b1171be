//go:build !gosseract

package ocr

import (
	"context"
	"errors"
	"log/slog"

	"github.com/DanielPopoola/ocrbot/internal/domain"
)

const gosseractEngineName = "tesseract-lib"

var errNoLibrary = errors.New("built without libtesseract support, rebuild with -tags gosseract or use the cli engine")

// GosseractEngine is unavailable in builds without the gosseract tag.
type GosseractEngine struct{}

func NewGosseractEngine(_ *Preprocessor, _ *slog.Logger) *GosseractEngine {
	return &GosseractEngine{}
}

func (e *GosseractEngine) Name() string { return gosseractEngineName }

func (e *GosseractEngine) Available(context.Context) error {
	return domain.NewOcrUnavailableError(errNoLibrary)
}

func (e *GosseractEngine) Extract(context.Context, []byte, string) (domain.OcrResult, error) {
	return domain.OcrResult{}, domain.NewOcrUnavailableError(errNoLibrary)
}
