//go:build gosseract

package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"

	"github.com/DanielPopoola/ocrbot/internal/domain"
)

const gosseractEngineName = "tesseract-lib"

// GosseractEngine recognises text through libtesseract. A fresh client is
// created per call; gosseract clients are not safe for concurrent use.
type GosseractEngine struct {
	clientFactory func() *gosseract.Client
	prep          *Preprocessor
	logger        *slog.Logger
}

func NewGosseractEngine(prep *Preprocessor, logger *slog.Logger) *GosseractEngine {
	return &GosseractEngine{
		clientFactory: gosseract.NewClient,
		prep:          prep,
		logger:        logger,
	}
}

func (e *GosseractEngine) Name() string { return gosseractEngineName }

func (e *GosseractEngine) Available(_ context.Context) error {
	if v := gosseract.Version(); v == "" {
		return domain.NewOcrUnavailableError(errors.New("libtesseract did not report a version"))
	}
	return nil
}

// Extract cannot interrupt libtesseract once recognition has started; the
// BoundedEngine wrapper returns on deadline while the call finishes in the background.
func (e *GosseractEngine) Extract(ctx context.Context, image []byte, languageHint string) (domain.OcrResult, error) {
	data, err := e.prep.Prepare(image)
	if err != nil {
		return domain.OcrResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.OcrResult{}, domain.NewOcrTimeoutError(0)
	}

	c := e.clientFactory()
	defer c.Close()

	start := time.Now()
	if err := c.SetImageFromBytes(data); err != nil {
		return domain.OcrResult{}, domain.NewMalformedInputError("set image", err)
	}
	if languageHint != "" {
		if err := c.SetLanguage(strings.Split(languageHint, "+")...); err != nil {
			return domain.OcrResult{}, domain.NewOcrUnavailableError(fmt.Errorf("set language %q: %w", languageHint, err))
		}
	}

	text, err := c.Text()
	if err != nil {
		return domain.OcrResult{}, domain.NewOcrUnavailableError(fmt.Errorf("recognize text: %w", err))
	}

	return domain.OcrResult{
		Text:       strings.TrimSpace(text),
		Success:    true,
		Duration:   time.Since(start),
		Engine:     gosseractEngineName,
		Language:   languageHint,
		Confidence: meanWordConfidence(c),
	}, nil
}

func meanWordConfidence(c *gosseract.Client) float64 {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	return sum / float64(len(boxes)) / 100.0
}
