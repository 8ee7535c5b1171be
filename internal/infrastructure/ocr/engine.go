package ocr

import (
	"fmt"
	"log/slog"

	"github.com/DanielPopoola/ocrbot/internal/application"
	"github.com/DanielPopoola/ocrbot/internal/config"
)

// NewEngine builds the configured engine, bounded by the configured timeout.
func NewEngine(cfg config.OCRConfig, logger *slog.Logger) (application.OCREngine, error) {
	prep := NewPreprocessor(cfg.Preprocess, cfg.Binarize)

	var engine application.OCREngine
	switch cfg.Engine {
	case "cli", "":
		engine = NewCLIEngine(cfg.BinaryPath, prep, logger)
	case "gosseract":
		engine = NewGosseractEngine(prep, logger)
	default:
		return nil, fmt.Errorf("unknown ocr engine %q", cfg.Engine)
	}

	return WithTimeout(engine, cfg.Timeout), nil
}
