package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/DanielPopoola/ocrbot/internal/domain"
)

const cliEngineName = "tesseract-cli"

// CLIEngine runs the tesseract binary once per image, feeding the image on
// stdin and reading the text from stdout.
type CLIEngine struct {
	binary string
	prep   *Preprocessor
	logger *slog.Logger
}

func NewCLIEngine(binary string, prep *Preprocessor, logger *slog.Logger) *CLIEngine {
	if binary == "" {
		binary = "tesseract"
	}
	return &CLIEngine{
		binary: binary,
		prep:   prep,
		logger: logger,
	}
}

func (e *CLIEngine) Name() string { return cliEngineName }

// Available checks that the binary can be found and answers --version.
func (e *CLIEngine) Available(ctx context.Context) error {
	path, err := exec.LookPath(e.binary)
	if err != nil {
		return domain.NewOcrUnavailableError(err)
	}

	out, err := exec.CommandContext(ctx, path, "--version").CombinedOutput()
	if err != nil {
		return domain.NewOcrUnavailableError(fmt.Errorf("%s --version: %w", path, err))
	}
	e.logger.Debug("tesseract available", "version", firstLine(string(out)))
	return nil
}

func (e *CLIEngine) Extract(ctx context.Context, image []byte, languageHint string) (domain.OcrResult, error) {
	data, err := e.prep.Prepare(image)
	if err != nil {
		return domain.OcrResult{}, err
	}

	path, err := exec.LookPath(e.binary)
	if err != nil {
		return domain.OcrResult{}, domain.NewOcrUnavailableError(err)
	}

	args := []string{"stdin", "stdout"}
	if languageHint != "" {
		args = append(args, "-l", languageHint)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	err = cmd.Run()
	took := time.Since(start)

	if err != nil {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
			return domain.OcrResult{}, domain.NewOcrTimeoutError(took.Round(time.Millisecond))
		}
		return domain.OcrResult{}, domain.NewOcrUnavailableError(
			fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String())))
	}

	return domain.OcrResult{
		Text:     strings.TrimSpace(stdout.String()),
		Success:  true,
		Duration: took,
		Engine:   cliEngineName,
		Language: languageHint,
	}, nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
