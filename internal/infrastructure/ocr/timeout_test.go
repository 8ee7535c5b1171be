package ocr_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/DanielPopoola/ocrbot/internal/application/mocks"
	"github.com/DanielPopoola/ocrbot/internal/config"
	"github.com/DanielPopoola/ocrbot/internal/domain"
	"github.com/DanielPopoola/ocrbot/internal/infrastructure/ocr"
)

func TestBoundedEngine_PassesResultThrough(t *testing.T) {
	inner := mocks.NewMockOCREngine(t)
	inner.EXPECT().Extract(mock.Anything, []byte("img"), "eng").
		Return(domain.OcrResult{Text: "ok", Success: true}, nil).Once()

	result, err := ocr.WithTimeout(inner, time.Second).Extract(context.Background(), []byte("img"), "eng")

	require.NoError(t, err)
	assert.Equal(t, "ok", result.Text)
}

func TestBoundedEngine_SlowEngineTimesOut(t *testing.T) {
	inner := mocks.NewMockOCREngine(t)
	inner.EXPECT().Extract(mock.Anything, mock.Anything, mock.Anything).
		After(2*time.Second).
		Return(domain.OcrResult{Text: "late", Success: true}, nil).Maybe()

	start := time.Now()
	_, err := ocr.WithTimeout(inner, 50*time.Millisecond).Extract(context.Background(), []byte("img"), "eng")

	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeOcrTimeout))
	assert.Less(t, time.Since(start), time.Second)
}

func TestBoundedEngine_PanicIsUnavailable(t *testing.T) {
	inner := mocks.NewMockOCREngine(t)
	inner.EXPECT().Extract(mock.Anything, mock.Anything, mock.Anything).Panic("segfault in leptonica")

	_, err := ocr.WithTimeout(inner, time.Second).Extract(context.Background(), []byte("img"), "eng")

	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeOcrUnavailable))
	assert.Contains(t, err.Error(), "segfault in leptonica")
}

func TestBoundedEngine_CancelledParentIsUnavailable(t *testing.T) {
	inner := mocks.NewMockOCREngine(t)
	inner.EXPECT().Extract(mock.Anything, mock.Anything, mock.Anything).
		After(time.Second).
		Return(domain.OcrResult{}, nil).Maybe()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ocr.WithTimeout(inner, time.Minute).Extract(ctx, []byte("img"), "eng")

	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeOcrUnavailable))
}

func TestNewEngine(t *testing.T) {
	engine, err := ocr.NewEngine(config.OCRConfig{Engine: "cli", BinaryPath: "tesseract", Timeout: time.Second}, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "tesseract-cli", engine.Name())

	engine, err = ocr.NewEngine(config.OCRConfig{Engine: "gosseract", Timeout: time.Second}, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "tesseract-lib", engine.Name())

	_, err = ocr.NewEngine(config.OCRConfig{Engine: "easyocr"}, discardLogger())
	assert.Error(t, err)
}
