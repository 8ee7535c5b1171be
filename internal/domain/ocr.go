package domain

import (
	"time"
)

// FailureKind names why a message could not be turned into text.
type FailureKind string

const (
	FailureOcrUnavailable     FailureKind = "OcrUnavailable"
	FailureOcrTimeout         FailureKind = "OcrTimeout"
	FailureStorageUnavailable FailureKind = "StorageUnavailable"
	FailureMalformedInput     FailureKind = "MalformedInput"
)

// OcrResult is produced exactly once for every message carrying an image.
type OcrResult struct {
	MessageID  MessageID
	Text       string
	Success    bool
	Failure    FailureKind
	Diagnostic string
	Duration   time.Duration
	Engine     string
	Language   string
	Confidence float64
}

// NewSuccessResult builds a successful extraction. Empty text is still a success.
func NewSuccessResult(id MessageID, text string, took time.Duration) OcrResult {
	return OcrResult{
		MessageID: id,
		Text:      text,
		Success:   true,
		Duration:  took,
	}
}

// NewFailedResult builds a failed extraction from the error returned by the engine.
// Errors outside the taxonomy are reported as OcrUnavailable.
func NewFailedResult(id MessageID, err error, took time.Duration) OcrResult {
	kind, ok := FailureKindOf(err)
	if !ok {
		kind = FailureOcrUnavailable
	}
	return OcrResult{
		MessageID:  id,
		Success:    false,
		Failure:    kind,
		Diagnostic: err.Error(),
		Duration:   took,
	}
}
