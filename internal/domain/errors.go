package domain

import (
	"errors"
	"fmt"
	"time"
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches DomainErrors by code so the sentinels below work with errors.Is.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

const (
	ErrCodeOcrUnavailable     = "OCR_UNAVAILABLE"
	ErrCodeOcrTimeout         = "OCR_TIMEOUT"
	ErrCodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	ErrCodeMalformedInput     = "MALFORMED_INPUT"
	ErrCodeRecordNotFound     = "RECORD_NOT_FOUND"
	ErrCodeInvalidTransition  = "INVALID_TRANSITION"
	ErrCodeMissingField       = "MISSING_REQUIRED_FIELD"
	ErrCodeInvalidBroadcast   = "INVALID_BROADCAST"
	ErrCodePermissionDenied   = "PERMISSION_DENIED"
)

var (
	ErrOcrUnavailable     = &DomainError{Code: ErrCodeOcrUnavailable, Message: "ocr engine unavailable"}
	ErrOcrTimeout         = &DomainError{Code: ErrCodeOcrTimeout, Message: "ocr timed out"}
	ErrStorageUnavailable = &DomainError{Code: ErrCodeStorageUnavailable, Message: "storage unavailable"}
	ErrMalformedInput     = &DomainError{Code: ErrCodeMalformedInput, Message: "image payload unreadable"}
	ErrRecordNotFound     = &DomainError{Code: ErrCodeRecordNotFound, Message: "record not found"}
	ErrInvalidTransition  = &DomainError{Code: ErrCodeInvalidTransition, Message: "invalid state transition"}
	ErrPermissionDenied   = &DomainError{Code: ErrCodePermissionDenied, Message: "permission denied"}

	ErrMissingRequiredField = &DomainError{Code: ErrCodeMissingField, Message: "missing required field"}
	ErrInvalidBroadcast     = &DomainError{Code: ErrCodeInvalidBroadcast, Message: "invalid broadcast"}
)

func NewOcrUnavailableError(err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeOcrUnavailable,
		Message: "ocr engine unavailable",
		Err:     err,
	}
}

func NewOcrTimeoutError(after time.Duration) *DomainError {
	return &DomainError{
		Code:    ErrCodeOcrTimeout,
		Message: fmt.Sprintf("ocr exceeded %s", after),
	}
}

func NewStorageUnavailableError(err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeStorageUnavailable,
		Message: "storage unavailable",
		Err:     err,
	}
}

func NewMalformedInputError(reason string, err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeMalformedInput,
		Message: fmt.Sprintf("image payload unreadable: %s", reason),
		Err:     err,
	}
}

func NewRecordNotFoundError(key StorageKey) *DomainError {
	return &DomainError{
		Code:    ErrCodeRecordNotFound,
		Message: fmt.Sprintf("record %s not found", key),
	}
}

func NewInvalidTransitionError(from, to MessageState) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
	}
}

func NewMissingRequiredFieldError(field string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingField,
		Message: fmt.Sprintf("%s is required", field),
	}
}

func NewInvalidBroadcastError(reason string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidBroadcast,
		Message: fmt.Sprintf("invalid broadcast: %s", reason),
	}
}

func NewPermissionDeniedError(command string) *DomainError {
	return &DomainError{
		Code:    ErrCodePermissionDenied,
		Message: fmt.Sprintf("/%s is restricted to admins", command),
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// FailureKindOf maps an error from the OCR or storage path onto its failure kind.
// Errors outside the taxonomy report ok == false.
func FailureKindOf(err error) (FailureKind, bool) {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return "", false
	}
	switch domainErr.Code {
	case ErrCodeOcrUnavailable:
		return FailureOcrUnavailable, true
	case ErrCodeOcrTimeout:
		return FailureOcrTimeout, true
	case ErrCodeStorageUnavailable:
		return FailureStorageUnavailable, true
	case ErrCodeMalformedInput:
		return FailureMalformedInput, true
	}
	return "", false
}
