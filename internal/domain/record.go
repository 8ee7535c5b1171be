package domain

import (
	"time"
)

// PersistedRecord is an OcrResult as written to the store. Records are never
// mutated once written; a second Put of the same key replaces the whole record.
type PersistedRecord struct {
	Key        StorageKey    `json:"key"`
	MessageID  MessageID     `json:"message_id"`
	ChatID     int64         `json:"chat_id"`
	SenderID   int64         `json:"sender_id"`
	Text       string        `json:"text"`
	Success    bool          `json:"success"`
	Failure    FailureKind   `json:"failure,omitempty"`
	Diagnostic string        `json:"diagnostic,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
	Engine     string        `json:"engine,omitempty"`
	Language   string        `json:"language,omitempty"`
	Confidence float64       `json:"confidence,omitempty"`
	StoredAt   time.Time     `json:"stored_at"`
}

func NewPersistedRecord(msg *InboundMessage, result OcrResult, storedAt time.Time) (*PersistedRecord, error) {
	if result.MessageID == "" {
		return nil, NewMissingRequiredFieldError("message id")
	}
	if msg != nil && msg.ID != result.MessageID {
		return nil, NewMissingRequiredFieldError("matching message id")
	}

	record := &PersistedRecord{
		Key:        result.MessageID.Key(),
		MessageID:  result.MessageID,
		Text:       result.Text,
		Success:    result.Success,
		Failure:    result.Failure,
		Diagnostic: result.Diagnostic,
		Duration:   result.Duration,
		Engine:     result.Engine,
		Language:   result.Language,
		Confidence: result.Confidence,
		StoredAt:   storedAt.UTC(),
	}
	if msg != nil {
		record.ChatID = msg.ChatID
		record.SenderID = msg.SenderID
	}
	return record, nil
}

// Result reconstructs the OcrResult the record was written from.
func (r *PersistedRecord) Result() OcrResult {
	return OcrResult{
		MessageID:  r.MessageID,
		Text:       r.Text,
		Success:    r.Success,
		Failure:    r.Failure,
		Diagnostic: r.Diagnostic,
		Duration:   r.Duration,
		Engine:     r.Engine,
		Language:   r.Language,
		Confidence: r.Confidence,
	}
}
