package rest

import (
	"net/http"
	"time"

	"github.com/DanielPopoola/ocrbot/internal/application/services"
	"github.com/DanielPopoola/ocrbot/internal/domain"
)

type OcrResult struct {
	Text       string  `json:"text"`
	Success    bool    `json:"success"`
	Failure    string  `json:"failure,omitempty"`
	Diagnostic string  `json:"diagnostic,omitempty"`
	DurationMS int64   `json:"duration_ms"`
	Engine     string  `json:"engine,omitempty"`
	Language   string  `json:"language,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

type Record struct {
	Key       string    `json:"key"`
	MessageID string    `json:"message_id"`
	ChatID    int64     `json:"chat_id"`
	SenderID  int64     `json:"sender_id"`
	Result    OcrResult `json:"result"`
	StoredAt  time.Time `json:"stored_at"`
}

type ExtractResponse struct {
	MessageID string    `json:"message_id"`
	Key       string    `json:"key"`
	State     string    `json:"state"`
	History   []string  `json:"history"`
	Result    OcrResult `json:"result"`
	Stored    bool      `json:"stored"`
}

type RecordResponse struct {
	Success bool   `json:"success"`
	Data    Record `json:"data"`
}

type RecordListResponse struct {
	Success bool     `json:"success"`
	Data    []Record `json:"data"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

func ToOcrResult(r domain.OcrResult) OcrResult {
	return OcrResult{
		Text:       r.Text,
		Success:    r.Success,
		Failure:    string(r.Failure),
		Diagnostic: r.Diagnostic,
		DurationMS: r.Duration.Milliseconds(),
		Engine:     r.Engine,
		Language:   r.Language,
		Confidence: r.Confidence,
	}
}

func ToRecord(r *domain.PersistedRecord) Record {
	return Record{
		Key:       string(r.Key),
		MessageID: string(r.MessageID),
		ChatID:    r.ChatID,
		SenderID:  r.SenderID,
		Result:    ToOcrResult(r.Result()),
		StoredAt:  r.StoredAt,
	}
}

func ToRecords(records []*domain.PersistedRecord) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		out = append(out, ToRecord(r))
	}
	return out
}

func ToExtractResponse(o *services.Outcome) ExtractResponse {
	resp := ExtractResponse{
		MessageID: string(o.MessageID),
		Key:       string(o.MessageID.Key()),
		State:     string(o.State),
		History:   make([]string, 0, len(o.History)),
		Stored:    o.Record != nil,
	}
	for _, s := range o.History {
		resp.History = append(resp.History, string(s))
	}
	if o.Result != nil {
		resp.Result = ToOcrResult(*o.Result)
	}
	return resp
}

// OutcomeStatus is 200 for a replied message and otherwise the status of the
// failure kind it ended with. The body still carries the full outcome.
func OutcomeStatus(o *services.Outcome) int {
	if o.State == domain.StateReplied {
		return http.StatusOK
	}
	switch o.Failure {
	case domain.FailureMalformedInput:
		return http.StatusUnprocessableEntity
	case domain.FailureOcrTimeout:
		return http.StatusGatewayTimeout
	case domain.FailureOcrUnavailable, domain.FailureStorageUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
