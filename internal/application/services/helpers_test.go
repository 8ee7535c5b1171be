package services_test

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/DanielPopoola/ocrbot/internal/application"
	"github.com/DanielPopoola/ocrbot/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingMessenger keeps every message it was asked to send.
type recordingMessenger struct {
	mu      sync.Mutex
	sent    []application.OutgoingMessage
	failFor map[int64]error
}

func newRecordingMessenger() *recordingMessenger {
	return &recordingMessenger{failFor: make(map[int64]error)}
}

func (m *recordingMessenger) Send(_ context.Context, msg application.OutgoingMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failFor[msg.ChatID]; ok {
		return err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMessenger) To(chatID int64) []application.OutgoingMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []application.OutgoingMessage
	for _, msg := range m.sent {
		if msg.ChatID == chatID {
			out = append(out, msg)
		}
	}
	return out
}

func (m *recordingMessenger) LastText(chatID int64) string {
	msgs := m.To(chatID)
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1].Text
}

// memoryRecords is a map-backed RecordStore.
type memoryRecords struct {
	mu      sync.Mutex
	records map[domain.StorageKey]*domain.PersistedRecord
}

func newMemoryRecords() *memoryRecords {
	return &memoryRecords{records: make(map[domain.StorageKey]*domain.PersistedRecord)}
}

func (s *memoryRecords) Put(_ context.Context, record *domain.PersistedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Key] = record
	return nil
}

func (s *memoryRecords) Get(_ context.Context, key domain.StorageKey) (*domain.PersistedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[key]; ok {
		return r, nil
	}
	return nil, domain.NewRecordNotFoundError(key)
}

func (s *memoryRecords) List(_ context.Context, limit, offset int) ([]*domain.PersistedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.PersistedRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryRecords) Ping(context.Context) error { return nil }

func (s *memoryRecords) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// echoEngine "recognises" the image bytes as text.
type echoEngine struct{}

func (echoEngine) Extract(_ context.Context, image []byte, lang string) (domain.OcrResult, error) {
	if len(image) == 0 {
		return domain.OcrResult{}, domain.NewMalformedInputError("empty payload", nil)
	}
	return domain.OcrResult{Text: strings.ToUpper(string(image)), Language: lang}, nil
}

func (echoEngine) Name() string { return "echo" }

func (echoEngine) Available(context.Context) error { return nil }
