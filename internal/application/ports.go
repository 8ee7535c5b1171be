package application

import (
	"context"

	"github.com/DanielPopoola/ocrbot/internal/domain"
)

// OCREngine is the port for the text recognition backend.
//
// Extract returns a successful OcrResult (possibly with empty text) or one of
// the OCR domain errors: OcrUnavailable, OcrTimeout or MalformedInput. The
// MessageID of the returned result is left for the caller to fill in.
type OCREngine interface {
	Extract(ctx context.Context, image []byte, languageHint string) (domain.OcrResult, error)
	Name() string
	// Available reports whether the engine can be invoked at all.
	Available(ctx context.Context) error
}

// RecordStore is the port for OCR result persistence.
type RecordStore interface {
	Put(ctx context.Context, record *domain.PersistedRecord) error
	Get(ctx context.Context, key domain.StorageKey) (*domain.PersistedRecord, error)
	// List returns records newest first.
	List(ctx context.Context, limit, offset int) ([]*domain.PersistedRecord, error)
	Ping(ctx context.Context) error
}

// AudienceStore keeps the users that talked to the bot and the broadcast subscribers.
type AudienceStore interface {
	AddUser(ctx context.Context, userID int64) error
	// Subscribe reports false when the user was already subscribed.
	Subscribe(ctx context.Context, userID int64) (bool, error)
	// Unsubscribe reports false when the user was not subscribed.
	Unsubscribe(ctx context.Context, userID int64) (bool, error)
	Snapshot(ctx context.Context) (domain.Audience, error)
}

// Messenger is the port for outgoing chat messages.
type Messenger interface {
	Send(ctx context.Context, msg OutgoingMessage) error
}

type OutgoingMessage struct {
	ChatID  int64
	Text    string
	Buttons []domain.Button
}
