package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/DanielPopoola/ocrbot/internal/application"
	"github.com/DanielPopoola/ocrbot/internal/domain"
)

var _ application.RecordStore = (*RecordStore)(nil)

type RecordStore struct {
	db Executor
}

func NewRecordStore(db Executor) *RecordStore {
	return &RecordStore{db: db}
}

// Put upserts the record. Concurrent puts of one key are serialised by the row lock.
func (s *RecordStore) Put(ctx context.Context, record *domain.PersistedRecord) error {
	if record == nil || !record.Key.Valid() {
		return domain.NewMissingRequiredFieldError("record key")
	}

	query := `
		INSERT INTO ocr_records (
			key, message_id, chat_id, sender_id, text, success, failure, diagnostic,
			duration_ns, engine, language, confidence, stored_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (key) DO UPDATE SET
			message_id  = EXCLUDED.message_id,
			chat_id     = EXCLUDED.chat_id,
			sender_id   = EXCLUDED.sender_id,
			text        = EXCLUDED.text,
			success     = EXCLUDED.success,
			failure     = EXCLUDED.failure,
			diagnostic  = EXCLUDED.diagnostic,
			duration_ns = EXCLUDED.duration_ns,
			engine      = EXCLUDED.engine,
			language    = EXCLUDED.language,
			confidence  = EXCLUDED.confidence,
			stored_at   = EXCLUDED.stored_at
	`

	_, err := s.db.Exec(ctx, query,
		string(record.Key),
		string(record.MessageID),
		record.ChatID,
		record.SenderID,
		record.Text,
		record.Success,
		string(record.Failure),
		record.Diagnostic,
		record.Duration.Nanoseconds(),
		record.Engine,
		record.Language,
		record.Confidence,
		record.StoredAt,
	)
	if err != nil {
		return storageError(fmt.Errorf("upsert record %s: %w", record.Key, err))
	}
	return nil
}

const recordColumns = `
	key, message_id, chat_id, sender_id, text, success, failure, diagnostic,
	duration_ns, engine, language, confidence, stored_at`

func (s *RecordStore) Get(ctx context.Context, key domain.StorageKey) (*domain.PersistedRecord, error) {
	if !key.Valid() {
		return nil, domain.NewRecordNotFoundError(key)
	}

	row := s.db.QueryRow(ctx, `SELECT `+recordColumns+` FROM ocr_records WHERE key = $1`, string(key))
	record, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewRecordNotFoundError(key)
	}
	if err != nil {
		return nil, storageError(fmt.Errorf("get record %s: %w", key, err))
	}
	return record, nil
}

func (s *RecordStore) List(ctx context.Context, limit, offset int) ([]*domain.PersistedRecord, error) {
	query := `SELECT ` + recordColumns + `
		FROM ocr_records
		ORDER BY stored_at DESC, key DESC
		LIMIT $1 OFFSET $2`

	var lim any
	if limit > 0 {
		lim = limit
	}

	rows, err := s.db.Query(ctx, query, lim, offset)
	if err != nil {
		return nil, storageError(fmt.Errorf("list records: %w", err))
	}
	defer rows.Close()

	records := []*domain.PersistedRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, storageError(fmt.Errorf("scan record: %w", err))
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(err)
	}
	return records, nil
}

func scanRecord(row pgx.Row) (*domain.PersistedRecord, error) {
	var (
		r          domain.PersistedRecord
		key        string
		messageID  string
		failure    string
		durationNS int64
		storedAt   time.Time
	)
	err := row.Scan(
		&key,
		&messageID,
		&r.ChatID,
		&r.SenderID,
		&r.Text,
		&r.Success,
		&failure,
		&r.Diagnostic,
		&durationNS,
		&r.Engine,
		&r.Language,
		&r.Confidence,
		&storedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Key = domain.StorageKey(key)
	r.MessageID = domain.MessageID(messageID)
	r.Failure = domain.FailureKind(failure)
	r.Duration = time.Duration(durationNS)
	r.StoredAt = storedAt.UTC()
	return &r, nil
}

// Ping runs a trivial query through the store's executor.
func (s *RecordStore) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return storageError(err)
	}
	return nil
}
