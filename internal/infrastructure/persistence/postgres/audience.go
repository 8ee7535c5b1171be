package postgres

import (
	"context"
	"fmt"

	"github.com/DanielPopoola/ocrbot/internal/application"
	"github.com/DanielPopoola/ocrbot/internal/domain"
)

var _ application.AudienceStore = (*AudienceStore)(nil)

// AudienceStore keeps users in the bot_users table with a subscribed flag.
type AudienceStore struct {
	db Executor
}

func NewAudienceStore(db Executor) *AudienceStore {
	return &AudienceStore{db: db}
}

func (s *AudienceStore) AddUser(ctx context.Context, userID int64) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO bot_users (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return storageError(fmt.Errorf("add user %d: %w", userID, err))
	}
	return nil
}

func (s *AudienceStore) Subscribe(ctx context.Context, userID int64) (bool, error) {
	query := `
		INSERT INTO bot_users (user_id, subscribed) VALUES ($1, TRUE)
		ON CONFLICT (user_id) DO UPDATE SET subscribed = TRUE
			WHERE bot_users.subscribed = FALSE
		RETURNING user_id`

	changed, err := s.execReturning(ctx, query, userID)
	if err != nil {
		return false, storageError(fmt.Errorf("subscribe %d: %w", userID, err))
	}
	return changed, nil
}

func (s *AudienceStore) Unsubscribe(ctx context.Context, userID int64) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE bot_users SET subscribed = FALSE WHERE user_id = $1 AND subscribed`, userID)
	if err != nil {
		return false, storageError(fmt.Errorf("unsubscribe %d: %w", userID, err))
	}
	return tag.RowsAffected() > 0, nil
}

// execReturning reports whether the statement returned a row.
func (s *AudienceStore) execReturning(ctx context.Context, query string, args ...any) (bool, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	found := rows.Next()
	rows.Close()
	return found, rows.Err()
}

func (s *AudienceStore) Snapshot(ctx context.Context) (domain.Audience, error) {
	rows, err := s.db.Query(ctx, `SELECT user_id, subscribed FROM bot_users ORDER BY user_id`)
	if err != nil {
		return domain.Audience{}, storageError(fmt.Errorf("load audience: %w", err))
	}
	defer rows.Close()

	var a domain.Audience
	for rows.Next() {
		var (
			id         int64
			subscribed bool
		)
		if err := rows.Scan(&id, &subscribed); err != nil {
			return domain.Audience{}, storageError(err)
		}
		a.Users = append(a.Users, id)
		if subscribed {
			a.Subscribers = append(a.Subscribers, id)
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Audience{}, storageError(err)
	}
	return a, nil
}
