package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/DanielPopoola/ocrbot/internal/domain"
)

const audienceFile = "audience.json"

// AudienceStore keeps the audience in memory and rewrites audience.json on
// every change.
type AudienceStore struct {
	path   string
	logger *slog.Logger

	mu       sync.Mutex
	audience domain.Audience
}

// NewAudienceStore loads audience.json from dataDir, starting empty when the
// file does not exist yet.
func NewAudienceStore(dataDir string, logger *slog.Logger) (*AudienceStore, error) {
	if err := ensureWritable(dataDir); err != nil {
		return nil, err
	}

	s := &AudienceStore{
		path:   filepath.Join(dataDir, audienceFile),
		logger: logger,
	}

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	if err := json.Unmarshal(data, &s.audience); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return s, nil
}

func (s *AudienceStore) AddUser(ctx context.Context, userID int64) error {
	_, err := s.update(ctx, func(a *domain.Audience) bool {
		return addID(&a.Users, userID)
	})
	return err
}

func (s *AudienceStore) Subscribe(ctx context.Context, userID int64) (bool, error) {
	return s.update(ctx, func(a *domain.Audience) bool {
		addID(&a.Users, userID)
		return addID(&a.Subscribers, userID)
	})
}

func (s *AudienceStore) Unsubscribe(ctx context.Context, userID int64) (bool, error) {
	return s.update(ctx, func(a *domain.Audience) bool {
		i := slices.Index(a.Subscribers, userID)
		if i < 0 {
			return false
		}
		a.Subscribers = slices.Delete(a.Subscribers, i, i+1)
		return true
	})
}

func (s *AudienceStore) Snapshot(_ context.Context) (domain.Audience, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Audience{
		Users:       slices.Clone(s.audience.Users),
		Subscribers: slices.Clone(s.audience.Subscribers),
	}, nil
}

// update applies fn and persists the result when fn reports a change. A failed
// write rolls the in-memory state back.
func (s *AudienceStore) update(ctx context.Context, fn func(*domain.Audience) bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, domain.NewStorageUnavailableError(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := domain.Audience{
		Users:       slices.Clone(s.audience.Users),
		Subscribers: slices.Clone(s.audience.Subscribers),
	}
	if !fn(&next) {
		return false, nil
	}

	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return false, fmt.Errorf("encode audience: %w", err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		s.logger.Error("failed to write audience", "path", s.path, "error", err)
		return false, domain.NewStorageUnavailableError(err)
	}

	s.audience = next
	return true, nil
}

func addID(ids *[]int64, id int64) bool {
	if slices.Contains(*ids, id) {
		return false
	}
	*ids = append(*ids, id)
	return true
}
