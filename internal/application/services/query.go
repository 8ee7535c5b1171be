package services

import (
	"context"

	"github.com/DanielPopoola/ocrbot/internal/application"
	"github.com/DanielPopoola/ocrbot/internal/domain"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type QueryService struct {
	records application.RecordStore
}

func NewQueryService(
	records application.RecordStore,
) *QueryService {
	return &QueryService{
		records: records,
	}
}

func (s *QueryService) FindByKey(ctx context.Context, key string) (*domain.PersistedRecord, error) {
	if key == "" {
		return nil, domain.NewMissingRequiredFieldError("key")
	}
	return s.records.Get(ctx, domain.StorageKey(key))
}

func (s *QueryService) List(ctx context.Context, limit, offset int) ([]*domain.PersistedRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.records.List(ctx, limit, offset)
}
