// Package persistence selects the record and audience stores for the
// configured storage driver.
package persistence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DanielPopoola/ocrbot/internal/application"
	"github.com/DanielPopoola/ocrbot/internal/config"
	"github.com/DanielPopoola/ocrbot/internal/infrastructure/persistence/filestore"
	"github.com/DanielPopoola/ocrbot/internal/infrastructure/persistence/postgres"
	"github.com/DanielPopoola/ocrbot/internal/infrastructure/persistence/s3store"
)

type Stores struct {
	Records  application.RecordStore
	Audience application.AudienceStore
	close    func()
}

func (s *Stores) Close() {
	if s.close != nil {
		s.close()
	}
}

// Open builds the stores for cfg.Driver. The file driver keeps everything under
// DataDir; the s3 driver keeps records in the bucket and the audience in DataDir.
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*Stores, error) {
	logger = logger.With("driver", cfg.Driver)

	// DataDir must be usable whichever driver holds the records.
	if err := filestore.EnsureDir(cfg.DataDir); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	switch cfg.Driver {
	case "postgres":
		db, err := postgres.Connect(ctx, &cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return &Stores{
			Records:  postgres.NewRecordStore(db.Pool),
			Audience: postgres.NewAudienceStore(db.Pool),
			close:    db.Close,
		}, nil

	case "s3":
		records, err := s3store.NewRecordStore(ctx, cfg.S3, logger)
		if err != nil {
			return nil, err
		}
		if err := records.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		audience, err := filestore.NewAudienceStore(cfg.DataDir, logger)
		if err != nil {
			return nil, err
		}
		return &Stores{Records: records, Audience: audience}, nil

	case "file", "":
		records, err := filestore.NewRecordStore(cfg.DataDir, logger)
		if err != nil {
			return nil, err
		}
		audience, err := filestore.NewAudienceStore(cfg.DataDir, logger)
		if err != nil {
			return nil, err
		}
		return &Stores{Records: records, Audience: audience}, nil
	}

	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
