// Package filestore keeps OCR records and the bot audience as JSON files under
// a data directory.
//
// Layout:
//
//	<dir>/records/<storage key>.json
//	<dir>/audience.json
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/DanielPopoola/ocrbot/internal/domain"
)

const (
	recordsDir = "records"
	// lockStripes bounds the number of key mutexes regardless of how many
	// keys the store has seen.
	lockStripes = 64
)

// RecordStore writes one file per record. Writes to the same key are
// serialised and land atomically through a temp file and rename.
type RecordStore struct {
	dir    string
	logger *slog.Logger

	locks [lockStripes]sync.Mutex
}

// NewRecordStore creates the records directory if needed. It fails when the
// directory cannot be created or written to.
func NewRecordStore(dataDir string, logger *slog.Logger) (*RecordStore, error) {
	dir := filepath.Join(dataDir, recordsDir)
	if err := ensureWritable(dir); err != nil {
		return nil, err
	}
	return &RecordStore{
		dir:    dir,
		logger: logger,
	}, nil
}

// keyLock returns the stripe guarding key. Distinct keys may share a stripe;
// one key always maps to the same one.
func (s *RecordStore) keyLock(key domain.StorageKey) *sync.Mutex {
	return &s.locks[lockStripe(key)]
}

func lockStripe(key domain.StorageKey) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % lockStripes
}

func (s *RecordStore) path(key domain.StorageKey) string {
	return filepath.Join(s.dir, string(key)+".json")
}

func (s *RecordStore) Put(ctx context.Context, record *domain.PersistedRecord) error {
	if record == nil || !record.Key.Valid() {
		return domain.NewMissingRequiredFieldError("record key")
	}
	if err := ctx.Err(); err != nil {
		return domain.NewStorageUnavailableError(err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record %s: %w", record.Key, err)
	}

	l := s.keyLock(record.Key)
	l.Lock()
	defer l.Unlock()

	if err := writeFileAtomic(s.path(record.Key), data); err != nil {
		s.logger.Error("failed to write record", "key", record.Key, "error", err)
		return domain.NewStorageUnavailableError(err)
	}
	return nil
}

func (s *RecordStore) Get(ctx context.Context, key domain.StorageKey) (*domain.PersistedRecord, error) {
	if !key.Valid() {
		return nil, domain.NewRecordNotFoundError(key)
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStorageUnavailableError(err)
	}

	l := s.keyLock(key)
	l.Lock()
	defer l.Unlock()

	return readRecord(s.path(key), key)
}

func readRecord(path string, key domain.StorageKey) (*domain.PersistedRecord, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is built from a validated key
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.NewRecordNotFoundError(key)
	}
	if err != nil {
		return nil, domain.NewStorageUnavailableError(err)
	}

	var record domain.PersistedRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, domain.NewStorageUnavailableError(fmt.Errorf("decode record %s: %w", key, err))
	}
	return &record, nil
}

// List reads every record and returns them newest first. Unreadable files are
// skipped and logged.
func (s *RecordStore) List(ctx context.Context, limit, offset int) ([]*domain.PersistedRecord, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, domain.NewStorageUnavailableError(err)
	}

	records := make([]*domain.PersistedRecord, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, domain.NewStorageUnavailableError(err)
		}
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		key := domain.StorageKey(strings.TrimSuffix(name, ".json"))
		if !key.Valid() {
			continue
		}
		record, err := readRecord(filepath.Join(s.dir, name), key)
		if err != nil {
			s.logger.Warn("skipping unreadable record", "file", name, "error", err)
			continue
		}
		records = append(records, record)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].StoredAt.Equal(records[j].StoredAt) {
			return records[i].Key > records[j].Key
		}
		return records[i].StoredAt.After(records[j].StoredAt)
	})

	return page(records, limit, offset), nil
}

func (s *RecordStore) Ping(_ context.Context) error {
	if err := ensureWritable(s.dir); err != nil {
		return domain.NewStorageUnavailableError(err)
	}
	return nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// EnsureDir creates dir if needed and checks that files can be written to it.
func EnsureDir(dir string) error {
	return ensureWritable(dir)
}

func ensureWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, ".write-check-*")
	if err != nil {
		return fmt.Errorf("%s is not writable: %w", dir, err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
