package persistence_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanielPopoola/ocrbot/internal/config"
	"github.com/DanielPopoola/ocrbot/internal/infrastructure/persistence"
)

func TestOpen_FileDriver(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	stores, err := persistence.Open(context.Background(), config.StorageConfig{Driver: "file", DataDir: t.TempDir()}, logger)
	require.NoError(t, err)
	defer stores.Close()

	assert.NoError(t, stores.Records.Ping(context.Background()))
	require.NoError(t, stores.Audience.AddUser(context.Background(), 1))
}

func TestOpen_DataDirCheckedForEveryDriver(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	for _, driver := range []string{"file", "s3", "postgres"} {
		t.Run(driver, func(t *testing.T) {
			_, err := persistence.Open(context.Background(), config.StorageConfig{
				Driver:  driver,
				DataDir: filepath.Join(file, "data"),
			}, logger)
			require.Error(t, err)
			assert.ErrorContains(t, err, "data dir")
		})
	}
}

func TestOpen_CreatesDataDir(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := filepath.Join(t.TempDir(), "nested", "data")

	stores, err := persistence.Open(context.Background(), config.StorageConfig{Driver: "file", DataDir: dir}, logger)
	require.NoError(t, err)
	defer stores.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpen_UnknownDriver(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := persistence.Open(context.Background(), config.StorageConfig{Driver: "redis", DataDir: t.TempDir()}, logger)
	assert.Error(t, err)
}
