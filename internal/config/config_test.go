package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if _, compat := compatKeys[key]; compat || strings.HasPrefix(key, envPrefix) {
			t.Setenv(key, "")
			require.NoError(t, os.Unsetenv(key))
		}
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "polling", cfg.Bot.Mode)
	assert.Equal(t, 4, cfg.Bot.Concurrency)
	assert.Equal(t, "cli", cfg.OCR.Engine)
	assert.Equal(t, "eng", cfg.OCR.Language)
	assert.Equal(t, 30*time.Second, cfg.OCR.Timeout)
	assert.Equal(t, "file", cfg.Storage.Driver)
	assert.Equal(t, "/app/data", cfg.Storage.DataDir)
	assert.Empty(t, cfg.Bot.AdminIDs)
}

func TestLoadConfig_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("OCRBOT_SERVER__PORT", "9000")
	t.Setenv("OCRBOT_OCR__TIMEOUT", "5s")
	t.Setenv("OCRBOT_BOT__CONCURRENCY", "16")
	t.Setenv("OCRBOT_STORAGE__DATA_DIR", "/tmp/ocr")
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_IDS", "42, 7,")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.OCR.Timeout)
	assert.Equal(t, 16, cfg.Bot.Concurrency)
	assert.Equal(t, "/tmp/ocr", cfg.Storage.DataDir)
	assert.Equal(t, "123:abc", cfg.Bot.Token)
	assert.Equal(t, []int64{42, 7}, cfg.Bot.AdminIDs)
	assert.True(t, cfg.IsAdmin(7))
	assert.False(t, cfg.IsAdmin(8))
	assert.NoError(t, cfg.ValidateBot())
}

func TestLoadConfig_PortWinsOverPrefixedPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("OCRBOT_SERVER__PORT", "9000")
	t.Setenv("PORT", "10000")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "10000", cfg.Server.Port)
}

func TestLoadConfig_File(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "ocrbot.yaml")
	content := `
ocr:
  language: deu
storage:
  driver: s3
  s3:
    bucket: ocr-records
    use_path_style: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("OCRBOT_CONFIG_FILE", path)
	t.Setenv("OCRBOT_OCR__LANGUAGE", "fra")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "fra", cfg.OCR.Language, "environment overrides the file")
	assert.Equal(t, "s3", cfg.Storage.Driver)
	assert.Equal(t, "ocr-records", cfg.Storage.S3.Bucket)
	assert.True(t, cfg.Storage.S3.UsePathStyle)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown engine", map[string]string{"OCRBOT_OCR__ENGINE": "easyocr"}},
		{"unknown driver", map[string]string{"OCRBOT_STORAGE__DRIVER": "redis"}},
		{"zero concurrency", map[string]string{"OCRBOT_BOT__CONCURRENCY": "0"}},
		{"postgres without host", map[string]string{"OCRBOT_STORAGE__DRIVER": "postgres"}},
		{"s3 without bucket", map[string]string{"OCRBOT_STORAGE__DRIVER": "s3"}},
		{"bad admin id", map[string]string{"ADMIN_IDS": "42,abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestConfig_ValidateBot(t *testing.T) {
	cfg := &Config{Bot: BotConfig{Mode: "polling"}}
	assert.Error(t, cfg.ValidateBot())

	cfg.Bot.Token = "t"
	assert.NoError(t, cfg.ValidateBot())

	cfg.Bot.Mode = "webhook"
	assert.Error(t, cfg.ValidateBot())

	cfg.Bot.WebhookSecret = "s3cret"
	assert.NoError(t, cfg.ValidateBot())
}

func TestLoggerConfig_NewLogger(t *testing.T) {
	logger, err := (&LoggerConfig{Level: "debug", Format: "json"}).NewLogger()
	require.NoError(t, err)
	assert.True(t, logger.Enabled(t.Context(), slog.LevelDebug))

	_, err = (&LoggerConfig{Level: "verbose"}).NewLogger()
	assert.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "ocr", Password: "p@ss/word", Name: "ocrbot", SSLMode: "disable"}

	assert.Equal(t, "postgres://ocr:p%40ss%2Fword@db:5432/ocrbot?sslmode=disable", c.DSN())

	cfg, err := c.PgxConfig(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "p@ss/word", cfg.ConnConfig.Password)
}
