package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

const (
	envPrefix  = "OCRBOT_"
	envFileVar = "OCRBOT_CONFIG_FILE"
)

type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Bot     BotConfig     `koanf:"bot"`
	OCR     OCRConfig     `koanf:"ocr"`
	Storage StorageConfig `koanf:"storage"`
	Logger  LoggerConfig  `koanf:"logger"`
	Worker  WorkerConfig  `koanf:"worker"`
}

type ServerConfig struct {
	Port            string        `koanf:"port" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"required"`
	RequestTimeout  time.Duration `koanf:"request_timeout" validate:"required"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"required"`
}

type BotConfig struct {
	Token          string        `koanf:"token"`
	AdminIDs       []int64       `koanf:"admin_ids"`
	Mode           string        `koanf:"mode" validate:"required,oneof=polling webhook"`
	WebhookSecret  string        `koanf:"webhook_secret"`
	WebhookURL     string        `koanf:"webhook_url" validate:"omitempty,url"`
	APIBaseURL     string        `koanf:"api_base_url" validate:"required,url"`
	Concurrency    int           `koanf:"concurrency" validate:"required,min=1"`
	MaxImageBytes  int64         `koanf:"max_image_bytes" validate:"required,min=1"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"required"`
	SendAttempts   uint          `koanf:"send_attempts" validate:"required,min=1"`
	SendRetryDelay time.Duration `koanf:"send_retry_delay" validate:"required"`
	BroadcastRate  float64       `koanf:"broadcast_rate" validate:"required,gt=0"`
}

type OCRConfig struct {
	Engine     string        `koanf:"engine" validate:"required,oneof=cli gosseract"`
	BinaryPath string        `koanf:"binary_path" validate:"required"`
	Language   string        `koanf:"language" validate:"required"`
	Timeout    time.Duration `koanf:"timeout" validate:"required"`
	Preprocess bool          `koanf:"preprocess"`
	Binarize   bool          `koanf:"binarize"`
}

type StorageConfig struct {
	Driver   string         `koanf:"driver" validate:"required,oneof=file postgres s3"`
	DataDir  string         `koanf:"data_dir" validate:"required"`
	Postgres DatabaseConfig `koanf:"postgres"`
	S3       S3Config       `koanf:"s3"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	Name            string        `koanf:"name"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

type S3Config struct {
	Bucket          string `koanf:"bucket"`
	Region          string `koanf:"region"`
	Endpoint        string `koanf:"endpoint"`
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
	Prefix          string `koanf:"prefix"`
	UsePathStyle    bool   `koanf:"use_path_style"`
}

type LoggerConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"omitempty,oneof=text json"`
}

type WorkerConfig struct {
	PollTimeout  time.Duration `koanf:"poll_timeout" validate:"required"`
	PollLimit    int           `koanf:"poll_limit" validate:"required,min=1,max=100"`
	ErrorBackoff time.Duration `koanf:"error_backoff" validate:"required"`
	MaxBackoff   time.Duration `koanf:"max_backoff" validate:"required"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.port":             "8000",
		"server.read_timeout":     15 * time.Second,
		"server.write_timeout":    60 * time.Second,
		"server.idle_timeout":     60 * time.Second,
		"server.request_timeout":  45 * time.Second,
		"server.shutdown_timeout": 30 * time.Second,

		"bot.mode":             "polling",
		"bot.api_base_url":     "https://api.telegram.org",
		"bot.concurrency":      4,
		"bot.max_image_bytes":  20 << 20,
		"bot.request_timeout":  30 * time.Second,
		"bot.send_attempts":    3,
		"bot.send_retry_delay": 500 * time.Millisecond,
		"bot.broadcast_rate":   25.0,

		"ocr.engine":      "cli",
		"ocr.binary_path": "tesseract",
		"ocr.language":    "eng",
		"ocr.timeout":     30 * time.Second,
		"ocr.preprocess":  true,
		"ocr.binarize":    false,

		"storage.driver":   "file",
		"storage.data_dir": "/app/data",

		"storage.postgres.port":               5432,
		"storage.postgres.ssl_mode":           "disable",
		"storage.postgres.max_open_conns":     10,
		"storage.postgres.max_idle_conns":     2,
		"storage.postgres.conn_max_lifetime":  time.Hour,
		"storage.postgres.conn_max_idle_time": 30 * time.Minute,

		"storage.s3.region": "us-east-1",

		"logger.level":  "info",
		"logger.format": "text",

		"worker.poll_timeout":  30 * time.Second,
		"worker.poll_limit":    100,
		"worker.error_backoff": time.Second,
		"worker.max_backoff":   time.Minute,
	}
}

// compatKeys maps the unprefixed variables the bot has always been deployed
// with onto config keys. They win over their OCRBOT_ equivalents.
var compatKeys = map[string]string{
	"PORT":      "server.port",
	"BOT_TOKEN": "bot.token",
	"ADMIN_IDS": "bot.admin_ids",
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		logger.Error("failed to load defaults", "error", err)
		return nil, err
	}

	if path := os.Getenv(envFileVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			logger.Error("failed to load config file", "path", path, "error", err)
			return nil, err
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		if s == envFileVar {
			return ""
		}
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, envPrefix)),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	err = k.Load(env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		mapped, ok := compatKeys[key]
		if !ok || value == "" {
			return "", nil
		}
		if key == "ADMIN_IDS" {
			return mapped, splitList(value)
		}
		return mapped, value
	}), nil)
	if err != nil {
		logger.Error("failed to load compatibility variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	if err := mainConfig.Storage.validateDriver(); err != nil {
		logger.Error("storage config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}

// ValidateBot checks the settings only the chat transport needs, so one-shot
// commands can run without a bot token.
func (c *Config) ValidateBot() error {
	if c.Bot.Token == "" {
		return errors.New("bot token is required (BOT_TOKEN or OCRBOT_BOT__TOKEN)")
	}
	if c.Bot.Mode == "webhook" && c.Bot.WebhookSecret == "" {
		return errors.New("webhook mode requires OCRBOT_BOT__WEBHOOK_SECRET")
	}
	return nil
}

func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Bot.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (s *StorageConfig) validateDriver() error {
	switch s.Driver {
	case "postgres":
		p := s.Postgres
		if p.Host == "" || p.User == "" || p.Name == "" || p.Port == 0 {
			return errors.New("postgres storage requires host, port, user and name")
		}
	case "s3":
		if s.S3.Bucket == "" {
			return errors.New("s3 storage requires a bucket")
		}
	}
	return nil
}

func (c *LoggerConfig) NewLogger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if c.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler), nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
