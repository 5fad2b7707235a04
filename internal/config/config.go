package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"dinner-agent/internal/integrations/openai"
)

type StoreKind string

const (
	StoreSQLite   StoreKind = "sqlite"
	StoreDynamoDB StoreKind = "dynamodb"
	StoreMemory   StoreKind = "memory"
)

const (
	defaultTimeout    = 60 * time.Second
	defaultSQLiteFile = "prompt.db"
	appDir            = "dinner-agent"
)

// Config holds everything main needs to wire the application.
type Config struct {
	APIKey      string
	KeyParam    string
	Model       string
	BaseURL     string
	Temperature float64
	Timeout     time.Duration

	Store      StoreKind
	SQLitePath string
	Table      string

	LogFile  string
	LogLevel slog.Level
}

// Load reads .env when present and then the process environment.
func Load() (*Config, error) {
	// A missing .env is fine.
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

func FromEnv(getenv func(string) string) (*Config, error) {
	env := func(key string) string { return strings.TrimSpace(getenv(key)) }

	cfg := &Config{
		APIKey:      env("OPENAI_API_KEY"),
		KeyParam:    env("OPENAI_KEY_PARAM"),
		Model:       env("OPENAI_MODEL"),
		BaseURL:     env("OPENAI_BASE_URL"),
		Temperature: openai.DefaultTemperature,
		Timeout:     defaultTimeout,
		Store:       StoreSQLite,
		SQLitePath:  env("PROMPT_SQLITE_PATH"),
		Table:       env("PROMPT_TABLE"),
		LogFile:     env("LOG_FILE"),
		LogLevel:    slog.LevelInfo,
	}
	if cfg.Model == "" {
		cfg.Model = openai.DefaultModel
	}

	if v := env("OPENAI_TEMPERATURE"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || t < 0 || t > 2 {
			return nil, fmt.Errorf("config: OPENAI_TEMPERATURE must be a number between 0 and 2, got %q", v)
		}
		cfg.Temperature = t
	}

	if v := env("OPENAI_TIMEOUT_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("config: OPENAI_TIMEOUT_SECONDS must be a positive integer, got %q", v)
		}
		cfg.Timeout = time.Duration(n) * time.Second
	}

	if v := env("PROMPT_STORE"); v != "" {
		switch kind := StoreKind(strings.ToLower(v)); kind {
		case StoreSQLite, StoreDynamoDB, StoreMemory:
			cfg.Store = kind
		default:
			return nil, fmt.Errorf("config: unknown PROMPT_STORE %q (want sqlite, dynamodb or memory)", v)
		}
	}
	if cfg.Store == StoreDynamoDB && cfg.Table == "" {
		return nil, fmt.Errorf("config: PROMPT_TABLE is required when PROMPT_STORE=dynamodb")
	}
	if cfg.Store == StoreSQLite && cfg.SQLitePath == "" {
		cfg.SQLitePath = defaultSQLitePath()
	}

	if v := env("LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("config: invalid LOG_LEVEL %q: %w", v, err)
		}
	}

	return cfg, nil
}

// NeedsAWS reports whether any configured component talks to AWS.
func (c *Config) NeedsAWS() bool {
	return c.Store == StoreDynamoDB || (c.APIKey == "" && c.KeyParam != "")
}

// OpenLogOutput returns the writer slog should use. LOG_FILE wins; otherwise
// interactive runs discard logs so they do not corrupt the terminal UI and
// one-shot commands log to stderr.
func (c *Config) OpenLogOutput(interactive bool) (io.Writer, func() error, error) {
	noop := func() error { return nil }
	if c.LogFile == "" {
		if interactive {
			return io.Discard, noop, nil
		}
		return os.Stderr, noop, nil
	}
	if err := os.MkdirAll(filepath.Dir(c.LogFile), 0o755); err != nil {
		return nil, nil, fmt.Errorf("config: create log directory: %w", err)
	}
	f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("config: open log file: %w", err)
	}
	return f, f.Close, nil
}

func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.LogLevel}))
}

func defaultSQLitePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultSQLiteFile
	}
	return filepath.Join(home, ".config", appDir, defaultSQLiteFile)
}
