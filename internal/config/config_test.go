package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	require.NoError(t, err)

	require.Empty(t, cfg.APIKey)
	require.Equal(t, "gpt-4o-mini", cfg.Model)
	require.Equal(t, 0.7, cfg.Temperature)
	require.Equal(t, 60*time.Second, cfg.Timeout)
	require.Equal(t, StoreSQLite, cfg.Store)
	require.True(t, strings.HasSuffix(cfg.SQLitePath, "prompt.db"))
	require.Equal(t, slog.LevelInfo, cfg.LogLevel)
	require.False(t, cfg.NeedsAWS())
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"OPENAI_API_KEY":         " sk-test ",
		"OPENAI_MODEL":           "gpt-4o",
		"OPENAI_BASE_URL":        "http://localhost:8080/v1",
		"OPENAI_TEMPERATURE":     "0.2",
		"OPENAI_TIMEOUT_SECONDS": "5",
		"PROMPT_STORE":           "DynamoDB",
		"PROMPT_TABLE":           "settings",
		"LOG_LEVEL":              "debug",
	}))
	require.NoError(t, err)

	require.Equal(t, "sk-test", cfg.APIKey)
	require.Equal(t, "gpt-4o", cfg.Model)
	require.Equal(t, "http://localhost:8080/v1", cfg.BaseURL)
	require.Equal(t, 0.2, cfg.Temperature)
	require.Equal(t, 5*time.Second, cfg.Timeout)
	require.Equal(t, StoreDynamoDB, cfg.Store)
	require.Equal(t, "settings", cfg.Table)
	require.Empty(t, cfg.SQLitePath)
	require.Equal(t, slog.LevelDebug, cfg.LogLevel)
	require.True(t, cfg.NeedsAWS())
}

func TestFromEnv_Invalid(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		msg  string
	}{
		{name: "temperature", env: map[string]string{"OPENAI_TEMPERATURE": "hot"}, msg: "OPENAI_TEMPERATURE"},
		{name: "temperature range", env: map[string]string{"OPENAI_TEMPERATURE": "3"}, msg: "OPENAI_TEMPERATURE"},
		{name: "timeout", env: map[string]string{"OPENAI_TIMEOUT_SECONDS": "0"}, msg: "OPENAI_TIMEOUT_SECONDS"},
		{name: "store", env: map[string]string{"PROMPT_STORE": "redis"}, msg: "PROMPT_STORE"},
		{name: "dynamodb without table", env: map[string]string{"PROMPT_STORE": "dynamodb"}, msg: "PROMPT_TABLE"},
		{name: "log level", env: map[string]string{"LOG_LEVEL": "loud"}, msg: "LOG_LEVEL"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromEnv(envMap(tc.env))
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestNeedsAWS_KeyParam(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{"OPENAI_KEY_PARAM": "/dinner/openai", "PROMPT_STORE": "memory"}))
	require.NoError(t, err)
	require.True(t, cfg.NeedsAWS())

	cfg.APIKey = "sk-env"
	require.False(t, cfg.NeedsAWS(), "an env key takes precedence over SSM")
}

func TestOpenLogOutput(t *testing.T) {
	cfg := &Config{}
	w, closeFn, err := cfg.OpenLogOutput(false)
	require.NoError(t, err)
	require.Equal(t, os.Stderr, w)
	require.NoError(t, closeFn())

	cfg.LogFile = filepath.Join(t.TempDir(), "logs", "agent.log")
	w, closeFn, err = cfg.OpenLogOutput(true)
	require.NoError(t, err)
	cfg.NewLogger(w).Info("hello", "k", "v")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	require.Contains(t, string(data), "msg=hello")
	require.Contains(t, string(data), "k=v")
}
