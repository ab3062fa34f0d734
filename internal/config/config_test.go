package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockFeed/internal/model"
)

var envKeys = []string{
	"STORAGE_BACKEND", "BUCKET_NAME", "AWS_REGION", "AWS_ACCESS_KEY", "AWS_SECRET_KEY",
	"REDIS_ADDR", "TIINGO_API_TOKEN", "DATA_SOURCE_PROVIDER", "TELEGRAM_BOT_TOKEN",
	"TELEGRAM_CHAT_ID", "HTTPS_PROXY", "SQLITE_PATH", "LOG_LEVEL", "WORKERS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "s3", cfg.Storage.Backend)
	assert.Equal(t, "data", cfg.Storage.Prefix)
	assert.Equal(t, "yahoo", cfg.DataSource.Provider)
	assert.Equal(t, 30*time.Second, cfg.DataSource.FetchTimeout)
	assert.Equal(t, "sp500", cfg.Symbols.Source)
	assert.Equal(t, 1, cfg.Pipeline.Workers)
	assert.Equal(t, "failures", cfg.Telegram.Notify)
	assert.Equal(t, "1mo", cfg.Lookback().Range(model.Hourly))
	assert.Equal(t, "1y", cfg.Lookback().Range(model.Weekly))

	// s3 without a bucket is not runnable.
	assert.Error(t, cfg.Validate())
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
storage:
  backend: fs
  dir: /tmp/feed
data_source:
  provider: tiingo
  lookback:
    daily: 6mo
  fetch_timeout: 10s
  request_delay: 250ms
symbols:
  list: [AAPL, brk.b]
pipeline:
  workers: 4
`)
	t.Setenv("TIINGO_API_TOKEN", "tok")
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "/tmp/feed", cfg.Storage.Dir)
	assert.Equal(t, "tok", cfg.DataSource.APIKey)
	assert.Equal(t, 10*time.Second, cfg.DataSource.FetchTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.DataSource.RequestDelay)
	assert.Equal(t, "fixed", cfg.Symbols.Source)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "6mo", cfg.Lookback().Range(model.Daily))
	assert.Equal(t, "1mo", cfg.Lookback().Range(model.Hourly))
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, "storage: [unclosed"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	base := func() *Config {
		cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
		require.NoError(t, err)
		cfg.Storage.Backend = "memory"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"ok", func(*Config) {}, ""},
		{"s3 with bucket", func(c *Config) { c.Storage.Backend = "s3"; c.Storage.Bucket = "b" }, ""},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "gcs" }, "storage.backend"},
		{"tiingo without key", func(c *Config) { c.DataSource.Provider = "tiingo" }, "api_key"},
		{"rest without url", func(c *Config) { c.DataSource.Provider = "rest" }, "base_url"},
		{"unknown provider", func(c *Config) { c.DataSource.Provider = "bloomberg" }, "provider"},
		{"bad lookback", func(c *Config) { c.DataSource.Lookback = map[string]string{"daily": "forever"} }, "lookback.daily"},
		{"bad lookback timeframe", func(c *Config) { c.DataSource.Lookback = map[string]string{"monthly": "1y"} }, "lookback"},
		{"fixed without list", func(c *Config) { c.Symbols.Source = "fixed" }, "symbols.list"},
		{"go-quote market", func(c *Config) { c.Symbols.Source = "nasdaq100" }, ""},
		{"unknown market", func(c *Config) { c.Symbols.Source = "moon" }, "symbols.source"},
		{"zero workers", func(c *Config) { c.Pipeline.Workers = 0 }, "workers"},
		{"bad cron", func(c *Config) { c.Schedule.DailyCron = "every day" }, "daily_cron"},
		{"disabled cron", func(c *Config) { c.Schedule.HourlyCron = "-" }, ""},
		{"bad notify", func(c *Config) { c.Telegram.Notify = "sometimes" }, "notify"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTelegramEnabled(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.TelegramEnabled())
	cfg.Telegram.BotToken = "t"
	cfg.Telegram.ChatID = "1"
	assert.True(t, cfg.TelegramEnabled())
}
