package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"StockFeed/internal/collector"
	"StockFeed/internal/model"
	"StockFeed/internal/symbols"
)

// DefaultPath is used when neither --config nor CONFIG_PATH is given.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	Storage struct {
		Backend       string `yaml:"backend"` // s3 | fs | redis | memory
		Bucket        string `yaml:"bucket"`
		Region        string `yaml:"region"`
		Endpoint      string `yaml:"endpoint"`
		AccessKey     string `yaml:"access_key"`
		SecretKey     string `yaml:"secret_key"`
		Prefix        string `yaml:"prefix"`
		Dir           string `yaml:"dir"`
		RedisAddr     string `yaml:"redis_addr"`
		RedisPassword string `yaml:"redis_password"`
		RedisDB       int    `yaml:"redis_db"`
	} `yaml:"storage"`
	DataSource struct {
		Provider     string            `yaml:"provider"` // yahoo | tiingo | rest
		BaseURL      string            `yaml:"base_url"`
		APIKey       string            `yaml:"api_key"`
		Lookback     map[string]string `yaml:"lookback"`
		FetchTimeout time.Duration     `yaml:"fetch_timeout"`
		Retries      int               `yaml:"retries"`
		RequestDelay time.Duration     `yaml:"request_delay"`
	} `yaml:"data_source"`
	Symbols struct {
		Source string   `yaml:"source"` // fixed | sp500 | a go-quote market name
		List   []string `yaml:"list"`
		URL    string   `yaml:"url"`
	} `yaml:"symbols"`
	Pipeline struct {
		Workers      int           `yaml:"workers"`
		StoreTimeout time.Duration `yaml:"store_timeout"`
	} `yaml:"pipeline"`
	Schedule struct {
		HourlyCron string `yaml:"hourly_cron"`
		DailyCron  string `yaml:"daily_cron"`
		WeeklyCron string `yaml:"weekly_cron"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
		Notify   string `yaml:"notify"` // failures | always | never
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, loads .env if present, then applies
// environment variable overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	// Preset so an explicit `retries: 0` survives defaulting.
	cfg.DataSource.Retries = 2

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Existing process variables win over .env entries.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("BUCKET_NAME"); v != "" {
		c.Storage.Bucket = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.Storage.Region = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY"); v != "" {
		c.Storage.AccessKey = v
	}
	if v := os.Getenv("AWS_SECRET_KEY"); v != "" {
		c.Storage.SecretKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Storage.RedisAddr = v
	}
	if v := os.Getenv("TIINGO_API_TOKEN"); v != "" && c.DataSource.APIKey == "" {
		c.DataSource.APIKey = v
	}
	if v := os.Getenv("DATA_SOURCE_PROVIDER"); v != "" {
		c.DataSource.Provider = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Pipeline.Workers = n
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Storage.Backend == "" {
		c.Storage.Backend = "s3"
	}
	if c.Storage.Prefix == "" {
		c.Storage.Prefix = "data"
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = "."
	}
	if c.Storage.Region == "" {
		c.Storage.Region = "us-east-1"
	}
	if c.Storage.RedisAddr == "" {
		c.Storage.RedisAddr = "localhost:6379"
	}
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
	if c.DataSource.FetchTimeout == 0 {
		c.DataSource.FetchTimeout = 30 * time.Second
	}
	if c.Symbols.Source == "" {
		if len(c.Symbols.List) > 0 {
			c.Symbols.Source = "fixed"
		} else {
			c.Symbols.Source = "sp500"
		}
	}
	if c.Symbols.URL == "" {
		c.Symbols.URL = symbols.DefaultSP500URL
	}
	if c.Pipeline.Workers == 0 {
		c.Pipeline.Workers = 1
	}
	if c.Pipeline.StoreTimeout == 0 {
		c.Pipeline.StoreTimeout = 30 * time.Second
	}
	if c.Schedule.HourlyCron == "" {
		c.Schedule.HourlyCron = "0 5 14-21 * * 1-5"
	}
	if c.Schedule.DailyCron == "" {
		c.Schedule.DailyCron = "0 30 22 * * 1-5"
	}
	if c.Schedule.WeeklyCron == "" {
		c.Schedule.WeeklyCron = "0 0 8 * * 6"
	}
	if c.Telegram.Notify == "" {
		c.Telegram.Notify = "failures"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/stockfeed.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Lookback returns the per-timeframe fetch window: configured entries over
// collector defaults.
func (c *Config) Lookback() collector.Lookback {
	lb := collector.DefaultLookback()
	for tf, rng := range c.DataSource.Lookback {
		if parsed, err := model.ParseTimeframe(tf); err == nil {
			lb[parsed] = rng
		}
	}
	return lb
}

// TelegramEnabled reports whether both bot token and chat ID are set.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Validate checks settings that would otherwise fail mid-batch.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the s3 backend")
		}
	case "fs", "memory":
	case "redis":
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("storage.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}

	switch c.DataSource.Provider {
	case "yahoo":
	case "tiingo":
		if c.DataSource.APIKey == "" {
			return fmt.Errorf("data_source.api_key (or TIINGO_API_TOKEN) is required for tiingo")
		}
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the rest provider")
		}
	default:
		return fmt.Errorf("unknown data_source.provider %q", c.DataSource.Provider)
	}

	for tf, rng := range c.DataSource.Lookback {
		if _, err := model.ParseTimeframe(tf); err != nil {
			return fmt.Errorf("data_source.lookback: %w", err)
		}
		if _, err := collector.RangeDays(rng); err != nil {
			return fmt.Errorf("data_source.lookback.%s: %w", tf, err)
		}
	}
	if c.DataSource.Retries < 0 {
		return fmt.Errorf("data_source.retries must not be negative")
	}

	switch src := strings.ToLower(c.Symbols.Source); src {
	case "fixed":
		if len(c.Symbols.List) == 0 {
			return fmt.Errorf("symbols.list is required when symbols.source is fixed")
		}
	case "sp500":
	default:
		if !symbols.ValidMarket(src) {
			return fmt.Errorf("unknown symbols.source %q", c.Symbols.Source)
		}
	}

	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be at least 1")
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{
		"hourly_cron": c.Schedule.HourlyCron,
		"daily_cron":  c.Schedule.DailyCron,
		"weekly_cron": c.Schedule.WeeklyCron,
	} {
		if spec == "-" {
			continue
		}
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("schedule.%s: %w", name, err)
		}
	}

	switch c.Telegram.Notify {
	case "failures", "always", "never":
	default:
		return fmt.Errorf("unknown telegram.notify %q", c.Telegram.Notify)
	}
	return nil
}
