package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"StockFeed/internal/collector"
	"StockFeed/internal/config"
	"StockFeed/internal/metrics"
	"StockFeed/internal/model"
	"StockFeed/internal/notifier"
	"StockFeed/internal/pipeline"
	"StockFeed/internal/recorder"
	"StockFeed/internal/store"
	"StockFeed/internal/symbols"
)

// newBlob builds the configured storage backend. The returned closer is never nil.
func newBlob(ctx context.Context, cfg *config.Config) (store.Blob, io.Closer, error) {
	switch cfg.Storage.Backend {
	case "s3":
		b, err := store.NewS3Blob(ctx, store.S3Config{
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
		})
		return b, nopCloser{}, err
	case "fs":
		b, err := store.NewFSBlob(cfg.Storage.Dir)
		return b, nopCloser{}, err
	case "redis":
		b, err := store.NewRedisBlob(ctx, store.RedisConfig{
			Addr:     cfg.Storage.RedisAddr,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
		})
		if err != nil {
			return nil, nopCloser{}, err
		}
		return b, b, nil
	case "memory":
		return store.NewMemoryBlob(), nopCloser{}, nil
	}
	return nil, nopCloser{}, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newFetcher builds the configured market-data source wrapped with retries.
func newFetcher(cfg *config.Config) (collector.Fetcher, error) {
	ds := cfg.DataSource
	var f collector.Fetcher
	switch ds.Provider {
	case "yahoo":
		y := collector.NewYahooFetcher(cfg.Proxy, ds.FetchTimeout, cfg.Lookback())
		if ds.BaseURL != "" {
			y.BaseURL = ds.BaseURL
		}
		f = y
	case "tiingo":
		f = collector.NewTiingoFetcher(ds.APIKey, cfg.Lookback())
	case "rest":
		f = collector.NewRESTFetcher(ds.BaseURL, ds.APIKey, cfg.Proxy, ds.FetchTimeout, cfg.Lookback())
	default:
		return nil, fmt.Errorf("unknown data source provider %q", ds.Provider)
	}
	if ds.Retries > 0 || ds.RequestDelay > 0 {
		f = collector.NewRetryFetcher(f, ds.Retries, ds.RequestDelay, ds.FetchTimeout)
	}
	return f, nil
}

// fetchDeadline bounds one symbol's whole fetch. fetch_timeout applies per
// attempt, so a retrying fetcher gets room for all of its attempts.
func fetchDeadline(f collector.Fetcher, perAttempt time.Duration) time.Duration {
	if rf, ok := f.(*collector.RetryFetcher); ok {
		return rf.Budget() + time.Second
	}
	return perAttempt
}

// newSymbolSource resolves symbols.source; an explicit list overrides it.
func newSymbolSource(cfg *config.Config, override []string) symbols.Source {
	if len(override) > 0 {
		return symbols.Fixed(override)
	}
	switch src := strings.ToLower(cfg.Symbols.Source); src {
	case "fixed":
		return symbols.Fixed(cfg.Symbols.List)
	case "sp500":
		return symbols.NewSP500CSV(cfg.Symbols.URL)
	default:
		return symbols.NewMarket(src)
	}
}

func newRecorder(cfg *config.Config) recorder.Recorder {
	if cfg.Database.SQLitePath == "" || cfg.Database.SQLitePath == "-" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
	if err != nil {
		slog.Warn("init sqlite recorder failed, using noop", "err", err)
		return recorder.NewNoopRecorder()
	}
	return sr
}

// app is everything one invocation needs to run batches.
type app struct {
	cfg       *config.Config
	store     *store.SeriesStore
	pipeline  *pipeline.Pipeline
	recorder  recorder.Recorder
	metrics   *metrics.Metrics
	telegram  *notifier.TelegramNotifier
	closeBlob io.Closer
}

func newApp(ctx context.Context, cfg *config.Config, dryRun bool) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	blob, closer, err := newBlob(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	fetcher, err := newFetcher(cfg)
	if err != nil {
		closer.Close()
		return nil, err
	}
	slog.Info("components ready", "storage", blob.Name(), "source", fetcher.Name())

	a := &app{
		cfg:       cfg,
		store:     store.NewSeriesStore(blob, cfg.Storage.Prefix),
		recorder:  recorder.NewNoopRecorder(),
		metrics:   metrics.NewMetrics(),
		closeBlob: closer,
	}
	a.pipeline = pipeline.New(fetcher, a.store, pipeline.Options{
		Workers:      cfg.Pipeline.Workers,
		FetchTimeout: fetchDeadline(fetcher, cfg.DataSource.FetchTimeout),
		StoreTimeout: cfg.Pipeline.StoreTimeout,
		DryRun:       dryRun,
	})
	a.pipeline.AddSink("metrics", pipeline.SinkFunc(func(_ context.Context, sum *model.BatchSummary) error {
		a.metrics.Observe(sum)
		return nil
	}))
	if dryRun {
		return a, nil
	}

	a.recorder = newRecorder(cfg)
	a.pipeline.AddSink("recorder", pipeline.SinkFunc(a.recorder.RecordBatch))
	if cfg.TelegramEnabled() {
		a.telegram = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		a.pipeline.AddSink("telegram", &notifier.BatchReporter{
			Notifier: a.telegram,
			Policy:   notifier.Policy(cfg.Telegram.Notify),
			Retries:  3,
		})
	}
	return a, nil
}

func (a *app) Close() {
	if err := a.recorder.Close(); err != nil {
		slog.Warn("close recorder", "err", err)
	}
	if err := a.closeBlob.Close(); err != nil {
		slog.Warn("close storage", "err", err)
	}
}
