// Package pipeline runs the incremental fetch, merge and persist cycle over a
// list of symbols.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"StockFeed/internal/collector"
	"StockFeed/internal/id"
	"StockFeed/internal/logger"
	"StockFeed/internal/model"
	"StockFeed/internal/store"
	"StockFeed/internal/symbols"
)

// Sink receives every finished batch summary.
type Sink interface {
	HandleBatch(ctx context.Context, sum *model.BatchSummary) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, sum *model.BatchSummary) error

func (f SinkFunc) HandleBatch(ctx context.Context, sum *model.BatchSummary) error {
	return f(ctx, sum)
}

// Options tunes a Pipeline. Zero values fall back to defaults.
type Options struct {
	Workers      int
	FetchTimeout time.Duration
	StoreTimeout time.Duration
	DryRun       bool // merge and report but never write
}

// Pipeline merges freshly fetched bars into stored series.
type Pipeline struct {
	fetcher collector.Fetcher
	store   *store.SeriesStore
	opts    Options
	sinks   []namedSink
	now     func() time.Time
}

type namedSink struct {
	name string
	sink Sink
}

// New creates a pipeline over a fetcher and a series store.
func New(f collector.Fetcher, s *store.SeriesStore, opts Options) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 30 * time.Second
	}
	return &Pipeline{fetcher: f, store: s, opts: opts, now: time.Now}
}

// AddSink registers a consumer for batch summaries. Sink errors are logged
// and never fail the batch.
func (p *Pipeline) AddSink(name string, s Sink) {
	p.sinks = append(p.sinks, namedSink{name: name, sink: s})
}

// Update runs one merge cycle for a single symbol. Errors are reported in
// the result, never returned.
func (p *Pipeline) Update(ctx context.Context, symbol string, tf model.Timeframe) model.SymbolResult {
	symbol = symbols.Normalize(symbol)
	res := model.SymbolResult{Symbol: symbol}
	fail := func(err error) model.SymbolResult {
		res.Outcome = model.OutcomeFailed
		res.Err = err
		slog.Warn("symbol update failed", append(logger.Attrs(ctx),
			"symbol", symbol, "timeframe", tf, "err", err)...)
		return res
	}

	if err := symbols.Validate(symbol); err != nil {
		return fail(err)
	}
	fetched, err := p.fetch(ctx, symbol, tf)
	if err != nil {
		return fail(err)
	}
	if len(fetched) == 0 {
		res.Outcome = model.OutcomeNoNewData
		return res
	}

	existing, isNew, err := p.load(ctx, symbol, tf)
	if err != nil {
		return fail(err)
	}

	m := Merge(existing, fetched)
	res.Added, res.Revised, res.Total = m.Added, m.Revised, len(m.Bars)
	if !m.Changed {
		res.Outcome = model.OutcomeNoNewData
		return res
	}

	if !p.opts.DryRun {
		sctx, cancel := context.WithTimeout(ctx, p.opts.StoreTimeout)
		err = p.store.WriteSeries(sctx, &model.Series{Symbol: symbol, Timeframe: tf, Bars: m.Bars})
		cancel()
		if err != nil {
			return fail(err)
		}
	}

	if isNew {
		res.Outcome = model.OutcomeCreated
	} else {
		res.Outcome = model.OutcomeUpdated
	}
	slog.Debug("symbol updated", append(logger.Attrs(ctx),
		"symbol", symbol, "timeframe", tf, "outcome", res.Outcome,
		"added", res.Added, "revised", res.Revised, "total", res.Total)...)
	return res
}

func (p *Pipeline) fetch(ctx context.Context, symbol string, tf model.Timeframe) ([]model.Bar, error) {
	fctx, cancel := context.WithTimeout(ctx, p.opts.FetchTimeout)
	defer cancel()

	bars, err := p.fetcher.Fetch(fctx, symbol, tf)
	if err != nil {
		return nil, err
	}
	for i := range bars {
		bars[i].Time = tf.Truncate(bars[i].Time)
	}
	return bars, nil
}

// load returns the stored bars; isNew is true when nothing was stored yet.
func (p *Pipeline) load(ctx context.Context, symbol string, tf model.Timeframe) ([]model.Bar, bool, error) {
	sctx, cancel := context.WithTimeout(ctx, p.opts.StoreTimeout)
	defer cancel()

	series, err := p.store.ReadSeries(sctx, symbol, tf)
	if errors.Is(err, store.ErrNotFound) {
		return nil, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return series.Bars, false, nil
}

// Run updates every symbol for one timeframe and returns the summary.
// Symbols are normalized and de-duplicated first, so each series has exactly
// one writer even with several workers. Cancelling ctx stops handing out
// symbols; symbols already in progress finish under their own timeouts and
// the rest are reported as failed.
func (p *Pipeline) Run(ctx context.Context, tf model.Timeframe, syms []string) *model.BatchSummary {
	list := symbols.NormalizeAll(syms)
	sum := &model.BatchSummary{
		RunID:     id.New(),
		Timeframe: tf,
		Source:    p.fetcher.Name(),
		StartedAt: p.now(),
		Results:   make([]model.SymbolResult, len(list)),
	}
	ctx = logger.WithRunID(ctx, sum.RunID)
	slog.Info("batch started", append(logger.Attrs(ctx),
		"timeframe", tf, "symbols", len(list), "source", sum.Source,
		"workers", p.opts.Workers, "dry_run", p.opts.DryRun)...)

	work := context.WithoutCancel(ctx)
	jobs := make(chan int)
	scheduled := make([]bool, len(list))
	var wg sync.WaitGroup
	for w := 0; w < p.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				sum.Results[i] = p.Update(work, list[i], tf)
			}
		}()
	}

feed:
	for i := range list {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
			scheduled[i] = true
		}
	}
	close(jobs)
	wg.Wait()

	for i, ok := range scheduled {
		if !ok {
			sum.Results[i] = model.SymbolResult{
				Symbol:  list[i],
				Outcome: model.OutcomeFailed,
				Err:     fmt.Errorf("not processed: %w", context.Cause(ctx)),
			}
		}
	}
	sum.FinishedAt = p.now()

	slog.Info("batch finished", append(logger.Attrs(ctx),
		"timeframe", tf,
		"created", sum.Count(model.OutcomeCreated),
		"updated", sum.Count(model.OutcomeUpdated),
		"no_new_data", sum.Count(model.OutcomeNoNewData),
		"failed", sum.Count(model.OutcomeFailed),
		"duration", sum.Duration().Round(time.Millisecond).String())...)

	for _, s := range p.sinks {
		if err := s.sink.HandleBatch(work, sum); err != nil {
			slog.Error("batch sink failed", append(logger.Attrs(ctx), "sink", s.name, "err", err)...)
		}
	}
	return sum
}
