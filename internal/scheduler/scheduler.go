package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"StockFeed/internal/model"
	"StockFeed/internal/notifier"
	"StockFeed/internal/symbols"
)

// ErrBusy is returned when a batch is already running.
var ErrBusy = errors.New("a batch is already running")

// Runner executes one batch. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, tf model.Timeframe, syms []string) *model.BatchSummary
}

// Scheduler triggers batches from cron and chat commands. At most one batch
// runs at a time; a trigger arriving meanwhile is skipped.
type Scheduler struct {
	Cron    *cron.Cron
	Runner  Runner
	Symbols symbols.Source
	Ctx     context.Context

	batch sync.Mutex

	mu      sync.RWMutex
	running bool
	last    map[model.Timeframe]*model.BatchSummary
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, runner Runner, src symbols.Source) *Scheduler {
	return &Scheduler{
		Cron:    cron.New(cron.WithSeconds()),
		Runner:  runner,
		Symbols: src,
		Ctx:     ctx,
		last:    make(map[model.Timeframe]*model.BatchSummary),
	}
}

// RegisterAll registers the hourly, daily and weekly batches. An expression of "-"
// leaves that timeframe unscheduled.
func (s *Scheduler) RegisterAll(hourlyCron, dailyCron, weeklyCron string) error {
	for _, job := range []struct {
		tf   model.Timeframe
		spec string
	}{
		{model.Hourly, hourlyCron},
		{model.Daily, dailyCron},
		{model.Weekly, weeklyCron},
	} {
		if job.spec == "" || job.spec == "-" {
			continue
		}
		tf := job.tf
		if _, err := s.Cron.AddFunc(job.spec, func() { s.trigger(tf) }); err != nil {
			return fmt.Errorf("register %s task: %w", tf, err)
		}
		slog.Info("scheduled batch", "timeframe", tf, "cron", job.spec)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	slog.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running batch to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.batch.Lock()
	defer s.batch.Unlock()
	slog.Info("scheduler stopped")
}

func (s *Scheduler) trigger(tf model.Timeframe) {
	if _, err := s.RunNow(tf); err != nil {
		if errors.Is(err, ErrBusy) {
			slog.Warn("skipping scheduled batch", "timeframe", tf, "err", err)
			return
		}
		slog.Error("scheduled batch failed", "timeframe", tf, "err", err)
	}
}

// RunNow loads the symbol list and runs one batch for tf. It returns ErrBusy
// without waiting if another batch holds the lock.
func (s *Scheduler) RunNow(tf model.Timeframe) (*model.BatchSummary, error) {
	if !s.batch.TryLock() {
		return nil, ErrBusy
	}
	defer s.batch.Unlock()

	s.setRunning(true)
	defer s.setRunning(false)

	list, err := symbols.Load(s.Ctx, s.Symbols)
	if err != nil {
		return nil, err
	}
	sum := s.Runner.Run(s.Ctx, tf, list)

	s.mu.Lock()
	s.last[tf] = sum
	s.mu.Unlock()
	return sum, nil
}

func (s *Scheduler) setRunning(v bool) {
	s.mu.Lock()
	s.running = v
	s.mu.Unlock()
}

// LastSummaries returns a copy of the latest summary per timeframe.
func (s *Scheduler) LastSummaries() (map[model.Timeframe]*model.BatchSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[model.Timeframe]*model.BatchSummary, len(s.last))
	for tf, sum := range s.last {
		out[tf] = sum
	}
	return out, s.running
}

// HandleCommand processes a chat command and returns a reply. /update starts
// the batch in the background; its report goes out through the batch sinks.
func (s *Scheduler) HandleCommand(_ context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	switch fields[0] {
	case "/update":
		if len(fields) < 2 {
			return "usage: /update hourly|daily|weekly"
		}
		tf, err := model.ParseTimeframe(fields[1])
		if err != nil {
			return err.Error()
		}
		_, running := s.LastSummaries()
		if running {
			return ErrBusy.Error()
		}
		go s.trigger(tf)
		return fmt.Sprintf("Started %s update. Use /status to follow.", tf)
	case "/status":
		last, running := s.LastSummaries()
		return notifier.FormatStatus(last, running)
	default:
		return "Commands:\n• /update hourly|daily|weekly\n• /status"
	}
}
