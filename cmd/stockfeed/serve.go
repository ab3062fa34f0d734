package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"StockFeed/internal/metrics"
	"StockFeed/internal/model"
	"StockFeed/internal/scheduler"
)

func newServeCmd(ro *rootOptions) *cobra.Command {
	var runOnStart bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled batches, the Telegram command poller and /metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := newApp(ctx, ro.cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			sched := scheduler.NewScheduler(ctx, a.pipeline, newSymbolSource(ro.cfg, nil))
			s := ro.cfg.Schedule
			if err := sched.RegisterAll(s.HourlyCron, s.DailyCron, s.WeeklyCron); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			if addr := ro.cfg.Metrics.Addr; addr != "" {
				srv := metrics.NewServer(addr, a.metrics)
				srv.Start()
				defer func() {
					shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
					defer done()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			if a.telegram != nil {
				go a.telegram.StartPolling(ctx, sched.HandleCommand)
				slog.Info("telegram polling started")
			}

			if runOnStart {
				slog.Info("run-on-start enabled, executing daily batch now")
				go func() {
					if _, err := sched.RunNow(model.Daily); err != nil {
						slog.Error("run-on-start batch failed", "err", err)
					}
				}()
			}

			slog.Info("stockfeed is running, press Ctrl+C to stop")
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-sigCh:
			case <-ctx.Done():
			}

			slog.Info("shutdown signal received, stopping")
			cancel()
			return nil
		},
	}
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", os.Getenv("RUN_ON_START") == "true", "run the daily batch immediately")
	return cmd
}
