package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"StockFeed/internal/model"
	"StockFeed/internal/symbols"
)

func newUpdateCmd(ro *rootOptions) *cobra.Command {
	var (
		timeframe string
		syms      []string
		dryRun    bool
	)
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Fetch, merge and store one batch for a timeframe",
		Long: `Fetch the recent window of bars for every symbol, merge it into the
stored series and write the result. Per-symbol failures are reported in
the summary and do not change the exit code.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tf, err := model.ParseTimeframe(timeframe)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, ro.cfg, dryRun)
			if err != nil {
				return err
			}
			defer a.Close()

			list, err := symbols.Load(ctx, newSymbolSource(ro.cfg, syms))
			if err != nil {
				return err
			}
			sum := a.pipeline.Run(ctx, tf, list)
			printSummary(cmd.OutOrStdout(), sum)
			return nil
		},
	}
	cmd.Flags().StringVarP(&timeframe, "timeframe", "t", "daily", "hourly, daily or weekly")
	cmd.Flags().StringSliceVarP(&syms, "symbols", "s", nil, "comma separated symbols (overrides symbols.source)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "merge and report without writing")
	return cmd
}

func printSummary(w io.Writer, sum *model.BatchSummary) {
	fmt.Fprintf(w, "run %s  %s via %s  %d symbols  %s\n",
		sum.RunID, sum.Timeframe, sum.Source, len(sum.Results), sum.Duration().Round(time.Millisecond))
	for _, o := range []model.Outcome{model.OutcomeCreated, model.OutcomeUpdated, model.OutcomeNoNewData} {
		fmt.Fprintf(w, "  %-12s %d\n", o, sum.Count(o))
	}
	failed := sum.Failed()
	fmt.Fprintf(w, "  %-12s %d\n", model.OutcomeFailed, len(failed))
	for _, r := range failed {
		fmt.Fprintf(w, "    %s: %v\n", r.Symbol, r.Err)
	}
}

