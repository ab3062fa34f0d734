package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"StockFeed/internal/calculator"
	"StockFeed/internal/model"
	"StockFeed/internal/store"
	"StockFeed/internal/symbols"
)

func newShowCmd(ro *rootOptions) *cobra.Command {
	var (
		timeframe string
		tail      int
	)
	cmd := &cobra.Command{
		Use:   "show SYMBOL",
		Short: "Print a stored series with RSI, MACD, EMA and SMA overlays",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tf, err := model.ParseTimeframe(timeframe)
			if err != nil {
				return err
			}
			cfg := ro.cfg
			blob, closer, err := newBlob(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("init storage: %w", err)
			}
			defer closer.Close()

			ss := store.NewSeriesStore(blob, cfg.Storage.Prefix)
			symbol := symbols.Normalize(args[0])
			series, err := ss.ReadSeries(cmd.Context(), symbol, tf)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no %s series stored for %s (%s)", tf, symbol, ss.Key(symbol, tf))
			}
			if err != nil {
				return err
			}
			return printOverlay(cmd.OutOrStdout(), series, tail)
		},
	}
	cmd.Flags().StringVarP(&timeframe, "timeframe", "t", "daily", "hourly, daily or weekly")
	cmd.Flags().IntVarP(&tail, "tail", "n", 10, "number of most recent bars to print")
	return cmd
}

func printOverlay(w io.Writer, series *model.Series, tail int) error {
	if len(series.Bars) == 0 {
		fmt.Fprintf(w, "%s %s: empty series\n", series.Symbol, series.Timeframe)
		return nil
	}
	ov, err := calculator.ComputeOverlay(series)
	if err != nil {
		return err
	}

	start := 0
	if tail > 0 && tail < len(series.Bars) {
		start = len(series.Bars) - tail
	}
	layout := "2006-01-02"
	if series.Timeframe.Intraday() {
		layout = "2006-01-02 15:04"
	}

	fmt.Fprintf(w, "%s %s, %d bars\n", series.Symbol, series.Timeframe, len(series.Bars))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Datetime\tClose\tRSI14\tMACD\tSignal\tEMA50\tSMA200\t")
	for i := start; i < len(series.Bars); i++ {
		b := series.Bars[i]
		fmt.Fprintf(tw, "%s\t%.2f\t%s\t%s\t%s\t%s\t%s\t\n",
			b.Time.Format(layout), b.Close,
			num(ov.RSI[i]), num(ov.MACD[i]), num(ov.Signal[i]), num(ov.EMA[i]), num(ov.SMA[i]))
	}
	return tw.Flush()
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}
