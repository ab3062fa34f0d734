package notifier

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"StockFeed/internal/model"
)

// maxListed caps the symbols listed per section so messages stay under the
// Telegram 4096 character limit.
const maxListed = 20

// FormatBatchReport summarizes a batch for Telegram.
func FormatBatchReport(sum *model.BatchSummary) string {
	var b strings.Builder

	icon := "✅"
	if sum.Count(model.OutcomeFailed) > 0 {
		icon = "⚠️"
	}
	b.WriteString(fmt.Sprintf("%s <b>StockFeed %s update</b> | %s\n", icon, sum.Timeframe, sum.FinishedAt.UTC().Format("2006-01-02 15:04 MST")))
	b.WriteString(fmt.Sprintf("Run %s via %s, %d symbols in %s\n\n",
		sum.RunID, sum.Source, len(sum.Results), sum.Duration().Round(time.Second)))

	b.WriteString(fmt.Sprintf("Created: %d\nUpdated: %d\nNo new data: %d\nFailed: %d\n",
		sum.Count(model.OutcomeCreated), sum.Count(model.OutcomeUpdated),
		sum.Count(model.OutcomeNoNewData), sum.Count(model.OutcomeFailed)))

	failed := sum.Failed()
	if len(failed) > 0 {
		b.WriteString("\n<b>Failures:</b>\n")
		for i, r := range failed {
			if i == maxListed {
				b.WriteString(fmt.Sprintf("  … and %d more\n", len(failed)-maxListed))
				break
			}
			b.WriteString(fmt.Sprintf("  %s: %s\n", r.Symbol, html.EscapeString(errText(r.Err))))
		}
	}
	return b.String()
}

// FormatStatus lists the latest batch per timeframe.
func FormatStatus(last map[model.Timeframe]*model.BatchSummary, running bool) string {
	var b strings.Builder
	b.WriteString("📋 <b>StockFeed status</b>\n")
	if running {
		b.WriteString("A batch is running now.\n")
	}
	if len(last) == 0 {
		b.WriteString("No batch has run since start.\n")
		return b.String()
	}

	tfs := make([]model.Timeframe, 0, len(last))
	for tf := range last {
		tfs = append(tfs, tf)
	}
	sort.Slice(tfs, func(i, j int) bool { return tfs[i] < tfs[j] })
	for _, tf := range tfs {
		s := last[tf]
		b.WriteString(fmt.Sprintf("%s: %s, %d ok / %d no data / %d failed\n",
			tf, s.FinishedAt.UTC().Format("01-02 15:04"),
			s.Count(model.OutcomeCreated)+s.Count(model.OutcomeUpdated),
			s.Count(model.OutcomeNoNewData), s.Count(model.OutcomeFailed)))
	}
	return b.String()
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

// Policy selects which batches are reported.
type Policy string

const (
	NotifyFailures Policy = "failures"
	NotifyAlways   Policy = "always"
	NotifyNever    Policy = "never"
)

// BatchReporter sends batch reports according to a policy.
type BatchReporter struct {
	Notifier *TelegramNotifier
	Policy   Policy
	Retries  int
}

// HandleBatch sends the report when the policy asks for it.
func (r *BatchReporter) HandleBatch(ctx context.Context, sum *model.BatchSummary) error {
	switch r.Policy {
	case NotifyNever:
		return nil
	case NotifyFailures:
		if sum.Count(model.OutcomeFailed) == 0 {
			return nil
		}
	}
	return r.Notifier.SendWithRetry(ctx, FormatBatchReport(sum), r.Retries)
}
