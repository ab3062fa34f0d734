package model

import "time"

// Outcome classifies what a merge cycle did to one symbol's series.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeNoNewData Outcome = "no_new_data"
	OutcomeFailed    Outcome = "failed"
)

// Succeeded reports whether the series was written.
func (o Outcome) Succeeded() bool { return o == OutcomeCreated || o == OutcomeUpdated }

// SymbolResult is the per-symbol line of a batch summary.
type SymbolResult struct {
	Symbol  string
	Outcome Outcome
	Added   int // bars with a timestamp not stored before
	Revised int // stored bars replaced by fetched values
	Total   int // bars in the series after the cycle
	Err     error
}

// BatchSummary describes one run over a symbol list.
type BatchSummary struct {
	RunID      string
	Timeframe  Timeframe
	Source     string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []SymbolResult
}

// Count returns how many results have the given outcome.
func (b *BatchSummary) Count(o Outcome) int {
	n := 0
	for _, r := range b.Results {
		if r.Outcome == o {
			n++
		}
	}
	return n
}

// Symbols returns the symbols with the given outcome, in processing order.
func (b *BatchSummary) Symbols(o Outcome) []string {
	var out []string
	for _, r := range b.Results {
		if r.Outcome == o {
			out = append(out, r.Symbol)
		}
	}
	return out
}

// Failed returns the failed results.
func (b *BatchSummary) Failed() []SymbolResult {
	var out []SymbolResult
	for _, r := range b.Results {
		if r.Outcome == OutcomeFailed {
			out = append(out, r)
		}
	}
	return out
}

// Duration is the wall time of the batch.
func (b *BatchSummary) Duration() time.Duration {
	return b.FinishedAt.Sub(b.StartedAt)
}
