package recorder

import (
	"context"
	"time"

	"StockFeed/internal/model"
)

// RunRecord is one stored batch run.
type RunRecord struct {
	RunID      string
	Timeframe  model.Timeframe
	Source     string
	StartedAt  time.Time
	FinishedAt time.Time
	Created    int
	Updated    int
	NoNewData  int
	Failed     int
}

// Recorder persists batch history for later inspection.
type Recorder interface {
	RecordBatch(ctx context.Context, sum *model.BatchSummary) error
	RecentRuns(ctx context.Context, limit int) ([]RunRecord, error)
	Close() error
}
