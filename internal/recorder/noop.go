package recorder

import (
	"context"

	"StockFeed/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordBatch(context.Context, *model.BatchSummary) error { return nil }
func (n *NoopRecorder) RecentRuns(context.Context, int) ([]RunRecord, error)  { return nil, nil }
func (n *NoopRecorder) Close() error                                          { return nil }
