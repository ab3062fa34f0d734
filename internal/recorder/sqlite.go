package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"StockFeed/internal/model"
)

// SQLiteRecorder persists batch runs to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets `show`/dashboards read while a batch writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Info("sqlite recorder opened", "path", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS batch_runs (
			run_id      TEXT PRIMARY KEY,
			timeframe   TEXT NOT NULL,
			source      TEXT,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			created     INTEGER,
			updated     INTEGER,
			no_new_data INTEGER,
			failed      INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_batch_started ON batch_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS symbol_results (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id   TEXT NOT NULL REFERENCES batch_runs(run_id),
			symbol   TEXT NOT NULL,
			outcome  TEXT NOT NULL,
			added    INTEGER,
			revised  INTEGER,
			total    INTEGER,
			error    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_symbol_results_run ON symbol_results(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_symbol_results_symbol ON symbol_results(symbol)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordBatch stores a summary and its per-symbol lines in one transaction.
func (r *SQLiteRecorder) RecordBatch(ctx context.Context, sum *model.BatchSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO batch_runs
		(run_id, timeframe, source, started_at, finished_at, created, updated, no_new_data, failed)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		sum.RunID, string(sum.Timeframe), sum.Source,
		sum.StartedAt.Unix(), sum.FinishedAt.Unix(),
		sum.Count(model.OutcomeCreated), sum.Count(model.OutcomeUpdated),
		sum.Count(model.OutcomeNoNewData), sum.Count(model.OutcomeFailed),
	)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO symbol_results
		(run_id, symbol, outcome, added, revised, total, error)
		VALUES (?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, res := range sum.Results {
		var errText sql.NullString
		if res.Err != nil {
			errText = sql.NullString{String: res.Err.Error(), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, sum.RunID, res.Symbol, string(res.Outcome),
			res.Added, res.Revised, res.Total, errText); err != nil {
			return fmt.Errorf("insert result %s: %w", res.Symbol, err)
		}
	}
	return tx.Commit()
}

// RecentRuns returns the latest runs, newest first.
func (r *SQLiteRecorder) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `SELECT run_id, timeframe, source, started_at, finished_at,
		created, updated, no_new_data, failed
		FROM batch_runs ORDER BY started_at DESC, run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			rec             RunRecord
			tf              string
			started, finish int64
		)
		if err := rows.Scan(&rec.RunID, &tf, &rec.Source, &started, &finish,
			&rec.Created, &rec.Updated, &rec.NoNewData, &rec.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.Timeframe = model.Timeframe(tf)
		rec.StartedAt = time.Unix(started, 0).UTC()
		rec.FinishedAt = time.Unix(finish, 0).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// FailedSymbols returns symbols that failed in a run with their error text.
func (r *SQLiteRecorder) FailedSymbols(ctx context.Context, runID string) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT symbol, COALESCE(error, '') FROM symbol_results
		WHERE run_id = ? AND outcome = ?`, runID, string(model.OutcomeFailed))
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var sym, msg string
		if err := rows.Scan(&sym, &msg); err != nil {
			return nil, err
		}
		out[sym] = msg
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	slog.Info("closing sqlite recorder")
	return r.db.Close()
}
