package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"StockFeed/internal/model"
)

// Metrics holds the Prometheus collectors for batch runs.
type Metrics struct {
	registry *prometheus.Registry

	BatchesTotal   *prometheus.CounterVec   // labels: timeframe
	SymbolOutcomes *prometheus.CounterVec   // labels: timeframe, outcome
	BarsAdded      *prometheus.CounterVec   // labels: timeframe
	BarsRevised    *prometheus.CounterVec   // labels: timeframe
	BatchDuration  *prometheus.HistogramVec // labels: timeframe
	LastSuccess    *prometheus.GaugeVec     // labels: timeframe, unix seconds

	mu   sync.RWMutex
	last map[model.Timeframe]*model.BatchSummary
}

// NewMetrics creates the collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		BatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockfeed_batches_total",
			Help: "Total batch runs by timeframe",
		}, []string{"timeframe"}),
		SymbolOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockfeed_symbol_outcomes_total",
			Help: "Per-symbol merge outcomes",
		}, []string{"timeframe", "outcome"}),
		BarsAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockfeed_bars_added_total",
			Help: "Bars appended to stored series",
		}, []string{"timeframe"}),
		BarsRevised: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockfeed_bars_revised_total",
			Help: "Stored bars replaced by re-fetched values",
		}, []string{"timeframe"}),
		BatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stockfeed_batch_duration_seconds",
			Help:    "Wall time of one batch",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800},
		}, []string{"timeframe"}),
		LastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stockfeed_last_batch_finished_timestamp_seconds",
			Help: "Finish time of the latest batch by timeframe",
		}, []string{"timeframe"}),
		last: make(map[model.Timeframe]*model.BatchSummary),
	}

	m.registry.MustRegister(
		m.BatchesTotal,
		m.SymbolOutcomes,
		m.BarsAdded,
		m.BarsRevised,
		m.BatchDuration,
		m.LastSuccess,
	)
	return m
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Observe records one finished batch.
func (m *Metrics) Observe(sum *model.BatchSummary) {
	if sum == nil {
		return
	}
	tf := string(sum.Timeframe)
	m.BatchesTotal.WithLabelValues(tf).Inc()
	m.BatchDuration.WithLabelValues(tf).Observe(sum.Duration().Seconds())
	m.LastSuccess.WithLabelValues(tf).Set(float64(sum.FinishedAt.Unix()))

	var added, revised int
	for _, r := range sum.Results {
		m.SymbolOutcomes.WithLabelValues(tf, string(r.Outcome)).Inc()
		added += r.Added
		revised += r.Revised
	}
	m.BarsAdded.WithLabelValues(tf).Add(float64(added))
	m.BarsRevised.WithLabelValues(tf).Add(float64(revised))

	m.mu.Lock()
	m.last[sum.Timeframe] = sum
	m.mu.Unlock()
}

// Handler returns the /metrics handler for the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

type batchStatus struct {
	RunID      string `json:"run_id"`
	FinishedAt string `json:"finished_at"`
	Symbols    int    `json:"symbols"`
	Failed     int    `json:"failed"`
}

// ServeHTTP handles the /healthz endpoint with the latest batch per timeframe.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	m.mu.RLock()
	batches := make(map[string]batchStatus, len(m.last))
	for tf, sum := range m.last {
		batches[string(tf)] = batchStatus{
			RunID:      sum.RunID,
			FinishedAt: sum.FinishedAt.Format(time.RFC3339),
			Symbols:    len(sum.Results),
			Failed:     sum.Count(model.OutcomeFailed),
		}
	}
	m.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Status  string                 `json:"status"`
		Batches map[string]batchStatus `json:"batches"`
	}{Status: "ok", Batches: batches})
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	srv *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, m *Metrics) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/healthz", m)

	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Start serves in the background until Shutdown.
func (s *Server) Start() {
	go func() {
		slog.Info("metrics server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "err", err)
		}
	}()
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
