// Package metrics exposes Prometheus counters/histograms/gauges for
// scsync runs: bucket throughput, anomaly counts by kind, record
// counts, and run duration, plus a /healthz endpoint for the operator
// HTTP surface.
package metrics

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"scsync/internal/diag"
)

// Metrics holds every Prometheus instrument a scsync run reports to.
type Metrics struct {
	BucketsProcessed  prometheus.Counter
	RecordsIn         *prometheus.CounterVec // labels: stream=trades|depth
	RecordsOut        *prometheus.CounterVec
	DepthBatchesTotal prometheus.Counter
	AnomaliesTotal    *prometheus.CounterVec // labels: kind
	RunDuration       prometheus.Histogram
	RunsTotal         *prometheus.CounterVec // labels: status
	LedgerHits        prometheus.Counter     // runs skipped because the ledger already marks Complete
	LockWaitDuration  prometheus.Histogram
}

// NewMetrics registers and returns every scsync instrument.
func NewMetrics() *Metrics {
	m := &Metrics{
		BucketsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scsync_buckets_processed_total",
			Help: "Millisecond buckets processed across all runs",
		}),
		RecordsIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scsync_records_in_total",
			Help: "Input records decoded, by stream",
		}, []string{"stream"}),
		RecordsOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scsync_records_out_total",
			Help: "Output records written, by stream",
		}, []string{"stream"}),
		DepthBatchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scsync_depth_batches_total",
			Help: "Depth batches processed across all runs",
		}),
		AnomaliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scsync_anomalies_total",
			Help: "Non-fatal anomalies observed, by kind",
		}, []string{"kind"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scsync_run_duration_seconds",
			Help:    "Wall-clock duration of one (contract, day) run",
			Buckets: prometheus.DefBuckets,
		}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scsync_runs_total",
			Help: "Runs completed, by outcome status",
		}, []string{"status"}),
		LedgerHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scsync_ledger_hits_total",
			Help: "Runs skipped because the ledger already marked the day complete",
		}),
		LockWaitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scsync_lock_wait_duration_seconds",
			Help:    "Time spent waiting to acquire the per-day distributed lock",
			Buckets: prometheus.DefBuckets,
		}),
	}

	prometheus.MustRegister(
		m.BucketsProcessed,
		m.RecordsIn,
		m.RecordsOut,
		m.DepthBatchesTotal,
		m.AnomaliesTotal,
		m.RunDuration,
		m.RunsTotal,
		m.LedgerHits,
		m.LockWaitDuration,
	)

	return m
}

// ObserveAnomalies folds a run's final anomaly counts into the
// per-kind counter.
func (m *Metrics) ObserveAnomalies(counts diag.Counts) {
	for kind, n := range counts {
		m.AnomaliesTotal.WithLabelValues(string(kind)).Add(float64(n))
	}
}

// HealthStatus tracks the liveness of scsync's dependencies for /healthz.
type HealthStatus struct {
	mu sync.RWMutex

	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	LedgerOK       bool      `json:"ledger_ok"`
	LastRunAt      time.Time `json:"last_run_at"`
	LastRunStatus  string    `json:"last_run_status"`
	StartedAt      time.Time `json:"started_at"`
}

// NewHealthStatus returns a health tracker stamped with the current time.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.SQLiteOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLedgerOK(v bool) {
	h.mu.Lock()
	h.LedgerOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) RecordRun(status string) {
	h.mu.Lock()
	h.LastRunAt = time.Now()
	h.LastRunStatus = status
	h.mu.Unlock()
}

func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	if !h.RedisConnected || !h.SQLiteOK || !h.LedgerOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	status := struct {
		Status         string `json:"status"`
		Uptime         string `json:"uptime"`
		RedisConnected bool   `json:"redis_connected"`
		SQLiteOK       bool   `json:"sqlite_ok"`
		LedgerOK       bool   `json:"ledger_ok"`
		LastRunAt      string `json:"last_run_at"`
		LastRunStatus  string `json:"last_run_status"`
	}{
		Status:         overallStatus,
		Uptime:         time.Since(h.StartedAt).Round(time.Second).String(),
		RedisConnected: h.RedisConnected,
		SQLiteOK:       h.SQLiteOK,
		LedgerOK:       h.LedgerOK,
		LastRunAt:      h.LastRunAt.Format(time.RFC3339),
		LastRunStatus:  h.LastRunStatus,
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer builds a metrics and health server bound to addr.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv:    &http.Server{Addr: addr, Handler: mux},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("metrics: server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("metrics: server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
