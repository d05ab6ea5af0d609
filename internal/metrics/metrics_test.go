package metrics

import (
	"net/http/httptest"
	"testing"

	"scsync/internal/diag"
)

func TestObserveAnomaliesDoesNotPanic(t *testing.T) {
	m := &Metrics{AnomaliesTotal: NewMetrics().AnomaliesTotal}
	m.ObserveAnomalies(diag.Counts{diag.UnresolvedTrade: 3, diag.BucketOverflow: 1})
}

func TestHealthStatusServeHTTPDegradedWhenDependenciesDown(t *testing.T) {
	h := NewHealthStatus()
	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != 503 {
		t.Fatalf("want 503 when no dependency has reported healthy, got %d", rec.Code)
	}
}

func TestHealthStatusServeHTTPHealthy(t *testing.T) {
	h := NewHealthStatus()
	h.SetRedisConnected(true)
	h.SetSQLiteOK(true)
	h.SetLedgerOK(true)

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("want 200 when all dependencies healthy, got %d", rec.Code)
	}
}
