package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"scsync/internal/diag"
	"scsync/internal/syncer"
)

func TestSaveAndLoadRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "manifest.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	started := time.Now().Truncate(time.Second)
	rec := Record{
		Contract:  "ESZ6",
		TradeDate: "2026-03-05",
		Result: syncer.Result{
			Status:          syncer.Complete,
			TradeIn:         10,
			TradeOut:        12,
			DepthRecordIn:   40,
			DepthRecordOut:  40,
			DepthBatchCount: 2,
			Anomalies:       diag.Counts{diag.UnresolvedTrade: 1},
		},
		ManifestHash: "deadbeef",
		LastPrice:    4521.25,
		StartedAt:    started,
		FinishedAt:   started.Add(time.Second),
	}

	if err := store.SaveRun(rec); err != nil {
		t.Fatalf("save run: %v", err)
	}

	got, ok, err := store.LastRun("ESZ6", "2026-03-05")
	if err != nil {
		t.Fatalf("last run: %v", err)
	}
	if !ok {
		t.Fatalf("expected a run to be found")
	}
	if got.Result.TradeOut != 12 || got.Result.Status != syncer.Complete {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.LastPriceDisplay != "4521.25" {
		t.Fatalf("expected last_price display %q, got %q", "4521.25", got.LastPriceDisplay)
	}

	counts, err := store.AnomalyCountsFor("ESZ6", "2026-03-05", started)
	if err != nil {
		t.Fatalf("anomaly counts: %v", err)
	}
	if counts[diag.UnresolvedTrade] != 1 {
		t.Fatalf("want 1 UnresolvedTrade anomaly, got %d", counts[diag.UnresolvedTrade])
	}
}

func TestLastRunNoneFound(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "manifest.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	_, ok, err := store.LastRun("NOPE", "2026-01-01")
	if err != nil {
		t.Fatalf("last run: %v", err)
	}
	if ok {
		t.Fatalf("expected no run found")
	}
}
