package notify

import (
	"context"
	"errors"
	"testing"

	"scsync/internal/diag"
	"scsync/internal/syncer"
)

type fakeNotifier struct {
	err  error
	sent []Alert
}

func (f *fakeNotifier) Send(_ context.Context, a Alert) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, a)
	return nil
}

func TestForResultFailed(t *testing.T) {
	res := syncer.Result{Status: syncer.Failed, Reason: "boom"}
	alert, ok := ForResult("ESZ6", "2026-03-05", res, 1000)
	if !ok {
		t.Fatalf("want an alert for a Failed run")
	}
	if alert.Level != LevelCritical {
		t.Fatalf("want critical level, got %v", alert.Level)
	}
}

func TestForResultCompleteBelowThreshold(t *testing.T) {
	res := syncer.Result{Status: syncer.Complete, Anomalies: diag.Counts{diag.UnresolvedTrade: 3}}
	_, ok := ForResult("ESZ6", "2026-03-05", res, 1000)
	if ok {
		t.Fatalf("want no alert for a clean run below threshold")
	}
}

func TestForResultAnomalyThresholdExceeded(t *testing.T) {
	res := syncer.Result{Status: syncer.Complete, Anomalies: diag.Counts{diag.UnresolvedTrade: 5000}}
	alert, ok := ForResult("ESZ6", "2026-03-05", res, 1000)
	if !ok || alert.Level != LevelWarning {
		t.Fatalf("want warning alert above threshold, got ok=%v alert=%+v", ok, alert)
	}
}

func TestChainFallsThroughOnError(t *testing.T) {
	failing := &fakeNotifier{err: errors.New("down")}
	backup := &fakeNotifier{}
	chain := NewChain(failing, backup)

	if err := chain.Send(context.Background(), Alert{Title: "x"}); err != nil {
		t.Fatalf("want chain to succeed via backup, got %v", err)
	}
	if len(backup.sent) != 1 {
		t.Fatalf("want backup to receive the alert, got %d sends", len(backup.sent))
	}
}

func TestChainAllFail(t *testing.T) {
	chain := NewChain(&fakeNotifier{err: errors.New("a")}, &fakeNotifier{err: errors.New("b")})
	if err := chain.Send(context.Background(), Alert{Title: "x"}); err == nil {
		t.Fatalf("want error when every backend fails")
	}
}
