package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	c := Load()
	if c.DataDir == "" || c.SQLitePath == "" || c.LedgerPath == "" {
		t.Fatalf("expected non-empty defaults, got %+v", c)
	}
	if c.AnomalyThreshold != 1000 {
		t.Fatalf("want default anomaly threshold 1000, got %d", c.AnomalyThreshold)
	}
}

func TestLoadOverridesFromEnv(t *testing.T) {
	t.Setenv("SCSYNC_DATA_DIR", "/tmp/scdata")
	t.Setenv("SCSYNC_ANOMALY_THRESHOLD", "42")

	c := Load()
	if c.DataDir != "/tmp/scdata" {
		t.Fatalf("want overridden data dir, got %q", c.DataDir)
	}
	if c.AnomalyThreshold != 42 {
		t.Fatalf("want overridden threshold 42, got %d", c.AnomalyThreshold)
	}
}

func TestLoadInvalidIntFallsBackToDefault(t *testing.T) {
	t.Setenv("SCSYNC_ANOMALY_THRESHOLD", "not-a-number")
	c := Load()
	if c.AnomalyThreshold != 1000 {
		t.Fatalf("want fallback threshold 1000 on invalid input, got %d", c.AnomalyThreshold)
	}
}
