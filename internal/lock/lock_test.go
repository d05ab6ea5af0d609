package lock

import "testing"

func TestKeyNaming(t *testing.T) {
	got := key("ESZ6", "2026-03-05")
	want := "scsync:lock:ESZ6:2026-03-05"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestKeyDistinctPerDay(t *testing.T) {
	a := key("ESZ6", "2026-03-05")
	b := key("ESZ6", "2026-03-06")
	if a == b {
		t.Fatalf("want distinct keys for distinct days, got %q for both", a)
	}
}
