// Package diag implements the diagnostics-sink collaborator: anomaly
// records emitted by the Book and the synchronizer are counted, bucketed
// by kind, and handed to whatever sink the caller wired in. Nothing in
// this package halts processing — every anomaly here is non-fatal by
// definition.
package diag

import "sync"

// Kind identifies one of the non-fatal anomaly categories a run can
// encounter.
type Kind string

const (
	AddOverExisting     Kind = "AddOverExisting"
	ModifyMissing       Kind = "ModifyMissing"
	DeleteMissing       Kind = "DeleteMissing"
	NegativeOrZeroQty   Kind = "NegativeOrZeroQuantity"
	UnresolvedTrade     Kind = "UnresolvedTrade"
	OrphanTradeBucket   Kind = "OrphanTradeBucket"
	BucketOverflow      Kind = "BucketOverflow"
	CrossedBook         Kind = "CrossedBook"
)

// Anomaly is one occurrence of a non-fatal condition, timestamped for
// diagnostics purposes only — it never affects ordering or output.
type Anomaly struct {
	Kind      Kind
	NsAt      int64
	Detail    string
}

// Sink receives anomalies as they occur.
type Sink interface {
	Observe(a Anomaly)
}

// Counts is a point-in-time snapshot of anomaly totals by kind.
type Counts map[Kind]int

// MemorySink accumulates anomalies in memory and exposes running totals.
// Used by the verifier and by tests that need to assert exact counts.
type MemorySink struct {
	mu      sync.Mutex
	counts  Counts
	entries []Anomaly
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{counts: make(Counts)}
}

func (m *MemorySink) Observe(a Anomaly) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[a.Kind]++
	m.entries = append(m.entries, a)
}

// Snapshot returns a copy of the running per-kind totals.
func (m *MemorySink) Snapshot() Counts {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(Counts, len(m.counts))
	for k, v := range m.counts {
		out[k] = v
	}
	return out
}

// Entries returns a copy of every anomaly observed so far, in order.
func (m *MemorySink) Entries() []Anomaly {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Anomaly, len(m.entries))
	copy(out, m.entries)
	return out
}

// Total returns the number of anomalies observed across all kinds.
func (m *MemorySink) Total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, v := range m.counts {
		n += v
	}
	return n
}

// MultiSink fans a single Observe call out to every wrapped sink, letting
// a run feed both a MemorySink (for the manifest) and a LoggingSink (for
// operators) without the producer knowing about either.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink combines sinks into one.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Observe(a Anomaly) {
	for _, s := range m.sinks {
		s.Observe(a)
	}
}
