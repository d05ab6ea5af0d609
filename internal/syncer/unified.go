package syncer

import (
	"scsync/internal/depth"
	"scsync/internal/diag"
	"scsync/internal/timeutil"
	"scsync/internal/trades"
)

// EventKind distinguishes the three kinds of point on the unified
// timeline.
type EventKind int

const (
	TradeEvent EventKind = iota
	DepthRecordEvent
	AggregateBarEvent
)

// UnifiedEvent is one emitted point on the internal nanosecond timeline.
// Exactly one of Trade / Depth is populated, matching Kind.
type UnifiedEvent struct {
	Ns    timeutil.Nanoseconds
	Kind  EventKind
	Trade trades.Record // valid when Kind is TradeEvent or AggregateBarEvent
	Depth depth.Record  // valid when Kind is DepthRecordEvent

	// BatchSeq/LastInBatch let splitEvents re-batch emitted records
	// with correct END_OF_BATCH placement.
	BatchSeq   int  // 0-based ordinal of the depth batch this record belongs to, across the whole run
	LastInBatch bool
}

// tickAssigner hands out strictly increasing sub-millisecond slots for
// one bucket, spilling into the next millisecond if it's empty and
// otherwise packing extra events deterministically past slot 999.
type tickAssigner struct {
	ms       timeutil.MillisecondIndex
	slot     int
	spillMs  timeutil.MillisecondIndex
	canSpill bool
	overflow bool
}

func newTickAssigner(ms timeutil.MillisecondIndex, nextMsEmpty bool) *tickAssigner {
	return &tickAssigner{ms: ms, canSpill: nextMsEmpty, spillMs: ms + 1}
}

// next returns the ns timestamp for the next event in this bucket.
func (t *tickAssigner) next(sink diag.Sink) timeutil.Nanoseconds {
	if t.slot <= 999 {
		ns := timeutil.Compose(t.ms, t.slot)
		t.slot++
		return ns
	}
	if t.canSpill {
		// Spill into the empty following millisecond, restarting the slot
		// count there — no anomaly, this is the documented non-overflow path.
		spillSlot := t.slot - 1000
		t.slot++
		return timeutil.Compose(t.spillMs, spillSlot)
	}
	if !t.overflow {
		t.overflow = true
		sink.Observe(diag.Anomaly{Kind: diag.BucketOverflow, NsAt: timeutil.NsOfMs(t.ms), Detail: "bucket exceeded 1000 slots"})
	}
	// Pack deterministically: wire timestamp will floor to microsecond 999
	// for every event past the 1000th (ns/1000 == ms*1000+999),
	// but the internal ns keeps climbing by whole nanoseconds so ordering
	// among these packed events, and against the rest of the timeline,
	// stays strictly increasing. First-come keeps the earliest ns.
	ns := timeutil.NsOfMs(t.ms) + 999*1000 + int64(t.slot-999)
	t.slot++
	return ns
}
