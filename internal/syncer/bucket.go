// Package syncer implements the pairing engine: it consumes decoded
// trades and depth batches in timestamp order, maintains the Book,
// resolves trades into batches at millisecond granularity, and emits an
// ordered stream of unified events that two encoders split back into
// rewritten TRADES and DEPTH files.
package syncer

import (
	"scsync/internal/depth"
	"scsync/internal/timeutil"
	"scsync/internal/trades"
)

// tradeItem is a decoded TRADES record tagged with its original file
// order, since ties within a millisecond break on file order.
type tradeItem struct {
	rec   trades.Record
	index int // position in the original TRADES stream
}

// bucket holds every depth batch and trade whose timestamp falls in one
// millisecond.
type bucket struct {
	ms      timeutil.MillisecondIndex
	batches []depth.Batch
	trades  []tradeItem
}

func (b *bucket) empty() bool {
	return len(b.batches) == 0 && len(b.trades) == 0
}

// bucketize groups already timestamp-ordered trades and batches onto the
// millisecond grid, preserving each stream's original relative order.
// Both inputs must already be sorted by platform-microsecond timestamp;
// bucketize does not re-sort within a stream.
func bucketize(allBatches []depth.Batch, allTrades []trades.Record) []*bucket {
	buckets := make(map[timeutil.MillisecondIndex]*bucket)
	var order []timeutil.MillisecondIndex

	get := func(ms timeutil.MillisecondIndex) *bucket {
		if b, ok := buckets[ms]; ok {
			return b
		}
		b := &bucket{ms: ms}
		buckets[ms] = b
		order = append(order, ms)
		return b
	}

	for _, batch := range allBatches {
		ms := timeutil.MsOf(timeutil.FromPlatformUS(batch.PlatformUS))
		b := get(ms)
		b.batches = append(b.batches, batch)
	}
	for i, rec := range allTrades {
		ms := timeutil.MsOf(timeutil.FromPlatformUS(rec.PlatformUS))
		b := get(ms)
		b.trades = append(b.trades, tradeItem{rec: rec, index: i})
	}

	// Sort bucket keys ascending; ties can't occur since map keys are unique.
	sortMs(order)

	out := make([]*bucket, len(order))
	for i, ms := range order {
		out[i] = buckets[ms]
	}
	return out
}

func sortMs(xs []timeutil.MillisecondIndex) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j] < xs[j-1]; j-- {
			xs[j], xs[j-1] = xs[j-1], xs[j]
		}
	}
}

// isAttachable reports whether a trade kind participates in batch
// resolution and BBO overwrite. AGGREGATED bars pass through untouched.
func isAttachable(k trades.Kind) bool {
	switch k {
	case trades.SingleTrade, trades.FirstSubTrade, trades.LastSubTrade:
		return true
	default:
		return false
	}
}

// needsBBOOverwrite reports whether the trade's high/low get replaced
// with the post-batch best-ask/best-bid.
func needsBBOOverwrite(k trades.Kind) bool {
	return k == trades.SingleTrade || k == trades.FirstSubTrade
}
