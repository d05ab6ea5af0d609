package syncer

import (
	"scsync/internal/book"
	"scsync/internal/depth"
	"scsync/internal/diag"
	"scsync/internal/trades"
)

// resolution pairs a trade with the batch index (within its bucket) it
// attaches to.
type resolution struct {
	item      tradeItem
	batchIdx  int
	unresolved bool
}

// resolveBucket decides which depth batch, if any, each attachable
// trade in this bucket belongs to. runningBook is the Book state as of
// the start of this bucket; it is
// cloned for speculative scoring and never mutated here — the caller
// applies the real batches afterward, in order, once resolution and BBO
// bookkeeping for this bucket are fully planned.
func resolveBucket(b *bucket, runningBook *book.Book, sink diag.Sink) []resolution {
	attachable := make([]tradeItem, 0, len(b.trades))
	for _, it := range b.trades {
		if isAttachable(it.rec.Kind) {
			attachable = append(attachable, it)
		}
	}

	results := make([]resolution, 0, len(attachable))

	switch {
	case len(b.batches) == 0:
		// The caller synthesizes an empty batch for a trade-only bucket
		// before calling resolveBucket; this branch should not occur.
		for _, it := range attachable {
			results = append(results, resolution{item: it, batchIdx: 0, unresolved: true})
		}
		return results

	case len(b.batches) == 1:
		for _, it := range attachable {
			results = append(results, resolution{item: it, batchIdx: 0})
		}
		return results
	}

	// Multiple batches: walk them in order, accumulating book state, and
	// score each candidate against every attachable trade in file order.
	clone := runningBook.Clone()
	afterState := make([]*book.Book, len(b.batches))
	beforeState := make([]*book.Book, len(b.batches))
	for i, batch := range b.batches {
		beforeState[i] = clone.Clone()
		clone.ApplyBatch(batch)
		afterState[i] = clone.Clone()
	}

	// Rule 3: once a batch is claimed by a trade, later trades in the
	// same bucket skip it even if it otherwise scores as an exact match.
	consumed := make(map[int]bool, len(b.batches))
	for _, it := range attachable {
		matchIdx, ok := scoreTrade(it.rec, b.batches, beforeState, afterState, consumed)
		if ok {
			consumed[matchIdx] = true
			results = append(results, resolution{item: it, batchIdx: matchIdx})
			continue
		}

		// Rule 4: bracket fallback, then last-batch fallback with anomaly.
		if idx, ok := bracketMatch(it.rec, afterState); ok {
			results = append(results, resolution{item: it, batchIdx: idx})
			continue
		}
		results = append(results, resolution{item: it, batchIdx: len(b.batches) - 1, unresolved: true})
	}
	return results
}

// scoreTrade finds the earliest unconsumed batch whose net quantity
// change at the trade's inferred side/price exactly matches the trade's
// reported volume and whose modification count at that price matches
// the trade's reported num_trades.
func scoreTrade(rec trades.Record, batches []depth.Batch, before, after []*book.Book, consumed map[int]bool) (int, bool) {
	side, price, ok := inferredSide(rec)
	if !ok {
		return 0, false
	}

	for i := range batches {
		if consumed[i] {
			continue
		}
		netChange, touches := netQuantityChange(before[i], after[i], side, price)
		if !touches {
			continue
		}
		if netChange == int64(rec.TotalVolume) && recordCountAtPrice(batches[i], side, price) == int(rec.NumTrades) {
			return i, true
		}
	}
	return 0, false
}

// inferredSide reads the SINGLE_TRADE convention (close==high => traded
// at the ask; close==low => traded at the bid) to decide which book side
// a trade's volume should be checked against. Sub-trades reuse the same
// convention when they carry the same fields.
func inferredSide(rec trades.Record) (depth.Side, float32, bool) {
	switch {
	case rec.Close == rec.High:
		return depth.Ask, rec.Close, true
	case rec.Close == rec.Low:
		return depth.Bid, rec.Close, true
	default:
		return depth.NoSide, 0, false
	}
}

func netQuantityChange(before, after *book.Book, side depth.Side, price float32) (int64, bool) {
	var beforeLevel, afterLevel book.Level
	var beforeOK, afterOK bool
	if side == depth.Bid {
		beforeLevel, beforeOK = before.DepthOfBid(price)
		afterLevel, afterOK = after.DepthOfBid(price)
	} else {
		beforeLevel, beforeOK = before.DepthOfAsk(price)
		afterLevel, afterOK = after.DepthOfAsk(price)
	}
	if !beforeOK && !afterOK {
		return 0, false
	}
	return int64(beforeLevel.Quantity) - int64(afterLevel.Quantity), true
}

// recordCountAtPrice counts the add/modify/delete records on side at
// price within batch, for comparison against a trade's num_trades.
func recordCountAtPrice(batch depth.Batch, side depth.Side, price float32) int {
	n := 0
	for _, rec := range batch.Records {
		if rec.Command.Side() != side {
			continue
		}
		if rec.Price == price {
			n++
		}
	}
	return n
}

// bracketMatch is the fallback when no batch's net quantity change
// exactly matches the trade volume: the first batch, in bucket order,
// whose best-bid/best-ask (after full application) bracket the trade
// price.
func bracketMatch(rec trades.Record, after []*book.Book) (int, bool) {
	for i, snap := range after {
		bidPrice, _, bidOK := snap.BestBid()
		askPrice, _, askOK := snap.BestAsk()
		if !bidOK || !askOK {
			continue
		}
		if bidPrice <= rec.Close && rec.Close <= askPrice {
			return i, true
		}
	}
	return 0, false
}
