// Package book maintains an in-memory, price-indexed order book by
// applying DEPTH batches, and exposes best-bid/best-ask at any moment.
package book

import (
	"fmt"
	"sort"

	"scsync/internal/depth"
	"scsync/internal/diag"
)

// Level is one price level's aggregate order count and quantity.
type Level struct {
	NumOrders uint16
	Quantity  uint32
}

// PriceLevel pairs a price with its Level, used by Snapshot.
type PriceLevel struct {
	Price float32
	Level
}

// Book is a pair of price-keyed maps (bids, asks). Bids order by
// descending price, asks by ascending price; best-bid = max bid price,
// best-ask = min ask price.
type Book struct {
	bids map[PriceKey]Level
	asks map[PriceKey]Level
	sink diag.Sink
}

// New creates an empty Book. sink may be nil, in which case anomalies
// are silently dropped (useful for scratch clones used only for
// trade-to-batch match scoring).
func New(sink diag.Sink) *Book {
	if sink == nil {
		sink = noopSink{}
	}
	return &Book{
		bids: make(map[PriceKey]Level),
		asks: make(map[PriceKey]Level),
		sink: sink,
	}
}

type noopSink struct{}

func (noopSink) Observe(diag.Anomaly) {}

// Clone returns a deep copy of the book sharing no state with the
// original, used by the synchronizer to speculatively apply candidate
// batches during trade-to-batch resolution without mutating the running
// book. The clone's anomalies are dropped (nil sink) since speculative
// application is not the run of record.
func (b *Book) Clone() *Book {
	clone := New(nil)
	for k, v := range b.bids {
		clone.bids[k] = v
	}
	for k, v := range b.asks {
		clone.asks[k] = v
	}
	return clone
}

// Clear empties both sides.
func (b *Book) Clear() {
	b.bids = make(map[PriceKey]Level)
	b.asks = make(map[PriceKey]Level)
}

// ApplyBatch applies every record in a batch in order.
func (b *Book) ApplyBatch(batch depth.Batch) {
	for _, rec := range batch.Records {
		b.Apply(rec)
	}
}

// Apply dispatches one record on its command: add, modify, delete, or
// clear the entire book.
func (b *Book) Apply(rec depth.Record) {
	if rec.Command == depth.ClearBook {
		b.Clear()
		return
	}

	side := rec.Command.Side()
	m := b.sideMap(side)
	key := NewPriceKey(rec.Price)

	switch {
	case rec.Command == depth.AddBidLevel || rec.Command == depth.AddAskLevel:
		if _, exists := m[key]; exists {
			b.sink.Observe(diag.Anomaly{Kind: diag.AddOverExisting, NsAt: 0, Detail: sideName(side)})
		}
		b.setLevel(m, key, rec)

	case rec.Command == depth.ModifyBidLevel || rec.Command == depth.ModifyAskLevel:
		if _, exists := m[key]; !exists {
			b.sink.Observe(diag.Anomaly{Kind: diag.ModifyMissing, NsAt: 0, Detail: sideName(side)})
		}
		b.setLevel(m, key, rec)

	case rec.Command == depth.DeleteBidLevel || rec.Command == depth.DeleteAskLevel:
		if _, exists := m[key]; !exists {
			b.sink.Observe(diag.Anomaly{Kind: diag.DeleteMissing, NsAt: 0, Detail: sideName(side)})
			return
		}
		delete(m, key)
	}

	if b.Crossed() {
		bidPrice, _, _ := b.BestBid()
		askPrice, _, _ := b.BestAsk()
		b.sink.Observe(diag.Anomaly{Kind: diag.CrossedBook, NsAt: 0, Detail: fmt.Sprintf("bid=%.2f ask=%.2f", bidPrice, askPrice)})
	}
}

func (b *Book) setLevel(m map[PriceKey]Level, key PriceKey, rec depth.Record) {
	if rec.Quantity == 0 {
		b.sink.Observe(diag.Anomaly{Kind: diag.NegativeOrZeroQty, NsAt: 0, Detail: sideName(rec.Command.Side())})
	}
	m[key] = Level{NumOrders: rec.NumOrders, Quantity: rec.Quantity}
}

func (b *Book) sideMap(side depth.Side) map[PriceKey]Level {
	if side == depth.Bid {
		return b.bids
	}
	return b.asks
}

func sideName(side depth.Side) string {
	if side == depth.Bid {
		return "bid"
	}
	return "ask"
}

// BestBid returns the highest bid price and its level, if any bids exist.
func (b *Book) BestBid() (price float32, level Level, ok bool) {
	return bestOf(b.bids, true)
}

// BestAsk returns the lowest ask price and its level, if any asks exist.
func (b *Book) BestAsk() (price float32, level Level, ok bool) {
	return bestOf(b.asks, false)
}

func bestOf(m map[PriceKey]Level, wantMax bool) (float32, Level, bool) {
	if len(m) == 0 {
		return 0, Level{}, false
	}
	var best PriceKey
	first := true
	for k := range m {
		if first || (wantMax && k > best) || (!wantMax && k < best) {
			best = k
			first = false
		}
	}
	return best.Price(), m[best], true
}

// DepthOfBid returns the quantity and order count at a bid price.
func (b *Book) DepthOfBid(price float32) (Level, bool) {
	l, ok := b.bids[NewPriceKey(price)]
	return l, ok
}

// DepthOfAsk returns the quantity and order count at an ask price.
func (b *Book) DepthOfAsk(price float32) (Level, bool) {
	l, ok := b.asks[NewPriceKey(price)]
	return l, ok
}

// Crossed reports whether best-bid >= best-ask while both sides are
// non-empty, the condition that triggers a CrossedBook anomaly.
func (b *Book) Crossed() bool {
	bidPrice, _, bidOK := b.BestBid()
	askPrice, _, askOK := b.BestAsk()
	if !bidOK || !askOK {
		return false
	}
	return bidPrice >= askPrice
}

// Snapshot returns both sides, bids sorted descending and asks ascending
// by price.
func (b *Book) Snapshot() (bids, asks []PriceLevel) {
	bids = snapshotSide(b.bids, true)
	asks = snapshotSide(b.asks, false)
	return
}

func snapshotSide(m map[PriceKey]Level, descending bool) []PriceLevel {
	keys := make([]PriceKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if descending {
			return keys[i] > keys[j]
		}
		return keys[i] < keys[j]
	})
	out := make([]PriceLevel, len(keys))
	for i, k := range keys {
		out[i] = PriceLevel{Price: k.Price(), Level: m[k]}
	}
	return out
}
