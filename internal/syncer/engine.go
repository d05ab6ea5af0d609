package syncer

import (
	"fmt"
	"io"
	"sort"

	"scsync/internal/book"
	"scsync/internal/depth"
	"scsync/internal/diag"
	"scsync/internal/timeutil"
	"scsync/internal/trades"
)

// Input bundles the two raw input streams and the day-boundary check
// used to validate DEPTH timestamps.
type Input struct {
	TradesReader io.Reader
	DepthReader  io.Reader

	// DayStartUS/DayEndUS are platform-microsecond bounds [start, end);
	// any DEPTH record outside this range fails the run.
	DayStartUS, DayEndUS uint64
}

// Output holds the fully rewritten streams, ready for the encoders.
type Output struct {
	TradesHeader  trades.Header
	TradesRecords []trades.Record
	DepthHeader   depth.Header
	DepthBatches  []depth.Batch
	Events        []UnifiedEvent
}

// Run executes the full synchronizer state machine: Init, Streaming,
// Draining, Done. It returns the rewritten output (possibly partial),
// a Result summarizing the outcome, and a non-nil error only for a
// Failed run.
func Run(in Input, sink diag.Sink) (Output, Result, error) {
	state := Init

	depthHeader, batches, depthTruncated, err := decodeDepthTolerant(in.DepthReader)
	if err != nil {
		return Output{}, Result{Status: Failed, Reason: err.Error()}, err
	}
	for _, b := range batches {
		if b.PlatformUS < in.DayStartUS || b.PlatformUS >= in.DayEndUS {
			reason := fmt.Sprintf("depth record at platform_us=%d outside day bounds [%d, %d)", b.PlatformUS, in.DayStartUS, in.DayEndUS)
			return Output{}, Result{Status: Failed, Reason: reason}, errDepthOutOfRange
		}
	}

	tradesHeader, tradeRecords, tradesTruncated, err := decodeTradesTolerant(in.TradesReader)
	if err != nil {
		return Output{}, Result{Status: Failed, Reason: err.Error()}, err
	}

	state = Streaming

	depthRecordIn := 0
	for _, b := range batches {
		depthRecordIn += len(b.Records)
	}

	buckets := bucketize(batches, tradeRecords)
	msSet := make(map[timeutil.MillisecondIndex]bool, len(buckets))
	for _, b := range buckets {
		msSet[b.ms] = true
	}

	runningBook := book.New(sink)
	var events []UnifiedEvent
	batchSeq := 0
	depthBatchCount := 0

	for _, b := range buckets {
		bucketBatches := b.batches
		if len(bucketBatches) == 0 && len(b.trades) > 0 {
			sink.Observe(diag.Anomaly{Kind: diag.OrphanTradeBucket, NsAt: timeutil.NsOfMs(b.ms), Detail: "no depth batch in bucket"})
			bucketBatches = []depth.Batch{{PlatformUS: timeutil.ToPlatformUS(timeutil.NsOfMs(b.ms))}}
		}
		if len(bucketBatches) == 0 {
			continue
		}

		bookAtBucketStart := runningBook.Clone()
		resByBatch := groupResolutions(resolveBucket(&bucket{ms: b.ms, batches: bucketBatches, trades: b.trades}, bookAtBucketStart, sink), len(bucketBatches))

		nextMsEmpty := !msSet[b.ms+1]
		ticks := newTickAssigner(b.ms, nextMsEmpty)

		for bi, batch := range bucketBatches {
			isReal := len(batch.Records) > 0
			for _, rec := range batch.Records {
				ns := ticks.next(sink)
				rec.PlatformUS = timeutil.ToPlatformUS(ns)
				runningBook.Apply(rec)
				events = append(events, UnifiedEvent{Ns: ns, Kind: DepthRecordEvent, Depth: rec, BatchSeq: batchSeq})
			}
			if isReal {
				lastIdx := len(events) - 1
				if lastIdx >= 0 {
					events[lastIdx].LastInBatch = true
				}
				bestAsk, _, _ := runningBook.BestAsk()
				bestBid, _, _ := runningBook.BestBid()
				ns := ticks.next(sink)
				injected := trades.NewDepthInjectedRecord(timeutil.ToPlatformUS(ns), bestAsk, bestBid)
				events = append(events, UnifiedEvent{Ns: ns, Kind: TradeEvent, Trade: injected})
				depthBatchCount++
			}

			for _, res := range resByBatch[bi] {
				rec := res.item.rec
				if needsBBOOverwrite(rec.Kind) {
					bestAsk, _, _ := runningBook.BestAsk()
					bestBid, _, _ := runningBook.BestBid()
					rec.High = bestAsk
					rec.Low = bestBid
				}
				if res.unresolved {
					sink.Observe(diag.Anomaly{Kind: diag.UnresolvedTrade, NsAt: timeutil.NsOfMs(b.ms), Detail: "no volume match in bucket"})
				}
				ns := ticks.next(sink)
				rec.PlatformUS = timeutil.ToPlatformUS(ns)
				events = append(events, UnifiedEvent{Ns: ns, Kind: TradeEvent, Trade: rec})
			}
			batchSeq++
		}

		for _, it := range b.trades {
			if isAttachable(it.rec.Kind) {
				continue
			}
			rec := it.rec
			ns := ticks.next(sink)
			rec.PlatformUS = timeutil.ToPlatformUS(ns)
			events = append(events, UnifiedEvent{Ns: ns, Kind: AggregateBarEvent, Trade: rec})
		}
	}

	depthOut, tradesOut := splitEvents(events)

	out := Output{
		TradesHeader:  tradesHeader,
		TradesRecords: tradesOut,
		DepthHeader:   depthHeader,
		DepthBatches:  depthOut,
		Events:        events,
	}

	result := Result{
		TradeIn:         len(tradeRecords),
		TradeOut:        len(tradesOut),
		DepthRecordIn:   depthRecordIn,
		DepthRecordOut:  countDepthRecords(depthOut),
		DepthBatchCount: depthBatchCount,
		BucketCount:     len(buckets),
	}
	if ms, ok := sink.(interface{ Snapshot() diag.Counts }); ok {
		result.Anomalies = ms.Snapshot()
	}

	state = Draining
	_ = state
	state = Done
	_ = state

	if depthTruncated || tradesTruncated {
		result.Status = PartiallyComplete
		result.Reason = "input truncated mid-record; run drained through the last complete bucket"
		return out, result, nil
	}

	result.Status = Complete
	return out, result, nil
}

var errDepthOutOfRange = fmt.Errorf("syncer: depth record outside declared day bounds")

func groupResolutions(res []resolution, numBatches int) [][]resolution {
	out := make([][]resolution, numBatches)
	for _, r := range res {
		out[r.batchIdx] = append(out[r.batchIdx], r)
	}
	for i := range out {
		sort.SliceStable(out[i], func(a, b int) bool {
			return out[i][a].item.index < out[i][b].item.index
		})
	}
	return out
}

// splitEvents splits the unified sequence back into rewritten DEPTH
// batches and rewritten TRADES records.
func splitEvents(events []UnifiedEvent) ([]depth.Batch, []trades.Record) {
	var depthOut []depth.Batch
	var tradesOut []trades.Record
	var current depth.Batch
	inBatch := false

	for _, ev := range events {
		switch ev.Kind {
		case DepthRecordEvent:
			if !inBatch {
				current = depth.Batch{PlatformUS: ev.Depth.PlatformUS}
				inBatch = true
			}
			current.Records = append(current.Records, ev.Depth)
			if ev.LastInBatch {
				depthOut = append(depthOut, current)
				inBatch = false
			}
		case TradeEvent, AggregateBarEvent:
			tradesOut = append(tradesOut, ev.Trade)
		}
	}
	if inBatch && len(current.Records) > 0 {
		depthOut = append(depthOut, current)
	}
	return depthOut, tradesOut
}

func countDepthRecords(batches []depth.Batch) int {
	n := 0
	for _, b := range batches {
		n += len(b.Records)
	}
	return n
}
