package verify

import (
	"bytes"
	"testing"

	"scsync/internal/depth"
	"scsync/internal/diag"
	"scsync/internal/syncer"
	"scsync/internal/timeutil"
	"scsync/internal/trades"
)

func runSyncer(t *testing.T, tr, dp *bytes.Buffer) syncer.Output {
	t.Helper()
	out, res, err := syncer.Run(syncer.Input{
		TradesReader: tr,
		DepthReader:  dp,
		DayStartUS:   0,
		DayEndUS:     1 << 62,
	}, diag.NewMemorySink())
	if err != nil {
		t.Fatalf("syncer run failed: %v (%s)", err, res.Reason)
	}
	return out
}

func encodeTrades(t *testing.T, recs ...trades.Record) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	enc, err := trades.NewEncoder(&buf, trades.Header{})
	if err != nil {
		t.Fatalf("new trades encoder: %v", err)
	}
	for _, r := range recs {
		if err := enc.WriteRecord(r); err != nil {
			t.Fatalf("write record: %v", err)
		}
	}
	return &buf
}

func encodeDepth(t *testing.T, batches ...depth.Batch) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	header := depth.Header{Magic: depth.Magic, HeaderSz: depth.HeaderSize, RecordSz: depth.RecordSize}
	enc, err := depth.NewEncoder(&buf, header)
	if err != nil {
		t.Fatalf("new depth encoder: %v", err)
	}
	for _, b := range batches {
		if err := enc.WriteBatch(b); err != nil {
			t.Fatalf("write batch: %v", err)
		}
	}
	return &buf
}

func TestVerifyPassesOnCleanRun(t *testing.T) {
	ns := timeutil.NsOfMs(10)
	us := timeutil.ToPlatformUS(ns)
	batch := depth.Batch{PlatformUS: us, Records: []depth.Record{
		{PlatformUS: us, Command: depth.AddBidLevel, NumOrders: 1, Price: 9.0, Quantity: 3},
		{PlatformUS: us, Command: depth.AddAskLevel, NumOrders: 1, Price: 10.0, Quantity: 7, Flags: depth.FlagEndOfBatch},
	}}
	trade := trades.Record{PlatformUS: us, Open: 0, High: 10.0, Low: 9.0, Close: 10.0, TotalVolume: 7, Kind: trades.SingleTrade}

	tr := encodeTrades(t, trade)
	dp := encodeDepth(t, batch)
	out := runSyncer(t, tr, dp)

	report := Verify(out, 1, 2)
	if !report.OK {
		t.Fatalf("expected clean report, got failures: %v", report.Failures)
	}
	if report.ManifestHash == 0 {
		t.Fatalf("expected non-zero manifest hash")
	}
}

func TestVerifyDeterministicHash(t *testing.T) {
	ns := timeutil.NsOfMs(20)
	us := timeutil.ToPlatformUS(ns)
	batch := depth.Batch{PlatformUS: us, Records: []depth.Record{
		{PlatformUS: us, Command: depth.AddBidLevel, NumOrders: 1, Price: 1.0, Quantity: 1, Flags: depth.FlagEndOfBatch},
	}}

	out1 := runSyncer(t, encodeTrades(t), encodeDepth(t, batch))
	out2 := runSyncer(t, encodeTrades(t), encodeDepth(t, batch))

	h1 := Verify(out1, 0, 1).ManifestHash
	h2 := Verify(out2, 0, 1).ManifestHash
	if h1 != h2 {
		t.Fatalf("expected identical manifest hash across identical runs, got %d != %d", h1, h2)
	}
}

func TestVerifyCatchesRecordCountMismatch(t *testing.T) {
	out := runSyncer(t, encodeTrades(t), encodeDepth(t))
	report := Verify(out, 5, 0) // wrong tradeIn on purpose
	if report.OK {
		t.Fatalf("expected failure for mismatched trade_in count")
	}
}

func TestVerifyOnDiskMatchesLiveRunCounts(t *testing.T) {
	ns := timeutil.NsOfMs(30)
	us := timeutil.ToPlatformUS(ns)
	batch := depth.Batch{PlatformUS: us, Records: []depth.Record{
		{PlatformUS: us, Command: depth.AddBidLevel, NumOrders: 1, Price: 9.0, Quantity: 3},
		{PlatformUS: us, Command: depth.AddAskLevel, NumOrders: 1, Price: 10.0, Quantity: 7, Flags: depth.FlagEndOfBatch},
	}}
	trade := trades.Record{PlatformUS: us, Open: 0, High: 10.0, Low: 9.0, Close: 10.0, TotalVolume: 7, Kind: trades.SingleTrade}

	out := runSyncer(t, encodeTrades(t, trade), encodeDepth(t, batch))

	report := VerifyOnDisk(out.TradesHeader, out.TradesRecords, out.DepthHeader, out.DepthBatches, 1, 2)
	if !report.OK {
		t.Fatalf("expected clean on-disk report, got failures: %v", report.Failures)
	}
	if report.ManifestHash == 0 {
		t.Fatalf("expected non-zero manifest hash")
	}
}

func TestVerifyOnDiskDeterministicAcrossRuns(t *testing.T) {
	ns := timeutil.NsOfMs(40)
	us := timeutil.ToPlatformUS(ns)
	batch := depth.Batch{PlatformUS: us, Records: []depth.Record{
		{PlatformUS: us, Command: depth.AddBidLevel, NumOrders: 1, Price: 2.0, Quantity: 4, Flags: depth.FlagEndOfBatch},
	}}

	out1 := runSyncer(t, encodeTrades(t), encodeDepth(t, batch))
	out2 := runSyncer(t, encodeTrades(t), encodeDepth(t, batch))

	h1 := VerifyOnDisk(out1.TradesHeader, out1.TradesRecords, out1.DepthHeader, out1.DepthBatches, 0, 1).ManifestHash
	h2 := VerifyOnDisk(out2.TradesHeader, out2.TradesRecords, out2.DepthHeader, out2.DepthBatches, 0, 1).ManifestHash
	if h1 != h2 {
		t.Fatalf("expected identical on-disk manifest hash across identical runs, got %d != %d", h1, h2)
	}
}
