package depth

import (
	"bytes"
	"io"
	"testing"
)

func makeHeader() Header {
	var pad [48]byte
	for i := range pad {
		pad[i] = byte(i)
	}
	return Header{Magic: Magic, HeaderSz: HeaderSize, RecordSz: RecordSize, Word4: 7, Padding: pad}
}

func TestHeaderRoundTrip(t *testing.T) {
	h := makeHeader()
	raw := h.Raw()
	got := decodeHeader(raw)
	if got != h {
		t.Fatalf("header round trip mismatch: got %+v want %+v", got, h)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("expected valid header, got %v", err)
	}
}

func TestHeaderValidateRejectsBadFields(t *testing.T) {
	bad := makeHeader()
	bad.Magic = 0
	if err := bad.Validate(); err != ErrBadMagic {
		t.Errorf("expected ErrBadMagic, got %v", err)
	}

	bad = makeHeader()
	bad.HeaderSz = 32
	if err := bad.Validate(); err != ErrBadHeaderSize {
		t.Errorf("expected ErrBadHeaderSize, got %v", err)
	}

	bad = makeHeader()
	bad.RecordSz = 16
	if err := bad.Validate(); err != ErrBadRecordSize {
		t.Errorf("expected ErrBadRecordSize, got %v", err)
	}
}

func TestBatchRoundTripAndSnapshot(t *testing.T) {
	header := makeHeader()
	batch := Batch{
		PlatformUS: 5000,
		Records: []Record{
			{PlatformUS: 5000, Command: ClearBook, NumOrders: 0},
			{PlatformUS: 5000, Command: AddBidLevel, Price: 100.00, Quantity: 5, NumOrders: 1},
			{PlatformUS: 5000, Command: AddAskLevel, Price: 100.25, Quantity: 3, NumOrders: 1},
			{PlatformUS: 5000, Command: DeleteAskLevel, Price: 100.25},
		},
	}

	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, header)
	if err != nil {
		t.Fatal(err)
	}
	if err := enc.WriteBatch(batch); err != nil {
		t.Fatal(err)
	}

	gotHeader, batches, err := DecodeAll(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if gotHeader != header {
		t.Errorf("header mismatch")
	}
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	got := batches[0]
	if !got.IsSnapshot() {
		t.Error("expected snapshot batch (leading CLEAR_BOOK)")
	}
	if len(got.Records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(got.Records))
	}
	for i, r := range got.Records {
		wantEOB := i == 3
		if r.EndOfBatch() != wantEOB {
			t.Errorf("record %d: EndOfBatch = %v, want %v", i, r.EndOfBatch(), wantEOB)
		}
		if r.Reserved != 0 {
			t.Errorf("record %d: reserved must be zero, got %d", i, r.Reserved)
		}
	}
}

func TestMalformedBatchAskBeforeBid(t *testing.T) {
	header := makeHeader()
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, header)
	if err != nil {
		t.Fatal(err)
	}
	// Hand-construct a malformed sequence directly (bypassing WriteBatch's
	// own ordering, since it doesn't validate — only the decoder does).
	askRec := Record{PlatformUS: 1, Command: AddAskLevel, Price: 10, Quantity: 1}
	bidRec := Record{PlatformUS: 1, Command: AddBidLevel, Price: 9, Quantity: 1, Flags: FlagEndOfBatch}
	if err := enc.writeRecord(askRec); err != nil {
		t.Fatal(err)
	}
	if err := enc.writeRecord(bidRec); err != nil {
		t.Fatal(err)
	}

	d, err := NewDecoder(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.NextBatch(); err != ErrMalformedBatch {
		t.Fatalf("expected ErrMalformedBatch, got %v", err)
	}
}

func TestTruncatedBatchMissingEndOfBatch(t *testing.T) {
	header := makeHeader()
	var buf bytes.Buffer
	enc, _ := NewEncoder(&buf, header)
	enc.writeRecord(Record{PlatformUS: 1, Command: ClearBook})

	d, err := NewDecoder(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.NextBatch(); err != ErrTruncatedStream {
		t.Fatalf("expected ErrTruncatedStream, got %v", err)
	}
}

func TestEmptyStreamEOF(t *testing.T) {
	header := makeHeader()
	raw := header.Raw()
	d, err := NewDecoder(bytes.NewReader(raw[:]))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.NextBatch(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}
