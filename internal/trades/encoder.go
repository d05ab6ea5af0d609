package trades

import (
	"encoding/binary"
	"io"
)

// Encoder writes the TRADES header verbatim, then a stream of records in
// the same fixed layout the decoder reads.
type Encoder struct {
	w io.Writer
}

// NewEncoder writes header immediately and returns an Encoder ready for
// WriteRecord calls.
func NewEncoder(w io.Writer, header Header) (*Encoder, error) {
	if _, err := w.Write(header[:]); err != nil {
		return nil, &IOError{Op: "write header", Err: err}
	}
	return &Encoder{w: w}, nil
}

// WriteRecord serializes one record. Sentinel Open values must already be
// exact bit patterns (set via classify/DepthInjectedOpen) — the encoder
// never rewrites Open based on Kind, it trusts the caller.
func (e *Encoder) WriteRecord(rec Record) error {
	var buf [RecordSize]byte
	binary.LittleEndian.PutUint64(buf[0:8], rec.PlatformUS)
	binary.LittleEndian.PutUint32(buf[8:12], OpenBits(rec.Open))
	binary.LittleEndian.PutUint32(buf[12:16], OpenBits(rec.High))
	binary.LittleEndian.PutUint32(buf[16:20], OpenBits(rec.Low))
	binary.LittleEndian.PutUint32(buf[20:24], OpenBits(rec.Close))
	binary.LittleEndian.PutUint32(buf[24:28], rec.NumTrades)
	binary.LittleEndian.PutUint32(buf[28:32], rec.TotalVolume)
	binary.LittleEndian.PutUint32(buf[32:36], rec.BidVolume)
	binary.LittleEndian.PutUint32(buf[36:40], rec.AskVolume)

	if _, err := e.w.Write(buf[:]); err != nil {
		return &IOError{Op: "write record", Err: err}
	}
	return nil
}

// NewDepthInjectedRecord builds the synthetic TRADES record emitted once
// per depth batch that carried at least one book change: it carries the
// batch's resulting BBO with a dedicated Open bit pattern distinct from
// all three real trade sentinels.
func NewDepthInjectedRecord(platformUS uint64, bestAsk, bestBid float32) Record {
	return Record{
		PlatformUS:  platformUS,
		Open:        DepthInjectedOpen,
		High:        bestAsk,
		Low:         bestBid,
		Close:       0.0,
		NumTrades:   0,
		TotalVolume: 0,
		BidVolume:   0,
		AskVolume:   0,
		Kind:        DepthInjected,
	}
}
