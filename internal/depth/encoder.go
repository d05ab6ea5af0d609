package depth

import (
	"encoding/binary"
	"io"
	"math"
)

// Encoder writes the DEPTH header verbatim, then batches of records,
// setting END_OF_BATCH on the last record of each batch.
type Encoder struct {
	w io.Writer
}

// NewEncoder writes header immediately.
func NewEncoder(w io.Writer, header Header) (*Encoder, error) {
	raw := header.Raw()
	if _, err := w.Write(raw[:]); err != nil {
		return nil, &IOError{Op: "write header", Err: err}
	}
	return &Encoder{w: w}, nil
}

// WriteBatch writes every record in the batch, forcing END_OF_BATCH on
// the last one and clearing it on all prior records regardless of what
// the caller set, and enforcing reserved == 0.
func (e *Encoder) WriteBatch(b Batch) error {
	for i, rec := range b.Records {
		rec.Reserved = 0
		if i == len(b.Records)-1 {
			rec.Flags |= FlagEndOfBatch
		} else {
			rec.Flags &^= FlagEndOfBatch
		}
		if err := e.writeRecord(rec); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) writeRecord(rec Record) error {
	var buf [RecordSize]byte
	binary.LittleEndian.PutUint64(buf[0:8], rec.PlatformUS)
	buf[8] = byte(rec.Command)
	buf[9] = rec.Flags
	binary.LittleEndian.PutUint16(buf[10:12], rec.NumOrders)
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(rec.Price))
	binary.LittleEndian.PutUint32(buf[16:20], rec.Quantity)
	binary.LittleEndian.PutUint32(buf[20:24], 0) // reserved, always zero on write

	if _, err := e.w.Write(buf[:]); err != nil {
		return &IOError{Op: "write record", Err: err}
	}
	return nil
}
