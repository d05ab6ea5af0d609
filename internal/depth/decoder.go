package depth

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// Decoder reads the header, then yields batches — maximal runs of
// records ending at END_OF_BATCH. It does not enforce book invariants;
// that is the Book's job.
type Decoder struct {
	r      io.Reader
	header Header
	done   bool
}

// NewDecoder reads and validates the 64-byte header immediately.
func NewDecoder(r io.Reader) (*Decoder, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncatedStream
		}
		return nil, &IOError{Op: "read header", Err: err}
	}
	h := decodeHeader(buf)
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return &Decoder{r: r, header: h}, nil
}

// Header returns the validated header for verbatim reproduction on write.
func (d *Decoder) Header() Header { return d.header }

// NextBatch decodes the next maximal batch. Returns io.EOF when the
// stream is exhausted cleanly between batches.
func (d *Decoder) NextBatch() (Batch, error) {
	if d.done {
		return Batch{}, io.EOF
	}

	var batch Batch
	sawAsk := false

	for {
		var buf [RecordSize]byte
		_, err := io.ReadFull(d.r, buf[:])
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			if len(batch.Records) == 0 {
				d.done = true
				return Batch{}, io.EOF
			}
			// A batch without a trailing END_OF_BATCH at end of file is
			// itself a truncation.
			return Batch{}, ErrTruncatedStream
		case errors.Is(err, io.ErrUnexpectedEOF):
			return Batch{}, ErrTruncatedStream
		default:
			return Batch{}, &IOError{Op: "read record", Err: err}
		}

		rec := decodeRecord(buf)
		if len(batch.Records) == 0 {
			batch.PlatformUS = rec.PlatformUS
		}

		switch rec.Command.Side() {
		case Ask:
			sawAsk = true
		case Bid:
			if sawAsk {
				return Batch{}, ErrMalformedBatch
			}
		}

		batch.Records = append(batch.Records, rec)

		if rec.EndOfBatch() {
			return batch, nil
		}
	}
}

func decodeRecord(buf [RecordSize]byte) Record {
	platformUS := binary.LittleEndian.Uint64(buf[0:8])
	cmd := Command(buf[8])
	flags := buf[9]
	numOrders := binary.LittleEndian.Uint16(buf[10:12])
	priceBits := binary.LittleEndian.Uint32(buf[12:16])
	quantity := binary.LittleEndian.Uint32(buf[16:20])
	reserved := binary.LittleEndian.Uint32(buf[20:24])

	return Record{
		PlatformUS: platformUS,
		Command:    cmd,
		Flags:      flags,
		NumOrders:  numOrders,
		Price:      math.Float32frombits(priceBits),
		Quantity:   quantity,
		Reserved:   reserved,
	}
}

// DecodeAll reads every remaining batch. Intended for tests and small
// fixtures, not the streaming hot path.
func DecodeAll(r io.Reader) (Header, []Batch, error) {
	d, err := NewDecoder(r)
	if err != nil {
		return Header{}, nil, err
	}
	var out []Batch
	for {
		b, err := d.NextBatch()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return d.Header(), out, err
		}
		out = append(out, b)
	}
	return d.Header(), out, nil
}
