package trades

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// Header is the 56-byte TRADES header, preserved verbatim by callers
// that only need to pass it through to the encoder.
type Header [HeaderSize]byte

// Decoder streams fixed 40-byte records from an append-only input,
// classifying each by the bitwise pattern of its Open field.
type Decoder struct {
	r      io.Reader
	header Header
	n      int // records decoded so far, for TruncatedStream diagnostics
}

// NewDecoder reads the 56-byte header immediately, then returns a Decoder
// ready to stream records with Next.
func NewDecoder(r io.Reader) (*Decoder, error) {
	d := &Decoder{r: r}
	if _, err := io.ReadFull(r, d.header[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncatedStream
		}
		return nil, &IOError{Op: "read header", Err: err}
	}
	return d, nil
}

// Header returns the raw header bytes for verbatim reproduction on write.
func (d *Decoder) Header() Header { return d.header }

// RecordsDecoded returns how many complete records Next has returned.
func (d *Decoder) RecordsDecoded() int { return d.n }

// Next decodes the next record. Returns io.EOF when the stream is
// exhausted cleanly, or ErrTruncatedStream if a partial record remains.
func (d *Decoder) Next() (Record, error) {
	var buf [RecordSize]byte
	_, err := io.ReadFull(d.r, buf[:])
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		return Record{}, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return Record{}, ErrTruncatedStream
	default:
		return Record{}, &IOError{Op: "read record", Err: err}
	}

	rec := decodeRecord(buf)
	d.n++
	return rec, nil
}

func decodeRecord(buf [RecordSize]byte) Record {
	platformUS := binary.LittleEndian.Uint64(buf[0:8])
	openBits := binary.LittleEndian.Uint32(buf[8:12])
	highBits := binary.LittleEndian.Uint32(buf[12:16])
	lowBits := binary.LittleEndian.Uint32(buf[16:20])
	closeBits := binary.LittleEndian.Uint32(buf[20:24])
	numTrades := binary.LittleEndian.Uint32(buf[24:28])
	totalVolume := binary.LittleEndian.Uint32(buf[28:32])
	bidVolume := binary.LittleEndian.Uint32(buf[32:36])
	askVolume := binary.LittleEndian.Uint32(buf[36:40])

	return Record{
		PlatformUS:  platformUS,
		Open:        math.Float32frombits(openBits),
		High:        math.Float32frombits(highBits),
		Low:         math.Float32frombits(lowBits),
		Close:       math.Float32frombits(closeBits),
		NumTrades:   numTrades,
		TotalVolume: totalVolume,
		BidVolume:   bidVolume,
		AskVolume:   askVolume,
		Kind:        classify(openBits),
	}
}

// DecodeAll reads every remaining record from r's header onward.
// Intended for tests and small fixtures, not the streaming hot path.
func DecodeAll(r io.Reader) (Header, []Record, error) {
	d, err := NewDecoder(r)
	if err != nil {
		return Header{}, nil, err
	}
	var out []Record
	for {
		rec, err := d.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return d.Header(), out, err
		}
		out = append(out, rec)
	}
	return d.Header(), out, nil
}
