package syncer

import (
	"errors"
	"io"

	"scsync/internal/depth"
	"scsync/internal/trades"
)

// decodeTradesTolerant decodes every complete TRADES record, tolerating
// a truncated final record: partial reports whether the stream ended
// mid-record rather than cleanly at EOF.
func decodeTradesTolerant(r io.Reader) (trades.Header, []trades.Record, bool, error) {
	d, err := trades.NewDecoder(r)
	if err != nil {
		return trades.Header{}, nil, false, err
	}
	var out []trades.Record
	for {
		rec, err := d.Next()
		if errors.Is(err, io.EOF) {
			return d.Header(), out, false, nil
		}
		if errors.Is(err, trades.ErrTruncatedStream) {
			return d.Header(), out, true, nil
		}
		if err != nil {
			return d.Header(), out, false, err
		}
		out = append(out, rec)
	}
}

// decodeDepthTolerant decodes every complete DEPTH batch, tolerating a
// truncated final batch. MalformedBatch and header errors are always
// fatal and returned as-is — only TruncatedStream gets partial treatment.
func decodeDepthTolerant(r io.Reader) (depth.Header, []depth.Batch, bool, error) {
	d, err := depth.NewDecoder(r)
	if err != nil {
		return depth.Header{}, nil, false, err
	}
	var out []depth.Batch
	for {
		b, err := d.NextBatch()
		if errors.Is(err, io.EOF) {
			return d.Header(), out, false, nil
		}
		if errors.Is(err, depth.ErrTruncatedStream) {
			return d.Header(), out, true, nil
		}
		if err != nil {
			return d.Header(), out, false, err
		}
		out = append(out, b)
	}
}
