package trades

import "errors"

// ErrTruncatedStream is returned when the input length is not a multiple
// of RecordSize, or a final partial record is encountered.
var ErrTruncatedStream = errors.New("trades: truncated stream")

// IOError wraps an underlying I/O failure encountered while streaming
// TRADES records.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string { return "trades: " + e.Op + ": " + e.Err.Error() }
func (e *IOError) Unwrap() error { return e.Err }
