// Package ledger persists idempotency state per (contract, day) in a
// Pebble key-value store: has this day already been synced, and with
// what outcome. Read before a run starts to skip already-complete days;
// written after a run finishes.
package ledger

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/cockroachdb/pebble"

	"scsync/internal/syncer"
)

// Entry is one ledger record for a (contract, day). LastPrice is the
// closing trade price of the run, kept as its raw float32 bit pattern;
// callers render it for display with internal/priceformat.
type Entry struct {
	Status       syncer.Status
	ManifestHash uint64
	FinishedAt   time.Time
	LastPrice    float32
}

// Ledger wraps a Pebble database keyed by "<contract>|<day>".
type Ledger struct {
	db *pebble.DB
}

// Open opens (or creates) the ledger at dir, with the WAL enabled since
// the ledger is the source of truth for skip-if-complete decisions.
func Open(dir string) (*Ledger, error) {
	db, err := pebble.Open(dir, &pebble.Options{DisableWAL: false})
	if err != nil {
		return nil, fmt.Errorf("ledger: open: %w", err)
	}
	return &Ledger{db: db}, nil
}

func key(contract, tradeDate string) []byte {
	return []byte(contract + "|" + tradeDate)
}

// encoding: [status:1][manifestHash:8][finishedAtUnix:8][lastPriceBits:4]
func encode(e Entry) []byte {
	buf := make([]byte, 1+8+8+4)
	buf[0] = byte(e.Status)
	binary.BigEndian.PutUint64(buf[1:9], e.ManifestHash)
	binary.BigEndian.PutUint64(buf[9:17], uint64(e.FinishedAt.Unix()))
	binary.BigEndian.PutUint32(buf[17:21], math.Float32bits(e.LastPrice))
	return buf
}

func decode(b []byte) (Entry, error) {
	if len(b) != 21 {
		return Entry{}, fmt.Errorf("ledger: invalid entry length %d", len(b))
	}
	return Entry{
		Status:       syncer.Status(b[0]),
		ManifestHash: binary.BigEndian.Uint64(b[1:9]),
		FinishedAt:   time.Unix(int64(binary.BigEndian.Uint64(b[9:17])), 0).UTC(),
		LastPrice:    math.Float32frombits(binary.BigEndian.Uint32(b[17:21])),
	}, nil
}

// Put records the outcome of a completed run.
func (l *Ledger) Put(contract, tradeDate string, e Entry) error {
	return l.db.Set(key(contract, tradeDate), encode(e), pebble.Sync)
}

// Get returns the ledger entry for a (contract, day), if any.
func (l *Ledger) Get(contract, tradeDate string) (Entry, bool, error) {
	val, closer, err := l.db.Get(key(contract, tradeDate))
	if err == pebble.ErrNotFound {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("ledger: get: %w", err)
	}
	defer closer.Close()

	e, err := decode(val)
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

// Clear removes the ledger entry for a (contract, day), used by the
// admin API's forced re-sync to bypass the skip-if-complete check.
func (l *Ledger) Clear(contract, tradeDate string) error {
	return l.db.Delete(key(contract, tradeDate), pebble.Sync)
}

// ShouldSkip reports whether a run for (contract, day) should be
// skipped because the ledger already marks it Complete.
func (l *Ledger) ShouldSkip(contract, tradeDate string) (bool, error) {
	e, ok, err := l.Get(contract, tradeDate)
	if err != nil {
		return false, err
	}
	return ok && e.Status == syncer.Complete, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
