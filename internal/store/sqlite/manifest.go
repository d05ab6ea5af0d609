// Package sqlite persists the run manifest: one row per (contract, day)
// run plus one row per anomaly kind observed during that run.
package sqlite

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"scsync/internal/diag"
	"scsync/internal/priceformat"
	"scsync/internal/syncer"
)

// Store is a single-connection SQLite manifest store, opened in WAL
// mode since scsync is a single-writer process.
type Store struct {
	db *sql.DB
}

// Open creates or attaches to the manifest database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("sqlite: opened manifest store at %s", path)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			contract          TEXT    NOT NULL,
			trade_date        TEXT    NOT NULL,
			status            TEXT    NOT NULL,
			reason            TEXT,
			trade_in          INTEGER NOT NULL,
			trade_out         INTEGER NOT NULL,
			depth_in          INTEGER NOT NULL,
			depth_out         INTEGER NOT NULL,
			depth_batch_count INTEGER NOT NULL,
			manifest_hash     TEXT    NOT NULL,
			last_price        TEXT    NOT NULL,
			started_at        INTEGER NOT NULL,
			finished_at       INTEGER NOT NULL,
			PRIMARY KEY (contract, trade_date, started_at)
		);

		CREATE TABLE IF NOT EXISTS run_anomalies (
			contract   TEXT    NOT NULL,
			trade_date TEXT    NOT NULL,
			started_at INTEGER NOT NULL,
			kind       TEXT    NOT NULL,
			count      INTEGER NOT NULL,
			PRIMARY KEY (contract, trade_date, started_at, kind)
		);
	`)
	return err
}

// Record is one run's manifest row, ready for persistence. LastPrice is
// the run's closing trade price; SaveRun stores it through
// internal/priceformat as an exact decimal string, and LastRun returns
// that same string back in LastPriceDisplay rather than re-parsing it
// into a float.
type Record struct {
	Contract         string
	TradeDate        string
	Result           syncer.Result
	ManifestHash     string
	LastPrice        float32
	LastPriceDisplay string
	StartedAt        time.Time
	FinishedAt       time.Time
}

// SaveRun inserts the run row and one row per observed anomaly kind, in
// a single transaction.
func (s *Store) SaveRun(rec Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO runs (contract, trade_date, status, reason, trade_in, trade_out,
			depth_in, depth_out, depth_batch_count, manifest_hash, last_price, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Contract, rec.TradeDate, rec.Result.Status.String(), rec.Result.Reason,
		rec.Result.TradeIn, rec.Result.TradeOut, rec.Result.DepthRecordIn, rec.Result.DepthRecordOut,
		rec.Result.DepthBatchCount, rec.ManifestHash, priceformat.Format(rec.LastPrice),
		rec.StartedAt.Unix(), rec.FinishedAt.Unix(),
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite: insert run: %w", err)
	}

	for kind, count := range rec.Result.Anomalies {
		_, err = tx.Exec(`
			INSERT INTO run_anomalies (contract, trade_date, started_at, kind, count)
			VALUES (?, ?, ?, ?, ?)`,
			rec.Contract, rec.TradeDate, rec.StartedAt.Unix(), string(kind), count,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite: insert anomaly: %w", err)
		}
	}

	return tx.Commit()
}

// LastRun returns the most recent run row for a (contract, day), if any.
func (s *Store) LastRun(contract, tradeDate string) (Record, bool, error) {
	row := s.db.QueryRow(`
		SELECT status, reason, trade_in, trade_out, depth_in, depth_out,
			depth_batch_count, manifest_hash, last_price, started_at, finished_at
		FROM runs WHERE contract = ? AND trade_date = ?
		ORDER BY started_at DESC LIMIT 1`, contract, tradeDate)

	var statusStr, reason, hash, lastPrice string
	var tradeIn, tradeOut, depthIn, depthOut, batchCount int
	var startedAtUnix, finishedAtUnix int64

	err := row.Scan(&statusStr, &reason, &tradeIn, &tradeOut, &depthIn, &depthOut,
		&batchCount, &hash, &lastPrice, &startedAtUnix, &finishedAtUnix)
	if err == sql.ErrNoRows {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("sqlite: query last run: %w", err)
	}

	return Record{
		Contract:  contract,
		TradeDate: tradeDate,
		Result: syncer.Result{
			Status:          statusFromString(statusStr),
			Reason:          reason,
			TradeIn:         tradeIn,
			TradeOut:        tradeOut,
			DepthRecordIn:   depthIn,
			DepthRecordOut:  depthOut,
			DepthBatchCount: batchCount,
		},
		ManifestHash:     hash,
		LastPriceDisplay: lastPrice,
		StartedAt:        time.Unix(startedAtUnix, 0).UTC(),
		FinishedAt:       time.Unix(finishedAtUnix, 0).UTC(),
	}, true, nil
}

func statusFromString(s string) syncer.Status {
	switch s {
	case "Complete":
		return syncer.Complete
	case "PartiallyComplete":
		return syncer.PartiallyComplete
	default:
		return syncer.Failed
	}
}

// AnomalyCountsFor returns the persisted per-kind anomaly counts for a run.
func (s *Store) AnomalyCountsFor(contract, tradeDate string, startedAt time.Time) (diag.Counts, error) {
	rows, err := s.db.Query(`
		SELECT kind, count FROM run_anomalies
		WHERE contract = ? AND trade_date = ? AND started_at = ?`,
		contract, tradeDate, startedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("sqlite: query anomalies: %w", err)
	}
	defer rows.Close()

	out := make(diag.Counts)
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("sqlite: scan anomaly row: %w", err)
		}
		out[diag.Kind(kind)] = count
	}
	return out, rows.Err()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
