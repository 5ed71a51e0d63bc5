package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"cryptosignals/internal/model"
)

// Archive mirrors terminal signals into sqlite so history survives manual
// edits of the JSON store and stays queryable for reporting.
type Archive struct {
	db *sql.DB
}

// NewArchive opens (and if needed initializes) the archive database.
func NewArchive(path string) (*Archive, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("archive: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS signals (
			symbol       TEXT    NOT NULL,
			direction    TEXT    NOT NULL,
			entry_price  REAL    NOT NULL,
			target_price REAL    NOT NULL,
			stop_loss    REAL    NOT NULL,
			score        INTEGER NOT NULL,
			risk_reward  REAL    NOT NULL,
			status       TEXT    NOT NULL,
			created_at   TEXT    NOT NULL,
			closed_at    TEXT,
			closed_price REAL,
			reasons      TEXT,
			PRIMARY KEY (symbol, created_at)
		);
	`); err != nil {
		return nil, fmt.Errorf("archive: schema: %w", err)
	}
	return &Archive{db: db}, nil
}

// RecordTerminal upserts every terminal signal in the list. Active signals
// are ignored; they are archived once they resolve.
func (a *Archive) RecordTerminal(signals []model.Signal) error {
	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("archive: begin: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO signals
			(symbol, direction, entry_price, target_price, stop_loss,
			 score, risk_reward, status, created_at, closed_at, closed_price, reasons)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("archive: prepare: %w", err)
	}
	defer stmt.Close()

	for i := range signals {
		sig := &signals[i]
		if !sig.Status.Terminal() {
			continue
		}
		var closedAt any
		if sig.ClosedAt != nil {
			closedAt = sig.ClosedAt.UTC().Format(time.RFC3339)
		}
		var closedPrice any
		if sig.ClosedPrice != nil {
			closedPrice = *sig.ClosedPrice
		}
		_, err := stmt.Exec(
			sig.Symbol, string(sig.Direction), sig.EntryPrice, sig.TargetPrice,
			sig.StopLoss, sig.Score, sig.RiskReward, string(sig.Status),
			sig.CreatedAt.UTC().Format(time.RFC3339), closedAt, closedPrice,
			strings.Join(sig.Reasons, "; "),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("archive: insert %s: %w", sig.Symbol, err)
		}
	}
	return tx.Commit()
}

// OutcomeCounts returns how many archived signals ended in each terminal
// status.
func (a *Archive) OutcomeCounts() (map[model.Status]int, error) {
	rows, err := a.db.Query(`SELECT status, COUNT(*) FROM signals GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("archive: query: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("archive: scan: %w", err)
		}
		counts[model.Status(status)] = n
	}
	return counts, rows.Err()
}

// Close closes the database.
func (a *Archive) Close() error { return a.db.Close() }
