package storage

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sw33tLie/mintwatch/pkg/eligibility"
)

var ErrNoSnapshot = errors.New("no snapshot recorded")

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS snapshots (
  id            INTEGER PRIMARY KEY,
  candy_machine TEXT NOT NULL,
  wallet        TEXT NOT NULL,
  field         TEXT NOT NULL,
  value         TEXT NOT NULL,
  first_seen_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  last_seen_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(candy_machine, wallet, field)
);
CREATE INDEX IF NOT EXISTS idx_snapshots_identity ON snapshots(candy_machine, wallet);
CREATE TABLE IF NOT EXISTS snapshot_changes (
  id            INTEGER PRIMARY KEY,
  occurred_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  candy_machine TEXT NOT NULL,
  wallet        TEXT NOT NULL,
  field         TEXT NOT NULL,
  old_value     TEXT,
  new_value     TEXT,
  change_type   TEXT NOT NULL CHECK (change_type IN ('added','updated'))
);
CREATE INDEX IF NOT EXISTS idx_changes_time ON snapshot_changes(occurred_at);
CREATE TABLE IF NOT EXISTS mint_attempts (
  id            TEXT PRIMARY KEY,
  candy_machine TEXT NOT NULL,
  wallet        TEXT NOT NULL,
  outcome       TEXT NOT NULL,
  signature     TEXT,
  mint          TEXT,
  message       TEXT,
  started_at    TEXT NOT NULL,
  duration_ms   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_attempts_started ON mint_attempts(started_at);
    `); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// RecordSnapshot stores the field values of s and logs every field that is
// new or differs from the stored value. Unchanged fields only have their
// last_seen_at bumped.
func (d *DB) RecordSnapshot(ctx context.Context, candyMachine, wallet string, s eligibility.Snapshot) (changes []Change, err error) {
	now := time.Now().UTC()

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	existing, err := loadFields(ctx, tx, candyMachine, wallet)
	if err != nil {
		return nil, err
	}

	fields := s.Fields()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := fields[name]
		old, existed := existing[name]

		switch {
		case !existed:
			_, err = tx.ExecContext(ctx, `INSERT INTO snapshots(candy_machine, wallet, field, value, first_seen_at, last_seen_at) VALUES(?,?,?,?,CURRENT_TIMESTAMP,CURRENT_TIMESTAMP)`, candyMachine, wallet, name, value)
			if err != nil {
				return nil, err
			}
			changes = append(changes, Change{OccurredAt: now, CandyMachine: candyMachine, Wallet: wallet, Field: name, NewValue: value, ChangeType: "added"})
		case old != value:
			_, err = tx.ExecContext(ctx, `UPDATE snapshots SET value = ?, last_seen_at = CURRENT_TIMESTAMP WHERE candy_machine = ? AND wallet = ? AND field = ?`, value, candyMachine, wallet, name)
			if err != nil {
				return nil, err
			}
			changes = append(changes, Change{OccurredAt: now, CandyMachine: candyMachine, Wallet: wallet, Field: name, OldValue: old, NewValue: value, ChangeType: "updated"})
		default:
			_, err = tx.ExecContext(ctx, `UPDATE snapshots SET last_seen_at = CURRENT_TIMESTAMP WHERE candy_machine = ? AND wallet = ? AND field = ?`, candyMachine, wallet, name)
			if err != nil {
				return nil, err
			}
		}
	}

	for _, c := range changes {
		_, err = tx.ExecContext(ctx, `INSERT INTO snapshot_changes(occurred_at, candy_machine, wallet, field, old_value, new_value, change_type) VALUES(CURRENT_TIMESTAMP, ?, ?, ?, ?, ?, ?)`, c.CandyMachine, c.Wallet, c.Field, nullIfEmpty(c.OldValue), nullIfEmpty(c.NewValue), c.ChangeType)
		if err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return changes, nil
}

func loadFields(ctx context.Context, q interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}, candyMachine, wallet string) (map[string]string, error) {
	rows, err := q.QueryContext(ctx, "SELECT field, value FROM snapshots WHERE candy_machine = ? AND wallet = ?", candyMachine, wallet)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&field, &value); err != nil {
			return nil, err
		}
		out[field] = value
	}
	return out, rows.Err()
}

// LatestFields returns the stored field values of the last recorded snapshot.
func (d *DB) LatestFields(ctx context.Context, candyMachine, wallet string) (map[string]string, error) {
	fields, err := loadFields(ctx, d.sql, candyMachine, wallet)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrNoSnapshot
	}
	return fields, nil
}

// ListRecentChanges returns the most recent N changes across all candy
// machines and wallets.
func (d *DB) ListRecentChanges(ctx context.Context, limit int) ([]Change, error) {
	if limit <= 0 {
		limit = 50
	}
	q := "SELECT occurred_at, candy_machine, wallet, field, old_value, new_value, change_type FROM snapshot_changes ORDER BY occurred_at DESC, id DESC LIMIT ?"
	rows, err := d.sql.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	changes := []Change{}
	for rows.Next() {
		var c Change
		var occurredAtStr string
		var oldNS, newNS sql.NullString
		if err := rows.Scan(&occurredAtStr, &c.CandyMachine, &c.Wallet, &c.Field, &oldNS, &newNS, &c.ChangeType); err != nil {
			return nil, err
		}
		c.OccurredAt = parseTimestamp(occurredAtStr)
		c.OldValue = oldNS.String
		c.NewValue = newNS.String
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return changes, nil
}

func (d *DB) GetStats(ctx context.Context) (*Stats, error) {
	var st Stats
	if err := d.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM snapshots").Scan(&st.TrackedFields); err != nil {
		return nil, err
	}
	if err := d.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM snapshot_changes").Scan(&st.Changes); err != nil {
		return nil, err
	}

	query := `
		SELECT
			outcome,
			COUNT(*)
		FROM
			mint_attempts
		GROUP BY
			outcome
		ORDER BY
			outcome;
	`
	rows, err := d.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var s OutcomeStats
		if err := rows.Scan(&s.Outcome, &s.Count); err != nil {
			return nil, err
		}
		st.Attempts = append(st.Attempts, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &st, nil
}
