package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// RecordMintAttempt stores a, assigning an ID when it has none. It returns
// the ID.
func (d *DB) RecordMintAttempt(ctx context.Context, a MintAttempt) (string, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.StartedAt.IsZero() {
		a.StartedAt = time.Now()
	}
	_, err := d.sql.ExecContext(ctx, `INSERT INTO mint_attempts(id, candy_machine, wallet, outcome, signature, mint, message, started_at, duration_ms) VALUES(?,?,?,?,?,?,?,?,?)`,
		a.ID, a.CandyMachine, a.Wallet, a.Outcome,
		nullIfEmpty(a.Signature), nullIfEmpty(a.Mint), nullIfEmpty(a.Message),
		a.StartedAt.UTC().Format(time.RFC3339Nano), a.Duration.Milliseconds())
	if err != nil {
		return "", err
	}
	return a.ID, nil
}

// ListMintAttempts returns the most recent N attempts, newest first.
func (d *DB) ListMintAttempts(ctx context.Context, limit int) ([]MintAttempt, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.sql.QueryContext(ctx, "SELECT id, candy_machine, wallet, outcome, signature, mint, message, started_at, duration_ms FROM mint_attempts ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempts := []MintAttempt{}
	for rows.Next() {
		var a MintAttempt
		var sig, mint, msg sql.NullString
		var started string
		var ms int64
		if err := rows.Scan(&a.ID, &a.CandyMachine, &a.Wallet, &a.Outcome, &sig, &mint, &msg, &started, &ms); err != nil {
			return nil, err
		}
		a.Signature = sig.String
		a.Mint = mint.String
		a.Message = msg.String
		a.StartedAt = parseTimestamp(started)
		a.Duration = time.Duration(ms) * time.Millisecond
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return attempts, nil
}
