package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/petbox/petbox-payments/internal/core/domain"
)

// timeLayout is fixed width so stored timestamps compare as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLite persists statuses and outbox rows in a SQLite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at dsn and ensures the tables
// exist. Pass ":memory:" for an in-memory database.
func OpenSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection serializes writers and keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close releases the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS transaction_statuses (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS side_effects (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			transaction_id TEXT NOT NULL,
			payload BLOB NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			last_error TEXT NOT NULL DEFAULT '',
			next_attempt_at TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_side_effects_next ON side_effects(next_attempt_at)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLite) Advance(ctx context.Context, id string, next domain.TransactionStatus) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, "SELECT status FROM transaction_statuses WHERE id = ?", id).Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		return false, fmt.Errorf("read status: %w", err)
	}
	if !domain.CanAdvance(domain.TransactionStatus(current), next) {
		return false, nil
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO transaction_statuses (id, status, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at`,
		id, string(next), time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return false, fmt.Errorf("write status: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

func (s *SQLite) Status(ctx context.Context, id string) (domain.TransactionStatus, error) {
	var status string
	err := s.db.QueryRowContext(ctx, "SELECT status FROM transaction_statuses WHERE id = ?", id).Scan(&status)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read status: %w", err)
	}
	return domain.TransactionStatus(status), nil
}

func (s *SQLite) Enqueue(ctx context.Context, e domain.SideEffect) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO side_effects
		(id, kind, transaction_id, payload, attempts, last_error, next_attempt_at, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		e.ID, e.Kind, e.TransactionID, e.Payload, e.Attempts, e.LastError,
		e.NextAttemptAt.UTC().Format(timeLayout), e.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert side effect: %w", err)
	}
	return nil
}

func (s *SQLite) Due(ctx context.Context, now time.Time, limit int) ([]domain.SideEffect, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, transaction_id, payload, attempts, last_error, next_attempt_at, created_at
		 FROM side_effects WHERE next_attempt_at <= ?
		 ORDER BY next_attempt_at, created_at LIMIT ?`,
		now.UTC().Format(timeLayout), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query due: %w", err)
	}
	return scanEffects(rows)
}

func (s *SQLite) Complete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM side_effects WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete side effect: %w", err)
	}
	return nil
}

func (s *SQLite) Reschedule(ctx context.Context, id string, lastErr string, next time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE side_effects SET attempts = attempts + 1, last_error = ?, next_attempt_at = ? WHERE id = ?",
		lastErr, next.UTC().Format(timeLayout), id,
	)
	if err != nil {
		return fmt.Errorf("reschedule side effect: %w", err)
	}
	return nil
}

func (s *SQLite) Pending(ctx context.Context) ([]domain.SideEffect, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, transaction_id, payload, attempts, last_error, next_attempt_at, created_at
		 FROM side_effects ORDER BY next_attempt_at, created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("query pending: %w", err)
	}
	return scanEffects(rows)
}

func scanEffects(rows *sql.Rows) ([]domain.SideEffect, error) {
	defer rows.Close()

	var effects []domain.SideEffect
	for rows.Next() {
		var e domain.SideEffect
		var next, created string
		if err := rows.Scan(&e.ID, &e.Kind, &e.TransactionID, &e.Payload, &e.Attempts,
			&e.LastError, &next, &created); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		e.NextAttemptAt, _ = time.Parse(timeLayout, next)
		e.CreatedAt, _ = time.Parse(timeLayout, created)
		effects = append(effects, e)
	}
	return effects, rows.Err()
}
