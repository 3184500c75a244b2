// Package wal is the write-ahead log of order intents: spec.md §4.6. It is
// an embedded, single-file SQLite store indexed by request_id, durable
// across process crashes once log_intent returns.
package wal

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Status is the lifecycle state of a WAL entry.
type Status int

const (
	Pending Status = iota
	Sent
	Verified
	Failed
	Recovered
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Sent:
		return "SENT"
	case Verified:
		return "VERIFIED"
	case Failed:
		return "FAILED"
	case Recovered:
		return "RECOVERED"
	default:
		return "UNKNOWN"
	}
}

// terminal reports whether s is one of the states cleanup_old is allowed
// to remove.
func (s Status) terminal() bool {
	return s == Verified || s == Failed || s == Recovered
}

// Entry is a single WAL row.
type Entry struct {
	RequestID string
	// CorrelationID is a uuid generated at log_intent time, independent of
	// RequestID's fixed idempotency-key format (§4.1/§9): a free-form
	// handle for cross-referencing this entry in logs or operator tooling
	// without involving the business-meaningful request_id.
	CorrelationID string
	Timestamp     time.Time
	RequestJSON   string
	Status        Status
	ResultJSON    sql.NullString
	Error         sql.NullString
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS wal_entries (
	request_id     TEXT PRIMARY KEY,
	correlation_id TEXT NOT NULL DEFAULT '',
	timestamp      TEXT NOT NULL,
	request_json   TEXT NOT NULL,
	status         INTEGER NOT NULL,
	result_json    TEXT,
	error          TEXT,
	created_at     TEXT NOT NULL,
	updated_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_wal_status ON wal_entries(status);
CREATE INDEX IF NOT EXISTS idx_wal_timestamp ON wal_entries(timestamp);
`

// WAL is an embedded SQLite-backed write-ahead log. A single in-process
// mutex serializes writes; all operations are no-ops when WAL is nil or
// uninitialized, so callers may leave it disabled without branching.
type WAL struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates (or reuses) the SQLite file at path and applies the schema.
func Open(path string) (*WAL, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("wal: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // sqlite3 driver: one writer, schema above already serialized by WAL.mu

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("wal: apply schema: %w", err)
	}

	return &WAL{db: db}, nil
}

// Close releases the underlying database handle.
func (w *WAL) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

func isoNow() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// LogIntent inserts or replaces the entry for requestID with status
// PENDING. Per spec.md §4.6, once this call returns the entry survives a
// process crash.
func (w *WAL) LogIntent(ctx context.Context, requestID, requestJSON string) error {
	if w == nil || w.db == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	now := isoNow()
	correlationID := uuid.NewString()
	_, err := w.db.ExecContext(ctx, `
		INSERT INTO wal_entries (request_id, correlation_id, timestamp, request_json, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(request_id) DO UPDATE SET
			timestamp=excluded.timestamp,
			request_json=excluded.request_json,
			status=excluded.status,
			updated_at=excluded.updated_at`,
		requestID, correlationID, now, requestJSON, int(Pending), now, now)
	if err != nil {
		return fmt.Errorf("wal: log_intent %s: %w", requestID, err)
	}
	return nil
}

func (w *WAL) setStatus(ctx context.Context, requestID string, status Status, resultJSON, errMsg *string) error {
	if w == nil || w.db == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	_, err := w.db.ExecContext(ctx,
		`UPDATE wal_entries SET status=?, result_json=?, error=?, updated_at=? WHERE request_id=?`,
		int(status), resultJSON, errMsg, isoNow(), requestID)
	if err != nil {
		return fmt.Errorf("wal: update %s to %s: %w", requestID, status, err)
	}
	return nil
}

// MarkSent updates status to SENT.
func (w *WAL) MarkSent(ctx context.Context, requestID string) error {
	return w.setStatus(ctx, requestID, Sent, nil, nil)
}

// MarkVerified sets status to VERIFIED and stores resultJSON.
func (w *WAL) MarkVerified(ctx context.Context, requestID, resultJSON string) error {
	return w.setStatus(ctx, requestID, Verified, &resultJSON, nil)
}

// MarkFailed sets status to FAILED and stores the error message.
func (w *WAL) MarkFailed(ctx context.Context, requestID, errMsg string) error {
	return w.setStatus(ctx, requestID, Failed, nil, &errMsg)
}

// MarkRecovered sets status to RECOVERED, optionally storing the
// reconciled resultJSON.
func (w *WAL) MarkRecovered(ctx context.Context, requestID string, resultJSON *string) error {
	return w.setStatus(ctx, requestID, Recovered, resultJSON, nil)
}

func scanEntry(row interface{ Scan(...any) error }) (*Entry, error) {
	var e Entry
	var ts, createdAt, updatedAt string
	var status int
	if err := row.Scan(&e.RequestID, &e.CorrelationID, &ts, &e.RequestJSON, &status, &e.ResultJSON, &e.Error, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	e.Status = Status(status)
	e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &e, nil
}

// GetIncomplete returns entries with status PENDING or SENT, ordered
// ascending by timestamp — the set that needs recovery on connect.
func (w *WAL) GetIncomplete(ctx context.Context) ([]*Entry, error) {
	if w == nil || w.db == nil {
		return nil, nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	rows, err := w.db.QueryContext(ctx, `
		SELECT request_id, correlation_id, timestamp, request_json, status, result_json, error, created_at, updated_at
		FROM wal_entries WHERE status IN (?, ?) ORDER BY timestamp ASC`,
		int(Pending), int(Sent))
	if err != nil {
		return nil, fmt.Errorf("wal: get_incomplete: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("wal: scan incomplete entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetEntry is a point lookup by request_id. Returns (nil, nil) if absent.
func (w *WAL) GetEntry(ctx context.Context, requestID string) (*Entry, error) {
	if w == nil || w.db == nil {
		return nil, nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	row := w.db.QueryRowContext(ctx, `
		SELECT request_id, correlation_id, timestamp, request_json, status, result_json, error, created_at, updated_at
		FROM wal_entries WHERE request_id=?`, requestID)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("wal: get_entry %s: %w", requestID, err)
	}
	return e, nil
}

// CleanupOld removes terminal entries (VERIFIED, FAILED, RECOVERED) older
// than retentionDays.
func (w *WAL) CleanupOld(ctx context.Context, retentionDays int) (int64, error) {
	if w == nil || w.db == nil {
		return 0, nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := time.Now().UTC().Add(-time.Duration(retentionDays) * 24 * time.Hour).Format(time.RFC3339Nano)
	result, err := w.db.ExecContext(ctx, `
		DELETE FROM wal_entries
		WHERE status IN (?, ?, ?) AND timestamp < ?`,
		int(Verified), int(Failed), int(Recovered), cutoff)
	if err != nil {
		return 0, fmt.Errorf("wal: cleanup_old: %w", err)
	}
	return result.RowsAffected()
}
