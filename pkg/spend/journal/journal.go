package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/google/uuid"
)

// Kind classifies a journal entry.
type Kind string

const (
	// KindEvaluation records a policy rule-set evaluation.
	KindEvaluation Kind = "evaluation"

	// KindPurchase records a purchase gate decision.
	KindPurchase Kind = "purchase"

	// KindSpend records a posted spend transaction.
	KindSpend Kind = "spend"

	// KindWorkflow records a workflow action (approve, reject, and so
	// on).
	KindWorkflow Kind = "workflow"

	// KindRollover records a period rollover.
	KindRollover Kind = "rollover"
)

// Entry is one immutable audit record.
type Entry struct {
	// ID uniquely identifies the entry.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Kind classifies the event.
	Kind Kind `json:"kind"`

	// EntityID names the governed entity, usually a limit or workflow
	// ID.
	EntityID string `json:"entityId"`

	// Actor is the identity that caused the event, when known.
	Actor string `json:"actor,omitempty"`

	// Outcome summarizes the decision ("allowed", "rejected",
	// "approved", ...).
	Outcome string `json:"outcome,omitempty"`

	// Detail carries the event payload as JSON.
	Detail json.RawMessage `json:"detail,omitempty"`
}

// Query filters journal reads. Zero-valued fields are not applied.
type Query struct {
	EntityID string
	Kind     Kind
	Since    time.Time
	Until    time.Time
	Limit    int
}

// Journal is an append-only audit log backed by SQLite.
type Journal struct {
	db        *sql.DB
	appendRaw *sql.Stmt
	closeOnce sync.Once
}

// Open opens (creating if needed) a journal at the given path. Use
// ":memory:" for an ephemeral journal in tests.
func Open(path string) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("journal path cannot be empty")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS journal_entries (
		id TEXT PRIMARY KEY,
		timestamp INTEGER NOT NULL,
		kind TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		actor TEXT,
		outcome TEXT,
		detail TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_journal_entity ON journal_entries(entity_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_journal_timestamp ON journal_entries(timestamp);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}

	stmt, err := db.Prepare(`
		INSERT INTO journal_entries (id, timestamp, kind, entity_id, actor, outcome, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare append statement: %w", err)
	}

	return &Journal{db: db, appendRaw: stmt}, nil
}

// Append writes one entry. A missing ID or timestamp is filled in;
// everything else is stored as given.
func (j *Journal) Append(ctx context.Context, entry Entry) error {
	if entry.Kind == "" {
		return fmt.Errorf("entry kind is required")
	}
	if entry.EntityID == "" {
		return fmt.Errorf("entry entity id is required")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	var detail interface{}
	if len(entry.Detail) > 0 {
		detail = string(entry.Detail)
	}

	_, err := j.appendRaw.ExecContext(ctx,
		entry.ID,
		entry.Timestamp.UnixMilli(),
		string(entry.Kind),
		entry.EntityID,
		entry.Actor,
		entry.Outcome,
		detail,
	)
	if err != nil {
		return fmt.Errorf("failed to append journal entry: %w", err)
	}
	return nil
}

// Find returns entries matching the query, newest first.
func (j *Journal) Find(ctx context.Context, q Query) ([]Entry, error) {
	query := `SELECT id, timestamp, kind, entity_id, actor, outcome, detail FROM journal_entries WHERE 1=1`
	var args []interface{}

	if q.EntityID != "" {
		query += ` AND entity_id = ?`
		args = append(args, q.EntityID)
	}
	if q.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(q.Kind))
	}
	if !q.Since.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, q.Since.UnixMilli())
	}
	if !q.Until.IsZero() {
		query += ` AND timestamp <= ?`
		args = append(args, q.Until.UnixMilli())
	}

	query += ` ORDER BY timestamp DESC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry     Entry
			timestamp int64
			actor     sql.NullString
			outcome   sql.NullString
			detail    sql.NullString
		)
		if err := rows.Scan(&entry.ID, &timestamp, (*string)(&entry.Kind), &entry.EntityID, &actor, &outcome, &detail); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		entry.Timestamp = time.UnixMilli(timestamp)
		entry.Actor = actor.String
		entry.Outcome = outcome.String
		if detail.Valid && detail.String != "" {
			entry.Detail = json.RawMessage(detail.String)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate journal entries: %w", err)
	}
	return entries, nil
}

// Prune deletes entries older than the cutoff and returns how many were
// removed. This is the only mutation the journal permits besides
// Append.
func (j *Journal) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	result, err := j.db.ExecContext(ctx,
		`DELETE FROM journal_entries WHERE timestamp < ?`, olderThan.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune journal: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned entries: %w", err)
	}
	return int(affected), nil
}

// Close closes the journal database.
func (j *Journal) Close() error {
	var err error
	j.closeOnce.Do(func() {
		if j.appendRaw != nil {
			j.appendRaw.Close()
		}
		err = j.db.Close()
	})
	return err
}
