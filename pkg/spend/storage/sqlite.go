package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"corsa-hq/quaestor/pkg/budget"
	"corsa-hq/quaestor/pkg/workflow"
)

// SQLiteBackend implements Backend using SQLite for persistence. It is
// suitable for single-instance deployments that need state to survive
// restarts.
//
// The backend runs in WAL mode with periodic checkpointing to balance
// write performance with durability.
type SQLiteBackend struct {
	db               *sql.DB
	dbPath           string
	snapshotInterval time.Duration
	done             chan struct{}
	closeOnce        sync.Once

	saveStmt    *sql.Stmt
	loadStmt    *sql.Stmt
	deleteStmt  *sql.Stmt
	listStmt    *sql.Stmt
	cleanupStmt *sql.Stmt
}

// SQLiteBackendConfig configures the SQLite backend.
type SQLiteBackendConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// SnapshotInterval is how often to checkpoint the WAL.
	// Default: 5 minutes.
	SnapshotInterval time.Duration

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds.
	BusyTimeout time.Duration
}

// NewSQLiteBackend creates a SQLite backend with default settings.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	return NewSQLiteBackendWithConfig(SQLiteBackendConfig{
		DBPath:           dbPath,
		SnapshotInterval: 5 * time.Minute,
		BusyTimeout:      5 * time.Second,
	})
}

// NewSQLiteBackendWithConfig creates a SQLite backend with custom
// configuration.
func NewSQLiteBackendWithConfig(cfg SQLiteBackendConfig) (*SQLiteBackend, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.SnapshotInterval == 0 {
		cfg.SnapshotInterval = 5 * time.Minute
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	backend := &SQLiteBackend{
		db:               db,
		dbPath:           cfg.DBPath,
		snapshotInterval: cfg.SnapshotInterval,
		done:             make(chan struct{}),
	}

	if err := backend.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := backend.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	go backend.checkpointLoop()

	return backend, nil
}

// initSchema creates the database schema if it doesn't exist.
func (s *SQLiteBackend) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS governance_states (
		limit_id TEXT PRIMARY KEY,
		limit_config TEXT NOT NULL,
		records TEXT,
		workflows TEXT,
		pending TEXT,
		last_updated INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_governance_last_updated ON governance_states(last_updated);
	`

	_, err := s.db.Exec(schema)
	return err
}

// prepareStatements prepares SQL statements for reuse.
func (s *SQLiteBackend) prepareStatements() error {
	var err error

	s.saveStmt, err = s.db.Prepare(`
		INSERT INTO governance_states (limit_id, limit_config, records, workflows, pending, last_updated, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (limit_id) DO UPDATE SET
			limit_config = excluded.limit_config,
			records = excluded.records,
			workflows = excluded.workflows,
			pending = excluded.pending,
			last_updated = excluded.last_updated
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare save statement: %w", err)
	}

	s.loadStmt, err = s.db.Prepare(`
		SELECT limit_id, limit_config, records, workflows, pending, last_updated, created_at
		FROM governance_states
		WHERE limit_id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare load statement: %w", err)
	}

	s.deleteStmt, err = s.db.Prepare(`DELETE FROM governance_states WHERE limit_id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	s.listStmt, err = s.db.Prepare(`
		SELECT limit_id, limit_config, records, workflows, pending, last_updated, created_at
		FROM governance_states
		ORDER BY limit_id
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare list statement: %w", err)
	}

	s.cleanupStmt, err = s.db.Prepare(`DELETE FROM governance_states WHERE last_updated < ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare cleanup statement: %w", err)
	}

	return nil
}

// Save persists the state, serializing the limit, records, and
// workflows as JSON columns.
func (s *SQLiteBackend) Save(ctx context.Context, state *State) error {
	if state == nil || state.LimitID == "" {
		return fmt.Errorf("state must have a limit id")
	}

	limitJSON, err := json.Marshal(state.Limit)
	if err != nil {
		return fmt.Errorf("failed to marshal limit: %w", err)
	}
	recordsJSON, err := json.Marshal(state.Records)
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}
	workflowsJSON, err := json.Marshal(state.Workflows)
	if err != nil {
		return fmt.Errorf("failed to marshal workflows: %w", err)
	}
	pendingJSON, err := json.Marshal(state.Pending)
	if err != nil {
		return fmt.Errorf("failed to marshal pending spends: %w", err)
	}

	now := time.Now()
	state.LastUpdated = now
	if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}

	_, err = s.saveStmt.ExecContext(ctx,
		state.LimitID,
		string(limitJSON),
		string(recordsJSON),
		string(workflowsJSON),
		string(pendingJSON),
		state.LastUpdated.UnixMilli(),
		state.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// Load retrieves the state for a limit, or nil when absent.
func (s *SQLiteBackend) Load(ctx context.Context, limitID string) (*State, error) {
	row := s.loadStmt.QueryRowContext(ctx, limitID)

	state, err := scanState(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	return state, nil
}

// Delete removes the state for a limit.
func (s *SQLiteBackend) Delete(ctx context.Context, limitID string) error {
	if _, err := s.deleteStmt.ExecContext(ctx, limitID); err != nil {
		return fmt.Errorf("failed to delete state: %w", err)
	}
	return nil
}

// List returns all persisted states.
func (s *SQLiteBackend) List(ctx context.Context) ([]*State, error) {
	rows, err := s.listStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list states: %w", err)
	}
	defer rows.Close()

	var states []*State
	for rows.Next() {
		state, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan state: %w", err)
		}
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate states: %w", err)
	}
	return states, nil
}

// Cleanup removes states not updated since the cutoff.
func (s *SQLiteBackend) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	result, err := s.cleanupStmt.ExecContext(ctx, olderThan.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup states: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleaned states: %w", err)
	}
	return int(affected), nil
}

// Close stops the checkpoint loop and closes the database.
func (s *SQLiteBackend) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)

		// Final checkpoint before closing.
		s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")

		for _, stmt := range []*sql.Stmt{s.saveStmt, s.loadStmt, s.deleteStmt, s.listStmt, s.cleanupStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		err = s.db.Close()
	})
	return err
}

// checkpointLoop periodically checkpoints the WAL until Close.
func (s *SQLiteBackend) checkpointLoop() {
	ticker := time.NewTicker(s.snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
		}
	}
}

// rowScanner abstracts sql.Row and sql.Rows for scanState.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanState decodes one governance_states row.
func scanState(row rowScanner) (*State, error) {
	var (
		limitID       string
		limitJSON     string
		recordsJSON   sql.NullString
		workflowsJSON sql.NullString
		pendingJSON   sql.NullString
		lastUpdated   int64
		createdAt     int64
	)
	if err := row.Scan(&limitID, &limitJSON, &recordsJSON, &workflowsJSON, &pendingJSON, &lastUpdated, &createdAt); err != nil {
		return nil, err
	}

	state := &State{
		LimitID:     limitID,
		LastUpdated: time.UnixMilli(lastUpdated),
		CreatedAt:   time.UnixMilli(createdAt),
	}

	if limitJSON != "" && limitJSON != "null" {
		var limit budget.SpendingLimit
		if err := json.Unmarshal([]byte(limitJSON), &limit); err != nil {
			return nil, fmt.Errorf("failed to unmarshal limit: %w", err)
		}
		state.Limit = &limit
	}
	if recordsJSON.Valid && recordsJSON.String != "" && recordsJSON.String != "null" {
		if err := json.Unmarshal([]byte(recordsJSON.String), &state.Records); err != nil {
			return nil, fmt.Errorf("failed to unmarshal records: %w", err)
		}
	}
	if workflowsJSON.Valid && workflowsJSON.String != "" && workflowsJSON.String != "null" {
		var workflows []*workflow.Workflow
		if err := json.Unmarshal([]byte(workflowsJSON.String), &workflows); err != nil {
			return nil, fmt.Errorf("failed to unmarshal workflows: %w", err)
		}
		state.Workflows = workflows
	}
	if pendingJSON.Valid && pendingJSON.String != "" && pendingJSON.String != "null" {
		if err := json.Unmarshal([]byte(pendingJSON.String), &state.Pending); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pending spends: %w", err)
		}
	}

	return state, nil
}
