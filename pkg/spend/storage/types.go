package storage

import (
	"context"
	"time"

	"corsa-hq/quaestor/pkg/budget"
	"corsa-hq/quaestor/pkg/workflow"
)

// Backend defines the interface for governance state persistence.
// Implementations must be thread-safe and support concurrent access.
type Backend interface {
	// Save persists the state for a limit. Existing state is updated.
	Save(ctx context.Context, state *State) error

	// Load retrieves the state for a limit. Returns nil when no state
	// exists; errors indicate system failure.
	Load(ctx context.Context, limitID string) (*State, error)

	// Delete removes the state for a limit. No-op when absent.
	Delete(ctx context.Context, limitID string) error

	// List returns all persisted states.
	List(ctx context.Context) ([]*State, error)

	// Cleanup removes states not updated since the cutoff. Returns the
	// number of entries deleted.
	Cleanup(ctx context.Context, olderThan time.Time) (int, error)

	// Close releases backend resources. The backend must not be used
	// after Close.
	Close() error
}

// State is the persisted governance state for one spending limit.
type State struct {
	// LimitID identifies the limit this state belongs to.
	LimitID string

	// Limit is the limit configuration including its running spend.
	Limit *budget.SpendingLimit

	// Records are the spend transactions posted in the current period.
	Records []budget.SpendRecord

	// Workflows are the approval workflows opened against this limit,
	// terminal ones included until cleanup.
	Workflows []*workflow.Workflow

	// Pending holds the spend record behind each open workflow, keyed
	// by workflow ID. Posted to the limit only on approval.
	Pending map[string]budget.SpendRecord

	// LastUpdated is when this state was last modified.
	LastUpdated time.Time

	// CreatedAt is when this state was first created.
	CreatedAt time.Time
}
