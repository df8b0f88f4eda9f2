// Package storage provides persistence backends for spend-governance
// state.
//
// # Overview
//
// The storage package defines the interface for persisting per-limit
// governance state (the spending limit, its transaction records, and
// any open approval workflows) and provides two implementations:
//
//   - Memory: fast in-memory storage (default, no persistence)
//   - SQLite: lightweight file-based persistence with WAL snapshots
//
// # Usage
//
//	backend := storage.NewMemoryBackend()
//
//	state := &storage.State{
//	    LimitID: "limit-1",
//	    Limit:   limit,
//	    Records: records,
//	}
//	err := backend.Save(ctx, state)
//
//	state, err := backend.Load(ctx, "limit-1")
//
// # Thread Safety
//
// All storage backends are thread-safe and support concurrent access
// from multiple goroutines. Locking is handled internally by each
// backend.
package storage
