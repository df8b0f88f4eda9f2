// Package journal provides an append-only audit journal for spend
// governance decisions.
//
// # Overview
//
// Every governance event (a policy evaluation, a purchase gate
// decision, a workflow action, a period rollover) is recorded as an
// immutable journal entry. Entries are written once and never updated
// or deleted except through retention cleanup, giving auditors a
// complete record of who decided what and when.
//
// # Storage
//
// The journal persists to SQLite. The schema indexes entries by entity
// and time so audit queries stay cheap as the journal grows.
package journal
