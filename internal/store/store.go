// Package store holds the authoritative task collection behind a single
// interface with three interchangeable backends: in-memory, SQLite for
// single-node embedded deployments, and Postgres for shared deployments.
package store

import (
	"context"

	"tasksync-backend/internal/task"
)

// Store is the keyed record collection and its mutation operations.
// Each operation is an independent single-record write: no transactions span
// records and no version checks are made. Implementations must be safe for
// concurrent use.
type Store interface {
	// Create validates the text, assigns an id and a monotonic server-side
	// creation timestamp, and inserts the record with completed=false.
	Create(ctx context.Context, text, creatorID string) (task.Record, error)

	// Toggle flips the record's completed flag. Any resolved identity may
	// toggle any record; ownership is deliberately not checked here.
	Toggle(ctx context.Context, id string) (task.Record, error)

	// Delete removes the record permanently. Ownership is enforced at this
	// boundary: callers other than the creator get apperr.ErrAuthorization.
	// Deleted ids are never reused.
	Delete(ctx context.Context, id, callerID string) error

	// List returns the current records in no particular order.
	List(ctx context.Context) ([]task.Record, error)

	Close() error
}
