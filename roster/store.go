/*
store.go - Persistence interfaces for users, events and assignments

PURPOSE:
  Defines the interface between the reconciler and the database.
  Different implementations can use SQLite or in-memory storage.

ATOMICITY:
  Multi-row writes within one reconciliation (delete removed
  assignments, create/update kept ones) must be all-or-nothing. TxStore
  provides that: the reconciler wraps every mutation in WithTx and the
  store implementation supplies the transaction semantics. The
  reconciler does no locking of its own; concurrent edits to the same
  event resolve last-write-wins at the storage layer.

LOOKUP CONVENTION:
  Get* methods return (nil, nil) when the record does not exist; errors
  are reserved for storage failures.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: production SQLite
  - roster/store/memory.go: in-memory for testing
*/
package roster

import "context"

// =============================================================================
// STORE - CRUD for the three record kinds
// =============================================================================

type Store interface {
	// Users
	GetUser(ctx context.Context, id string) (*User, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]User, error)
	ListUsers(ctx context.Context) ([]User, error)
	SaveUser(ctx context.Context, u User) error

	// Events
	GetEvent(ctx context.Context, id string) (*Event, error)
	ListEvents(ctx context.Context) ([]Event, error)
	SaveEvent(ctx context.Context, e Event) error
	// DeleteEvent removes the event and cascades to its assignments.
	DeleteEvent(ctx context.Context, id string) error

	// Assignments
	GetAssignment(ctx context.Context, id string) (*Assignment, error)
	ListAssignmentsByEvent(ctx context.Context, eventID string) ([]Assignment, error)
	ListAssignmentsByUser(ctx context.Context, userID string) ([]Assignment, error)
	SaveAssignment(ctx context.Context, a Assignment) error
	DeleteAssignment(ctx context.Context, id string) error
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// TxStore wraps Store with transaction support. If fn returns an error
// the transaction is rolled back; otherwise it is committed.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
