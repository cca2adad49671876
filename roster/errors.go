/*
errors.go - Centralized error types for the roster package

PURPOSE:
  All reconciler error types in one place. The pricing engine itself
  never fails; only the reconciler's orchestration can, and it fails
  before any write (validate-before-mutate) or atomically inside the
  store transaction.

ERROR CATEGORIES:
  1. Not-found errors  - missing event/assignment
  2. Validation errors - bad enums, bad window, unknown users, bad override
  3. Business rules    - zero valid assignees on create

USAGE:
  if errors.Is(err, roster.ErrNoAssignees) { ... }
*/
package roster

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zhiluke001-ux/atag-ot/pricing"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEventNotFound is returned when operating on an event id that
	// does not exist. No mutation is attempted.
	ErrEventNotFound = errors.New("event not found")

	// ErrAssignmentNotFound is returned when mutating a missing assignment.
	ErrAssignmentNotFound = errors.New("assignment not found")

	// ErrUserNotFound is the class of unknown-user failures; see
	// UnknownUsersError for the ids involved.
	ErrUserNotFound = errors.New("user not found")

	// ErrNoAssignees is returned when event creation would leave zero
	// valid assignments after filtering inactive users. The whole
	// creation rolls back.
	ErrNoAssignees = errors.New("event has no valid assignees")

	// ErrInvalidTimeWindow is returned for a missing start or end time.
	// Ordering is not validated: cross-midnight windows are supported.
	ErrInvalidTimeWindow = errors.New("invalid start/end time")

	// ErrInvalidOverride is returned for a non-numeric override amount
	// on the direct assignment mutation path.
	ErrInvalidOverride = errors.New("invalid override amount")

	// ErrInvalidStatus is returned for a status other than PAID/UNPAID.
	ErrInvalidStatus = errors.New("invalid assignment status")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// UnknownUsersError reports roster entries referencing users that do not
// exist. The whole operation fails; nothing is persisted.
type UnknownUsersError struct {
	UserIDs []string
}

func (e *UnknownUsersError) Error() string {
	return fmt.Sprintf("unknown user ids: %s", strings.Join(e.UserIDs, ", "))
}

func (e *UnknownUsersError) Unwrap() error { return ErrUserNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrAssignmentNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrNoAssignees) ||
		errors.Is(err, ErrInvalidTimeWindow) ||
		errors.Is(err, ErrInvalidOverride) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, pricing.ErrInvalidSelection)
}
