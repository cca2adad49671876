/*
Package roster manages event-staffing assignments and keeps their
persisted pay amounts consistent with event edits.

PURPOSE:
  Sits directly on top of the pricing engine. Given a mutation to an
  event (create, or partial update to time/selection/membership/role),
  the reconciler recomputes each affected assignment's default amount
  while preserving manually-entered overrides and paid status, and
  synchronizes membership to match a submitted roster when one is
  supplied.

KEY CONCEPTS IN THIS FILE (types.go):
  - User: a staff member with a default work role and an active flag
  - Event: one staffed time window with a serialized task selection
  - Assignment: one user's participation in one event, carrying the
    computed default amount and the optional admin override, both in
    integer minor units (cents)

LIFECYCLE:
  Assignments are created with an event or when an admin adds a user to
  an existing roster; their default amount is recomputed (never the
  override) whenever the owning event's time window, selection, or the
  assignment's role changes; they are deleted when removed from a roster
  sync or when the owning event is deleted.

SEE ALSO:
  - reconciler.go: create/update/delete orchestration
  - store.go: persistence interfaces
  - statement.go: per-user pay view
*/
package roster

import (
	"time"

	"github.com/zhiluke001-ux/atag-ot/pricing"
)

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusUnpaid Status = "UNPAID"
	StatusPaid   Status = "PAID"
)

func (s Status) Valid() bool { return s == StatusUnpaid || s == StatusPaid }

// =============================================================================
// ACCOUNT ROLE / GRADE
// =============================================================================

// AccountRole is the principal role supplied by the identity provider.
type AccountRole string

const (
	AccountAdmin AccountRole = "ADMIN"
	AccountUser  AccountRole = "USER"
)

func (r AccountRole) Valid() bool { return r == AccountAdmin || r == AccountUser }

type Grade string

const (
	GradeJunior Grade = "JUNIOR"
	GradeSenior Grade = "SENIOR"
)

func (g Grade) Valid() bool { return g == GradeJunior || g == GradeSenior }

// =============================================================================
// RECORDS
// =============================================================================

// User is a staff member record.
type User struct {
	ID              string
	Name            string
	Email           string
	Role            AccountRole
	Grade           Grade
	DefaultWorkRole pricing.WorkRole
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Event is one staffed job: a date, a time window (which may span
// midnight or multiple days) and a serialized pricing.TaskSelection.
// An event owns its assignments; deleting it cascades.
type Event struct {
	ID        string
	Date      time.Time
	Project   string
	StartTime time.Time
	EndTime   time.Time
	TaskCodes string // serialized pricing.TaskSelection
	Remark    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Assignment is one user's participation in one event. Amounts are in
// integer minor units (cents): AmountDefault is engine-computed,
// AmountOverride is admin-entered and takes precedence when present.
type Assignment struct {
	ID             string
	EventID        string
	UserID         string
	WorkRole       pricing.WorkRole
	Status         Status
	AmountDefault  int64
	AmountOverride *int64
	PaidAt         *time.Time
	PaidBy         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EffectiveCents is the amount actually owed: override if present, else
// the computed default.
func (a Assignment) EffectiveCents() int64 {
	if a.AmountOverride != nil {
		return *a.AmountOverride
	}
	return a.AmountDefault
}
