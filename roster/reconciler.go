/*
reconciler.go - Event mutation orchestration

PURPOSE:
  Turns event mutations into consistent assignment rows. Every mutation
  follows the same shape: validate, load current state, derive the
  effective time window and task selection, call the pricing engine for
  each relevant user, and persist inside one store transaction.

RECONCILIATION MODES (update path):
  Roster-sync:    a roster list is supplied. Membership is made to match
                  it exactly - assignments for users no longer listed are
                  deleted (PAID rows included), the rest are updated or
                  created. The override for each user is always set from
                  the overrides map; an absent key clears it.
  Recompute-only: no roster list. Membership and roles stay as they are;
                  only amountDefault is recomputed. Overrides are
                  replaced only for users whose id is an explicit key in
                  the overrides map.

INVARIANT:
  Recomputation never mutates status, paidAt or paidBy. Those change
  only through MutateAssignment.

OVERRIDE PARSING:
  The overrides map is lenient: empty or non-numeric values clear the
  override. The direct mutation path (MutateAssignment) is strict and
  rejects non-numeric input.
*/
package roster

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/zhiluke001-ux/atag-ot/pricing"
)

// =============================================================================
// RECONCILER
// =============================================================================

// Reconciler applies event mutations against a transactional store.
type Reconciler struct {
	Store  TxStore
	Logger *zap.Logger

	// Now is the clock used for paid-at stamps and timestamps.
	// Defaults to time.Now.
	Now func() time.Time
}

func NewReconciler(store TxStore, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{Store: store, Logger: logger, Now: time.Now}
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// RosterEntry is one desired roster member. WorkRole may be empty or
// invalid, in which case the user's stored default role applies.
type RosterEntry struct {
	UserID   string
	WorkRole pricing.WorkRole
}

// Overrides maps user id to an RM amount. Presence of a key is
// significant: an empty or non-numeric value clears the override.
type Overrides map[string]pricing.RateValue

// parseOverrideCents maps a raw override value to stored cents.
// Empty and non-numeric values clear (nil), matching the lenient
// reconcile path.
func parseOverrideCents(raw pricing.RateValue) *int64 {
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return nil
	}
	c := pricing.RMToCents(d)
	return &c
}

// =============================================================================
// CREATE
// =============================================================================

type CreateEventInput struct {
	Date      time.Time
	Project   string
	StartTime time.Time
	EndTime   time.Time
	Selection pricing.TaskSelection
	Remark    string
	Roster    []RosterEntry
	Overrides Overrides
}

// CreateEvent creates an event and fans out one assignment per valid
// roster member. Unknown users fail the whole operation; inactive users
// are skipped silently; zero surviving assignments roll the creation
// back, since an event with no valid assignees is invalid.
func (r *Reconciler) CreateEvent(ctx context.Context, in CreateEventInput) (*Event, error) {
	if in.StartTime.IsZero() || in.EndTime.IsZero() {
		return nil, ErrInvalidTimeWindow
	}

	entries := dedupeRoster(in.Roster)
	if len(entries) == 0 {
		return nil, ErrNoAssignees
	}

	users, err := r.loadRosterUsers(ctx, entries)
	if err != nil {
		return nil, err
	}

	now := r.now()
	event := Event{
		ID:        uuid.New().String(),
		Date:      in.Date,
		Project:   in.Project,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		TaskCodes: pricing.EncodeSelection(in.Selection),
		Remark:    in.Remark,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = r.Store.WithTx(ctx, func(s Store) error {
		if err := s.SaveEvent(ctx, event); err != nil {
			return err
		}

		created := 0
		for _, entry := range entries {
			u := users[entry.UserID]
			if !u.Active {
				r.Logger.Debug("skipping inactive user", zap.String("user_id", entry.UserID))
				continue
			}

			role := pricing.RoleOrDefault(entry.WorkRole, u.DefaultWorkRole)
			if !role.Valid() {
				continue
			}

			a := Assignment{
				ID:             uuid.New().String(),
				EventID:        event.ID,
				UserID:         entry.UserID,
				WorkRole:       role,
				Status:         StatusUnpaid,
				AmountDefault:  r.defaultCents(role, event.StartTime, event.EndTime, in.Selection),
				AmountOverride: overrideFor(in.Overrides, entry.UserID),
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if err := s.SaveAssignment(ctx, a); err != nil {
				return err
			}
			created++
		}

		if created == 0 {
			return ErrNoAssignees
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.Logger.Info("event created",
		zap.String("event_id", event.ID),
		zap.String("project", event.Project),
		zap.Int("roster_size", len(entries)))
	return &event, nil
}

// =============================================================================
// UPDATE / RECONCILE
// =============================================================================

// UpdateEventInput supports partial updates: nil fields keep the stored
// value. A non-nil Roster switches to roster-sync mode.
type UpdateEventInput struct {
	Date      *time.Time
	Project   *string
	StartTime *time.Time
	EndTime   *time.Time
	Selection *pricing.TaskSelection
	Remark    *string

	Roster    *[]RosterEntry
	Overrides Overrides
}

// UpdateEvent applies a partial event update and reconciles the event's
// assignments under the new time window and selection.
func (r *Reconciler) UpdateEvent(ctx context.Context, eventID string, in UpdateEventInput) error {
	event, err := r.Store.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if event == nil {
		return ErrEventNotFound
	}

	if in.Date != nil {
		event.Date = *in.Date
	}
	if in.Project != nil {
		event.Project = *in.Project
	}
	if in.StartTime != nil {
		event.StartTime = *in.StartTime
	}
	if in.EndTime != nil {
		event.EndTime = *in.EndTime
	}
	if in.Remark != nil {
		event.Remark = *in.Remark
	}
	if event.StartTime.IsZero() || event.EndTime.IsZero() {
		return ErrInvalidTimeWindow
	}

	var sel pricing.TaskSelection
	if in.Selection != nil {
		sel = *in.Selection
	} else {
		var decodeErr error
		sel, decodeErr = pricing.DecodeStoredSelection(event.TaskCodes)
		if decodeErr != nil {
			r.Logger.Warn("stored selection unreadable, treating as empty",
				zap.String("event_id", event.ID), zap.Error(decodeErr))
		}
	}
	event.TaskCodes = pricing.EncodeSelection(sel)
	event.UpdatedAt = r.now()

	err = r.Store.WithTx(ctx, func(s Store) error {
		if err := s.SaveEvent(ctx, *event); err != nil {
			return err
		}

		existing, err := s.ListAssignmentsByEvent(ctx, event.ID)
		if err != nil {
			return err
		}

		if in.Roster != nil {
			return r.syncRoster(ctx, s, event, sel, *in.Roster, existing, in.Overrides)
		}
		return r.recomputeExisting(ctx, s, event, sel, existing, in.Overrides)
	})
	if err != nil {
		return err
	}

	r.Logger.Info("event reconciled",
		zap.String("event_id", event.ID),
		zap.Bool("roster_sync", in.Roster != nil))
	return nil
}

// syncRoster makes membership match the desired roster exactly. Removal
// is unconditional: an assignment already marked PAID is deleted along
// with the rest when its user is dropped from the list.
func (r *Reconciler) syncRoster(ctx context.Context, s Store, event *Event, sel pricing.TaskSelection, desired []RosterEntry, existing []Assignment, overrides Overrides) error {
	entries := dedupeRoster(desired)

	users, err := r.loadRosterUsersWith(ctx, s, entries)
	if err != nil {
		return err
	}

	keep := make(map[string]bool, len(entries))
	for _, e := range entries {
		keep[e.UserID] = true
	}
	byUser := make(map[string]Assignment, len(existing))
	for _, a := range existing {
		byUser[a.UserID] = a
		if !keep[a.UserID] {
			if err := s.DeleteAssignment(ctx, a.ID); err != nil {
				return err
			}
		}
	}

	now := r.now()
	for _, entry := range entries {
		u := users[entry.UserID]
		if !u.Active {
			continue
		}

		role := pricing.RoleOrDefault(entry.WorkRole, u.DefaultWorkRole)
		if !role.Valid() {
			continue
		}

		defaultCents := r.defaultCents(role, event.StartTime, event.EndTime, sel)
		override := overrideFor(overrides, entry.UserID)

		if row, ok := byUser[entry.UserID]; ok {
			// Keep status/paidAt/paidBy as-is; only role, default and
			// override move.
			row.WorkRole = role
			row.AmountDefault = defaultCents
			row.AmountOverride = override
			row.UpdatedAt = now
			if err := s.SaveAssignment(ctx, row); err != nil {
				return err
			}
			continue
		}

		a := Assignment{
			ID:             uuid.New().String(),
			EventID:        event.ID,
			UserID:         entry.UserID,
			WorkRole:       role,
			Status:         StatusUnpaid,
			AmountDefault:  defaultCents,
			AmountOverride: override,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.SaveAssignment(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// recomputeExisting keeps membership and roles, recomputing only the
// default amount. Overrides are replaced only for explicit map keys.
func (r *Reconciler) recomputeExisting(ctx context.Context, s Store, event *Event, sel pricing.TaskSelection, existing []Assignment, overrides Overrides) error {
	now := r.now()
	for _, a := range existing {
		if !a.WorkRole.Valid() {
			continue
		}

		a.AmountDefault = r.defaultCents(a.WorkRole, event.StartTime, event.EndTime, sel)
		if raw, ok := overrides[a.UserID]; ok {
			a.AmountOverride = parseOverrideCents(raw)
		}
		a.UpdatedAt = now

		if err := s.SaveAssignment(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// DELETE
// =============================================================================

// DeleteEvent removes an event and all of its assignments.
func (r *Reconciler) DeleteEvent(ctx context.Context, eventID string) error {
	event, err := r.Store.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if event == nil {
		return ErrEventNotFound
	}

	err = r.Store.WithTx(ctx, func(s Store) error {
		return s.DeleteEvent(ctx, eventID)
	})
	if err != nil {
		return err
	}

	r.Logger.Info("event deleted", zap.String("event_id", eventID))
	return nil
}

// =============================================================================
// ASSIGNMENT STATUS / OVERRIDE MUTATION
// =============================================================================

// AssignmentMutation flips one assignment's paid status and/or sets its
// manual override directly. Nil fields are left untouched.
type AssignmentMutation struct {
	Status *Status

	// OverrideRM: empty string clears the override; a numeric RM string
	// sets it; a non-numeric string is rejected.
	OverrideRM *string
}

// MutateAssignment applies a narrow status/override mutation. It never
// recomputes AmountDefault. Transitioning to PAID stamps paidAt and the
// acting admin; transitioning to UNPAID clears both.
func (r *Reconciler) MutateAssignment(ctx context.Context, assignmentID string, mut AssignmentMutation, actor string) (*Assignment, error) {
	a, err := r.Store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrAssignmentNotFound
	}

	if mut.Status != nil {
		switch *mut.Status {
		case StatusPaid:
			now := r.now()
			a.Status = StatusPaid
			a.PaidAt = &now
			a.PaidBy = actor
		case StatusUnpaid:
			a.Status = StatusUnpaid
			a.PaidAt = nil
			a.PaidBy = ""
		default:
			return nil, ErrInvalidStatus
		}
	}

	if mut.OverrideRM != nil {
		raw := *mut.OverrideRM
		if raw == "" {
			a.AmountOverride = nil
		} else {
			d, err := decimal.NewFromString(raw)
			if err != nil {
				return nil, ErrInvalidOverride
			}
			c := pricing.RMToCents(d)
			a.AmountOverride = &c
		}
	}

	a.UpdatedAt = r.now()
	if err := r.Store.SaveAssignment(ctx, *a); err != nil {
		return nil, err
	}
	return a, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// dedupeRoster drops duplicate user ids, first occurrence wins, and
// entries with an empty user id.
func dedupeRoster(entries []RosterEntry) []RosterEntry {
	seen := make(map[string]bool, len(entries))
	out := make([]RosterEntry, 0, len(entries))
	for _, e := range entries {
		if e.UserID == "" || seen[e.UserID] {
			continue
		}
		seen[e.UserID] = true
		out = append(out, e)
	}
	return out
}

func (r *Reconciler) loadRosterUsers(ctx context.Context, entries []RosterEntry) (map[string]User, error) {
	return r.loadRosterUsersWith(ctx, r.Store, entries)
}

// loadRosterUsersWith resolves every roster entry to a user record.
// Any missing id fails the whole operation.
func (r *Reconciler) loadRosterUsersWith(ctx context.Context, s Store, entries []RosterEntry) (map[string]User, error) {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.UserID
	}

	users, err := s.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	found := make(map[string]User, len(users))
	for _, u := range users {
		found[u.ID] = u
	}

	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &UnknownUsersError{UserIDs: missing}
	}
	return found, nil
}

func (r *Reconciler) defaultCents(role pricing.WorkRole, start, end time.Time, sel pricing.TaskSelection) int64 {
	return pricing.RMToCents(pricing.ComputeDefault(role, start, end, sel))
}

func overrideFor(overrides Overrides, userID string) *int64 {
	raw, ok := overrides[userID]
	if !ok {
		return nil
	}
	return parseOverrideCents(raw)
}
