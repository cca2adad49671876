/*
statement.go - Per-user pay statements

PURPOSE:
  Builds the read-side view a staff member sees: every assignment with
  its event, the itemized breakdown recomputed from the stored selection,
  and paid/unpaid totals over the effective amounts.

NOTE:
  The breakdown shown here is decorative detail for the current rules;
  the money totals always come from the stored cents, so a rule change
  never silently moves amounts that were already persisted.
*/
package roster

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/zhiluke001-ux/atag-ot/pricing"
)

// StatementLine is one assignment joined with its event and an itemized
// breakdown under the current rules.
type StatementLine struct {
	Assignment Assignment
	Event      Event
	Breakdown  pricing.PayBreakdown

	// EffectiveCents is the override when set, the stored default
	// otherwise.
	EffectiveCents int64
}

// PayStatement is the full statement for one user.
type PayStatement struct {
	Lines       []StatementLine
	PaidCents   int64
	UnpaidCents int64
	TotalCents  int64
}

// StatementBuilder assembles pay statements from the store.
type StatementBuilder struct {
	Store  Store
	Logger *zap.Logger
}

func NewStatementBuilder(store Store, logger *zap.Logger) *StatementBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatementBuilder{Store: store, Logger: logger}
}

// BuildForUser returns the user's statement, newest event first.
// A corrupt stored selection degrades to an empty selection for the
// breakdown; the stored amounts are unaffected.
func (b *StatementBuilder) BuildForUser(ctx context.Context, userID string) (*PayStatement, error) {
	assignments, err := b.Store.ListAssignmentsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	st := &PayStatement{Lines: make([]StatementLine, 0, len(assignments))}
	for _, a := range assignments {
		event, err := b.Store.GetEvent(ctx, a.EventID)
		if err != nil {
			return nil, err
		}
		if event == nil {
			b.Logger.Warn("assignment without event, skipping",
				zap.String("assignment_id", a.ID), zap.String("event_id", a.EventID))
			continue
		}

		sel, decodeErr := pricing.DecodeStoredSelection(event.TaskCodes)
		if decodeErr != nil {
			b.Logger.Warn("stored selection unreadable",
				zap.String("event_id", event.ID), zap.Error(decodeErr))
		}

		effective := a.EffectiveCents()
		st.Lines = append(st.Lines, StatementLine{
			Assignment:     a,
			Event:          *event,
			Breakdown:      pricing.ComputeBreakdown(a.WorkRole, event.StartTime, event.EndTime, sel),
			EffectiveCents: effective,
		})

		st.TotalCents += effective
		if a.Status == StatusPaid {
			st.PaidCents += effective
		} else {
			st.UnpaidCents += effective
		}
	}

	sort.SliceStable(st.Lines, func(i, j int) bool {
		return st.Lines[i].Event.Date.After(st.Lines[j].Event.Date)
	})
	return st, nil
}
