/*
compute.go - Hours and breakdown computation

PURPOSE:
  The two entry points of the pay rule engine:

    ComputeBreakdown: itemized breakdown for display (per-item rounding,
                      zero items suppressed, total re-rounded)
    ComputeDefault:   the persisted default amount (single final rounding)

  Both are deterministic and total: invalid roles fall back to a guard
  value, malformed numbers resolve to defaults or zero, and the engine
  never returns an error.

ROUNDING:
  round2 rounds half-up at the cent boundary. ComputeBreakdown rounds
  each item and then the sum (double rounding, kept for bit-for-bit
  output compatibility); ComputeDefault accumulates unrounded components
  and rounds once at the end.

CROSS-MIDNIGHT:
  A negative raw delta between start and end is treated as crossing
  midnight: 24 hours are added before dividing. The breakdown path
  additionally clamps a still-negative result to zero.
*/
package pricing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// HoursBetween returns the event duration in hours, rounded to 2 decimal
// places. end < start is treated as crossing midnight.
func HoursBetween(start, end time.Time) decimal.Decimal {
	delta := end.Sub(start)
	if delta < 0 {
		delta += 24 * time.Hour
	}
	return round2(decimal.NewFromFloat(delta.Hours()))
}

// =============================================================================
// CURRENCY BOUNDARY
// =============================================================================

// RMToCents converts an RM amount to integer minor units for storage.
func RMToCents(amountRM decimal.Decimal) int64 {
	return amountRM.Mul(hundred).Round(0).IntPart()
}

// CentsToRM formats stored minor units as an RM string with 2 fixed
// decimals.
func CentsToRM(cents int64) string {
	return decimal.NewFromInt(cents).Shift(-2).StringFixed(2)
}

// =============================================================================
// DEFAULT AMOUNT - canonical path for persisted amountDefault
// =============================================================================

// ComputeDefault returns the default pay in RM for one assignment, rounded
// to 2 decimals. Invalid roles fall back to junior marshal.
func ComputeDefault(role WorkRole, start, end time.Time, sel TaskSelection) decimal.Decimal {
	p := RoleOrDefault(role, WorkRoleJuniorMarshal).Profile()
	hrs := HoursBetween(start, end)

	total := decimal.Zero

	if sel.Claim != nil {
		base := ResolveBaseRates(*sel.Claim, sel)
		switch *sel.Claim {
		case ClaimEventHourly:
			// Marshal hourly only; the emcee hourly rate is defined as 0.
			if p.Function == FunctionMarshal {
				total = total.Add(hrs.Mul(marshalRate(base, p)))
			}
		case ClaimEvent2D1N, ClaimEvent3D2N:
			total = total.Add(base.ForProfile(p))
		default:
			// Half/full day: the role's function selects the rate pair.
			total = total.Add(base.ForProfile(p))
		}
	}

	add := ResolveAddOnRates(sel)
	startsAfter6PM := start.Hour() >= 18

	for _, code := range sel.Codes {
		switch code {
		case TaskBackend:
			total = total.Add(hrs.Mul(add.BackendPerHour))
		case TaskAfter6PM:
			if startsAfter6PM {
				total = total.Add(hrs.Mul(add.After6PMPerHour))
			}
		case TaskEarlyCalling:
			total = total.Add(add.EarlyCallingFlat)
		case TaskLoadingUnloading:
			total = total.Add(add.LoadingUnloadingFlat)
		}
	}

	if sel.Custom != nil && sel.Custom.Enabled {
		total = total.Add(sel.Custom.Amount.ResolveOrZero())
	}

	return round2(total)
}

func marshalRate(base BaseRates, p RoleProfile) decimal.Decimal {
	if p.Seniority == SenioritySenior {
		return base.MarshalSenior
	}
	return base.MarshalJunior
}

// =============================================================================
// ITEMIZED BREAKDOWN - display path
// =============================================================================

// ComputeBreakdown returns the itemized pay breakdown for one assignment.
// Items with a computed amount of zero or less are suppressed; the total
// is the rounded sum of the surviving (already rounded) items.
func ComputeBreakdown(role WorkRole, start, end time.Time, sel TaskSelection) PayBreakdown {
	p := RoleOrDefault(role, WorkRoleJuniorMarshal).Profile()

	hrs := HoursBetween(start, end)
	if hrs.IsNegative() {
		hrs = decimal.Zero
	}

	var items []PayLineItem

	if sel.Claim != nil {
		claim := *sel.Claim
		base := ResolveBaseRates(claim, sel)

		switch claim {
		case ClaimEventHourly:
			if p.Function == FunctionMarshal {
				rate := marshalRate(base, p)
				amt := round2(hrs.Mul(rate))
				if amt.IsPositive() {
					items = append(items, PayLineItem{
						Key:      ItemKeyBase,
						Label:    fmt.Sprintf("%s (%sh × RM%s/hr)", ClaimLabel[claim], hrs, rate),
						AmountRM: amt,
					})
				}
			}
		default:
			amt := round2(base.ForProfile(p))
			if amt.IsPositive() {
				items = append(items, PayLineItem{
					Key:      ItemKeyBase,
					Label:    ClaimLabel[claim],
					AmountRM: amt,
				})
			}
		}
	}

	add := ResolveAddOnRates(sel)
	startsAfter6PM := start.Hour() >= 18

	for _, code := range sel.Codes {
		switch code {
		case TaskBackend:
			amt := round2(hrs.Mul(add.BackendPerHour))
			if amt.IsPositive() {
				items = append(items, PayLineItem{
					Key:      ItemKeyBackend,
					Label:    fmt.Sprintf("Backend (%sh × RM%s/hr)", hrs, add.BackendPerHour),
					AmountRM: amt,
				})
			}
		case TaskAfter6PM:
			appliedHrs := decimal.Zero
			if startsAfter6PM {
				appliedHrs = hrs
			}
			amt := round2(appliedHrs.Mul(add.After6PMPerHour))
			if amt.IsPositive() {
				items = append(items, PayLineItem{
					Key:      ItemKeyAfter6PM,
					Label:    fmt.Sprintf("Event starts after 6PM (%sh × RM%s/hr)", appliedHrs, add.After6PMPerHour),
					AmountRM: amt,
				})
			}
		case TaskEarlyCalling:
			amt := round2(add.EarlyCallingFlat)
			if amt.IsPositive() {
				items = append(items, PayLineItem{Key: ItemKeyEarly, Label: "Early Calling", AmountRM: amt})
			}
		case TaskLoadingUnloading:
			amt := round2(add.LoadingUnloadingFlat)
			if amt.IsPositive() {
				items = append(items, PayLineItem{Key: ItemKeyLoad, Label: "Loading & Unloading", AmountRM: amt})
			}
		}
	}

	if sel.Custom != nil && sel.Custom.Enabled {
		amt := round2(sel.Custom.Amount.ResolveOrZero())
		if amt.IsPositive() {
			label := strings.TrimSpace(sel.Custom.Label)
			if label == "" {
				label = "Custom"
			}
			items = append(items, PayLineItem{Key: ItemKeyCustom, Label: label, AmountRM: amt})
		}
	}

	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.AmountRM)
	}

	return PayBreakdown{
		Hours:   hrs,
		Items:   items,
		TotalRM: round2(total),
	}
}

// FormatBreakdownInline renders a breakdown as a single display line:
// "Event - Half Day (RM80.00) + Early Calling (RM30.00)".
func FormatBreakdownInline(items []PayLineItem) string {
	if len(items) == 0 {
		return "-"
	}
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%s (RM%s)", it.Label, it.AmountRM.StringFixed(2))
	}
	return strings.Join(parts, " + ")
}
