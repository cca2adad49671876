package pricing_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhiluke001-ux/atag-ot/pricing"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func at(hour, min int) time.Time {
	return time.Date(2026, time.March, 7, hour, min, 0, 0, time.UTC)
}

func claimPtr(c pricing.ClaimCode) *pricing.ClaimCode {
	return &c
}

func rmStr(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// =============================================================================
// BREAKDOWN SCENARIOS
// =============================================================================

func TestComputeBreakdown_SeniorMarshalHourly(t *testing.T) {
	// GIVEN: Senior marshal on an hourly claim, 18:00-20:00, no add-ons
	// WHEN: Computing the breakdown
	// THEN: One base item at 2h x RM30 = 60.00

	sel := pricing.TaskSelection{Claim: claimPtr(pricing.ClaimEventHourly)}
	bd := pricing.ComputeBreakdown(pricing.WorkRoleSeniorMarshal, at(18, 0), at(20, 0), sel)

	require.Len(t, bd.Items, 1)
	assert.Equal(t, pricing.ItemKeyBase, bd.Items[0].Key)
	assert.Equal(t, "Event - Hourly (2h × RM30/hr)", bd.Items[0].Label)
	assert.True(t, bd.Items[0].AmountRM.Equal(rmStr("60")), "got %s", bd.Items[0].AmountRM)
	assert.True(t, bd.TotalRM.Equal(rmStr("60")), "got %s", bd.TotalRM)
}

func TestComputeBreakdown_JuniorEmceeFullDay(t *testing.T) {
	// GIVEN: Junior emcee on a full-day claim
	// WHEN: Computing the breakdown
	// THEN: One flat item of 88.00

	sel := pricing.TaskSelection{Claim: claimPtr(pricing.ClaimEventFullDay)}
	bd := pricing.ComputeBreakdown(pricing.WorkRoleJuniorEmcee, at(9, 0), at(18, 0), sel)

	require.Len(t, bd.Items, 1)
	assert.Equal(t, "Event - Full Day", bd.Items[0].Label)
	assert.True(t, bd.Items[0].AmountRM.Equal(rmStr("88")))
	assert.True(t, bd.TotalRM.Equal(rmStr("88")))
}

func TestComputeBreakdown_FlatAddOnsOnly(t *testing.T) {
	// GIVEN: No claim, early calling and loading/unloading selected
	// WHEN: Computing the breakdown
	// THEN: Two flat items of 30.00 each, total 60.00

	sel := pricing.TaskSelection{
		Codes: []pricing.TaskCode{pricing.TaskEarlyCalling, pricing.TaskLoadingUnloading},
	}
	bd := pricing.ComputeBreakdown(pricing.WorkRoleJuniorMarshal, at(9, 0), at(12, 0), sel)

	require.Len(t, bd.Items, 2)
	assert.Equal(t, "Early Calling", bd.Items[0].Label)
	assert.Equal(t, "Loading & Unloading", bd.Items[1].Label)
	assert.True(t, bd.Items[0].AmountRM.Equal(rmStr("30")))
	assert.True(t, bd.Items[1].AmountRM.Equal(rmStr("30")))
	assert.True(t, bd.TotalRM.Equal(rmStr("60")))
}

func TestComputeBreakdown_EmceeHourlyYieldsNothing(t *testing.T) {
	// Hourly claims only pay marshals; the emcee hourly rate is 0 and the
	// zero item is suppressed.
	sel := pricing.TaskSelection{Claim: claimPtr(pricing.ClaimEventHourly)}
	bd := pricing.ComputeBreakdown(pricing.WorkRoleSeniorEmcee, at(10, 0), at(14, 0), sel)

	assert.Empty(t, bd.Items)
	assert.True(t, bd.TotalRM.IsZero())
}

func TestComputeBreakdown_CrossMidnight(t *testing.T) {
	// GIVEN: 22:00 to 02:00, which crosses midnight
	// WHEN: Computing hours
	// THEN: 4 hours, not -20

	sel := pricing.TaskSelection{Claim: claimPtr(pricing.ClaimEventHourly)}
	bd := pricing.ComputeBreakdown(pricing.WorkRoleJuniorMarshal, at(22, 0), at(2, 0), sel)

	assert.True(t, bd.Hours.Equal(rmStr("4")), "got %s", bd.Hours)
	require.Len(t, bd.Items, 1)
	assert.True(t, bd.Items[0].AmountRM.Equal(rmStr("80")))
}

func TestComputeBreakdown_After6PMGate(t *testing.T) {
	sel := pricing.TaskSelection{Codes: []pricing.TaskCode{pricing.TaskAfter6PM}}

	// Start at 17:59: gate closed, item suppressed.
	bd := pricing.ComputeBreakdown(pricing.WorkRoleJuniorMarshal, at(17, 59), at(21, 59), sel)
	assert.Empty(t, bd.Items)

	// Start at 18:00: gate open, 4h x RM30.
	bd = pricing.ComputeBreakdown(pricing.WorkRoleJuniorMarshal, at(18, 0), at(22, 0), sel)
	require.Len(t, bd.Items, 1)
	assert.Equal(t, pricing.ItemKeyAfter6PM, bd.Items[0].Key)
	assert.True(t, bd.Items[0].AmountRM.Equal(rmStr("120")))
}

func TestComputeBreakdown_BackendHourly(t *testing.T) {
	sel := pricing.TaskSelection{Codes: []pricing.TaskCode{pricing.TaskBackend}}
	bd := pricing.ComputeBreakdown(pricing.WorkRoleSeniorMarshal, at(10, 0), at(13, 30), sel)

	require.Len(t, bd.Items, 1)
	assert.Equal(t, "Backend (3.5h × RM15/hr)", bd.Items[0].Label)
	assert.True(t, bd.Items[0].AmountRM.Equal(rmStr("52.50")))
}

func TestComputeBreakdown_CustomItem(t *testing.T) {
	sel := pricing.TaskSelection{
		Custom: &pricing.CustomItem{Enabled: true, Label: "Parking claim", Amount: "12.5"},
	}
	bd := pricing.ComputeBreakdown(pricing.WorkRoleJuniorMarshal, at(9, 0), at(12, 0), sel)

	require.Len(t, bd.Items, 1)
	assert.Equal(t, pricing.ItemKeyCustom, bd.Items[0].Key)
	assert.Equal(t, "Parking claim", bd.Items[0].Label)
	assert.True(t, bd.Items[0].AmountRM.Equal(rmStr("12.50")))
}

func TestComputeBreakdown_CustomItemInvalidAmountIsZero(t *testing.T) {
	// A non-numeric custom amount contributes 0 and is suppressed.
	sel := pricing.TaskSelection{
		Custom: &pricing.CustomItem{Enabled: true, Label: "Typo", Amount: "abc"},
	}
	bd := pricing.ComputeBreakdown(pricing.WorkRoleJuniorMarshal, at(9, 0), at(12, 0), sel)

	assert.Empty(t, bd.Items)
}

// =============================================================================
// OVERLAY RESOLUTION
// =============================================================================

func TestComputeBreakdown_BaseRateOverlayWins(t *testing.T) {
	// GIVEN: An hourly claim with a senior marshal rate overridden to 45
	// WHEN: Computing for a senior marshal over 2h
	// THEN: The overlay rate applies

	sel := pricing.TaskSelection{
		Claim:     claimPtr(pricing.ClaimEventHourly),
		BaseRates: pricing.BaseRateOverlay{MarshalSenior: "45"},
	}
	bd := pricing.ComputeBreakdown(pricing.WorkRoleSeniorMarshal, at(10, 0), at(12, 0), sel)

	require.Len(t, bd.Items, 1)
	assert.Equal(t, "Event - Hourly (2h × RM45/hr)", bd.Items[0].Label)
	assert.True(t, bd.Items[0].AmountRM.Equal(rmStr("90")))
}

func TestComputeBreakdown_MalformedOverlayFallsBackToDefault(t *testing.T) {
	// A non-numeric overlay value falls back to the default rate, never
	// to zero.
	sel := pricing.TaskSelection{
		Claim:     claimPtr(pricing.ClaimEventHourly),
		BaseRates: pricing.BaseRateOverlay{MarshalSenior: "not-a-number"},
	}
	bd := pricing.ComputeBreakdown(pricing.WorkRoleSeniorMarshal, at(10, 0), at(12, 0), sel)

	require.Len(t, bd.Items, 1)
	assert.True(t, bd.Items[0].AmountRM.Equal(rmStr("60")), "got %s", bd.Items[0].AmountRM)
}

func TestComputeBreakdown_AddOnOverlay(t *testing.T) {
	sel := pricing.TaskSelection{
		Codes:  []pricing.TaskCode{pricing.TaskEarlyCalling},
		AddOns: pricing.AddOnRateOverlay{EarlyCallingFlat: "50"},
	}
	bd := pricing.ComputeBreakdown(pricing.WorkRoleJuniorMarshal, at(9, 0), at(12, 0), sel)

	require.Len(t, bd.Items, 1)
	assert.True(t, bd.Items[0].AmountRM.Equal(rmStr("50")))
}

func TestComputeBreakdown_OverlayAppliesToWhateverClaimIsSelected(t *testing.T) {
	// The overlay is keyed by slot, not by claim, so switching claims
	// keeps the override in effect.
	sel := pricing.TaskSelection{
		Claim:     claimPtr(pricing.ClaimEventHalfDay),
		BaseRates: pricing.BaseRateOverlay{MarshalJunior: "95"},
	}
	bd := pricing.ComputeBreakdown(pricing.WorkRoleJuniorMarshal, at(9, 0), at(13, 0), sel)

	require.Len(t, bd.Items, 1)
	assert.True(t, bd.Items[0].AmountRM.Equal(rmStr("95")))
}

// =============================================================================
// DEFAULT AMOUNT / ROUNDING
// =============================================================================

func TestComputeDefault_MatchesBreakdownForSimpleCases(t *testing.T) {
	sel := pricing.TaskSelection{
		Claim: claimPtr(pricing.ClaimEventHourly),
		Codes: []pricing.TaskCode{pricing.TaskEarlyCalling},
	}
	def := pricing.ComputeDefault(pricing.WorkRoleSeniorMarshal, at(18, 0), at(20, 0), sel)
	bd := pricing.ComputeBreakdown(pricing.WorkRoleSeniorMarshal, at(18, 0), at(20, 0), sel)

	assert.True(t, def.Equal(bd.TotalRM), "default %s vs breakdown %s", def, bd.TotalRM)
	assert.True(t, def.Equal(rmStr("90")))
}

func TestComputeDefault_InvalidRoleFallsBackToJuniorMarshal(t *testing.T) {
	sel := pricing.TaskSelection{Claim: claimPtr(pricing.ClaimEventHourly)}
	def := pricing.ComputeDefault(pricing.WorkRole("BOGUS"), at(10, 0), at(12, 0), sel)

	assert.True(t, def.Equal(rmStr("40")), "got %s", def)
}

func TestComputeDefault_TwoDayPackagesIgnoreEmceeRates(t *testing.T) {
	sel := pricing.TaskSelection{Claim: claimPtr(pricing.ClaimEvent2D1N)}

	def := pricing.ComputeDefault(pricing.WorkRoleSeniorMarshal, at(9, 0), at(18, 0), sel)
	assert.True(t, def.Equal(rmStr("270")))

	// The emcee 2D1N rate defaults to 0.
	def = pricing.ComputeDefault(pricing.WorkRoleSeniorEmcee, at(9, 0), at(18, 0), sel)
	assert.True(t, def.IsZero())
}

func TestComputeDefault_EmceeOverlayOnPackageClaim(t *testing.T) {
	// An explicit overlay can pay an emcee on a package claim even though
	// the default is 0.
	sel := pricing.TaskSelection{
		Claim:     claimPtr(pricing.ClaimEvent2D1N),
		BaseRates: pricing.BaseRateOverlay{EmceeSenior: "200"},
	}
	def := pricing.ComputeDefault(pricing.WorkRoleSeniorEmcee, at(9, 0), at(18, 0), sel)
	assert.True(t, def.Equal(rmStr("200")))
}

func TestRounding_BreakdownRoundsPerItemThenTotal(t *testing.T) {
	// GIVEN: An hourly rate producing repeating cents (1h40m x RM10 = 16.666..)
	// WHEN: Computing breakdown and default
	// THEN: Breakdown rounds the item to 16.67; default rounds once at the end

	sel := pricing.TaskSelection{
		Claim:     claimPtr(pricing.ClaimEventHourly),
		BaseRates: pricing.BaseRateOverlay{MarshalJunior: "10"},
	}
	start, end := at(10, 0), at(11, 40)

	bd := pricing.ComputeBreakdown(pricing.WorkRoleJuniorMarshal, start, end, sel)
	require.Len(t, bd.Items, 1)
	assert.True(t, bd.Items[0].AmountRM.Equal(rmStr("16.70")), "got %s", bd.Items[0].AmountRM)

	def := pricing.ComputeDefault(pricing.WorkRoleJuniorMarshal, start, end, sel)
	assert.True(t, def.Equal(rmStr("16.70")), "got %s", def)
}

// =============================================================================
// HOURS / CURRENCY HELPERS
// =============================================================================

func TestHoursBetween(t *testing.T) {
	assert.True(t, pricing.HoursBetween(at(9, 0), at(17, 30)).Equal(rmStr("8.5")))
	assert.True(t, pricing.HoursBetween(at(23, 0), at(1, 0)).Equal(rmStr("2")))
	assert.True(t, pricing.HoursBetween(at(9, 0), at(9, 0)).IsZero())
}

func TestCurrencyBoundary(t *testing.T) {
	assert.Equal(t, int64(6000), pricing.RMToCents(rmStr("60")))
	assert.Equal(t, int64(1667), pricing.RMToCents(rmStr("16.67")))
	assert.Equal(t, "60.00", pricing.CentsToRM(6000))
	assert.Equal(t, "16.67", pricing.CentsToRM(1667))
	assert.Equal(t, "0.00", pricing.CentsToRM(0))
}

func TestFormatBreakdownInline(t *testing.T) {
	assert.Equal(t, "-", pricing.FormatBreakdownInline(nil))

	items := []pricing.PayLineItem{
		{Label: "Event - Half Day", AmountRM: rmStr("80")},
		{Label: "Early Calling", AmountRM: rmStr("30")},
	}
	assert.Equal(t, "Event - Half Day (RM80.00) + Early Calling (RM30.00)",
		pricing.FormatBreakdownInline(items))
}
