/*
rates.go - Default rate tables and overlay resolution

PURPOSE:
  Holds the built-in rate card and resolves effective rates for a
  selection: an overlay value, when present and numeric, always wins
  over the built-in default for its slot; absence, emptiness or a
  malformed value falls back to the default, never to zero.

RATE CARD (RM):
  Claim           mJunior  mSenior  eJunior  eSenior  kind
  EVENT_HOURLY    20       30       0        0        HOURLY
  EVENT_HALF_DAY  80       100      44       88       FLAT
  EVENT_FULL_DAY  150      180      88       168      FLAT
  EVENT_2D1N      230      270      0        0        FLAT
  EVENT_3D2N      300      350      0        0        FLAT

  Add-ons: backend 15/hr, after-6pm 30/hr, early calling 30 flat,
  loading/unloading 30 flat.

SEE ALSO:
  - compute.go: Uses resolved rates to build breakdowns
*/
package pricing

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RATE VALUE - numeric-looking string with fallback semantics
// =============================================================================

// RateValue is an overlay slot value as stored: a numeric-looking string.
// JSON numbers are accepted and kept as their textual form. The empty
// string means "unset".
type RateValue string

// UnmarshalJSON accepts a JSON string, number, or null.
func (v *RateValue) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*v = ""
		return nil
	}
	if len(s) > 0 && s[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*v = RateValue(strings.TrimSpace(str))
		return nil
	}
	*v = RateValue(s)
	return nil
}

func (v RateValue) IsSet() bool { return v != "" }

// Resolve returns the parsed decimal when the value is present and
// numeric, else def. Malformed values fall back to the default, never
// to zero.
func (v RateValue) Resolve(def decimal.Decimal) decimal.Decimal {
	if v == "" {
		return def
	}
	d, err := decimal.NewFromString(string(v))
	if err != nil {
		return def
	}
	return d
}

// ResolveOrZero parses the value, falling back to zero. Used where the
// value itself is the pay component (the custom line item amount).
func (v RateValue) ResolveOrZero() decimal.Decimal {
	return v.Resolve(decimal.Zero)
}

// =============================================================================
// DEFAULT RATE TABLES
// =============================================================================

type RateKind string

const (
	RateHourly RateKind = "HOURLY"
	RateFlat   RateKind = "FLAT"
)

// BaseRates is the resolved base rate card for one claim.
type BaseRates struct {
	Kind          RateKind
	MarshalJunior decimal.Decimal
	MarshalSenior decimal.Decimal
	EmceeJunior   decimal.Decimal
	EmceeSenior   decimal.Decimal
}

// ForProfile selects the rate slot matching a role profile.
func (b BaseRates) ForProfile(p RoleProfile) decimal.Decimal {
	switch p.Function {
	case FunctionEmcee:
		if p.Seniority == SenioritySenior {
			return b.EmceeSenior
		}
		return b.EmceeJunior
	default:
		if p.Seniority == SenioritySenior {
			return b.MarshalSenior
		}
		return b.MarshalJunior
	}
}

// AddOnRates is the resolved add-on rate card.
type AddOnRates struct {
	BackendPerHour       decimal.Decimal
	After6PMPerHour      decimal.Decimal
	EarlyCallingFlat     decimal.Decimal
	LoadingUnloadingFlat decimal.Decimal
}

func rm(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

var defaultBase = map[ClaimCode]BaseRates{
	ClaimEventHourly:  {Kind: RateHourly, MarshalJunior: rm(20), MarshalSenior: rm(30), EmceeJunior: rm(0), EmceeSenior: rm(0)},
	ClaimEventHalfDay: {Kind: RateFlat, MarshalJunior: rm(80), MarshalSenior: rm(100), EmceeJunior: rm(44), EmceeSenior: rm(88)},
	ClaimEventFullDay: {Kind: RateFlat, MarshalJunior: rm(150), MarshalSenior: rm(180), EmceeJunior: rm(88), EmceeSenior: rm(168)},
	ClaimEvent2D1N:    {Kind: RateFlat, MarshalJunior: rm(230), MarshalSenior: rm(270), EmceeJunior: rm(0), EmceeSenior: rm(0)},
	ClaimEvent3D2N:    {Kind: RateFlat, MarshalJunior: rm(300), MarshalSenior: rm(350), EmceeJunior: rm(0), EmceeSenior: rm(0)},
}

var defaultAddOn = AddOnRates{
	BackendPerHour:       rm(15),
	After6PMPerHour:      rm(30),
	EarlyCallingFlat:     rm(30),
	LoadingUnloadingFlat: rm(30),
}

// DefaultBaseRates returns the built-in rate card for a claim.
func DefaultBaseRates(claim ClaimCode) BaseRates {
	return defaultBase[claim]
}

// DefaultAddOnRates returns the built-in add-on rate card.
func DefaultAddOnRates() AddOnRates {
	return defaultAddOn
}

// =============================================================================
// OVERLAY RESOLUTION
// =============================================================================

// ResolveBaseRates overlays the selection's base-rate overrides onto the
// built-in defaults for the given claim. The overlay is not scoped to a
// claim: whichever claim is selected at read time gets the overrides.
func ResolveBaseRates(claim ClaimCode, sel TaskSelection) BaseRates {
	d := defaultBase[claim]
	o := sel.BaseRates
	return BaseRates{
		Kind:          d.Kind,
		MarshalJunior: o.MarshalJunior.Resolve(d.MarshalJunior),
		MarshalSenior: o.MarshalSenior.Resolve(d.MarshalSenior),
		EmceeJunior:   o.EmceeJunior.Resolve(d.EmceeJunior),
		EmceeSenior:   o.EmceeSenior.Resolve(d.EmceeSenior),
	}
}

// ResolveAddOnRates overlays the selection's add-on overrides onto the
// built-in defaults.
func ResolveAddOnRates(sel TaskSelection) AddOnRates {
	o := sel.AddOns
	return AddOnRates{
		BackendPerHour:       o.BackendPerHour.Resolve(defaultAddOn.BackendPerHour),
		After6PMPerHour:      o.After6PMPerHour.Resolve(defaultAddOn.After6PMPerHour),
		EarlyCallingFlat:     o.EarlyCallingFlat.Resolve(defaultAddOn.EarlyCallingFlat),
		LoadingUnloadingFlat: o.LoadingUnloadingFlat.Resolve(defaultAddOn.LoadingUnloadingFlat),
	}
}
