/*
Package pricing provides the overtime pay rule engine.

PURPOSE:
  This package contains the pure rule set that turns (work role, time
  window, task selection, rate overrides) into an itemized, reproducible
  monetary breakdown. It performs no I/O and has no side effects: given
  the same inputs it always produces the same breakdown.

KEY CONCEPTS IN THIS FILE (types.go):
  - WorkRole: the four legal staffing roles, decomposed into orthogonal
    Seniority and Function at the boundary
  - ClaimCode: the single base-pay category for an event (0 or 1)
  - TaskCode: independently toggled add-on pay components
  - TaskSelection: the full pricing configuration for one event
  - PayLineItem / PayBreakdown: the itemized output

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Totality: bad numeric input resolves to a default or zero, never
     to a panic or an error from the engine itself
  3. Type Safety: roles are dispatched via a lookup table, not
     substring tests on the encoded string

SEE ALSO:
  - rates.go: Default rate tables and overlay resolution
  - compute.go: Hours and breakdown computation
  - selection.go: Selection parsing and validation
*/
package pricing

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// WORK ROLE - Seniority x Function, encoded as a 4-value enum
// =============================================================================

type Seniority string

const (
	SeniorityJunior Seniority = "JUNIOR"
	SenioritySenior Seniority = "SENIOR"
)

type Function string

const (
	FunctionMarshal Function = "MARSHAL"
	FunctionEmcee   Function = "EMCEE"
)

// WorkRole is the external string encoding of a staffing role.
// The four legal combinations of Seniority and Function.
type WorkRole string

const (
	WorkRoleJuniorMarshal WorkRole = "JUNIOR_MARSHAL"
	WorkRoleSeniorMarshal WorkRole = "SENIOR_MARSHAL"
	WorkRoleJuniorEmcee   WorkRole = "JUNIOR_EMCEE"
	WorkRoleSeniorEmcee   WorkRole = "SENIOR_EMCEE"
)

// RoleProfile is the decomposed form of a WorkRole. The engine dispatches
// on this, never on the encoded string.
type RoleProfile struct {
	Seniority Seniority
	Function  Function
}

var roleProfiles = map[WorkRole]RoleProfile{
	WorkRoleJuniorMarshal: {SeniorityJunior, FunctionMarshal},
	WorkRoleSeniorMarshal: {SenioritySenior, FunctionMarshal},
	WorkRoleJuniorEmcee:   {SeniorityJunior, FunctionEmcee},
	WorkRoleSeniorEmcee:   {SenioritySenior, FunctionEmcee},
}

// WorkRoles lists the legal roles in display order.
var WorkRoles = []WorkRole{
	WorkRoleJuniorMarshal,
	WorkRoleSeniorMarshal,
	WorkRoleJuniorEmcee,
	WorkRoleSeniorEmcee,
}

// IsWorkRole reports whether x is one of the four legal role encodings.
func IsWorkRole(x string) bool {
	_, ok := roleProfiles[WorkRole(x)]
	return ok
}

func (r WorkRole) Valid() bool {
	_, ok := roleProfiles[r]
	return ok
}

// Profile decomposes the role. Invalid roles decompose as junior marshal,
// matching the engine's guard value.
func (r WorkRole) Profile() RoleProfile {
	if p, ok := roleProfiles[r]; ok {
		return p
	}
	return roleProfiles[WorkRoleJuniorMarshal]
}

// MakeWorkRole combines the orthogonal fields back into the enum encoding.
func MakeWorkRole(s Seniority, f Function) WorkRole {
	for role, p := range roleProfiles {
		if p.Seniority == s && p.Function == f {
			return role
		}
	}
	return WorkRoleJuniorMarshal
}

// RoleOrDefault returns r when it is a legal role, else def. This is the
// caller-supplied-default guard: the engine never rejects a role.
func RoleOrDefault(r WorkRole, def WorkRole) WorkRole {
	if r.Valid() {
		return r
	}
	return def
}

// WorkRoleLabel maps roles to their human-readable names.
var WorkRoleLabel = map[WorkRole]string{
	WorkRoleJuniorMarshal: "Junior Marshal",
	WorkRoleSeniorMarshal: "Senior Marshal",
	WorkRoleJuniorEmcee:   "Junior Emcee",
	WorkRoleSeniorEmcee:   "Senior Emcee",
}

// =============================================================================
// CLAIM CODE - Base pay category (0 or 1 per event)
// =============================================================================

type ClaimCode string

const (
	ClaimEventHourly  ClaimCode = "EVENT_HOURLY"
	ClaimEventHalfDay ClaimCode = "EVENT_HALF_DAY"
	ClaimEventFullDay ClaimCode = "EVENT_FULL_DAY"
	ClaimEvent2D1N    ClaimCode = "EVENT_2D1N"
	ClaimEvent3D2N    ClaimCode = "EVENT_3D2N"
)

var ClaimCodes = []ClaimCode{
	ClaimEventHourly,
	ClaimEventHalfDay,
	ClaimEventFullDay,
	ClaimEvent2D1N,
	ClaimEvent3D2N,
}

func IsClaim(x string) bool {
	switch ClaimCode(x) {
	case ClaimEventHourly, ClaimEventHalfDay, ClaimEventFullDay, ClaimEvent2D1N, ClaimEvent3D2N:
		return true
	}
	return false
}

func (c ClaimCode) Valid() bool { return IsClaim(string(c)) }

var ClaimLabel = map[ClaimCode]string{
	ClaimEventHourly:  "Event - Hourly",
	ClaimEventHalfDay: "Event - Half Day",
	ClaimEventFullDay: "Event - Full Day",
	ClaimEvent2D1N:    "Event - 2D1N",
	ClaimEvent3D2N:    "Event - 3D2N",
}

// =============================================================================
// TASK CODE - Multi-select add-ons
// =============================================================================

type TaskCode string

const (
	TaskBackend          TaskCode = "BACKEND_RM15"           // per hour
	TaskAfter6PM         TaskCode = "EVENT_AFTER_6PM"        // per hour, gated on start hour
	TaskEarlyCalling     TaskCode = "EARLY_CALLING_RM30"     // flat
	TaskLoadingUnloading TaskCode = "LOADING_UNLOADING_RM30" // flat
)

var TaskCodes = []TaskCode{
	TaskBackend,
	TaskAfter6PM,
	TaskEarlyCalling,
	TaskLoadingUnloading,
}

func IsTaskCode(x string) bool {
	switch TaskCode(x) {
	case TaskBackend, TaskAfter6PM, TaskEarlyCalling, TaskLoadingUnloading:
		return true
	}
	return false
}

func (c TaskCode) Valid() bool { return IsTaskCode(string(c)) }

var TaskLabel = map[TaskCode]string{
	TaskBackend:          "Backend (RM15/hr) — Annual Dinner / Karaoke / Packing / Set Up",
	TaskAfter6PM:         "Event starts after 6PM (per hour)",
	TaskEarlyCalling:     "Early Calling (flat)",
	TaskLoadingUnloading: "Loading & Unloading (flat)",
}

// =============================================================================
// TASK SELECTION - The full pricing configuration for one event
// =============================================================================

// BaseRateOverlay holds per-slot admin overrides of the base rate table.
// Values shadow whichever claim's defaults are being resolved at read
// time; they are NOT scoped to a claim in storage, so switching claims
// with overlay values present carries the overrides along.
type BaseRateOverlay struct {
	MarshalJunior RateValue `json:"marshalJunior,omitempty"`
	MarshalSenior RateValue `json:"marshalSenior,omitempty"`
	EmceeJunior   RateValue `json:"emceeJunior,omitempty"`
	EmceeSenior   RateValue `json:"emceeSenior,omitempty"`
}

// AddOnRateOverlay holds per-slot admin overrides of the add-on rates.
type AddOnRateOverlay struct {
	BackendPerHour       RateValue `json:"backendPerHour,omitempty"`
	After6PMPerHour      RateValue `json:"after6pmPerHour,omitempty"`
	EarlyCallingFlat     RateValue `json:"earlyCallingFlat,omitempty"`
	LoadingUnloadingFlat RateValue `json:"loadingUnloadingFlat,omitempty"`
}

// CustomItem is the optional free-form flat line item.
type CustomItem struct {
	Enabled bool      `json:"enabled"`
	Label   string    `json:"label"`
	Amount  RateValue `json:"amount"`
}

// TaskSelection is the full pricing configuration for one event:
// at most one base claim, any number of add-on codes, optional rate
// overlays and one optional custom line item.
type TaskSelection struct {
	Claim     *ClaimCode       `json:"claim"`
	Codes     []TaskCode       `json:"codes"`
	Note      string           `json:"note,omitempty"`
	BaseRates BaseRateOverlay  `json:"baseRates,omitempty"`
	AddOns    AddOnRateOverlay `json:"addOnRates,omitempty"`
	Custom    *CustomItem      `json:"custom,omitempty"`
}

// HasCode reports whether the add-on code is selected.
func (s TaskSelection) HasCode(code TaskCode) bool {
	for _, c := range s.Codes {
		if c == code {
			return true
		}
	}
	return false
}

// =============================================================================
// PAY BREAKDOWN - The itemized output
// =============================================================================

// Stable line item keys.
const (
	ItemKeyBase     = "BASE"
	ItemKeyBackend  = "BACKEND"
	ItemKeyAfter6PM = "AFTER6PM"
	ItemKeyEarly    = "EARLY"
	ItemKeyLoad     = "LOAD"
	ItemKeyCustom   = "CUSTOM"
)

// PayLineItem is one surviving line of a breakdown. Items with a computed
// amount of zero or less are never emitted.
type PayLineItem struct {
	Key      string          `json:"key"`
	Label    string          `json:"label"`
	AmountRM decimal.Decimal `json:"amountRM"`
}

// PayBreakdown is the full itemized result for one assignment.
type PayBreakdown struct {
	Hours   decimal.Decimal `json:"hours"`
	Items   []PayLineItem   `json:"items"`
	TotalRM decimal.Decimal `json:"totalRM"`
}
