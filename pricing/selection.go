/*
selection.go - Selection parsing and validation

PURPOSE:
  One shared validator for both mutation paths (create and update), plus
  the lenient decoder used when reading stored selections back for
  display. The two differ and must not be conflated:

    ParseSelection:        strict. An unknown claim or task code rejects
                           the whole input. Used at the reconciler
                           boundary before anything is persisted.
    DecodeStoredSelection: lenient. A JSON failure yields the empty
                           selection plus an error the caller may log and
                           ignore; unknown codes are silently filtered.
                           Used when rendering breakdowns from storage.
*/
package pricing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidSelection is returned by ParseSelection for malformed input.
	ErrInvalidSelection = errors.New("invalid task selection")
)

// rawSelection mirrors the stored JSON shape with unvalidated enums.
type rawSelection struct {
	Claim     *string          `json:"claim"`
	Codes     []string         `json:"codes"`
	Note      string           `json:"note,omitempty"`
	BaseRates BaseRateOverlay  `json:"baseRates,omitempty"`
	AddOns    AddOnRateOverlay `json:"addOnRates,omitempty"`
	Custom    *CustomItem      `json:"custom,omitempty"`
}

func (r rawSelection) selection(codes []TaskCode, claim *ClaimCode) TaskSelection {
	return TaskSelection{
		Claim:     claim,
		Codes:     codes,
		Note:      r.Note,
		BaseRates: r.BaseRates,
		AddOns:    r.AddOns,
		Custom:    r.Custom,
	}
}

// ParseSelection validates and decodes a selection submitted by a caller.
// The claim must be null or one of the five codes; every entry in codes
// must be one of the four task codes. Anything else rejects the whole
// input.
func ParseSelection(raw []byte) (TaskSelection, error) {
	var r rawSelection
	if err := json.Unmarshal(raw, &r); err != nil {
		return TaskSelection{}, fmt.Errorf("%w: %v", ErrInvalidSelection, err)
	}

	var claim *ClaimCode
	if r.Claim != nil && *r.Claim != "" {
		if !IsClaim(*r.Claim) {
			return TaskSelection{}, fmt.Errorf("%w: unknown claim %q", ErrInvalidSelection, *r.Claim)
		}
		c := ClaimCode(*r.Claim)
		claim = &c
	}

	codes := make([]TaskCode, 0, len(r.Codes))
	for _, c := range r.Codes {
		if !IsTaskCode(c) {
			return TaskSelection{}, fmt.Errorf("%w: unknown task code %q", ErrInvalidSelection, c)
		}
		codes = append(codes, TaskCode(c))
	}

	return r.selection(codes, claim), nil
}

// DecodeStoredSelection decodes a selection previously serialized into an
// event record. Corrupt data yields the empty selection and a non-nil
// error so callers can tell "no selection" from "corrupt stored data";
// unknown codes and claims are dropped silently.
func DecodeStoredSelection(stored string) (TaskSelection, error) {
	if strings.TrimSpace(stored) == "" {
		return TaskSelection{}, nil
	}

	var r rawSelection
	if err := json.Unmarshal([]byte(stored), &r); err != nil {
		return TaskSelection{}, fmt.Errorf("corrupt stored selection: %w", err)
	}

	var claim *ClaimCode
	if r.Claim != nil && IsClaim(*r.Claim) {
		c := ClaimCode(*r.Claim)
		claim = &c
	}

	var codes []TaskCode
	for _, c := range r.Codes {
		if IsTaskCode(c) {
			codes = append(codes, TaskCode(c))
		}
	}

	return r.selection(codes, claim), nil
}

// EncodeSelection serializes a selection for storage on an event record.
func EncodeSelection(sel TaskSelection) string {
	b, err := json.Marshal(sel)
	if err != nil {
		return "{}"
	}
	return string(b)
}
