/*
dto.go - API request/response types

PURPOSE:
  Defines the JSON shapes of the HTTP API, separate from domain types.
  Money crosses the wire as RM strings with two decimals; cents stay an
  internal storage detail.

CONVENTIONS:
  - Dates are YYYY-MM-DD, instants are RFC3339
  - Optional request fields are pointers; nil means "leave unchanged"
  - taskCodes travels as raw JSON and is parsed by the pricing package,
    which owns the selection format

SEE ALSO:
  - handlers.go: Handler implementations using these types
  - pricing/selection.go: Task selection parsing
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/zhiluke001-ux/atag-ot/pricing"
	"github.com/zhiluke001-ux/atag-ot/roster"
)

// ErrorResponse is the standard error shape.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// EVENTS
// =============================================================================

// AssignmentEntryRequest is one desired roster member in an event
// create/update request.
type AssignmentEntryRequest struct {
	UserID   string `json:"userId" validate:"required"`
	WorkRole string `json:"workRole,omitempty"`
}

type CreateEventRequest struct {
	Date        string                       `json:"date" validate:"required"`
	Project     string                       `json:"project" validate:"required"`
	StartTime   string                       `json:"startTime" validate:"required"`
	EndTime     string                       `json:"endTime" validate:"required"`
	TaskCodes   json.RawMessage              `json:"taskCodes,omitempty"`
	Remark      string                       `json:"remark,omitempty"`
	Assignments []AssignmentEntryRequest     `json:"assignments" validate:"required,min=1,dive"`
	Overrides   map[string]pricing.RateValue `json:"overrides,omitempty"`
}

// UpdateEventRequest is a partial update. A non-nil Assignments list
// switches the update to roster-sync mode.
type UpdateEventRequest struct {
	Date        *string                      `json:"date,omitempty"`
	Project     *string                      `json:"project,omitempty"`
	StartTime   *string                      `json:"startTime,omitempty"`
	EndTime     *string                      `json:"endTime,omitempty"`
	TaskCodes   json.RawMessage              `json:"taskCodes,omitempty"`
	Remark      *string                      `json:"remark,omitempty"`
	Assignments *[]AssignmentEntryRequest    `json:"assignments,omitempty"`
	Overrides   map[string]pricing.RateValue `json:"overrides,omitempty"`
}

type AssignmentDTO struct {
	ID         string  `json:"id"`
	UserID     string  `json:"userId"`
	UserName   string  `json:"userName,omitempty"`
	WorkRole   string  `json:"workRole"`
	Status     string  `json:"status"`
	DefaultRM  string  `json:"defaultRM"`
	OverrideRM *string `json:"overrideRM"`
	PayableRM  string  `json:"payableRM"`
	PaidAt     *string `json:"paidAt,omitempty"`
	PaidBy     string  `json:"paidBy,omitempty"`
}

type EventDTO struct {
	ID          string          `json:"id"`
	Date        string          `json:"date"`
	Project     string          `json:"project"`
	StartTime   string          `json:"startTime"`
	EndTime     string          `json:"endTime"`
	TaskCodes   json.RawMessage `json:"taskCodes"`
	Remark      string          `json:"remark,omitempty"`
	Assignments []AssignmentDTO `json:"assignments,omitempty"`
}

// =============================================================================
// ASSIGNMENT MUTATION
// =============================================================================

type UpdateAssignmentRequest struct {
	Status     *string `json:"status,omitempty"`
	OverrideRM *string `json:"overrideRM,omitempty"`
}

// =============================================================================
// PAY STATEMENT
// =============================================================================

type PayLineItemDTO struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	AmountRM string `json:"amountRM"`
}

type StatementLineDTO struct {
	AssignmentID string           `json:"assignmentId"`
	EventID      string           `json:"eventId"`
	Date         string           `json:"date"`
	Project      string           `json:"project"`
	WorkRole     string           `json:"workRole"`
	Status       string           `json:"status"`
	Hours        string           `json:"hours"`
	Items        []PayLineItemDTO `json:"items"`
	Inline       string           `json:"inline"`
	PayableRM    string           `json:"payableRM"`
}

type PayStatementDTO struct {
	Lines    []StatementLineDTO `json:"lines"`
	PaidRM   string             `json:"paidRM"`
	UnpaidRM string             `json:"unpaidRM"`
	TotalRM  string             `json:"totalRM"`
}

// =============================================================================
// USERS
// =============================================================================

type CreateUserRequest struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Role            string `json:"role" validate:"omitempty,oneof=ADMIN USER"`
	Grade           string `json:"grade" validate:"omitempty,oneof=JUNIOR SENIOR"`
	DefaultWorkRole string `json:"defaultWorkRole" validate:"required"`
}

type UpdateUserRequest struct {
	Name            *string `json:"name,omitempty"`
	Email           *string `json:"email,omitempty" validate:"omitempty,email"`
	Role            *string `json:"role,omitempty" validate:"omitempty,oneof=ADMIN USER"`
	Grade           *string `json:"grade,omitempty" validate:"omitempty,oneof=JUNIOR SENIOR"`
	DefaultWorkRole *string `json:"defaultWorkRole,omitempty"`
	Active          *bool   `json:"active,omitempty"`
}

type UserDTO struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Role            string `json:"role"`
	Grade           string `json:"grade"`
	DefaultWorkRole string `json:"defaultWorkRole"`
	Active          bool   `json:"active"`
}

// =============================================================================
// RATES
// =============================================================================

type RateCardDTO struct {
	Claims []ClaimRatesDTO `json:"claims"`
	AddOns AddOnRatesDTO   `json:"addOns"`
}

type ClaimRatesDTO struct {
	Claim         string `json:"claim"`
	Label         string `json:"label"`
	Kind          string `json:"kind"`
	MarshalJunior string `json:"marshalJunior"`
	MarshalSenior string `json:"marshalSenior"`
	EmceeJunior   string `json:"emceeJunior"`
	EmceeSenior   string `json:"emceeSenior"`
}

type AddOnRatesDTO struct {
	BackendPerHour       string `json:"backendPerHour"`
	After6pmPerHour      string `json:"after6pmPerHour"`
	EarlyCallingFlat     string `json:"earlyCallingFlat"`
	LoadingUnloadingFlat string `json:"loadingUnloadingFlat"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toUserDTO(u roster.User) UserDTO {
	return UserDTO{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Role:            string(u.Role),
		Grade:           string(u.Grade),
		DefaultWorkRole: string(u.DefaultWorkRole),
		Active:          u.Active,
	}
}

func toAssignmentDTO(a roster.Assignment, userName string) AssignmentDTO {
	dto := AssignmentDTO{
		ID:        a.ID,
		UserID:    a.UserID,
		UserName:  userName,
		WorkRole:  string(a.WorkRole),
		Status:    string(a.Status),
		DefaultRM: pricing.CentsToRM(a.AmountDefault),
		PayableRM: pricing.CentsToRM(a.EffectiveCents()),
		PaidBy:    a.PaidBy,
	}
	if a.AmountOverride != nil {
		s := pricing.CentsToRM(*a.AmountOverride)
		dto.OverrideRM = &s
	}
	if a.PaidAt != nil {
		s := a.PaidAt.Format(time.RFC3339)
		dto.PaidAt = &s
	}
	return dto
}

func toEventDTO(e roster.Event, assignments []AssignmentDTO) EventDTO {
	taskCodes := json.RawMessage(e.TaskCodes)
	if len(taskCodes) == 0 {
		taskCodes = json.RawMessage("{}")
	}
	return EventDTO{
		ID:          e.ID,
		Date:        e.Date.Format("2006-01-02"),
		Project:     e.Project,
		StartTime:   e.StartTime.Format(time.RFC3339),
		EndTime:     e.EndTime.Format(time.RFC3339),
		TaskCodes:   taskCodes,
		Remark:      e.Remark,
		Assignments: assignments,
	}
}
