/*
handlers.go - HTTP handler implementations

PURPOSE:
  Implements the REST endpoints: event CRUD with roster reconciliation,
  assignment status/override mutation, per-user pay statements, user
  administration, and the default rate card.

ERROR MAPPING:
  Domain errors map to HTTP status via the roster error helpers:
  - not-found errors        -> 404
  - client/validation errors -> 400
  - everything else          -> 500

SEE ALSO:
  - server.go: Router configuration
  - dto.go: Request/response types
  - roster/reconciler.go: The mutation semantics behind these endpoints
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhiluke001-ux/atag-ot/pricing"
	"github.com/zhiluke001-ux/atag-ot/roster"
)

// Handler carries the dependencies shared by all endpoints.
type Handler struct {
	Store      roster.TxStore
	Reconciler *roster.Reconciler
	Statements *roster.StatementBuilder
	Logger     *zap.Logger

	validate *validator.Validate
}

// NewHandler creates a new handler with the given store.
func NewHandler(store roster.TxStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:      store,
		Reconciler: roster.NewReconciler(store, logger),
		Statements: roster.NewStatementBuilder(store, logger),
		Logger:     logger,
		validate:   validator.New(),
	}
}

// =============================================================================
// EVENT HANDLERS
// =============================================================================

// ListEvents returns all events with their assignments, newest first.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	events, err := h.Store.ListEvents(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events", err)
		return
	}

	names, err := h.userNames(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users", err)
		return
	}

	dtos := make([]EventDTO, 0, len(events))
	for _, e := range events {
		assignments, err := h.Store.ListAssignmentsByEvent(ctx, e.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to list assignments", err)
			return
		}
		adtos := make([]AssignmentDTO, len(assignments))
		for i, a := range assignments {
			adtos[i] = toAssignmentDTO(a, names[a.UserID])
		}
		dtos = append(dtos, toEventDTO(e, adtos))
	}

	writeJSON(w, http.StatusOK, dtos)
}

// GetEvent returns a single event with its assignments.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	event, err := h.Store.GetEvent(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get event", err)
		return
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "Event not found", nil)
		return
	}

	assignments, err := h.Store.ListAssignmentsByEvent(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list assignments", err)
		return
	}

	names, err := h.userNames(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users", err)
		return
	}

	adtos := make([]AssignmentDTO, len(assignments))
	for i, a := range assignments {
		adtos[i] = toAssignmentDTO(a, names[a.UserID])
	}
	writeJSON(w, http.StatusOK, toEventDTO(*event, adtos))
}

// CreateEvent creates an event and its assignments.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid startTime (use RFC3339)", err)
		return
	}
	end, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid endTime (use RFC3339)", err)
		return
	}

	sel, err := h.parseSelection(req.TaskCodes)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid task selection", err)
		return
	}

	event, err := h.Reconciler.CreateEvent(r.Context(), roster.CreateEventInput{
		Date:      date,
		Project:   req.Project,
		StartTime: start,
		EndTime:   end,
		Selection: sel,
		Remark:    req.Remark,
		Roster:    toRosterEntries(req.Assignments),
		Overrides: roster.Overrides(req.Overrides),
	})
	if err != nil {
		h.writeDomainError(w, "Failed to create event", err)
		return
	}

	writeJSON(w, http.StatusCreated, toEventDTO(*event, nil))
}

// UpdateEvent applies a partial update and reconciles assignments.
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var in roster.UpdateEventInput

	if req.Date != nil {
		d, err := time.Parse("2006-01-02", *req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
		in.Date = &d
	}
	if req.StartTime != nil {
		t, err := time.Parse(time.RFC3339, *req.StartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid startTime (use RFC3339)", err)
			return
		}
		in.StartTime = &t
	}
	if req.EndTime != nil {
		t, err := time.Parse(time.RFC3339, *req.EndTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid endTime (use RFC3339)", err)
			return
		}
		in.EndTime = &t
	}
	in.Project = req.Project
	in.Remark = req.Remark

	if len(req.TaskCodes) > 0 {
		sel, err := h.parseSelection(req.TaskCodes)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid task selection", err)
			return
		}
		in.Selection = &sel
	}

	if req.Assignments != nil {
		entries := toRosterEntries(*req.Assignments)
		in.Roster = &entries
	}
	in.Overrides = roster.Overrides(req.Overrides)

	if err := h.Reconciler.UpdateEvent(r.Context(), id, in); err != nil {
		h.writeDomainError(w, "Failed to update event", err)
		return
	}

	h.GetEvent(w, r)
}

// DeleteEvent removes an event and its assignments.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Reconciler.DeleteEvent(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to delete event", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// =============================================================================
// ASSIGNMENT HANDLERS
// =============================================================================

// UpdateAssignment flips paid status and/or sets the manual override.
func (h *Handler) UpdateAssignment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var mut roster.AssignmentMutation
	if req.Status != nil {
		s := roster.Status(*req.Status)
		mut.Status = &s
	}
	mut.OverrideRM = req.OverrideRM

	p, _ := principalFrom(r.Context())
	a, err := h.Reconciler.MutateAssignment(r.Context(), id, mut, p.UserID)
	if err != nil {
		h.writeDomainError(w, "Failed to update assignment", err)
		return
	}

	writeJSON(w, http.StatusOK, toAssignmentDTO(*a, ""))
}

// =============================================================================
// PAY STATEMENT
// =============================================================================

// MyPay returns the caller's pay statement.
func (h *Handler) MyPay(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing identity", nil)
		return
	}

	st, err := h.Statements.BuildForUser(r.Context(), p.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build statement", err)
		return
	}

	dto := PayStatementDTO{
		Lines:    make([]StatementLineDTO, len(st.Lines)),
		PaidRM:   pricing.CentsToRM(st.PaidCents),
		UnpaidRM: pricing.CentsToRM(st.UnpaidCents),
		TotalRM:  pricing.CentsToRM(st.TotalCents),
	}
	for i, line := range st.Lines {
		items := make([]PayLineItemDTO, len(line.Breakdown.Items))
		for j, item := range line.Breakdown.Items {
			items[j] = PayLineItemDTO{
				Key:      item.Key,
				Label:    item.Label,
				AmountRM: item.AmountRM.StringFixed(2),
			}
		}
		dto.Lines[i] = StatementLineDTO{
			AssignmentID: line.Assignment.ID,
			EventID:      line.Event.ID,
			Date:         line.Event.Date.Format("2006-01-02"),
			Project:      line.Event.Project,
			WorkRole:     string(line.Assignment.WorkRole),
			Status:       string(line.Assignment.Status),
			Hours:        line.Breakdown.Hours.StringFixed(2),
			Items:        items,
			Inline:       pricing.FormatBreakdownInline(line.Breakdown.Items),
			PayableRM:    pricing.CentsToRM(line.EffectiveCents),
		}
	}

	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// ListUsers returns all users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users", err)
		return
	}

	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateUser creates a staff account.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}
	if !pricing.IsWorkRole(req.DefaultWorkRole) {
		writeError(w, http.StatusBadRequest, "Invalid defaultWorkRole", nil)
		return
	}

	now := time.Now()
	u := roster.User{
		ID:              uuid.New().String(),
		Name:            req.Name,
		Email:           req.Email,
		Role:            roster.AccountUser,
		Grade:           roster.GradeJunior,
		DefaultWorkRole: pricing.WorkRole(req.DefaultWorkRole),
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if req.Role != "" {
		u.Role = roster.AccountRole(req.Role)
	}
	if req.Grade != "" {
		u.Grade = roster.Grade(req.Grade)
	}

	if err := h.Store.SaveUser(r.Context(), u); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create user", err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(u))
}

// UpdateUser applies a partial update to a staff account. Demoting or
// deactivating the last active admin is rejected.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	u, err := h.Store.GetUser(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get user", err)
		return
	}
	if u == nil {
		writeError(w, http.StatusNotFound, "User not found", nil)
		return
	}

	losingAdmin := u.Role == roster.AccountAdmin && u.Active &&
		((req.Role != nil && roster.AccountRole(*req.Role) != roster.AccountAdmin) ||
			(req.Active != nil && !*req.Active))
	if losingAdmin {
		ok, err := h.hasOtherActiveAdmin(ctx, u.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to check admins", err)
			return
		}
		if !ok {
			writeError(w, http.StatusBadRequest, "Cannot demote the last admin", nil)
			return
		}
	}

	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Email != nil {
		u.Email = *req.Email
	}
	if req.Role != nil {
		u.Role = roster.AccountRole(*req.Role)
	}
	if req.Grade != nil {
		u.Grade = roster.Grade(*req.Grade)
	}
	if req.DefaultWorkRole != nil {
		if !pricing.IsWorkRole(*req.DefaultWorkRole) {
			writeError(w, http.StatusBadRequest, "Invalid defaultWorkRole", nil)
			return
		}
		u.DefaultWorkRole = pricing.WorkRole(*req.DefaultWorkRole)
	}
	if req.Active != nil {
		u.Active = *req.Active
	}
	u.UpdatedAt = time.Now()

	if err := h.Store.SaveUser(ctx, *u); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(*u))
}

func (h *Handler) hasOtherActiveAdmin(ctx context.Context, excludeID string) (bool, error) {
	users, err := h.Store.ListUsers(ctx)
	if err != nil {
		return false, err
	}
	for _, u := range users {
		if u.ID != excludeID && u.Role == roster.AccountAdmin && u.Active {
			return true, nil
		}
	}
	return false, nil
}

// =============================================================================
// RATES
// =============================================================================

// GetRates returns the built-in rate card.
func (h *Handler) GetRates(w http.ResponseWriter, r *http.Request) {
	dto := RateCardDTO{AddOns: toAddOnRatesDTO(pricing.DefaultAddOnRates())}
	for _, claim := range pricing.ClaimCodes {
		base := pricing.DefaultBaseRates(claim)
		dto.Claims = append(dto.Claims, ClaimRatesDTO{
			Claim:         string(claim),
			Label:         pricing.ClaimLabel[claim],
			Kind:          string(base.Kind),
			MarshalJunior: base.MarshalJunior.StringFixed(2),
			MarshalSenior: base.MarshalSenior.StringFixed(2),
			EmceeJunior:   base.EmceeJunior.StringFixed(2),
			EmceeSenior:   base.EmceeSenior.StringFixed(2),
		})
	}
	writeJSON(w, http.StatusOK, dto)
}

func toAddOnRatesDTO(a pricing.AddOnRates) AddOnRatesDTO {
	return AddOnRatesDTO{
		BackendPerHour:       a.BackendPerHour.StringFixed(2),
		After6pmPerHour:      a.After6PMPerHour.StringFixed(2),
		EarlyCallingFlat:     a.EarlyCallingFlat.StringFixed(2),
		LoadingUnloadingFlat: a.LoadingUnloadingFlat.StringFixed(2),
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) parseSelection(raw json.RawMessage) (pricing.TaskSelection, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	return pricing.ParseSelection(raw)
}

// userNames maps user id to display name for assignment DTOs.
func (h *Handler) userNames(r *http.Request) (map[string]string, error) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}
	return names, nil
}

func toRosterEntries(reqs []AssignmentEntryRequest) []roster.RosterEntry {
	entries := make([]roster.RosterEntry, len(reqs))
	for i, a := range reqs {
		entries[i] = roster.RosterEntry{
			UserID:   a.UserID,
			WorkRole: pricing.WorkRole(a.WorkRole),
		}
	}
	return entries
}

// writeDomainError maps domain errors to HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case roster.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case roster.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Logger.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
