package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhiluke001-ux/atag-ot/api"
	"github.com/zhiluke001-ux/atag-ot/pricing"
	"github.com/zhiluke001-ux/atag-ot/roster"
	"github.com/zhiluke001-ux/atag-ot/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	handler := api.NewHandler(store, nil)
	srv := httptest.NewServer(api.NewRouter(handler, nil))
	t.Cleanup(srv.Close)
	return srv, store
}

func seedTestUser(t *testing.T, store *sqlite.Store, id string, role roster.AccountRole, workRole pricing.WorkRole) {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.SaveUser(context.Background(), roster.User{
		ID:              id,
		Name:            "User " + id,
		Email:           id + "@example.com",
		Role:            role,
		Grade:           roster.GradeJunior,
		DefaultWorkRole: workRole,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}))
}

func doRequest(t *testing.T, srv *httptest.Server, method, path, userID, userRole string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
		req.Header.Set("X-User-Role", userRole)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func createEventBody(userIDs ...string) map[string]any {
	assignments := make([]map[string]any, len(userIDs))
	for i, id := range userIDs {
		assignments[i] = map[string]any{"userId": id}
	}
	return map[string]any{
		"date":        "2026-06-20",
		"project":     "Launch Party",
		"startTime":   "2026-06-20T18:00:00Z",
		"endTime":     "2026-06-20T22:00:00Z",
		"taskCodes":   map[string]any{"claim": "EVENT_HOURLY"},
		"assignments": assignments,
	}
}

// =============================================================================
// AUTH
// =============================================================================

func TestAPI_RequiresIdentity(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doRequest(t, srv, http.MethodGet, "/api/rates", "", "", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_EventRoutesAreAdminOnly(t *testing.T) {
	srv, store := newTestServer(t)
	seedTestUser(t, store, "staff", roster.AccountUser, pricing.WorkRoleJuniorMarshal)

	resp := doRequest(t, srv, http.MethodGet, "/api/events", "staff", "USER", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// =============================================================================
// EVENTS
// =============================================================================

func TestAPI_CreateAndGetEvent(t *testing.T) {
	// GIVEN: An admin and two staff members
	// WHEN: Creating an event over the API
	// THEN: The event and its priced assignments come back on GET

	srv, store := newTestServer(t)
	seedTestUser(t, store, "admin", roster.AccountAdmin, pricing.WorkRoleSeniorMarshal)
	seedTestUser(t, store, "u1", roster.AccountUser, pricing.WorkRoleJuniorMarshal)
	seedTestUser(t, store, "u2", roster.AccountUser, pricing.WorkRoleSeniorMarshal)

	resp := doRequest(t, srv, http.MethodPost, "/api/events", "admin", "ADMIN", createEventBody("u1", "u2"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &created)
	require.NotEmpty(t, created.ID)

	resp = doRequest(t, srv, http.MethodGet, "/api/events/"+created.ID, "admin", "ADMIN", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var event struct {
		Project     string `json:"project"`
		Assignments []struct {
			UserID    string `json:"userId"`
			Status    string `json:"status"`
			DefaultRM string `json:"defaultRM"`
			PayableRM string `json:"payableRM"`
		} `json:"assignments"`
	}
	decodeBody(t, resp, &event)

	assert.Equal(t, "Launch Party", event.Project)
	require.Len(t, event.Assignments, 2)
	byUser := map[string]string{}
	for _, a := range event.Assignments {
		assert.Equal(t, "UNPAID", a.Status)
		byUser[a.UserID] = a.DefaultRM
	}
	// 4h hourly from 18:00: junior 80, senior 120.
	assert.Equal(t, "80.00", byUser["u1"])
	assert.Equal(t, "120.00", byUser["u2"])
}

func TestAPI_CreateEvent_UnknownUserIs400(t *testing.T) {
	srv, store := newTestServer(t)
	seedTestUser(t, store, "admin", roster.AccountAdmin, pricing.WorkRoleSeniorMarshal)

	resp := doRequest(t, srv, http.MethodPost, "/api/events", "admin", "ADMIN", createEventBody("ghost"))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body api.ErrorResponse
	decodeBody(t, resp, &body)
	assert.Contains(t, body.Details, "ghost")
}

func TestAPI_CreateEvent_InvalidSelectionIs400(t *testing.T) {
	srv, store := newTestServer(t)
	seedTestUser(t, store, "admin", roster.AccountAdmin, pricing.WorkRoleSeniorMarshal)
	seedTestUser(t, store, "u1", roster.AccountUser, pricing.WorkRoleJuniorMarshal)

	body := createEventBody("u1")
	body["taskCodes"] = map[string]any{"claim": "EVENT_WEEKLY"}

	resp := doRequest(t, srv, http.MethodPost, "/api/events", "admin", "ADMIN", body)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_UpdateEvent_RecomputeOnEndTimeChange(t *testing.T) {
	srv, store := newTestServer(t)
	seedTestUser(t, store, "admin", roster.AccountAdmin, pricing.WorkRoleSeniorMarshal)
	seedTestUser(t, store, "u1", roster.AccountUser, pricing.WorkRoleJuniorMarshal)

	resp := doRequest(t, srv, http.MethodPost, "/api/events", "admin", "ADMIN", createEventBody("u1"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &created)

	patch := map[string]any{"endTime": "2026-06-21T00:00:00Z"} // now 6h
	resp = doRequest(t, srv, http.MethodPatch, "/api/events/"+created.ID, "admin", "ADMIN", patch)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var event struct {
		Assignments []struct {
			DefaultRM string `json:"defaultRM"`
		} `json:"assignments"`
	}
	decodeBody(t, resp, &event)
	require.Len(t, event.Assignments, 1)
	assert.Equal(t, "120.00", event.Assignments[0].DefaultRM)
}

func TestAPI_DeleteEvent(t *testing.T) {
	srv, store := newTestServer(t)
	seedTestUser(t, store, "admin", roster.AccountAdmin, pricing.WorkRoleSeniorMarshal)
	seedTestUser(t, store, "u1", roster.AccountUser, pricing.WorkRoleJuniorMarshal)

	resp := doRequest(t, srv, http.MethodPost, "/api/events", "admin", "ADMIN", createEventBody("u1"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &created)

	resp = doRequest(t, srv, http.MethodDelete, "/api/events/"+created.ID, "admin", "ADMIN", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doRequest(t, srv, http.MethodGet, "/api/events/"+created.ID, "admin", "ADMIN", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// ASSIGNMENT MUTATION + PAY STATEMENT
// =============================================================================

func TestAPI_MarkPaidAndStatementFlow(t *testing.T) {
	// GIVEN: An event assignment for u1
	// WHEN: The admin sets an override and marks it PAID
	// THEN: u1's statement shows the effective amount under paid totals

	srv, store := newTestServer(t)
	seedTestUser(t, store, "admin", roster.AccountAdmin, pricing.WorkRoleSeniorMarshal)
	seedTestUser(t, store, "u1", roster.AccountUser, pricing.WorkRoleJuniorMarshal)

	resp := doRequest(t, srv, http.MethodPost, "/api/events", "admin", "ADMIN", createEventBody("u1"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &created)

	resp = doRequest(t, srv, http.MethodGet, "/api/events/"+created.ID, "admin", "ADMIN", nil)
	var event struct {
		Assignments []struct {
			ID string `json:"id"`
		} `json:"assignments"`
	}
	decodeBody(t, resp, &event)
	require.Len(t, event.Assignments, 1)
	assignmentID := event.Assignments[0].ID

	patch := map[string]any{"status": "PAID", "overrideRM": "150"}
	resp = doRequest(t, srv, http.MethodPatch, "/api/assignments/"+assignmentID, "admin", "ADMIN", patch)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var mutated struct {
		Status     string  `json:"status"`
		OverrideRM *string `json:"overrideRM"`
		PayableRM  string  `json:"payableRM"`
		PaidBy     string  `json:"paidBy"`
	}
	decodeBody(t, resp, &mutated)
	assert.Equal(t, "PAID", mutated.Status)
	require.NotNil(t, mutated.OverrideRM)
	assert.Equal(t, "150.00", *mutated.OverrideRM)
	assert.Equal(t, "150.00", mutated.PayableRM)
	assert.Equal(t, "admin", mutated.PaidBy)

	resp = doRequest(t, srv, http.MethodGet, "/api/me/pay", "u1", "USER", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var statement struct {
		Lines []struct {
			Project   string `json:"project"`
			Status    string `json:"status"`
			PayableRM string `json:"payableRM"`
			Inline    string `json:"inline"`
		} `json:"lines"`
		PaidRM   string `json:"paidRM"`
		UnpaidRM string `json:"unpaidRM"`
	}
	decodeBody(t, resp, &statement)

	require.Len(t, statement.Lines, 1)
	assert.Equal(t, "Launch Party", statement.Lines[0].Project)
	assert.Equal(t, "PAID", statement.Lines[0].Status)
	assert.Equal(t, "150.00", statement.Lines[0].PayableRM)
	assert.Contains(t, statement.Lines[0].Inline, "Event - Hourly")
	assert.Equal(t, "150.00", statement.PaidRM)
	assert.Equal(t, "0.00", statement.UnpaidRM)
}

func TestAPI_NonNumericOverrideRejected(t *testing.T) {
	srv, store := newTestServer(t)
	seedTestUser(t, store, "admin", roster.AccountAdmin, pricing.WorkRoleSeniorMarshal)
	seedTestUser(t, store, "u1", roster.AccountUser, pricing.WorkRoleJuniorMarshal)

	resp := doRequest(t, srv, http.MethodPost, "/api/events", "admin", "ADMIN", createEventBody("u1"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &created)

	resp = doRequest(t, srv, http.MethodGet, "/api/events/"+created.ID, "admin", "ADMIN", nil)
	var event struct {
		Assignments []struct {
			ID string `json:"id"`
		} `json:"assignments"`
	}
	decodeBody(t, resp, &event)

	patch := map[string]any{"overrideRM": "banana"}
	resp = doRequest(t, srv, http.MethodPatch, "/api/assignments/"+event.Assignments[0].ID, "admin", "ADMIN", patch)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// USERS
// =============================================================================

func TestAPI_CreateAndListUsers(t *testing.T) {
	srv, store := newTestServer(t)
	seedTestUser(t, store, "admin", roster.AccountAdmin, pricing.WorkRoleSeniorMarshal)

	body := map[string]any{
		"name":            "New Staff",
		"email":           "new@example.com",
		"grade":           "SENIOR",
		"defaultWorkRole": "SENIOR_EMCEE",
	}
	resp := doRequest(t, srv, http.MethodPost, "/api/users", "admin", "ADMIN", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var u struct {
		ID              string `json:"id"`
		Role            string `json:"role"`
		DefaultWorkRole string `json:"defaultWorkRole"`
		Active          bool   `json:"active"`
	}
	decodeBody(t, resp, &u)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "USER", u.Role)
	assert.Equal(t, "SENIOR_EMCEE", u.DefaultWorkRole)
	assert.True(t, u.Active)

	resp = doRequest(t, srv, http.MethodGet, "/api/users", "admin", "ADMIN", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var users []struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &users)
	assert.Len(t, users, 2)
}

func TestAPI_CannotDemoteLastAdmin(t *testing.T) {
	srv, store := newTestServer(t)
	seedTestUser(t, store, "admin", roster.AccountAdmin, pricing.WorkRoleSeniorMarshal)

	patch := map[string]any{"role": "USER"}
	resp := doRequest(t, srv, http.MethodPatch, "/api/users/admin", "admin", "ADMIN", patch)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp struct {
		Error string `json:"error"`
	}
	decodeBody(t, resp, &errResp)
	assert.Equal(t, "Cannot demote the last admin", errResp.Error)

	// With a second admin the demotion goes through.
	seedTestUser(t, store, "admin2", roster.AccountAdmin, pricing.WorkRoleSeniorMarshal)
	resp = doRequest(t, srv, http.MethodPatch, "/api/users/admin", "admin", "ADMIN", patch)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// =============================================================================
// RATES
// =============================================================================

func TestAPI_GetRates(t *testing.T) {
	srv, store := newTestServer(t)
	seedTestUser(t, store, "u1", roster.AccountUser, pricing.WorkRoleJuniorMarshal)

	resp := doRequest(t, srv, http.MethodGet, "/api/rates", "u1", "USER", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rates struct {
		Claims []struct {
			Claim         string `json:"claim"`
			Kind          string `json:"kind"`
			MarshalSenior string `json:"marshalSenior"`
		} `json:"claims"`
		AddOns struct {
			BackendPerHour string `json:"backendPerHour"`
		} `json:"addOns"`
	}
	decodeBody(t, resp, &rates)

	require.Len(t, rates.Claims, 5)
	byClaim := map[string]string{}
	for _, c := range rates.Claims {
		byClaim[c.Claim] = c.MarshalSenior
	}
	assert.Equal(t, "30.00", byClaim["EVENT_HOURLY"])
	assert.Equal(t, "350.00", byClaim["EVENT_3D2N"])
	assert.Equal(t, "15.00", rates.AddOns.BackendPerHour)
}
