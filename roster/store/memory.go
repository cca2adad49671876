// Package store provides roster.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/zhiluke001-ux/atag-ot/roster"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	users       map[string]roster.User
	events      map[string]roster.Event
	assignments map[string]roster.Assignment
}

func NewMemory() *Memory {
	return &Memory{
		users:       make(map[string]roster.User),
		events:      make(map[string]roster.Event),
		assignments: make(map[string]roster.Assignment),
	}
}

// --- Users ---

func (m *Memory) GetUser(_ context.Context, id string) (*roster.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getUserLocked(id), nil
}

func (m *Memory) getUserLocked(id string) *roster.User {
	u, ok := m.users[id]
	if !ok {
		return nil
	}
	return &u
}

func (m *Memory) GetUsersByIDs(_ context.Context, ids []string) ([]roster.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getUsersByIDsLocked(ids), nil
}

func (m *Memory) getUsersByIDsLocked(ids []string) []roster.User {
	var out []roster.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, u)
		}
	}
	return out
}

func (m *Memory) ListUsers(_ context.Context) ([]roster.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listUsersLocked(), nil
}

func (m *Memory) listUsersLocked() []roster.User {
	out := make([]roster.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *Memory) SaveUser(_ context.Context, u roster.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

// --- Events ---

func (m *Memory) GetEvent(_ context.Context, id string) (*roster.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getEventLocked(id), nil
}

func (m *Memory) getEventLocked(id string) *roster.Event {
	e, ok := m.events[id]
	if !ok {
		return nil
	}
	return &e
}

func (m *Memory) ListEvents(_ context.Context) ([]roster.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listEventsLocked(), nil
}

func (m *Memory) listEventsLocked() []roster.Event {
	out := make([]roster.Event, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e)
	}
	// Newest first, matching the default admin listing.
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

func (m *Memory) SaveEvent(_ context.Context, e roster.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[e.ID] = e
	return nil
}

// DeleteEvent removes the event and cascades to its assignments.
func (m *Memory) DeleteEvent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteEventLocked(id)
	return nil
}

func (m *Memory) deleteEventLocked(id string) {
	delete(m.events, id)
	for aid, a := range m.assignments {
		if a.EventID == id {
			delete(m.assignments, aid)
		}
	}
}

// --- Assignments ---

func (m *Memory) GetAssignment(_ context.Context, id string) (*roster.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getAssignmentLocked(id), nil
}

func (m *Memory) getAssignmentLocked(id string) *roster.Assignment {
	a, ok := m.assignments[id]
	if !ok {
		return nil
	}
	return &a
}

func (m *Memory) ListAssignmentsByEvent(_ context.Context, eventID string) ([]roster.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listByEventLocked(eventID), nil
}

func (m *Memory) listByEventLocked(eventID string) []roster.Assignment {
	var out []roster.Assignment
	for _, a := range m.assignments {
		if a.EventID == eventID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *Memory) ListAssignmentsByUser(_ context.Context, userID string) ([]roster.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listByUserLocked(userID), nil
}

func (m *Memory) listByUserLocked(userID string) []roster.Assignment {
	var out []roster.Assignment
	for _, a := range m.assignments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *Memory) SaveAssignment(_ context.Context, a roster.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments[a.ID] = a
	return nil
}

func (m *Memory) DeleteAssignment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.assignments, id)
	return nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(roster.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()

	txStore := &txMemoryView{parent: tm}
	if err := fn(txStore); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

func (tm *TxMemory) snapshot() memorySnapshot {
	users := make(map[string]roster.User, len(tm.users))
	for k, v := range tm.users {
		users[k] = v
	}
	events := make(map[string]roster.Event, len(tm.events))
	for k, v := range tm.events {
		events[k] = v
	}
	assignments := make(map[string]roster.Assignment, len(tm.assignments))
	for k, v := range tm.assignments {
		assignments[k] = v
	}
	return memorySnapshot{users: users, events: events, assignments: assignments}
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.users = s.users
	tm.events = s.events
	tm.assignments = s.assignments
}

type memorySnapshot struct {
	users       map[string]roster.User
	events      map[string]roster.Event
	assignments map[string]roster.Assignment
}

// txMemoryView accesses the parent directly; WithTx already holds the lock.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) GetUser(_ context.Context, id string) (*roster.User, error) {
	return tv.parent.getUserLocked(id), nil
}

func (tv *txMemoryView) GetUsersByIDs(_ context.Context, ids []string) ([]roster.User, error) {
	return tv.parent.getUsersByIDsLocked(ids), nil
}

func (tv *txMemoryView) ListUsers(_ context.Context) ([]roster.User, error) {
	return tv.parent.listUsersLocked(), nil
}

func (tv *txMemoryView) SaveUser(_ context.Context, u roster.User) error {
	tv.parent.users[u.ID] = u
	return nil
}

func (tv *txMemoryView) GetEvent(_ context.Context, id string) (*roster.Event, error) {
	return tv.parent.getEventLocked(id), nil
}

func (tv *txMemoryView) ListEvents(_ context.Context) ([]roster.Event, error) {
	return tv.parent.listEventsLocked(), nil
}

func (tv *txMemoryView) SaveEvent(_ context.Context, e roster.Event) error {
	tv.parent.events[e.ID] = e
	return nil
}

func (tv *txMemoryView) DeleteEvent(_ context.Context, id string) error {
	tv.parent.deleteEventLocked(id)
	return nil
}

func (tv *txMemoryView) GetAssignment(_ context.Context, id string) (*roster.Assignment, error) {
	return tv.parent.getAssignmentLocked(id), nil
}

func (tv *txMemoryView) ListAssignmentsByEvent(_ context.Context, eventID string) ([]roster.Assignment, error) {
	return tv.parent.listByEventLocked(eventID), nil
}

func (tv *txMemoryView) ListAssignmentsByUser(_ context.Context, userID string) ([]roster.Assignment, error) {
	return tv.parent.listByUserLocked(userID), nil
}

func (tv *txMemoryView) SaveAssignment(_ context.Context, a roster.Assignment) error {
	tv.parent.assignments[a.ID] = a
	return nil
}

func (tv *txMemoryView) DeleteAssignment(_ context.Context, id string) error {
	delete(tv.parent.assignments, id)
	return nil
}
