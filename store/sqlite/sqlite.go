/*
Package sqlite provides a SQLite-backed implementation of the roster store.

PURPOSE:
  Implements roster.Store and roster.TxStore using SQLite. In production,
  the same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

KEY TABLES:
  users:       Staff accounts with their default work role
  events:      Jobs with a time window and the stored task selection JSON
  assignments: One row per (event, user), carrying amounts in cents

MONEY:
  Amounts are stored as integer cents. amount_override is nullable;
  NULL means "no manual override, pay the default".

CASCADE:
  assignments.event_id references events(id) ON DELETE CASCADE, so
  deleting an event removes its assignments in the same statement. The
  connection is opened with _foreign_keys=on, which SQLite requires for
  the cascade to fire.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. Queries run through a small dbtx
  interface so the same code serves both the plain connection and an
  open transaction; the transactional view never re-locks.

USAGE:
  store, err := sqlite.New("./data/atag.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - roster/store.go: Interface definitions
  - roster/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/zhiluke001-ux/atag-ot/pricing"
	"github.com/zhiluke001-ux/atag-ot/roster"
)

// Store implements roster.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// dbtx is the subset of *sql.DB and *sql.Tx the queries need.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Staff accounts
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL,
		grade TEXT NOT NULL,
		default_work_role TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Events (jobs)
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		project TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		task_codes TEXT NOT NULL DEFAULT '',
		remark TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_date ON events(date DESC);

	-- Assignments (one row per event/user pair)
	CREATE TABLE IF NOT EXISTS assignments (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id),
		work_role TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'UNPAID',
		amount_default INTEGER NOT NULL DEFAULT 0,
		amount_override INTEGER,
		paid_at TEXT,
		paid_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(event_id, user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_event ON assignments(event_id);
	CREATE INDEX IF NOT EXISTS idx_assignments_user ON assignments(user_id);
	CREATE INDEX IF NOT EXISTS idx_assignments_status ON assignments(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// USERS
// =============================================================================

func (s *Store) GetUser(ctx context.Context, id string) (*roster.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getUser(ctx, s.db, id)
}

func getUser(ctx context.Context, db dbtx, id string) (*roster.User, error) {
	users, err := queryUsers(ctx, db, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) ([]roster.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getUsersByIDs(ctx, s.db, ids)
}

func getUsersByIDs(ctx context.Context, db dbtx, ids []string) ([]roster.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := ""
	args := make([]any, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args[i] = id
	}
	return queryUsers(ctx, db, `SELECT `+userColumns+` FROM users WHERE id IN (`+placeholders+`)`, args...)
}

func (s *Store) ListUsers(ctx context.Context) ([]roster.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryUsers(ctx, s.db, `SELECT `+userColumns+` FROM users ORDER BY name`)
}

func (s *Store) SaveUser(ctx context.Context, u roster.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveUser(ctx, s.db, u)
}

func saveUser(ctx context.Context, db dbtx, u roster.User) error {
	query := `
		INSERT INTO users (id, name, email, role, grade, default_work_role, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			role = excluded.role,
			grade = excluded.grade,
			default_work_role = excluded.default_work_role,
			active = excluded.active,
			updated_at = excluded.updated_at
	`
	_, err := db.ExecContext(ctx, query,
		u.ID, u.Name, u.Email, string(u.Role), string(u.Grade), string(u.DefaultWorkRole),
		u.Active, u.CreatedAt.Format(time.RFC3339), u.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

const userColumns = `id, name, email, role, grade, default_work_role, active, created_at, updated_at`

func queryUsers(ctx context.Context, db dbtx, query string, args ...any) ([]roster.User, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []roster.User
	for rows.Next() {
		var u roster.User
		var role, grade, workRole, createdAt, updatedAt string
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &role, &grade, &workRole, &u.Active, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.Role = roster.AccountRole(role)
		u.Grade = roster.Grade(grade)
		u.DefaultWorkRole = pricing.WorkRole(workRole)
		u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		u.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		users = append(users, u)
	}
	return users, rows.Err()
}

// =============================================================================
// EVENTS
// =============================================================================

func (s *Store) GetEvent(ctx context.Context, id string) (*roster.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getEvent(ctx, s.db, id)
}

func getEvent(ctx context.Context, db dbtx, id string) (*roster.Event, error) {
	events, err := queryEvents(ctx, db, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

func (s *Store) ListEvents(ctx context.Context) ([]roster.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryEvents(ctx, s.db, `SELECT `+eventColumns+` FROM events ORDER BY date DESC, start_time DESC`)
}

func (s *Store) SaveEvent(ctx context.Context, e roster.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveEvent(ctx, s.db, e)
}

func saveEvent(ctx context.Context, db dbtx, e roster.Event) error {
	query := `
		INSERT INTO events (id, date, project, start_time, end_time, task_codes, remark, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			project = excluded.project,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			task_codes = excluded.task_codes,
			remark = excluded.remark,
			updated_at = excluded.updated_at
	`
	_, err := db.ExecContext(ctx, query,
		e.ID, e.Date.Format(time.RFC3339), e.Project,
		e.StartTime.Format(time.RFC3339), e.EndTime.Format(time.RFC3339),
		e.TaskCodes, e.Remark,
		e.CreatedAt.Format(time.RFC3339), e.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	return nil
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteEvent(ctx, s.db, id)
}

func deleteEvent(ctx context.Context, db dbtx, id string) error {
	// Assignments go with it via ON DELETE CASCADE.
	_, err := db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

const eventColumns = `id, date, project, start_time, end_time, task_codes, remark, created_at, updated_at`

func queryEvents(ctx context.Context, db dbtx, query string, args ...any) ([]roster.Event, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []roster.Event
	for rows.Next() {
		var e roster.Event
		var date, start, end, createdAt, updatedAt string
		if err := rows.Scan(&e.ID, &date, &e.Project, &start, &end, &e.TaskCodes, &e.Remark, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Date, _ = time.Parse(time.RFC3339, date)
		e.StartTime, _ = time.Parse(time.RFC3339, start)
		e.EndTime, _ = time.Parse(time.RFC3339, end)
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		e.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		events = append(events, e)
	}
	return events, rows.Err()
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

func (s *Store) GetAssignment(ctx context.Context, id string) (*roster.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getAssignment(ctx, s.db, id)
}

func getAssignment(ctx context.Context, db dbtx, id string) (*roster.Assignment, error) {
	as, err := queryAssignments(ctx, db, `SELECT `+assignmentColumns+` FROM assignments WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(as) == 0 {
		return nil, nil
	}
	return &as[0], nil
}

func (s *Store) ListAssignmentsByEvent(ctx context.Context, eventID string) ([]roster.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryAssignments(ctx, s.db,
		`SELECT `+assignmentColumns+` FROM assignments WHERE event_id = ? ORDER BY created_at`, eventID)
}

func (s *Store) ListAssignmentsByUser(ctx context.Context, userID string) ([]roster.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryAssignments(ctx, s.db,
		`SELECT `+assignmentColumns+` FROM assignments WHERE user_id = ? ORDER BY created_at`, userID)
}

func (s *Store) SaveAssignment(ctx context.Context, a roster.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveAssignment(ctx, s.db, a)
}

func saveAssignment(ctx context.Context, db dbtx, a roster.Assignment) error {
	var override sql.NullInt64
	if a.AmountOverride != nil {
		override = sql.NullInt64{Int64: *a.AmountOverride, Valid: true}
	}
	var paidAt sql.NullString
	if a.PaidAt != nil {
		paidAt = sql.NullString{String: a.PaidAt.Format(time.RFC3339), Valid: true}
	}

	query := `
		INSERT INTO assignments (id, event_id, user_id, work_role, status, amount_default, amount_override, paid_at, paid_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			work_role = excluded.work_role,
			status = excluded.status,
			amount_default = excluded.amount_default,
			amount_override = excluded.amount_override,
			paid_at = excluded.paid_at,
			paid_by = excluded.paid_by,
			updated_at = excluded.updated_at
	`
	_, err := db.ExecContext(ctx, query,
		a.ID, a.EventID, a.UserID, string(a.WorkRole), string(a.Status),
		a.AmountDefault, override, paidAt, a.PaidBy,
		a.CreatedAt.Format(time.RFC3339), a.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save assignment: %w", err)
	}
	return nil
}

func (s *Store) DeleteAssignment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteAssignment(ctx, s.db, id)
}

func deleteAssignment(ctx context.Context, db dbtx, id string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM assignments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	return nil
}

const assignmentColumns = `id, event_id, user_id, work_role, status, amount_default, amount_override, paid_at, paid_by, created_at, updated_at`

func queryAssignments(ctx context.Context, db dbtx, query string, args ...any) ([]roster.Assignment, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var out []roster.Assignment
	for rows.Next() {
		var a roster.Assignment
		var workRole, status, createdAt, updatedAt string
		var override sql.NullInt64
		var paidAt sql.NullString
		if err := rows.Scan(&a.ID, &a.EventID, &a.UserID, &workRole, &status,
			&a.AmountDefault, &override, &paidAt, &a.PaidBy, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		a.WorkRole = pricing.WorkRole(workRole)
		a.Status = roster.Status(status)
		if override.Valid {
			v := override.Int64
			a.AmountOverride = &v
		}
		if paidAt.Valid {
			if t, err := time.Parse(time.RFC3339, paidAt.String); err == nil {
				a.PaidAt = &t
			}
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		out = append(out, a)
	}
	return out, rows.Err()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store roster.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	txStore := &txStore{tx: sqlTx}
	if err := fn(txStore); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore runs against an open transaction. The write lock is already
// held by WithTx, so no methods here touch the mutex.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) GetUser(ctx context.Context, id string) (*roster.User, error) {
	return getUser(ctx, ts.tx, id)
}

func (ts *txStore) GetUsersByIDs(ctx context.Context, ids []string) ([]roster.User, error) {
	return getUsersByIDs(ctx, ts.tx, ids)
}

func (ts *txStore) ListUsers(ctx context.Context) ([]roster.User, error) {
	return queryUsers(ctx, ts.tx, `SELECT `+userColumns+` FROM users ORDER BY name`)
}

func (ts *txStore) SaveUser(ctx context.Context, u roster.User) error {
	return saveUser(ctx, ts.tx, u)
}

func (ts *txStore) GetEvent(ctx context.Context, id string) (*roster.Event, error) {
	return getEvent(ctx, ts.tx, id)
}

func (ts *txStore) ListEvents(ctx context.Context) ([]roster.Event, error) {
	return queryEvents(ctx, ts.tx, `SELECT `+eventColumns+` FROM events ORDER BY date DESC, start_time DESC`)
}

func (ts *txStore) SaveEvent(ctx context.Context, e roster.Event) error {
	return saveEvent(ctx, ts.tx, e)
}

func (ts *txStore) DeleteEvent(ctx context.Context, id string) error {
	return deleteEvent(ctx, ts.tx, id)
}

func (ts *txStore) GetAssignment(ctx context.Context, id string) (*roster.Assignment, error) {
	return getAssignment(ctx, ts.tx, id)
}

func (ts *txStore) ListAssignmentsByEvent(ctx context.Context, eventID string) ([]roster.Assignment, error) {
	return queryAssignments(ctx, ts.tx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE event_id = ? ORDER BY created_at`, eventID)
}

func (ts *txStore) ListAssignmentsByUser(ctx context.Context, userID string) ([]roster.Assignment, error) {
	return queryAssignments(ctx, ts.tx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE user_id = ? ORDER BY created_at`, userID)
}

func (ts *txStore) SaveAssignment(ctx context.Context, a roster.Assignment) error {
	return saveAssignment(ctx, ts.tx, a)
}

func (ts *txStore) DeleteAssignment(ctx context.Context, id string) error {
	return deleteAssignment(ctx, ts.tx, id)
}

// =============================================================================
// MAINTENANCE
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"assignments", "events", "users"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}
