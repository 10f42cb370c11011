package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acadhub/leave-be/internal/models"
	"github.com/acadhub/leave-be/internal/storage"
)

// Ensure Store satisfies the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

// Store provides Postgres-backed persistence for the leave ledger,
// requests, and mentor assignments.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store and runs migrations.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL,
			role TEXT NOT NULL,
			leave_balance INTEGER NOT NULL CHECK (leave_balance >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS leave_requests (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id),
			leave_type TEXT NOT NULL,
			start_date DATE NOT NULL,
			end_date DATE NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL CHECK (status IN ('pending', 'approved', 'rejected', 'auto_approved')),
			approver_id TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			decided_at TIMESTAMPTZ
		);`,
		`CREATE INDEX IF NOT EXISTS leave_requests_user_idx ON leave_requests (user_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS leave_requests_approver_idx ON leave_requests (approver_id, status);`,
		`CREATE TABLE IF NOT EXISTS mentor_assignments (
			student_id TEXT PRIMARY KEY REFERENCES users(id),
			mentor_id TEXT NOT NULL REFERENCES users(id),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

// UpsertUser inserts a new user keyed by email. An existing user keeps its
// role and balance; only the display name follows the identity provider.
func (s *Store) UpsertUser(ctx context.Context, user models.User) (models.User, error) {
	const query = `
		INSERT INTO users (id, display_name, email, role, leave_balance)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE SET display_name = EXCLUDED.display_name
		RETURNING id, display_name, email, role, leave_balance, created_at;
		`
	row := s.pool.QueryRow(ctx, query, user.ID, user.DisplayName, user.Email, user.Role, user.LeaveBalance)
	return scanUser(row)
}

// FindUserByEmail fetches a user by email address.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	const query = `
	SELECT id, display_name, email, role, leave_balance, created_at
	FROM users
	WHERE email = $1;
	`
	row := s.pool.QueryRow(ctx, query, email)
	return scanUser(row)
}

// FindUserByID fetches a user by its opaque id.
func (s *Store) FindUserByID(ctx context.Context, id string) (models.User, error) {
	const query = `
	SELECT id, display_name, email, role, leave_balance, created_at
	FROM users
	WHERE id = $1;
	`
	row := s.pool.QueryRow(ctx, query, id)
	return scanUser(row)
}

// Credit adds days back to a user's balance.
func (s *Store) Credit(ctx context.Context, userID string, days int) (int, error) {
	const query = `
	UPDATE users SET leave_balance = leave_balance + $2
	WHERE id = $1
	RETURNING leave_balance;
	`
	var balance int
	if err := s.pool.QueryRow(ctx, query, userID, days).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("credit balance: %w", err)
	}
	return balance, nil
}

// SubmitRequest debits the owner's balance and inserts the request row in
// one transaction. The conditional UPDATE is what serializes concurrent
// submissions for the same user: a debit that would overdraw matches no
// row and the whole transaction rolls back.
func (s *Store) SubmitRequest(ctx context.Context, req models.LeaveRequest) (models.LeaveRequest, int, error) {
	const debit = `
	UPDATE users SET leave_balance = leave_balance - $2
	WHERE id = $1 AND leave_balance >= $2
	RETURNING leave_balance;
	`
	const insert = `
	INSERT INTO leave_requests (id, user_id, leave_type, start_date, end_date, reason, status, approver_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING created_at;
	`

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.LeaveRequest{}, 0, fmt.Errorf("begin submit: %w", err)
	}
	defer tx.Rollback(ctx)

	var balance int
	if err := tx.QueryRow(ctx, debit, req.UserID, req.Days()).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.LeaveRequest{}, 0, s.classifyDebitMiss(ctx, tx, req.UserID)
		}
		return models.LeaveRequest{}, 0, fmt.Errorf("debit balance: %w", err)
	}

	row := tx.QueryRow(ctx, insert,
		req.ID, req.UserID, req.LeaveType, req.StartDate, req.EndDate, req.Reason, req.Status, req.ApproverID)
	if err := row.Scan(&req.CreatedAt); err != nil {
		return models.LeaveRequest{}, 0, fmt.Errorf("insert request: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.LeaveRequest{}, 0, fmt.Errorf("commit submit: %w", err)
	}
	return req, balance, nil
}

// classifyDebitMiss distinguishes a missing user from an overdraw after the
// conditional debit matched no row.
func (s *Store) classifyDebitMiss(ctx context.Context, tx pgx.Tx, userID string) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1);`, userID).Scan(&exists); err != nil {
		return fmt.Errorf("classify debit miss: %w", err)
	}
	if !exists {
		return storage.ErrNotFound
	}
	return storage.ErrInsufficientBalance
}

// DecideRequest transitions a pending request to Approved or Rejected. The
// row lock makes racing decisions serialize; the loser re-reads a terminal
// status and gets ErrInvalidTransition.
func (s *Store) DecideRequest(ctx context.Context, requestID, approverID string, status models.LeaveStatus) (models.LeaveRequest, error) {
	const lock = `
	SELECT status, approver_id FROM leave_requests
	WHERE id = $1
	FOR UPDATE;
	`
	const update = `
	UPDATE leave_requests SET status = $2, decided_at = NOW()
	WHERE id = $1
	RETURNING id, user_id, leave_type, start_date, end_date, reason, status, approver_id, created_at, decided_at;
	`

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.LeaveRequest{}, fmt.Errorf("begin decide: %w", err)
	}
	defer tx.Rollback(ctx)

	var current models.LeaveStatus
	var storedApprover string
	if err := tx.QueryRow(ctx, lock, requestID).Scan(&current, &storedApprover); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.LeaveRequest{}, storage.ErrNotFound
		}
		return models.LeaveRequest{}, fmt.Errorf("lock request: %w", err)
	}
	if current.Terminal() {
		return models.LeaveRequest{}, storage.ErrInvalidTransition
	}
	if storedApprover != approverID {
		return models.LeaveRequest{}, storage.ErrNotApprover
	}

	req, err := scanRequest(tx.QueryRow(ctx, update, requestID, status))
	if err != nil {
		return models.LeaveRequest{}, fmt.Errorf("update request: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.LeaveRequest{}, fmt.Errorf("commit decide: %w", err)
	}
	return req, nil
}

// ListRequestsByUser returns a user's requests, newest first.
func (s *Store) ListRequestsByUser(ctx context.Context, userID string) ([]models.LeaveRequest, error) {
	const query = `
	SELECT id, user_id, leave_type, start_date, end_date, reason, status, approver_id, created_at, decided_at
	FROM leave_requests
	WHERE user_id = $1
	ORDER BY created_at DESC, id DESC;
	`
	return s.queryRequests(ctx, query, userID)
}

// ListPendingByApprover returns undecided requests routed to an approver,
// newest first.
func (s *Store) ListPendingByApprover(ctx context.Context, approverID string) ([]models.LeaveRequest, error) {
	const query = `
	SELECT id, user_id, leave_type, start_date, end_date, reason, status, approver_id, created_at, decided_at
	FROM leave_requests
	WHERE approver_id = $1 AND status = 'pending'
	ORDER BY created_at DESC, id DESC;
	`
	return s.queryRequests(ctx, query, approverID)
}

func (s *Store) queryRequests(ctx context.Context, query string, arg any) ([]models.LeaveRequest, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var out []models.LeaveRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return out, nil
}

// AssignMentor records the student's mentor, overwriting any previous
// assignment.
func (s *Store) AssignMentor(ctx context.Context, studentID, mentorID string) error {
	const query = `
	INSERT INTO mentor_assignments (student_id, mentor_id, updated_at)
	VALUES ($1, $2, NOW())
	ON CONFLICT (student_id) DO UPDATE SET mentor_id = EXCLUDED.mentor_id, updated_at = NOW();
	`
	if _, err := s.pool.Exec(ctx, query, studentID, mentorID); err != nil {
		return fmt.Errorf("assign mentor: %w", err)
	}
	return nil
}

// MentorFor returns the assigned mentor for a student.
func (s *Store) MentorFor(ctx context.Context, studentID string) (string, error) {
	const query = `SELECT mentor_id FROM mentor_assignments WHERE student_id = $1;`
	var mentorID string
	if err := s.pool.QueryRow(ctx, query, studentID).Scan(&mentorID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("lookup mentor: %w", err)
	}
	return mentorID, nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.DisplayName, &user.Email, &user.Role, &user.LeaveBalance, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, fmt.Errorf("scan user: %w", err)
	}
	return user, nil
}

func scanRequest(row pgx.Row) (models.LeaveRequest, error) {
	var req models.LeaveRequest
	err := row.Scan(&req.ID, &req.UserID, &req.LeaveType, &req.StartDate, &req.EndDate,
		&req.Reason, &req.Status, &req.ApproverID, &req.CreatedAt, &req.DecidedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.LeaveRequest{}, storage.ErrNotFound
		}
		return models.LeaveRequest{}, fmt.Errorf("scan request: %w", err)
	}
	return req, nil
}
