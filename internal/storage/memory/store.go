// Package memory provides a mutex-guarded Store used by unit tests and as
// a development fallback when no database is configured. Its locking gives
// the same observable atomicity as the Postgres transactions.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/acadhub/leave-be/internal/models"
	"github.com/acadhub/leave-be/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store keeps all records in process memory.
type Store struct {
	mu       sync.Mutex
	users    map[string]*models.User // by id
	byEmail  map[string]string       // email -> id
	requests []*models.LeaveRequest  // insertion order
	byID     map[string]*models.LeaveRequest
	mentors  map[string]string // student id -> mentor id
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{
		users:   make(map[string]*models.User),
		byEmail: make(map[string]string),
		byID:    make(map[string]*models.LeaveRequest),
		mentors: make(map[string]string),
	}
}

func (s *Store) UpsertUser(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byEmail[user.Email]; ok {
		existing := s.users[id]
		existing.DisplayName = user.DisplayName
		return *existing, nil
	}

	user.CreatedAt = time.Now()
	stored := user
	s.users[user.ID] = &stored
	s.byEmail[user.Email] = user.ID
	return stored, nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[email]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return *s.users[id], nil
}

func (s *Store) FindUserByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return *user, nil
}

func (s *Store) Credit(_ context.Context, userID string, days int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return 0, storage.ErrNotFound
	}
	user.LeaveBalance += days
	return user.LeaveBalance, nil
}

func (s *Store) SubmitRequest(_ context.Context, req models.LeaveRequest) (models.LeaveRequest, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[req.UserID]
	if !ok {
		return models.LeaveRequest{}, 0, storage.ErrNotFound
	}
	days := req.Days()
	if days > user.LeaveBalance {
		return models.LeaveRequest{}, 0, storage.ErrInsufficientBalance
	}

	user.LeaveBalance -= days
	req.CreatedAt = time.Now()
	stored := req
	s.requests = append(s.requests, &stored)
	s.byID[req.ID] = &stored
	return stored, user.LeaveBalance, nil
}

func (s *Store) DecideRequest(_ context.Context, requestID, approverID string, status models.LeaveStatus) (models.LeaveRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.byID[requestID]
	if !ok {
		return models.LeaveRequest{}, storage.ErrNotFound
	}
	if req.Status.Terminal() {
		return models.LeaveRequest{}, storage.ErrInvalidTransition
	}
	if req.ApproverID != approverID {
		return models.LeaveRequest{}, storage.ErrNotApprover
	}

	now := time.Now()
	req.Status = status
	req.DecidedAt = &now
	return *req, nil
}

func (s *Store) ListRequestsByUser(_ context.Context, userID string) ([]models.LeaveRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.LeaveRequest
	for i := len(s.requests) - 1; i >= 0; i-- {
		if s.requests[i].UserID == userID {
			out = append(out, *s.requests[i])
		}
	}
	return out, nil
}

func (s *Store) ListPendingByApprover(_ context.Context, approverID string) ([]models.LeaveRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.LeaveRequest
	for i := len(s.requests) - 1; i >= 0; i-- {
		req := s.requests[i]
		if req.ApproverID == approverID && req.Status == models.StatusPending {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (s *Store) AssignMentor(_ context.Context, studentID, mentorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mentors[studentID] = mentorID
	return nil
}

func (s *Store) MentorFor(_ context.Context, studentID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mentorID, ok := s.mentors[studentID]
	if !ok {
		return "", storage.ErrNotFound
	}
	return mentorID, nil
}
