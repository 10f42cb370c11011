// Package leave implements the leave accounting service: the single owner
// of balance and request-state transitions. All state lives in the store;
// the service is stateless between calls.
package leave

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/acadhub/leave-be/internal/models"
	"github.com/acadhub/leave-be/internal/policy"
	"github.com/acadhub/leave-be/internal/storage"
)

// Config carries the accounting policy knobs.
type Config struct {
	// Quotas is the initial leave balance granted per role at first sight.
	Quotas map[models.Role]int
	// LeaveTypes restricts accepted leave categories. Empty means any
	// non-empty category is accepted.
	LeaveTypes []string
	// StoreTimeout bounds every store call; a deadline hit surfaces as
	// ErrStoreUnavailable.
	StoreTimeout time.Duration
}

// SubmitResult reports the outcome of a successful submission.
type SubmitResult struct {
	RequestID  string
	Status     models.LeaveStatus
	NewBalance int
}

// Service orchestrates the ledger, request store, mentor directory, and
// policy engine.
type Service struct {
	store        storage.Store
	engine       policy.Engine
	classify     policy.RoleClassifier
	quotas       map[models.Role]int
	leaveTypes   map[string]struct{}
	storeTimeout time.Duration
	logger       *zap.Logger
}

// NewService constructs the accounting service.
func NewService(store storage.Store, engine policy.Engine, classify policy.RoleClassifier, cfg Config, logger *zap.Logger) *Service {
	types := make(map[string]struct{}, len(cfg.LeaveTypes))
	for _, t := range cfg.LeaveTypes {
		types[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	timeout := cfg.StoreTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Service{
		store:        store,
		engine:       engine,
		classify:     classify,
		quotas:       cfg.Quotas,
		leaveTypes:   types,
		storeTimeout: timeout,
		logger:       logger,
	}
}

// EnsureUser upserts the identity on first sight: role from the injected
// classifier, balance from the role's quota. An existing user keeps its
// balance and role.
func (s *Service) EnsureUser(ctx context.Context, displayName, email string) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	role := s.classify(email)
	user := models.User{
		ID:           uuid.NewString(),
		DisplayName:  strings.TrimSpace(displayName),
		Email:        email,
		Role:         role,
		LeaveBalance: s.quotas[role],
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	stored, err := s.store.UpsertUser(ctx, user)
	if err != nil {
		return models.User{}, s.storeErr("upsert user", err)
	}
	return stored, nil
}

// Submit validates and records a leave application. The sufficiency check,
// the debit, and the request insert are one atomic unit inside the store;
// no failure path leaves a partial write behind.
func (s *Service) Submit(ctx context.Context, email, leaveType string, start, end time.Time, reason string) (SubmitResult, error) {
	if end.Before(start) {
		return SubmitResult{}, ErrInvalidDateRange
	}
	leaveType = strings.ToLower(strings.TrimSpace(leaveType))
	if err := s.checkLeaveType(leaveType); err != nil {
		return SubmitResult{}, err
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	user, err := s.store.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return SubmitResult{}, ErrUserNotFound
		}
		return SubmitResult{}, s.storeErr("find user", err)
	}

	req := models.LeaveRequest{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		LeaveType: leaveType,
		StartDate: start,
		EndDate:   end,
		Reason:    strings.TrimSpace(reason),
	}
	days := req.Days()
	if days > user.LeaveBalance {
		return SubmitResult{}, ErrInsufficientBalance
	}

	mentorID, hasMentor, err := s.mentorFor(ctx, user.ID)
	if err != nil {
		return SubmitResult{}, err
	}
	decision := s.engine.Evaluate(days, user.ID, func(string) (string, bool) {
		return mentorID, hasMentor
	})

	switch decision.Kind {
	case policy.AutoApprove:
		req.Status = models.StatusAutoApproved
		req.ApproverID = models.AutoApproverID
	case policy.RouteToMentor:
		req.Status = models.StatusPending
		req.ApproverID = decision.MentorID
	case policy.RejectNoMentor:
		return SubmitResult{}, ErrNoApproverAvailable
	}

	stored, balance, err := s.store.SubmitRequest(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return SubmitResult{}, ErrUserNotFound
		case errors.Is(err, storage.ErrInsufficientBalance):
			return SubmitResult{}, ErrInsufficientBalance
		default:
			return SubmitResult{}, s.storeErr("submit request", err)
		}
	}

	s.logger.Info("leave submitted",
		zap.String("request_id", stored.ID),
		zap.String("user_id", user.ID),
		zap.String("status", string(stored.Status)),
		zap.Int("days", days),
		zap.Int("new_balance", balance))

	return SubmitResult{RequestID: stored.ID, Status: stored.Status, NewBalance: balance}, nil
}

// Approve transitions a pending request to Approved. The balance was
// debited at submission, so no ledger mutation happens here.
func (s *Service) Approve(ctx context.Context, requestID, approverEmail string) error {
	return s.decide(ctx, requestID, approverEmail, models.StatusApproved)
}

// Reject transitions a pending request to Rejected. The debited balance is
// not refunded.
func (s *Service) Reject(ctx context.Context, requestID, approverEmail string) error {
	return s.decide(ctx, requestID, approverEmail, models.StatusRejected)
}

func (s *Service) decide(ctx context.Context, requestID, approverEmail string, status models.LeaveStatus) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	approver, err := s.store.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(approverEmail)))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrUserNotFound
		}
		return s.storeErr("find approver", err)
	}

	req, err := s.store.DecideRequest(ctx, requestID, approver.ID, status)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return ErrRequestNotFound
		case errors.Is(err, storage.ErrInvalidTransition):
			return ErrInvalidTransition
		case errors.Is(err, storage.ErrNotApprover):
			return ErrUnauthorized
		default:
			return s.storeErr("decide request", err)
		}
	}

	s.logger.Info("leave decided",
		zap.String("request_id", req.ID),
		zap.String("approver_id", approver.ID),
		zap.String("status", string(req.Status)))
	return nil
}

// Balance returns the user's remaining leave balance.
func (s *Service) Balance(ctx context.Context, email string) (int, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	user, err := s.store.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, s.storeErr("find user", err)
	}
	return user.LeaveBalance, nil
}

// RequestsFor lists the user's own requests, newest first.
func (s *Service) RequestsFor(ctx context.Context, email string) ([]models.LeaveRequest, error) {
	return s.listFor(ctx, email, s.store.ListRequestsByUser)
}

// PendingForApprover lists undecided requests routed to the caller as
// approver, newest first.
func (s *Service) PendingForApprover(ctx context.Context, email string) ([]models.LeaveRequest, error) {
	return s.listFor(ctx, email, s.store.ListPendingByApprover)
}

func (s *Service) listFor(ctx context.Context, email string, list func(context.Context, string) ([]models.LeaveRequest, error)) ([]models.LeaveRequest, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	user, err := s.store.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, s.storeErr("find user", err)
	}

	out, err := list(ctx, user.ID)
	if err != nil {
		return nil, s.storeErr("list requests", err)
	}
	return out, nil
}

// AssignMentor points the student at the mentor, overwriting any previous
// assignment.
func (s *Service) AssignMentor(ctx context.Context, studentEmail, mentorEmail string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	student, err := s.store.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(studentEmail)))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrUserNotFound
		}
		return s.storeErr("find student", err)
	}
	mentor, err := s.store.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(mentorEmail)))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrUserNotFound
		}
		return s.storeErr("find mentor", err)
	}

	if err := s.store.AssignMentor(ctx, student.ID, mentor.ID); err != nil {
		return s.storeErr("assign mentor", err)
	}

	s.logger.Info("mentor assigned",
		zap.String("student_id", student.ID),
		zap.String("mentor_id", mentor.ID))
	return nil
}

func (s *Service) mentorFor(ctx context.Context, studentID string) (string, bool, error) {
	mentorID, err := s.store.MentorFor(ctx, studentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", false, nil
		}
		return "", false, s.storeErr("lookup mentor", err)
	}
	return mentorID, true, nil
}

func (s *Service) checkLeaveType(leaveType string) error {
	if leaveType == "" {
		return ErrInvalidLeaveType
	}
	if len(s.leaveTypes) == 0 {
		return nil
	}
	if _, ok := s.leaveTypes[leaveType]; !ok {
		return ErrInvalidLeaveType
	}
	return nil
}

func (s *Service) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

// storeErr translates unexpected store failures into the retryable
// ErrStoreUnavailable, keeping the underlying cause in the chain.
func (s *Service) storeErr(op string, err error) error {
	s.logger.Error("store operation failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
