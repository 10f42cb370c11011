package storage

import (
	"context"
	"errors"

	"github.com/acadhub/leave-be/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrInsufficientBalance indicates a debit larger than the remaining balance.
var ErrInsufficientBalance = errors.New("insufficient leave balance")

// ErrInvalidTransition indicates a status change from a terminal state.
var ErrInvalidTransition = errors.New("request already decided")

// ErrNotApprover indicates the acting user is not the request's approver.
var ErrNotApprover = errors.New("not the assigned approver")

// ErrUnavailable indicates the store failed or timed out; safe to retry.
var ErrUnavailable = errors.New("store unavailable")

// Store captures persistence operations needed by the accounting service.
// Implementations must make SubmitRequest and DecideRequest atomic: a
// partially applied submit (debit without a request row, or the reverse)
// must never be observable, and racing decisions on one request must
// serialize so the loser sees ErrInvalidTransition.
type Store interface {
	// UpsertUser inserts the user keyed by email, or returns the existing
	// record. An existing user's balance and role are never overwritten;
	// only the display name follows the identity provider.
	UpsertUser(ctx context.Context, user models.User) (models.User, error)

	FindUserByEmail(ctx context.Context, email string) (models.User, error)
	FindUserByID(ctx context.Context, id string) (models.User, error)

	// Credit adds days back to a balance. Corrective paths only; the
	// canonical workflow never refunds.
	Credit(ctx context.Context, userID string, days int) (int, error)

	// SubmitRequest debits the owner's balance by req.Days() and inserts
	// the request in one atomic unit. Fails with ErrNotFound for an
	// unknown user and ErrInsufficientBalance when the debit cannot be
	// covered, in both cases leaving the store untouched.
	SubmitRequest(ctx context.Context, req models.LeaveRequest) (models.LeaveRequest, int, error)

	// DecideRequest moves a pending request to Approved or Rejected,
	// guarded by the current status and stored approver. ErrInvalidTransition
	// when the request is already terminal, ErrNotApprover when approverID
	// does not match.
	DecideRequest(ctx context.Context, requestID, approverID string, status models.LeaveStatus) (models.LeaveRequest, error)

	// ListRequestsByUser returns the user's requests, newest first.
	ListRequestsByUser(ctx context.Context, userID string) ([]models.LeaveRequest, error)

	// ListPendingByApprover returns undecided requests routed to the
	// approver, newest first.
	ListPendingByApprover(ctx context.Context, approverID string) ([]models.LeaveRequest, error)

	// AssignMentor records the student's mentor, overwriting any previous
	// assignment.
	AssignMentor(ctx context.Context, studentID, mentorID string) error

	// MentorFor returns the assigned mentor, or ErrNotFound when the
	// student has none.
	MentorFor(ctx context.Context, studentID string) (string, error)
}
