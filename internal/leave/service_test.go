package leave

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/acadhub/leave-be/internal/models"
	"github.com/acadhub/leave-be/internal/policy"
	"github.com/acadhub/leave-be/internal/storage"
	"github.com/acadhub/leave-be/internal/storage/memory"
)

const (
	studentEmail = "12345@university.edu"
	mentorEmail  = "mentor@university.edu"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	engine := policy.NewEngine(5)
	classify := policy.NewEmailRoleClassifier(regexp.MustCompile(`^[0-9]+@`))
	svc := NewService(store, engine, classify, Config{
		Quotas: map[models.Role]int{
			models.RoleStudent: 20,
			models.RoleFaculty: 30,
		},
		LeaveTypes:   []string{"sick", "casual", "vacation"},
		StoreTimeout: time.Second,
	}, zap.NewNop())
	return svc, store
}

func seedUsers(t *testing.T, svc *Service, withMentor bool) (student, mentor models.User) {
	t.Helper()
	ctx := context.Background()

	student, err := svc.EnsureUser(ctx, "John Doe", studentEmail)
	require.NoError(t, err)
	mentor, err = svc.EnsureUser(ctx, "Jane Smith", mentorEmail)
	require.NoError(t, err)

	if withMentor {
		require.NoError(t, svc.AssignMentor(ctx, studentEmail, mentorEmail))
	}
	return student, mentor
}

func dates(days int) (time.Time, time.Time) {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, days-1)
}

func TestEnsureUserFirstSight(t *testing.T) {
	svc, _ := newTestService(t)
	student, mentor := seedUsers(t, svc, false)

	assert.Equal(t, models.RoleStudent, student.Role)
	assert.Equal(t, 20, student.LeaveBalance)
	assert.Equal(t, models.RoleFaculty, mentor.Role)
	assert.Equal(t, 30, mentor.LeaveBalance)
}

func TestEnsureUserKeepsExistingBalance(t *testing.T) {
	svc, _ := newTestService(t)
	seedUsers(t, svc, false)
	ctx := context.Background()

	start, end := dates(3)
	_, err := svc.Submit(ctx, studentEmail, "sick", start, end, "flu")
	require.NoError(t, err)

	again, err := svc.EnsureUser(ctx, "John D.", studentEmail)
	require.NoError(t, err)
	assert.Equal(t, 17, again.LeaveBalance, "re-authentication must not reset the balance")
	assert.Equal(t, "John D.", again.DisplayName, "display name follows the identity provider")
}

func TestSubmitAutoApprove(t *testing.T) {
	svc, _ := newTestService(t)
	seedUsers(t, svc, false)
	ctx := context.Background()

	start, end := dates(5)
	result, err := svc.Submit(ctx, studentEmail, "casual", start, end, "family visit")
	require.NoError(t, err)

	assert.Equal(t, models.StatusAutoApproved, result.Status)
	assert.Equal(t, 15, result.NewBalance)

	requests, err := svc.RequestsFor(ctx, studentEmail)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, models.AutoApproverID, requests[0].ApproverID)
}

func TestSubmitRoutesToMentor(t *testing.T) {
	svc, _ := newTestService(t)
	_, mentor := seedUsers(t, svc, true)
	ctx := context.Background()

	start, end := dates(6)
	result, err := svc.Submit(ctx, studentEmail, "vacation", start, end, "trip")
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, result.Status)
	assert.Equal(t, 14, result.NewBalance, "balance is reserved at submission")

	pending, err := svc.PendingForApprover(ctx, mentorEmail)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, mentor.ID, pending[0].ApproverID)
}

func TestSubmitNoMentorAssigned(t *testing.T) {
	svc, _ := newTestService(t)
	seedUsers(t, svc, false)
	ctx := context.Background()

	start, end := dates(6)
	_, err := svc.Submit(ctx, studentEmail, "vacation", start, end, "trip")
	assert.ErrorIs(t, err, ErrNoApproverAvailable)

	balance, err := svc.Balance(ctx, studentEmail)
	require.NoError(t, err)
	assert.Equal(t, 20, balance, "failed submission must not debit")

	requests, err := svc.RequestsFor(ctx, studentEmail)
	require.NoError(t, err)
	assert.Empty(t, requests, "failed submission must not create a request")
}

func TestSubmitValidation(t *testing.T) {
	svc, _ := newTestService(t)
	seedUsers(t, svc, false)
	ctx := context.Background()

	start, end := dates(3)
	_, err := svc.Submit(ctx, studentEmail, "sick", end, start, "reversed")
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	_, err = svc.Submit(ctx, studentEmail, "sabbatical", start, end, "")
	assert.ErrorIs(t, err, ErrInvalidLeaveType)

	_, err = svc.Submit(ctx, "ghost@university.edu", "sick", start, end, "")
	assert.ErrorIs(t, err, ErrUserNotFound)

	start, end = dates(21)
	_, err = svc.Submit(ctx, studentEmail, "sick", start, end, "too long")
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	balance, err := svc.Balance(ctx, studentEmail)
	require.NoError(t, err)
	assert.Equal(t, 20, balance)
}

func TestApproveKeepsBalance(t *testing.T) {
	svc, _ := newTestService(t)
	seedUsers(t, svc, true)
	ctx := context.Background()

	start, end := dates(10)
	result, err := svc.Submit(ctx, studentEmail, "vacation", start, end, "trip")
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, result.Status)

	require.NoError(t, svc.Approve(ctx, result.RequestID, mentorEmail))

	balance, err := svc.Balance(ctx, studentEmail)
	require.NoError(t, err)
	assert.Equal(t, 10, balance, "approval must not debit again")

	requests, err := svc.RequestsFor(ctx, studentEmail)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, models.StatusApproved, requests[0].Status)
	assert.NotNil(t, requests[0].DecidedAt)
}

func TestRejectDoesNotRefund(t *testing.T) {
	svc, _ := newTestService(t)
	seedUsers(t, svc, true)
	ctx := context.Background()

	start, end := dates(8)
	result, err := svc.Submit(ctx, studentEmail, "casual", start, end, "")
	require.NoError(t, err)

	require.NoError(t, svc.Reject(ctx, result.RequestID, mentorEmail))

	balance, err := svc.Balance(ctx, studentEmail)
	require.NoError(t, err)
	assert.Equal(t, 12, balance, "rejection keeps the debit")
}

func TestDecisionIsTerminal(t *testing.T) {
	svc, _ := newTestService(t)
	seedUsers(t, svc, true)
	ctx := context.Background()

	start, end := dates(7)
	result, err := svc.Submit(ctx, studentEmail, "sick", start, end, "")
	require.NoError(t, err)

	require.NoError(t, svc.Approve(ctx, result.RequestID, mentorEmail))

	assert.ErrorIs(t, svc.Approve(ctx, result.RequestID, mentorEmail), ErrInvalidTransition)
	assert.ErrorIs(t, svc.Reject(ctx, result.RequestID, mentorEmail), ErrInvalidTransition)

	requests, err := svc.RequestsFor(ctx, studentEmail)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, requests[0].Status)
}

func TestDecisionByWrongApprover(t *testing.T) {
	svc, _ := newTestService(t)
	seedUsers(t, svc, true)
	ctx := context.Background()

	other, err := svc.EnsureUser(ctx, "Other Prof", "other@university.edu")
	require.NoError(t, err)
	require.Equal(t, models.RoleFaculty, other.Role)

	start, end := dates(9)
	result, err := svc.Submit(ctx, studentEmail, "sick", start, end, "")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Approve(ctx, result.RequestID, "other@university.edu"), ErrUnauthorized)

	requests, err := svc.RequestsFor(ctx, studentEmail)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, requests[0].Status, "unauthorized decision leaves the request pending")
}

func TestDecideUnknownRequest(t *testing.T) {
	svc, _ := newTestService(t)
	seedUsers(t, svc, true)

	err := svc.Approve(context.Background(), "no-such-id", mentorEmail)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestMentorReassignmentOverwrites(t *testing.T) {
	svc, _ := newTestService(t)
	seedUsers(t, svc, true)
	ctx := context.Background()

	_, err := svc.EnsureUser(ctx, "New Mentor", "newmentor@university.edu")
	require.NoError(t, err)
	require.NoError(t, svc.AssignMentor(ctx, studentEmail, "newmentor@university.edu"))

	start, end := dates(6)
	_, err = svc.Submit(ctx, studentEmail, "sick", start, end, "")
	require.NoError(t, err)

	pending, err := svc.PendingForApprover(ctx, "newmentor@university.edu")
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	old, err := svc.PendingForApprover(ctx, mentorEmail)
	require.NoError(t, err)
	assert.Empty(t, old)
}

// TestAccountingWalkthrough is the end-to-end bookkeeping scenario: every
// successful submission debits exactly its day count and nothing else
// moves the balance.
func TestAccountingWalkthrough(t *testing.T) {
	svc, _ := newTestService(t)
	seedUsers(t, svc, true)
	ctx := context.Background()

	start, end := dates(3)
	r1, err := svc.Submit(ctx, studentEmail, "sick", start, end, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAutoApproved, r1.Status)
	assert.Equal(t, 17, r1.NewBalance)

	start, end = dates(10)
	r2, err := svc.Submit(ctx, studentEmail, "vacation", start, end, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, r2.Status)
	assert.Equal(t, 7, r2.NewBalance)

	require.NoError(t, svc.Approve(ctx, r2.RequestID, mentorEmail))
	balance, err := svc.Balance(ctx, studentEmail)
	require.NoError(t, err)
	assert.Equal(t, 7, balance)

	start, end = dates(8)
	_, err = svc.Submit(ctx, studentEmail, "casual", start, end, "")
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	balance, err = svc.Balance(ctx, studentEmail)
	require.NoError(t, err)
	assert.Equal(t, 7, balance)
}

// TestConcurrentSubmissions races two submissions that cannot both fit:
// exactly one must succeed and the loser must see ErrInsufficientBalance.
func TestConcurrentSubmissions(t *testing.T) {
	for i := 0; i < 50; i++ {
		svc, _ := newTestService(t)
		seedUsers(t, svc, true)
		ctx := context.Background()

		start, end := dates(20) // each submission consumes the whole quota
		errs := make([]error, 2)
		var wg sync.WaitGroup
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func(j int) {
				defer wg.Done()
				_, errs[j] = svc.Submit(ctx, studentEmail, "vacation", start, end, "race")
			}(j)
		}
		wg.Wait()

		var ok, insufficient int
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrInsufficientBalance):
				insufficient++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		require.Equal(t, 1, ok, "exactly one submission may succeed")
		require.Equal(t, 1, insufficient)

		balance, err := svc.Balance(ctx, studentEmail)
		require.NoError(t, err)
		require.Equal(t, 0, balance)
	}
}

func TestListingsNewestFirst(t *testing.T) {
	svc, _ := newTestService(t)
	seedUsers(t, svc, true)
	ctx := context.Background()

	first, err := svc.Submit(ctx, studentEmail, "sick", dateAt(1), dateAt(1), "first")
	require.NoError(t, err)
	second, err := svc.Submit(ctx, studentEmail, "sick", dateAt(3), dateAt(3), "second")
	require.NoError(t, err)

	requests, err := svc.RequestsFor(ctx, studentEmail)
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, second.RequestID, requests[0].ID)
	assert.Equal(t, first.RequestID, requests[1].ID)
}

func dateAt(day int) time.Time {
	return time.Date(2026, 10, day, 0, 0, 0, 0, time.UTC)
}

// faultyStore fails every call, standing in for an unreachable database.
type faultyStore struct {
	storage.Store
}

var errBoom = errors.New("connection refused")

func (faultyStore) FindUserByEmail(context.Context, string) (models.User, error) {
	return models.User{}, errBoom
}

func TestStoreFailureSurfacesAsUnavailable(t *testing.T) {
	engine := policy.NewEngine(5)
	classify := policy.NewEmailRoleClassifier(regexp.MustCompile(`^[0-9]+@`))
	svc := NewService(faultyStore{}, engine, classify, Config{
		Quotas:       map[models.Role]int{models.RoleStudent: 20},
		StoreTimeout: time.Second,
	}, zap.NewNop())

	_, err := svc.Balance(context.Background(), studentEmail)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, errBoom, "the cause stays in the chain")
}
