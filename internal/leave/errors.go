package leave

import "errors"

// Error taxonomy surfaced to callers. Validation errors are detected
// before any mutation and are safe to retry after correcting input;
// ErrStoreUnavailable is the only retryable infrastructure error.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrRequestNotFound     = errors.New("leave request not found")
	ErrInvalidDateRange    = errors.New("end date precedes start date")
	ErrInvalidLeaveType    = errors.New("unknown leave type")
	ErrInsufficientBalance = errors.New("insufficient leave balance")
	ErrNoApproverAvailable = errors.New("no mentor assigned for this student")
	ErrInvalidTransition   = errors.New("request already decided")
	ErrUnauthorized        = errors.New("not authorized to decide this request")
	ErrStoreUnavailable    = errors.New("leave store unavailable")
)
