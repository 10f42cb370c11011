package models

import "time"

// LeaveStatus is the state of a leave request. Pending may move to
// Approved or Rejected exactly once; AutoApproved is entered directly at
// submission. All three non-pending states are terminal.
type LeaveStatus string

const (
	StatusPending      LeaveStatus = "pending"
	StatusApproved     LeaveStatus = "approved"
	StatusRejected     LeaveStatus = "rejected"
	StatusAutoApproved LeaveStatus = "auto_approved"
)

// Terminal reports whether no further transition is permitted.
func (s LeaveStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusAutoApproved
}

// AutoApproverID is the sentinel approver recorded on auto-approved requests.
const AutoApproverID = "auto"

// LeaveRequest is a single leave application. Dates are inclusive on both
// ends and stored at day granularity.
type LeaveRequest struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	LeaveType  string      `json:"leave_type"`
	StartDate  time.Time   `json:"start_date"`
	EndDate    time.Time   `json:"end_date"`
	Reason     string      `json:"reason"`
	Status     LeaveStatus `json:"status"`
	ApproverID string      `json:"approver_id"`
	CreatedAt  time.Time   `json:"created_at"`
	DecidedAt  *time.Time  `json:"decided_at,omitempty"`
}

// Days returns the inclusive number of requested days.
func (r LeaveRequest) Days() int {
	return int(r.EndDate.Sub(r.StartDate).Hours()/24) + 1
}

// MentorAssignment maps a student to their approving mentor. At most one
// assignment per student; re-assignment overwrites.
type MentorAssignment struct {
	StudentID string    `json:"student_id"`
	MentorID  string    `json:"mentor_id"`
	UpdatedAt time.Time `json:"updated_at"`
}
