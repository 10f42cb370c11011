package dto

import "github.com/acadhub/leave-be/internal/models"

type SubmitLeaveRequest struct {
	LeaveType string `json:"leave_type"`
	StartDate string `json:"start_date"` // YYYY-MM-DD
	EndDate   string `json:"end_date"`   // YYYY-MM-DD
	Reason    string `json:"reason"`
}

type SubmitLeaveResponse struct {
	RequestID  string             `json:"request_id"`
	Status     models.LeaveStatus `json:"status"`
	NewBalance int                `json:"new_balance"`
}

type BalanceResponse struct {
	Email        string `json:"email"`
	LeaveBalance int    `json:"leave_balance"`
}

type AssignMentorRequest struct {
	StudentEmail string `json:"student_email"`
	MentorEmail  string `json:"mentor_email"`
}
