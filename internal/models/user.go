package models

import "time"

// Role classifies an institutional identity.
type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
)

// User captures application-facing fields for an authenticated identity.
// LeaveBalance is mutated only through the accounting service and never
// goes negative.
type User struct {
	ID           string    `json:"id"`
	DisplayName  string    `json:"display_name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	LeaveBalance int       `json:"leave_balance"`
	CreatedAt    time.Time `json:"created_at"`
}
