// Package policy holds the pure decision logic for leave submissions:
// threshold-based auto-approval, mentor routing, and role classification.
// It performs no I/O; callers inject lookups.
package policy

// DecisionKind is the outcome class of evaluating a submission.
type DecisionKind int

const (
	// AutoApprove: the request is within the threshold and needs no review.
	AutoApprove DecisionKind = iota
	// RouteToMentor: the request exceeds the threshold and goes to the
	// assigned mentor for review.
	RouteToMentor
	// RejectNoMentor: the request exceeds the threshold and the student
	// has no mentor; the submission itself fails.
	RejectNoMentor
)

// Decision is the result of evaluating a submission. MentorID is set only
// for RouteToMentor.
type Decision struct {
	Kind     DecisionKind
	MentorID string
}

// MentorLookup resolves a student's assigned mentor. The second return is
// false when no mentor is assigned.
type MentorLookup func(studentID string) (string, bool)

// Engine decides how a submission is approved.
type Engine struct {
	autoApproveDays int
}

// NewEngine creates an engine with the given auto-approval threshold in
// days. Requests of at most this many days bypass mentor review.
func NewEngine(autoApproveDays int) Engine {
	return Engine{autoApproveDays: autoApproveDays}
}

// Evaluate decides the approval path for a submission of requestedDays by
// studentID.
func (e Engine) Evaluate(requestedDays int, studentID string, lookup MentorLookup) Decision {
	if requestedDays <= e.autoApproveDays {
		return Decision{Kind: AutoApprove}
	}
	if mentorID, ok := lookup(studentID); ok {
		return Decision{Kind: RouteToMentor, MentorID: mentorID}
	}
	return Decision{Kind: RejectNoMentor}
}
