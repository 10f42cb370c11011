package policy

import (
	"regexp"

	"github.com/acadhub/leave-be/internal/models"
)

// RoleClassifier derives an institutional role from an email address. It
// is injected into the accounting service so institutions with different
// addressing schemes can swap the rule without touching the core.
type RoleClassifier func(email string) models.Role

// NewEmailRoleClassifier classifies emails whose local part matches
// studentPattern as students and everything else as faculty. The usual
// institutional convention is a numeric student id, e.g. ^[0-9]+@.
func NewEmailRoleClassifier(studentPattern *regexp.Regexp) RoleClassifier {
	return func(email string) models.Role {
		if studentPattern.MatchString(email) {
			return models.RoleStudent
		}
		return models.RoleFaculty
	}
}
