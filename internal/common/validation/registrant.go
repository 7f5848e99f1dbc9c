package validation

import (
	"regexp"
	"strings"

	"rozgar-signup/internal/models"
)

var phonePattern = regexp.MustCompile(`^\+?[\d\s\-\(\)]{10,}$`)

// ValidatePhone validates basic phone number format
func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// ValidateRegistration checks the role-conditional required fields of form
// intake. Workers need a full locality and trade; employers only the
// identity fields.
func ValidateRegistration(r models.Registrant) *ValidationResult {
	vr := &ValidationResult{Valid: true}

	required(vr, "name", r.Name)
	required(vr, "phone_number", r.PhoneNumber)
	required(vr, "password", r.Password)

	if r.PhoneNumber != "" && !ValidatePhone(r.PhoneNumber) {
		vr.add("phone_number", "INVALID_FORMAT", "phone number must have at least 10 digits")
	}

	switch r.Role {
	case models.RoleWorker:
		required(vr, "area", r.Area)
		required(vr, "district", r.District)
		required(vr, "state", r.State)
		if r.JobType == "" {
			vr.add("job_type", "REQUIRED_FIELD_MISSING", "required field missing")
		} else if _, ok := models.ParseJobType(string(r.JobType)); !ok {
			vr.add("job_type", "INVALID_ENUM_VALUE", "unknown job type")
		}
		if r.ExpectedDailyWage <= 0 {
			vr.add("expected_daily_wage", "MINIMUM_VIOLATION", "expected daily wage must be a positive whole number")
		}
	case models.RoleEmployer:
	default:
		vr.add("role", "INVALID_ENUM_VALUE", "role must be worker or employer")
	}

	return vr
}

// ValidateCredentials checks the login sub-mode fields.
func ValidateCredentials(c models.Credentials) *ValidationResult {
	vr := &ValidationResult{Valid: true}
	required(vr, "phone_number", c.PhoneNumber)
	required(vr, "password", c.Password)
	return vr
}

func required(vr *ValidationResult, field, value string) {
	if strings.TrimSpace(value) == "" {
		vr.add(field, "REQUIRED_FIELD_MISSING", "required field missing")
	}
}
