package models

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Role of a registrant on the marketplace.
type Role string

const (
	RoleWorker   Role = "worker"
	RoleEmployer Role = "employer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleWorker || r == RoleEmployer
}

// JobType is the trade a worker registers for.
type JobType string

const (
	JobMason       JobType = "Mason"
	JobLabour      JobType = "Labour"
	JobPlumber     JobType = "Plumber"
	JobElectrician JobType = "Electrician"
	JobPainter     JobType = "Painter"
)

// JobTypes lists every selectable trade in display order.
var JobTypes = []JobType{JobMason, JobLabour, JobPlumber, JobElectrician, JobPainter}

// ParseJobType matches a job type case-insensitively.
func ParseJobType(s string) (JobType, bool) {
	s = strings.TrimSpace(s)
	for _, jt := range JobTypes {
		if strings.EqualFold(string(jt), s) {
			return jt, true
		}
	}
	return "", false
}

const (
	DefaultRole      = RoleWorker
	DefaultJobType   = JobLabour
	DefaultDailyWage = 500

	tempPasswordLength = 6
)

// Registrant is the normalized record every intake strategy produces.
type Registrant struct {
	Name              string   `json:"name"`
	PhoneNumber       string   `json:"phone_number"`
	Password          string   `json:"password,omitempty"`
	Role              Role     `json:"role"`
	Area              string   `json:"area,omitempty"`
	District          string   `json:"district,omitempty"`
	State             string   `json:"state,omitempty"`
	JobType           JobType  `json:"job_type,omitempty"`
	ExpectedDailyWage int      `json:"expected_daily_wage,omitempty"`
	Skills            []string `json:"skills"`
	Language          string   `json:"language,omitempty"`
}

// Submittable reports whether the registrant carries the two fields the
// account service cannot do without.
func (r *Registrant) Submittable() bool {
	return r.Name != "" && r.PhoneNumber != ""
}

// MissingRequired lists the absent fields that block submission.
func (r *Registrant) MissingRequired() []string {
	var missing []string
	if r.Name == "" {
		missing = append(missing, "name")
	}
	if r.PhoneNumber == "" {
		missing = append(missing, "phone_number")
	}
	return missing
}

// ApplyDefaults fills the strategy defaults used by chatbot and voice intake.
func (r *Registrant) ApplyDefaults() {
	if r.Role == "" {
		r.Role = DefaultRole
	}
	if r.JobType == "" {
		r.JobType = DefaultJobType
	}
	if r.ExpectedDailyWage == 0 {
		r.ExpectedDailyWage = DefaultDailyWage
	}
	if r.Skills == nil {
		r.Skills = []string{}
	}
}

// IsWorker reports whether a profile must be created after the identity.
func (r *Registrant) IsWorker() bool {
	return r.Role == RoleWorker
}

// SameIdentity reports whether o would register the same account as r. Only
// the fields sent to the account service count; profile fields may differ.
func (r *Registrant) SameIdentity(o Registrant) bool {
	return r.Name == o.Name &&
		r.PhoneNumber == o.PhoneNumber &&
		r.Password == o.Password &&
		r.Role == o.Role
}

// Clone returns a deep copy safe to hand to callers.
func (r *Registrant) Clone() Registrant {
	out := *r
	if r.Skills != nil {
		out.Skills = make([]string, len(r.Skills))
		copy(out.Skills, r.Skills)
	}
	return out
}

// Merge overlays the non-zero fields of partial onto r.
func (r *Registrant) Merge(partial Registrant) {
	if partial.Name != "" {
		r.Name = partial.Name
	}
	if partial.PhoneNumber != "" {
		r.PhoneNumber = partial.PhoneNumber
	}
	if partial.Role != "" {
		r.Role = partial.Role
	}
	if partial.Area != "" {
		r.Area = partial.Area
	}
	if partial.District != "" {
		r.District = partial.District
	}
	if partial.State != "" {
		r.State = partial.State
	}
	if partial.JobType != "" {
		r.JobType = partial.JobType
	}
	if partial.ExpectedDailyWage != 0 {
		r.ExpectedDailyWage = partial.ExpectedDailyWage
	}
	if len(partial.Skills) > 0 {
		r.Skills = append([]string(nil), partial.Skills...)
	}
}

// TempPassword derives the temporary password issued to chatbot and voice
// registrants: the last six digits of the phone number.
func TempPassword(phone string) (string, error) {
	digits := make([]rune, 0, len(phone))
	for _, c := range phone {
		if unicode.IsDigit(c) {
			digits = append(digits, c)
		}
	}
	if len(digits) < tempPasswordLength {
		return "", fmt.Errorf("phone number %q has fewer than %d digits", phone, tempPasswordLength)
	}
	return string(digits[len(digits)-tempPasswordLength:]), nil
}

// ParseWage accepts a positive whole number of rupees.
func ParseWage(s string) (int, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "₹"))
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("expected daily wage must be a whole number: %w", err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("expected daily wage must be positive, got %d", n)
	}
	return n, nil
}

// ParseSkills splits a comma separated list, dropping blanks.
func ParseSkills(s string) []string {
	skills := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			skills = append(skills, p)
		}
	}
	return skills
}
