package models

// User is the account record returned by the current-user endpoint.
type User struct {
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Role        Role   `json:"role"`
	Language    string `json:"language,omitempty"`
}

// IdentityResult is the reply to register and login.
type IdentityResult struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
	Name   string `json:"name,omitempty"`
}

// Credentials for the login sub-mode.
type Credentials struct {
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

// WorkerProfile is the body of the worker profile call.
type WorkerProfile struct {
	UserID            string   `json:"user_id"`
	Name              string   `json:"name"`
	PhoneNumber       string   `json:"phone_number"`
	Area              string   `json:"area"`
	District          string   `json:"district"`
	State             string   `json:"state"`
	JobType           JobType  `json:"job_type"`
	ExpectedDailyWage int      `json:"expected_daily_wage"`
	Skills            []string `json:"skills"`
	Language          string   `json:"language"`
}

// ProfileFromRegistrant builds the profile body for a freshly created identity.
func ProfileFromRegistrant(userID string, r Registrant) WorkerProfile {
	skills := r.Skills
	if skills == nil {
		skills = []string{}
	}
	return WorkerProfile{
		UserID:            userID,
		Name:              r.Name,
		PhoneNumber:       r.PhoneNumber,
		Area:              r.Area,
		District:          r.District,
		State:             r.State,
		JobType:           r.JobType,
		ExpectedDailyWage: r.ExpectedDailyWage,
		Skills:            skills,
		Language:          r.Language,
	}
}

// ProfileResult is the reply to the worker profile call.
type ProfileResult struct {
	Message  string `json:"message"`
	WorkerID string `json:"worker_id"`
}
