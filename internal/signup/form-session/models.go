package formsession

import (
	"rozgar-signup/internal/common/backend"
	"rozgar-signup/internal/common/i18n"
	"rozgar-signup/internal/common/logger"
	"rozgar-signup/internal/signup/session"
	"rozgar-signup/internal/signup/submission"
)

// Mode selects between the login and register sub-forms.
type Mode string

const (
	ModeRegister Mode = "register"
	ModeLogin    Mode = "login"
)

type State string

const (
	StateCollecting State = "collecting"
	StateSubmitting State = "submitting"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

type Event string

const (
	EventEdit      Event = "edit"
	EventSubmit    Event = "submit"
	EventSucceeded Event = "succeeded"
	EventFailed    Event = "failed"
)

var transitions = session.Table[State, Event]{
	StateCollecting: {
		EventEdit:   StateCollecting,
		EventSubmit: StateSubmitting,
	},
	StateSubmitting: {
		EventSucceeded: StateCompleted,
		EventFailed:    StateFailed,
	},
	StateFailed: {
		EventEdit:   StateCollecting,
		EventSubmit: StateSubmitting,
	},
}

// Field keys accepted by UpdateField.
const (
	FieldName      = "name"
	FieldPhone     = "phone_number"
	FieldPassword  = "password"
	FieldRole      = "role"
	FieldArea      = "area"
	FieldDistrict  = "district"
	FieldState     = "state"
	FieldJobType   = "job_type"
	FieldDailyWage = "expected_daily_wage"
	FieldSkills    = "skills"
)

var fieldKeys = map[string]bool{
	FieldName: true, FieldPhone: true, FieldPassword: true, FieldRole: true,
	FieldArea: true, FieldDistrict: true, FieldState: true, FieldJobType: true,
	FieldDailyWage: true, FieldSkills: true,
}

type Dependencies struct {
	Submitter  *submission.Submitter
	Accounts   backend.AccountService
	Locale     *i18n.Locale
	Logger     logger.Logger
	OnComplete session.CompletionFunc
}
