// Package formsession collects a registrant through direct structured input.
package formsession

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"rozgar-signup/internal/common/errors"
	"rozgar-signup/internal/common/validation"
	"rozgar-signup/internal/models"
	"rozgar-signup/internal/signup/session"
)

type Session struct {
	mu      sync.Mutex
	id      string
	deps    Dependencies
	tracker *session.Tracker

	mode   Mode
	state  State
	fields map[string]string
	err    error
	closed bool
}

func New(deps Dependencies) *Session {
	id := uuid.NewString()
	return &Session{
		id:      id,
		deps:    deps,
		tracker: session.NewTracker(id, models.StrategyForm, deps.Logger),
		mode:    ModeRegister,
		state:   StateCollecting,
		fields:  map[string]string{FieldRole: string(models.RoleWorker)},
	}
}

func (s *Session) ID() string                { return s.id }
func (s *Session) Strategy() models.Strategy { return models.StrategyForm }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Status() models.SessionStatus {
	switch s.State() {
	case StateSubmitting:
		return models.StatusSubmitting
	case StateCompleted:
		return models.StatusCompleted
	case StateFailed:
		return models.StatusFailed
	default:
		return models.StatusCollecting
	}
}

func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode switches between login and register. Entered values are kept.
func (s *Session) SetMode(m Mode) error {
	if m != ModeLogin && m != ModeRegister {
		return errors.NewValidationError("mode", fmt.Sprintf("unknown mode %q", m))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fire(EventEdit); err != nil {
		return err
	}
	s.mode = m
	s.err = nil
	return nil
}

// UpdateField sets one input value and clears any shown error. Values are
// interpreted only at submission.
func (s *Session) UpdateField(key, value string) error {
	if !fieldKeys[key] {
		return errors.NewValidationError(key, "unknown field")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fire(EventEdit); err != nil {
		return err
	}
	s.fields[key] = value
	s.err = nil
	return nil
}

func (s *Session) Field(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fields[key]
}

// Err returns the error of the last submission attempt, or nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// ErrorMessage is Err rendered in the active language.
func (s *Session) ErrorMessage() string {
	return session.Message(s.deps.Locale, s.Err())
}

// Registrant returns the record the current inputs describe.
func (s *Session) Registrant() (models.Registrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.build()
}

// Submit validates the inputs for the current role and mode, then logs in
// or registers. Validation failures leave the state untouched and issue no
// network call. After a partial registration the next Submit only retries
// the worker profile, unless an identity field was edited in between.
func (s *Session) Submit(ctx context.Context) (*models.Registration, error) {
	s.mu.Lock()
	if !transitions.Allows(s.state, EventSubmit) {
		state := s.state
		s.mu.Unlock()
		return nil, errors.NewInvalidTransitionError("form session", string(state), string(EventSubmit))
	}

	mode := s.mode
	var (
		r     models.Registrant
		creds models.Credentials
		err   error
	)
	if mode == ModeLogin {
		creds = models.Credentials{
			PhoneNumber: strings.TrimSpace(s.fields[FieldPhone]),
			Password:    s.fields[FieldPassword],
		}
		if vr := validation.ValidateCredentials(creds); !vr.Valid {
			err = validationError(vr)
		}
	} else {
		r, err = s.build()
	}
	if err != nil {
		s.err = err
		s.mu.Unlock()
		return nil, err
	}
	_ = s.fire(EventSubmit)
	s.mu.Unlock()

	var reg *models.Registration
	if mode == ModeLogin {
		reg, err = s.login(ctx, creds)
	} else {
		reg, err = s.register(ctx, r)
	}

	s.mu.Lock()
	closed := s.closed
	if err != nil {
		s.err = err
		_ = s.fire(EventFailed)
		s.tracker.Failed(err)
	} else {
		s.err = nil
		_ = s.fire(EventSucceeded)
	}
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if closed {
		s.tracker.Logger().Warn("Registration finished after the form was closed", map[string]interface{}{"userId": reg.UserID})
	} else if s.deps.OnComplete != nil {
		s.deps.OnComplete(ctx, *reg)
	}
	return reg, nil
}

func (s *Session) login(ctx context.Context, creds models.Credentials) (*models.Registration, error) {
	identity, err := s.deps.Accounts.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	return &models.Registration{
		Strategy:    models.StrategyForm,
		Token:       identity.Token,
		UserID:      identity.UserID,
		Role:        identity.Role,
		PhoneNumber: creds.PhoneNumber,
		Language:    session.Language(s.deps.Locale),
		Login:       true,
	}, nil
}

// register describes the identity that was actually used, which is the
// submitter's registrant rather than r.
func (s *Session) register(ctx context.Context, r models.Registrant) (*models.Registration, error) {
	res, err := s.deps.Submitter.Submit(ctx, r)
	if err != nil {
		return nil, err
	}

	used := res.Registrant
	reg := &models.Registration{
		Strategy:    models.StrategyForm,
		Token:       res.Identity.Token,
		UserID:      res.Identity.UserID,
		Role:        used.Role,
		PhoneNumber: used.PhoneNumber,
		Language:    used.Language,
	}
	if res.Identity.Role != "" {
		reg.Role = res.Identity.Role
	}
	if res.Profile != nil {
		reg.WorkerID = res.Profile.WorkerID
	}
	return reg, nil
}

// Close marks the session closed. A submission already in flight still
// finishes but no longer notifies the completion hook.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Session) fire(ev Event) error {
	to, err := transitions.Next("form session", s.state, ev)
	if err != nil {
		return err
	}
	if to != s.state {
		s.tracker.Transition(string(s.state), string(to), string(ev))
	}
	s.state = to
	return nil
}

func (s *Session) build() (models.Registrant, error) {
	f := func(key string) string { return strings.TrimSpace(s.fields[key]) }

	r := models.Registrant{
		Name:        f(FieldName),
		PhoneNumber: f(FieldPhone),
		Password:    s.fields[FieldPassword],
		Role:        models.Role(f(FieldRole)),
		Language:    session.Language(s.deps.Locale),
		Skills:      []string{},
	}
	if r.Role == "" {
		r.Role = models.DefaultRole
	}

	if r.Role == models.RoleWorker {
		r.Area = f(FieldArea)
		r.District = f(FieldDistrict)
		r.State = f(FieldState)
		r.Skills = models.ParseSkills(s.fields[FieldSkills])

		if v := f(FieldJobType); v != "" {
			jt, ok := models.ParseJobType(v)
			if !ok {
				return r, errors.NewValidationError(FieldJobType, fmt.Sprintf("unknown job type %q", v))
			}
			r.JobType = jt
		}
		if v := f(FieldDailyWage); v != "" {
			wage, err := models.ParseWage(v)
			if err != nil {
				return r, errors.NewValidationError(FieldDailyWage, err.Error())
			}
			r.ExpectedDailyWage = wage
		}
	}

	if vr := validation.ValidateRegistration(r); !vr.Valid {
		return r, validationError(vr)
	}
	return r, nil
}

func validationError(vr *validation.ValidationResult) error {
	return errors.NewValidationError(strings.Join(vr.Fields(), ","), strings.Join(vr.GetErrorMessages(), "; "))
}
