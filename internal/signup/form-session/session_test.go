package formsession

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rozgar-signup/internal/common/backend/backendtest"
	"rozgar-signup/internal/common/errors"
	"rozgar-signup/internal/common/i18n"
	"rozgar-signup/internal/common/logger"
	"rozgar-signup/internal/models"
	"rozgar-signup/internal/signup/submission"
)

type fixture struct {
	session   *Session
	accounts  *backendtest.Accounts
	profiles  *backendtest.Profiles
	completed []models.Registration
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{accounts: &backendtest.Accounts{}, profiles: &backendtest.Profiles{}}
	log := logger.NewTestLogger(t)
	f.session = New(Dependencies{
		Submitter: submission.New(f.accounts, f.profiles, log),
		Accounts:  f.accounts,
		Locale:    i18n.NewLocale("en"),
		Logger:    log,
		OnComplete: func(ctx context.Context, reg models.Registration) {
			f.completed = append(f.completed, reg)
		},
	})
	return f
}

func (f *fixture) fill(t *testing.T, values map[string]string) {
	t.Helper()
	for k, v := range values {
		require.NoError(t, f.session.UpdateField(k, v))
	}
}

var ramSingh = map[string]string{
	FieldName:      "Ram Singh",
	FieldPhone:     "9876543210",
	FieldPassword:  "secret1",
	FieldRole:      "worker",
	FieldArea:      "Rampur",
	FieldDistrict:  "Alwar",
	FieldState:     "Rajasthan",
	FieldJobType:   "Mason",
	FieldDailyWage: "600",
}

// ==========================================================================
// Register
// ==========================================================================

func TestSubmit_WorkerTwoCalls(t *testing.T) {
	f := newFixture(t)
	f.fill(t, ramSingh)

	f.accounts.On("Register", mock.Anything, mock.Anything).
		Return(&models.IdentityResult{Token: "tok", UserID: "u1", Role: models.RoleWorker}, nil).Once()
	f.profiles.On("CreateProfile", mock.Anything, "tok", mock.MatchedBy(func(p models.WorkerProfile) bool {
		return p.Area == "Rampur" && p.District == "Alwar" && p.State == "Rajasthan" &&
			p.JobType == models.JobMason && p.ExpectedDailyWage == 600 && p.Language == "en"
	})).Return(&models.ProfileResult{WorkerID: "w1"}, nil).Once()

	reg, err := f.session.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, f.session.State())
	assert.Equal(t, models.StatusCompleted, f.session.Status())
	assert.Equal(t, "w1", reg.WorkerID)
	assert.Equal(t, "worker", reg.DashboardTarget())
	require.Len(t, f.completed, 1)
	f.accounts.AssertExpectations(t)
	f.profiles.AssertExpectations(t)
}

func TestSubmit_EmployerNeedsOnlyIdentityFields(t *testing.T) {
	f := newFixture(t)
	f.fill(t, map[string]string{
		FieldName: "Asha", FieldPhone: "9876543210", FieldPassword: "pw", FieldRole: "employer",
	})
	f.accounts.On("Register", mock.Anything, mock.Anything).
		Return(&models.IdentityResult{Token: "tok", UserID: "e1", Role: models.RoleEmployer}, nil)

	reg, err := f.session.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "employer", reg.DashboardTarget())
	f.profiles.AssertNotCalled(t, "CreateProfile", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_ValidationBlocksNetwork(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		field  string
	}{
		{"worker without locality", map[string]string{FieldName: "Ram", FieldPhone: "9876543210", FieldPassword: "pw", FieldJobType: "Mason", FieldDailyWage: "600"}, "area"},
		{"unknown job type", map[string]string{FieldJobType: "Pilot"}, FieldJobType},
		{"bad wage", map[string]string{FieldDailyWage: "lots"}, FieldDailyWage},
		{"employer without password", map[string]string{FieldName: "Asha", FieldPhone: "9876543210", FieldRole: "employer"}, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.fill(t, tt.values)

			_, err := f.session.Submit(context.Background())
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))
			stdErr, _ := errors.As(err)
			assert.Contains(t, stdErr.Metadata["field"], tt.field)
			assert.Equal(t, StateCollecting, f.session.State())
			assert.Equal(t, i18n.Message("en", "error.validation"), f.session.ErrorMessage())
			f.accounts.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
		})
	}
}

func TestUpdateField_ClearsErrorAndRejectsUnknownKeys(t *testing.T) {
	f := newFixture(t)
	_, err := f.session.Submit(context.Background())
	require.Error(t, err)
	require.Error(t, f.session.Err())

	require.NoError(t, f.session.UpdateField(FieldName, "Ram"))
	assert.NoError(t, f.session.Err())
	assert.Equal(t, "Ram", f.session.Field(FieldName))

	assert.Error(t, f.session.UpdateField("favourite_colour", "blue"))
}

func TestSubmit_DuplicateRegistration(t *testing.T) {
	f := newFixture(t)
	f.fill(t, ramSingh)
	f.accounts.On("Register", mock.Anything, mock.Anything).
		Return(nil, errors.NewDuplicateRegistrationError("Phone number already registered"))

	_, err := f.session.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, f.session.State())
	assert.Equal(t, i18n.Message("en", "error.duplicate_registration"), f.session.ErrorMessage())
	assert.NotEqual(t, i18n.Message("en", "error.registration_failed"), f.session.ErrorMessage())
	assert.Empty(t, f.completed)
}

func TestSubmit_PartialThenRetryProfileOnly(t *testing.T) {
	f := newFixture(t)
	f.fill(t, ramSingh)

	f.accounts.On("Register", mock.Anything, mock.Anything).
		Return(&models.IdentityResult{Token: "tok", UserID: "u1", Role: models.RoleWorker}, nil).Once()
	f.profiles.On("CreateProfile", mock.Anything, "tok", mock.Anything).
		Return(nil, errors.NewServiceError("profile", 500, "db error")).Once()

	_, err := f.session.Submit(context.Background())
	assert.True(t, errors.HasCode(err, errors.ErrCodePartialRegistration))
	assert.Equal(t, StateFailed, f.session.State())

	f.profiles.On("CreateProfile", mock.Anything, "tok", mock.Anything).
		Return(&models.ProfileResult{WorkerID: "w1"}, nil).Once()

	reg, err := f.session.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", reg.Token)
	f.accounts.AssertNumberOfCalls(t, "Register", 1)
}

func (f *fixture) partial(t *testing.T) {
	t.Helper()
	f.fill(t, ramSingh)
	f.accounts.On("Register", mock.Anything, mock.Anything).
		Return(&models.IdentityResult{Token: "tok", UserID: "u1", Role: models.RoleWorker}, nil).Once()
	f.profiles.On("CreateProfile", mock.Anything, "tok", mock.Anything).
		Return(nil, errors.NewServiceError("profile", 500, "db error")).Once()

	_, err := f.session.Submit(context.Background())
	require.True(t, errors.HasCode(err, errors.ErrCodePartialRegistration))
}

func TestSubmit_PartialThenProfileEditIsReplayed(t *testing.T) {
	f := newFixture(t)
	f.partial(t)

	require.NoError(t, f.session.UpdateField(FieldArea, "Sikar"))
	f.profiles.On("CreateProfile", mock.Anything, "tok", mock.MatchedBy(func(p models.WorkerProfile) bool {
		return p.Area == "Sikar" && p.UserID == "u1"
	})).Return(&models.ProfileResult{WorkerID: "w1"}, nil).Once()

	reg, err := f.session.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", reg.UserID)
	assert.Equal(t, "w1", reg.WorkerID)
	f.accounts.AssertNumberOfCalls(t, "Register", 1)
}

func TestSubmit_PartialThenIdentityEditRegistersAgain(t *testing.T) {
	f := newFixture(t)
	f.partial(t)

	f.fill(t, map[string]string{FieldPhone: "9123456789", FieldArea: "Sikar"})
	f.accounts.On("Register", mock.Anything, mock.Anything).
		Return(&models.IdentityResult{Token: "tok2", UserID: "u2", Role: models.RoleWorker}, nil).Once()
	f.profiles.On("CreateProfile", mock.Anything, "tok2", mock.MatchedBy(func(p models.WorkerProfile) bool {
		return p.Area == "Sikar" && p.PhoneNumber == "9123456789" && p.UserID == "u2"
	})).Return(&models.ProfileResult{WorkerID: "w2"}, nil).Once()

	reg, err := f.session.Submit(context.Background())
	require.NoError(t, err)
	f.accounts.AssertNumberOfCalls(t, "Register", 2)
	assert.Equal(t, "u2", reg.UserID)
	assert.Equal(t, "tok2", reg.Token)
	assert.Equal(t, "9123456789", reg.PhoneNumber)
	assert.Equal(t, "w2", reg.WorkerID)
}

func TestSubmit_NotAllowedWhileCompleted(t *testing.T) {
	f := newFixture(t)
	f.fill(t, map[string]string{FieldName: "Asha", FieldPhone: "9876543210", FieldPassword: "pw", FieldRole: "employer"})
	f.accounts.On("Register", mock.Anything, mock.Anything).
		Return(&models.IdentityResult{Token: "tok", UserID: "e1", Role: models.RoleEmployer}, nil)

	_, err := f.session.Submit(context.Background())
	require.NoError(t, err)

	_, err = f.session.Submit(context.Background())
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidTransition))
	assert.True(t, errors.HasCode(f.session.UpdateField(FieldName, "x"), errors.ErrCodeInvalidTransition))
}

// ==========================================================================
// Login
// ==========================================================================

func TestLogin(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.SetMode(ModeLogin))
	f.fill(t, map[string]string{FieldPhone: "9876543210", FieldPassword: "pw"})

	f.accounts.On("Login", mock.Anything, models.Credentials{PhoneNumber: "9876543210", Password: "pw"}).
		Return(&models.IdentityResult{Token: "tok", UserID: "e1", Role: models.RoleEmployer}, nil)

	reg, err := f.session.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, reg.Login)
	assert.Equal(t, "employer", reg.DashboardTarget())
	f.accounts.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
	f.profiles.AssertNotCalled(t, "CreateProfile", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.SetMode(ModeLogin))

	_, err := f.session.Submit(context.Background())
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))

	f.fill(t, map[string]string{FieldPhone: "9876543210", FieldPassword: "wrong"})
	f.accounts.On("Login", mock.Anything, mock.Anything).Return(nil, errors.NewInvalidCredentialsError("Invalid credentials"))

	_, err = f.session.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, i18n.Message("en", "error.invalid_credentials"), f.session.ErrorMessage())

	assert.Error(t, f.session.SetMode("admin"))
}

func TestClose_SuppressesCompletion(t *testing.T) {
	f := newFixture(t)
	f.fill(t, map[string]string{FieldName: "Asha", FieldPhone: "9876543210", FieldPassword: "pw", FieldRole: "employer"})
	f.accounts.On("Register", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { _ = f.session.Close() }).
		Return(&models.IdentityResult{Token: "tok", UserID: "e1", Role: models.RoleEmployer}, nil)

	_, err := f.session.Submit(context.Background())
	require.NoError(t, err)
	assert.Empty(t, f.completed)
}
