package submission

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rozgar-signup/internal/common/backend"
	"rozgar-signup/internal/common/backend/backendtest"
	"rozgar-signup/internal/common/errors"
	"rozgar-signup/internal/common/logger"
	"rozgar-signup/internal/models"
)

type fakeRecorder struct {
	enqueued []models.WorkerProfile
	done     []string
	err      error
}

func (f *fakeRecorder) Enqueue(ctx context.Context, token string, profile models.WorkerProfile, cause string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.enqueued = append(f.enqueued, profile)
	return fmt.Sprintf("pending-%d", len(f.enqueued)), nil
}

func (f *fakeRecorder) MarkDone(ctx context.Context, id string) error {
	f.done = append(f.done, id)
	return nil
}

func worker() models.Registrant {
	return models.Registrant{
		Name:              "Ram Singh",
		PhoneNumber:       "9876543210",
		Password:          "secret1",
		Role:              models.RoleWorker,
		Area:              "Rampur",
		District:          "Alwar",
		State:             "Rajasthan",
		JobType:           models.JobMason,
		ExpectedDailyWage: 600,
		Language:          "hi",
	}
}

func newSubmitter(t *testing.T) (*Submitter, *backendtest.Accounts, *backendtest.Profiles) {
	accounts := &backendtest.Accounts{}
	profiles := &backendtest.Profiles{}
	return New(accounts, profiles, logger.NewTestLogger(t)), accounts, profiles
}

var identity = &models.IdentityResult{Token: "tok", UserID: "u1", Role: models.RoleWorker}

// ==========================================================================
// Submit
// ==========================================================================

func TestSubmit_WorkerIssuesBothCalls(t *testing.T) {
	s, accounts, profiles := newSubmitter(t)
	r := worker()

	accounts.On("Register", mock.Anything, backend.RegisterRequest{
		Name: "Ram Singh", PhoneNumber: "9876543210", Password: "secret1", Role: models.RoleWorker, Language: "hi",
	}).Return(identity, nil).Once()
	profiles.On("CreateProfile", mock.Anything, "tok", mock.MatchedBy(func(p models.WorkerProfile) bool {
		return p.UserID == "u1" && p.JobType == models.JobMason && p.ExpectedDailyWage == 600 && p.Skills != nil
	})).Return(&models.ProfileResult{WorkerID: "w1"}, nil).Once()

	res, err := s.Submit(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "tok", res.Identity.Token)
	assert.Equal(t, "w1", res.Profile.WorkerID)
	assert.Nil(t, s.Pending())
	accounts.AssertExpectations(t)
	profiles.AssertExpectations(t)
}

func TestSubmit_EmployerSkipsProfile(t *testing.T) {
	s, accounts, profiles := newSubmitter(t)
	r := models.Registrant{Name: "Asha", PhoneNumber: "9876543210", Password: "pw", Role: models.RoleEmployer}

	accounts.On("Register", mock.Anything, mock.Anything).
		Return(&models.IdentityResult{Token: "tok", UserID: "e1", Role: models.RoleEmployer}, nil)

	res, err := s.Submit(context.Background(), r)
	require.NoError(t, err)
	assert.Nil(t, res.Profile)
	profiles.AssertNotCalled(t, "CreateProfile", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_NotSubmittable(t *testing.T) {
	s, accounts, _ := newSubmitter(t)

	_, err := s.Submit(context.Background(), models.Registrant{Name: "Ram"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeIncompleteData))
	accounts.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestSubmit_DuplicatePassesThrough(t *testing.T) {
	s, accounts, profiles := newSubmitter(t)
	accounts.On("Register", mock.Anything, mock.Anything).
		Return(nil, errors.NewDuplicateRegistrationError("Phone number already registered"))

	_, err := s.Submit(context.Background(), worker())
	assert.True(t, errors.HasCode(err, errors.ErrCodeDuplicateRegistration))
	profiles.AssertNotCalled(t, "CreateProfile", mock.Anything, mock.Anything, mock.Anything)
}

// ==========================================================================
// Partial registration
// ==========================================================================

func TestSubmit_ProfileFailureIsPartial(t *testing.T) {
	s, accounts, profiles := newSubmitter(t)
	rec := &fakeRecorder{}
	s.WithRecorder(rec)

	accounts.On("Register", mock.Anything, mock.Anything).Return(identity, nil).Once()
	profiles.On("CreateProfile", mock.Anything, "tok", mock.Anything).
		Return(nil, errors.NewServiceError("profile", 503, "unavailable")).Once()

	res, err := s.Submit(context.Background(), worker())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodePartialRegistration))
	assert.Equal(t, "tok", res.Identity.Token)

	stdErr, _ := errors.As(err)
	assert.Equal(t, "pending-1", stdErr.Metadata["outboxId"])
	require.Len(t, rec.enqueued, 1)

	pending := s.Pending()
	require.NotNil(t, pending)
	assert.Equal(t, "u1", pending.Identity.UserID)

	// the retry reuses the identity and never re-registers
	profiles.On("CreateProfile", mock.Anything, "tok", mock.Anything).
		Return(&models.ProfileResult{WorkerID: "w1"}, nil).Once()

	res, err = s.RetryProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "w1", res.Profile.WorkerID)
	assert.Nil(t, s.Pending())
	assert.Equal(t, []string{"pending-1"}, rec.done)
	accounts.AssertNumberOfCalls(t, "Register", 1)
}

func TestSubmit_RecorderFailureStillPartial(t *testing.T) {
	s, accounts, profiles := newSubmitter(t)
	s.WithRecorder(&fakeRecorder{err: fmt.Errorf("db down")})

	accounts.On("Register", mock.Anything, mock.Anything).Return(identity, nil)
	profiles.On("CreateProfile", mock.Anything, mock.Anything, mock.Anything).Return(nil, fmt.Errorf("boom"))

	_, err := s.Submit(context.Background(), worker())
	assert.True(t, errors.HasCode(err, errors.ErrCodePartialRegistration))
	assert.Empty(t, s.Pending().OutboxID)
}

func TestRetryProfile_WithoutPending(t *testing.T) {
	s, _, _ := newSubmitter(t)

	_, err := s.RetryProfile(context.Background())
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidTransition))
}

func TestRetryProfile_FailsAgain(t *testing.T) {
	s, accounts, profiles := newSubmitter(t)
	accounts.On("Register", mock.Anything, mock.Anything).Return(identity, nil)
	profiles.On("CreateProfile", mock.Anything, mock.Anything, mock.Anything).Return(nil, fmt.Errorf("boom"))

	_, _ = s.Submit(context.Background(), worker())
	_, err := s.RetryProfile(context.Background())
	assert.True(t, errors.HasCode(err, errors.ErrCodePartialRegistration))
	assert.NotNil(t, s.Pending())

	s.Reset()
	assert.Nil(t, s.Pending())
}

func TestSubmit_AfterPartialSameIdentityReplaysCurrentProfile(t *testing.T) {
	s, accounts, profiles := newSubmitter(t)
	accounts.On("Register", mock.Anything, mock.Anything).Return(identity, nil).Once()
	profiles.On("CreateProfile", mock.Anything, "tok", mock.Anything).Return(nil, fmt.Errorf("boom")).Once()
	_, _ = s.Submit(context.Background(), worker())

	edited := worker()
	edited.Area = "Sikar"
	profiles.On("CreateProfile", mock.Anything, "tok", mock.MatchedBy(func(p models.WorkerProfile) bool {
		return p.Area == "Sikar" && p.UserID == "u1"
	})).Return(&models.ProfileResult{WorkerID: "w1"}, nil).Once()

	res, err := s.Submit(context.Background(), edited)
	require.NoError(t, err)
	assert.Equal(t, "Sikar", res.Registrant.Area)
	assert.Nil(t, s.Pending())
	accounts.AssertNumberOfCalls(t, "Register", 1)
}

func TestSubmit_AfterPartialDifferentIdentityStartsOver(t *testing.T) {
	s, accounts, profiles := newSubmitter(t)
	rec := &fakeRecorder{}
	s.WithRecorder(rec)
	accounts.On("Register", mock.Anything, mock.Anything).Return(identity, nil).Once()
	profiles.On("CreateProfile", mock.Anything, "tok", mock.Anything).Return(nil, fmt.Errorf("boom")).Once()
	_, _ = s.Submit(context.Background(), worker())

	other := models.Registrant{Name: "Shyam", PhoneNumber: "9123456789", Password: "secret2", Role: models.RoleEmployer}
	accounts.On("Register", mock.Anything, mock.MatchedBy(func(req backend.RegisterRequest) bool {
		return req.PhoneNumber == "9123456789"
	})).Return(&models.IdentityResult{Token: "tok2", UserID: "u2", Role: models.RoleEmployer}, nil).Once()

	res, err := s.Submit(context.Background(), other)
	require.NoError(t, err)
	assert.Equal(t, "u2", res.Identity.UserID)
	assert.Equal(t, "9123456789", res.Registrant.PhoneNumber)
	assert.Nil(t, s.Pending())
	// the first identity's profile is left to background replay
	assert.Len(t, rec.enqueued, 1)
	assert.Empty(t, rec.done)
}
