package profileretry

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"rozgar-signup/internal/common/backend"
	"rozgar-signup/internal/common/errors"
	"rozgar-signup/internal/common/logger"
	"rozgar-signup/internal/common/metrics"
	"rozgar-signup/internal/models"
	"rozgar-signup/internal/signup/recovery"
)

type Service struct {
	config   *Config
	logger   logger.Logger
	outbox   PendingStore
	profiles backend.ProfileService
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	return &Service{
		config:   config,
		logger:   deps.Logger,
		outbox:   deps.Outbox,
		profiles: deps.Profiles,
	}
}

// Execute recreates one worker profile. A profile that already exists
// counts as created, so replays are idempotent.
func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	token, profile, err := s.resolve(ctx, input)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return &Output{
			Success:   true,
			Message:   "Pending profile already recovered",
			PendingID: input.PendingID,
		}, nil
	}

	s.logger.Info("Replaying worker profile", map[string]interface{}{
		"pendingId": input.PendingID,
		"userId":    profile.UserID,
		"phone":     logger.MaskPhone(profile.PhoneNumber),
	})

	start := time.Now()
	res, err := s.profiles.CreateProfile(ctx, token, *profile)
	metrics.ObserveCall("profile.replay", start, err)
	if err != nil {
		s.recordFailure(ctx, input.PendingID, err)
		return nil, err
	}

	if input.PendingID != "" {
		if err := s.outbox.MarkDone(ctx, input.PendingID); err != nil && !stderrors.Is(err, recovery.ErrNotFound) {
			s.logger.Warn("Profile created but outbox row not closed", map[string]interface{}{
				"pendingId": input.PendingID,
				"error":     err.Error(),
			})
		}
	}

	out := &Output{
		Success:   true,
		Message:   res.Message,
		UserID:    profile.UserID,
		WorkerID:  res.WorkerID,
		PendingID: input.PendingID,
	}
	out.AlreadyExisted = res.WorkerID == "" && strings.Contains(strings.ToLower(res.Message), "already exists")
	if out.Message == "" {
		out.Message = "Worker profile created"
	}
	return out, nil
}

// resolve loads the token and profile to replay. A nil profile with no
// error means the outbox row was already completed.
func (s *Service) resolve(ctx context.Context, input *Input) (string, *models.WorkerProfile, error) {
	if input.PendingID == "" {
		if input.Profile == nil || input.Token == "" {
			return "", nil, errors.NewValidationError("profile", "token and profile are required without pendingId")
		}
		p := *input.Profile
		if p.UserID == "" {
			p.UserID = input.UserID
		}
		if p.Skills == nil {
			p.Skills = []string{}
		}
		return input.Token, &p, nil
	}

	if s.outbox == nil {
		return "", nil, errors.NewInternalError(fmt.Errorf("recovery outbox not configured"))
	}
	pending, err := s.outbox.Get(ctx, input.PendingID)
	if stderrors.Is(err, recovery.ErrNotFound) {
		s.logger.Info("Pending profile already closed", map[string]interface{}{"pendingId": input.PendingID})
		return "", nil, nil
	}
	if err != nil {
		return "", nil, errors.NewTransportError("recovery outbox", err)
	}
	if pending.Attempts >= s.config.MaxAttempts {
		return "", nil, &errors.StandardError{
			Code:      errors.ErrCodePartialRegistration,
			Message:   "Pending profile exceeded its replay attempts",
			Details:   fmt.Sprintf("pendingId: %s, attempts: %d", pending.ID, pending.Attempts),
			Retryable: false,
			Metadata:  map[string]interface{}{"userId": pending.UserID},
			Timestamp: time.Now().UTC(),
		}
	}
	return pending.Token, &pending.Profile, nil
}

func (s *Service) recordFailure(ctx context.Context, pendingID string, cause error) {
	if pendingID == "" || s.outbox == nil {
		return
	}
	if err := s.outbox.MarkFailed(ctx, pendingID, cause.Error()); err != nil {
		s.logger.Warn("Could not record replay failure", map[string]interface{}{
			"pendingId": pendingID,
			"error":     err.Error(),
		})
	}
}
