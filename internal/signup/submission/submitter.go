// Package submission performs the two-call registration shared by the form
// and voice strategies: create the identity, then the worker profile.
package submission

import (
	"context"
	"sync"
	"time"

	"rozgar-signup/internal/common/backend"
	"rozgar-signup/internal/common/errors"
	"rozgar-signup/internal/common/logger"
	"rozgar-signup/internal/common/metrics"
	"rozgar-signup/internal/models"
)

// Recorder keeps a profile that could not be created so it can be replayed
// out of band.
type Recorder interface {
	Enqueue(ctx context.Context, token string, profile models.WorkerProfile, cause string) (string, error)
	MarkDone(ctx context.Context, id string) error
}

// Result is the outcome of a complete submission. Registrant is the record
// the identity was created from, which after a profile replay may predate
// the registrant passed to Submit.
type Result struct {
	Identity   models.IdentityResult
	Profile    *models.ProfileResult
	Registrant models.Registrant
}

// Pending is an identity whose worker profile still has to be created.
type Pending struct {
	Identity   models.IdentityResult
	Profile    models.WorkerProfile
	Registrant models.Registrant
	// OutboxID is set when the profile was recorded for background replay.
	OutboxID string
}

type Submitter struct {
	accounts backend.AccountService
	profiles backend.ProfileService
	recorder Recorder
	logger   logger.Logger

	mu      sync.Mutex
	pending *Pending
}

func New(accounts backend.AccountService, profiles backend.ProfileService, log logger.Logger) *Submitter {
	return &Submitter{accounts: accounts, profiles: profiles, logger: log}
}

// WithRecorder enables the recovery outbox for failed profile creations.
func (s *Submitter) WithRecorder(r Recorder) *Submitter {
	s.recorder = r
	return s
}

// Submit registers r. Role specific field policy is the caller's; only the
// submittable invariant is enforced here. A profile failure after
// a successful identity returns a PARTIAL_REGISTRATION error and the
// identity is kept in Pending. A later Submit for the same identity only
// recreates the profile, from r's current profile fields; a Submit for a
// different identity drops the pending one (its outbox row stays for
// background replay) and registers r from scratch.
func (s *Submitter) Submit(ctx context.Context, r models.Registrant) (*Result, error) {
	if !r.Submittable() {
		return nil, errors.NewIncompleteDataError(r.MissingRequired())
	}
	if r.Skills == nil {
		r.Skills = []string{}
	}

	if p := s.Pending(); p != nil {
		if p.Registrant.SameIdentity(r) && r.IsWorker() {
			p.Profile = models.ProfileFromRegistrant(p.Identity.UserID, r)
			p.Registrant = r.Clone()
			s.mu.Lock()
			s.pending = p
			s.mu.Unlock()
			return s.replay(ctx, p)
		}
		s.logger.Warn("Discarding pending profile for a different registrant", map[string]interface{}{
			"userId":   p.Identity.UserID,
			"outboxId": p.OutboxID,
		})
		s.Reset()
	}

	start := time.Now()
	identity, err := s.accounts.Register(ctx, backend.RegisterRequest{
		Name:        r.Name,
		PhoneNumber: r.PhoneNumber,
		Password:    r.Password,
		Role:        r.Role,
		Language:    r.Language,
	})
	metrics.ObserveCall("account.register", start, err)
	if err != nil {
		s.logger.Warn("Identity creation failed", map[string]interface{}{
			"phoneNumber": logger.MaskPhone(r.PhoneNumber),
			"error":       err.Error(),
		})
		return nil, err
	}

	result := &Result{Identity: *identity, Registrant: r.Clone()}
	if !r.IsWorker() {
		return result, nil
	}

	profile := models.ProfileFromRegistrant(identity.UserID, r)
	created, err := s.createProfile(ctx, identity.Token, profile)
	if err != nil {
		return result, s.recordPartial(ctx, *identity, r, profile, err)
	}
	result.Profile = created
	return result, nil
}

// RetryProfile recreates the worker profile of the last partial submission
// using the identity it already issued.
func (s *Submitter) RetryProfile(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	p := s.pending
	s.mu.Unlock()
	if p == nil {
		return nil, errors.NewInvalidTransitionError("submission", "idle", "retry_profile")
	}
	return s.replay(ctx, p)
}

func (s *Submitter) replay(ctx context.Context, p *Pending) (*Result, error) {
	created, err := s.createProfile(ctx, p.Identity.Token, p.Profile)
	if err != nil {
		return &Result{Identity: p.Identity, Registrant: p.Registrant}, errors.NewPartialRegistrationError(p.Identity.UserID, err)
	}

	if p.OutboxID != "" && s.recorder != nil {
		if err := s.recorder.MarkDone(ctx, p.OutboxID); err != nil {
			s.logger.Warn("Failed to close pending profile", map[string]interface{}{
				"outboxId": p.OutboxID,
				"error":    err.Error(),
			})
		}
	}

	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
	return &Result{Identity: p.Identity, Profile: created, Registrant: p.Registrant}, nil
}

// Pending returns the identity awaiting its profile, or nil.
func (s *Submitter) Pending() *Pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil
	}
	p := *s.pending
	return &p
}

// Reset forgets any partial submission.
func (s *Submitter) Reset() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}

func (s *Submitter) createProfile(ctx context.Context, token string, profile models.WorkerProfile) (*models.ProfileResult, error) {
	start := time.Now()
	created, err := s.profiles.CreateProfile(ctx, token, profile)
	metrics.ObserveCall("profile.create", start, err)
	return created, err
}

func (s *Submitter) recordPartial(ctx context.Context, identity models.IdentityResult, r models.Registrant, profile models.WorkerProfile, cause error) error {
	p := &Pending{Identity: identity, Profile: profile, Registrant: r.Clone()}

	if s.recorder != nil {
		id, err := s.recorder.Enqueue(ctx, identity.Token, profile, cause.Error())
		if err != nil {
			s.logger.Error("Failed to record pending profile", map[string]interface{}{
				"userId": identity.UserID,
				"error":  err.Error(),
			})
		} else {
			p.OutboxID = id
		}
	}

	s.mu.Lock()
	s.pending = p
	s.mu.Unlock()

	s.logger.Warn("Identity created without worker profile", map[string]interface{}{
		"userId":   identity.UserID,
		"outboxId": p.OutboxID,
		"error":    cause.Error(),
	})

	partial := errors.NewPartialRegistrationError(identity.UserID, cause)
	if p.OutboxID != "" {
		partial.WithMetadata("outboxId", p.OutboxID)
	}
	return partial
}
