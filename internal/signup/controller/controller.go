// Package controller binds one registration strategy at a time to the
// signup surface and routes every success to the completion side effects.
package controller

import (
	"context"
	"fmt"
	"sync"

	"rozgar-signup/internal/common/errors"
	"rozgar-signup/internal/common/i18n"
	"rozgar-signup/internal/common/logger"
	"rozgar-signup/internal/common/metrics"
	"rozgar-signup/internal/models"
	chatbotsession "rozgar-signup/internal/signup/chatbot-session"
	formsession "rozgar-signup/internal/signup/form-session"
	"rozgar-signup/internal/signup/session"
	"rozgar-signup/internal/signup/submission"
	voicesession "rozgar-signup/internal/signup/voice-session"
)

type Controller struct {
	deps   Dependencies
	logger logger.Logger

	mu     sync.Mutex
	active session.Session
}

func New(deps Dependencies) *Controller {
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	if deps.Locale == nil {
		deps.Locale = i18n.NewLocale(i18n.DefaultLanguage)
	}
	return &Controller{deps: deps, logger: deps.Logger}
}

// Active returns the bound session, or nil.
func (c *Controller) Active() session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// OpenForm binds a new form session.
func (c *Controller) OpenForm() (*formsession.Session, error) {
	var s *formsession.Session
	err := c.bind(func() session.Session {
		s = formsession.New(formsession.Dependencies{
			Submitter: c.submitter(),
			Accounts:  c.deps.Services.Accounts,
			Locale:    c.deps.Locale,
			Logger:    c.logger,
			OnComplete: func(ctx context.Context, reg models.Registration) {
				c.completed(ctx, s, reg)
			},
		})
		return s
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// OpenChatbot binds a new conversation.
func (c *Controller) OpenChatbot() (*chatbotsession.Session, error) {
	var s *chatbotsession.Session
	err := c.bind(func() session.Session {
		s = chatbotsession.New(chatbotsession.Dependencies{
			Conversation: c.deps.Services.Conversation,
			Locale:       c.deps.Locale,
			Logger:       c.logger,
			OnComplete: func(ctx context.Context, reg models.Registration) {
				c.completed(ctx, s, reg)
			},
		})
		return s
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// OpenVoice binds a new voice capture session.
func (c *Controller) OpenVoice() (*voicesession.Session, error) {
	if c.deps.Microphone == nil {
		return nil, errors.NewCapabilityDeniedError(fmt.Errorf("no microphone configured"))
	}
	var s *voicesession.Session
	err := c.bind(func() session.Session {
		s = voicesession.New(c.deps.Voice, voicesession.Dependencies{
			Microphone:  c.deps.Microphone,
			Transcriber: c.deps.Services.Transcriber,
			Extractor:   c.deps.Services.Extractor,
			Submitter:   c.submitter(),
			Locale:      c.deps.Locale,
			Logger:      c.logger,
			OnComplete: func(ctx context.Context, reg models.Registration) {
				c.completed(ctx, s, reg)
			},
		})
		return s
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Close tears down the active session in whatever state it is in. No
// external service is called.
func (c *Controller) Close() error {
	c.mu.Lock()
	s := c.active
	c.active = nil
	c.mu.Unlock()

	if s == nil {
		return nil
	}
	metrics.SessionsActive.Dec()
	c.logger.Info("Signup session closed", map[string]interface{}{
		"sessionId": s.ID(),
		"strategy":  string(s.Strategy()),
		"status":    string(s.Status()),
	})
	return s.Close()
}

func (c *Controller) bind(open func() session.Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		return errors.NewSessionActiveError(string(c.active.Strategy()))
	}
	s := open()
	c.active = s

	metrics.SessionsOpened.WithLabelValues(string(s.Strategy())).Inc()
	metrics.SessionsActive.Inc()
	c.logger.Info("Signup session opened", map[string]interface{}{
		"sessionId": s.ID(),
		"strategy":  string(s.Strategy()),
	})
	return nil
}

// submitter is built per session so no pending identity outlives it.
func (c *Controller) submitter() *submission.Submitter {
	sub := submission.New(c.deps.Services.Accounts, c.deps.Services.Profiles, c.logger)
	if c.deps.Outbox != nil {
		sub.WithRecorder(c.deps.Outbox)
	}
	return sub
}

// completed runs the side effects of a registration and destroys the
// session that produced it.
func (c *Controller) completed(ctx context.Context, s session.Session, reg models.Registration) {
	// Closing the session cancels its context; the side effects outlive it.
	ctx = context.WithoutCancel(ctx)
	log := c.logger.With(map[string]interface{}{
		"sessionId": s.ID(),
		"strategy":  string(reg.Strategy),
	})

	if c.deps.Auth != nil {
		if err := c.deps.Auth.Login(ctx, reg.Token); err != nil {
			log.Error("Failed to persist identity token", map[string]interface{}{"error": err.Error()})
		}
	}

	metrics.SessionsCompleted.WithLabelValues(string(reg.Strategy)).Inc()
	if c.deps.Telemetry != nil {
		c.deps.Telemetry.RecordRegistration(ctx, string(reg.Strategy), string(reg.Role))
	}

	if reg.TempPassword != "" {
		c.sendTempPassword(ctx, log, reg)
	}
	if !reg.Login {
		c.publish(ctx, log, reg)
	}

	log.Info("Registration completed", map[string]interface{}{
		"userId": reg.UserID,
		"role":   string(reg.Role),
		"login":  reg.Login,
	})

	c.release(s)
	if c.deps.OnRegistered != nil {
		c.deps.OnRegistered(ctx, reg)
	}
}

func (c *Controller) sendTempPassword(ctx context.Context, log logger.Logger, reg models.Registration) {
	if c.deps.SMS == nil || reg.PhoneNumber == "" {
		return
	}
	msgID, err := c.deps.SMS.SendSMS(ctx, models.SMSMessage{
		PhoneNumber: reg.PhoneNumber,
		Message:     c.deps.Locale.T(i18n.KeyTempPassword, reg.TempPassword),
	})
	if err != nil {
		log.Warn("Temporary password SMS not sent", map[string]interface{}{
			"phone": logger.MaskPhone(reg.PhoneNumber),
			"error": err.Error(),
		})
		return
	}
	log.Debug("Temporary password SMS sent", map[string]interface{}{"messageId": msgID})
}

func (c *Controller) publish(ctx context.Context, log logger.Logger, reg models.Registration) {
	if c.deps.Events == nil {
		return
	}
	event := models.RegistrationEvent{
		UserID:      reg.UserID,
		PhoneNumber: reg.PhoneNumber,
		Role:        reg.Role,
		Strategy:    reg.Strategy,
		Language:    reg.Language,
	}
	if err := c.deps.Events.PublishRegistration(ctx, event); err != nil {
		log.Warn("Registration event not published", map[string]interface{}{"error": err.Error()})
	}
}

// release unbinds s if it is still the active session.
func (c *Controller) release(s session.Session) {
	c.mu.Lock()
	if c.active == nil || c.active.ID() != s.ID() {
		c.mu.Unlock()
		return
	}
	c.active = nil
	c.mu.Unlock()

	metrics.SessionsActive.Dec()
	_ = s.Close()
}
