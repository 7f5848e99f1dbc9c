package controller

import (
	"context"

	"rozgar-signup/internal/common/auth"
	"rozgar-signup/internal/common/backend"
	"rozgar-signup/internal/common/i18n"
	"rozgar-signup/internal/common/logger"
	"rozgar-signup/internal/models"
	"rozgar-signup/internal/signup/submission"
	voicesession "rozgar-signup/internal/signup/voice-session"
)

// SMSSender delivers the temporary password text.
type SMSSender interface {
	SendSMS(ctx context.Context, msg models.SMSMessage) (string, error)
}

// EventPublisher announces completed registrations to the workflow engine.
type EventPublisher interface {
	PublishRegistration(ctx context.Context, event models.RegistrationEvent) error
}

// Telemetry records registrations on the otel meter.
type Telemetry interface {
	RecordRegistration(ctx context.Context, strategy, role string)
}

// Services groups the backend collaborators.
type Services struct {
	Accounts     backend.AccountService
	Profiles     backend.ProfileService
	Conversation backend.ConversationService
	Transcriber  backend.Transcriber
	Extractor    backend.Extractor
}

// Dependencies of the controller. Auth, Outbox, SMS, Events and Telemetry
// are optional.
type Dependencies struct {
	Services   Services
	Auth       *auth.State
	Locale     *i18n.Locale
	Outbox     submission.Recorder
	SMS        SMSSender
	Events     EventPublisher
	Telemetry  Telemetry
	Microphone voicesession.Microphone
	Voice      voicesession.Config
	Logger     logger.Logger
	// OnRegistered is the single "registration completed" notification.
	OnRegistered func(ctx context.Context, reg models.Registration)
}
