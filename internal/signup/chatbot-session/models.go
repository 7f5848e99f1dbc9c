package chatbotsession

import (
	"time"

	"rozgar-signup/internal/common/backend"
	"rozgar-signup/internal/common/i18n"
	"rozgar-signup/internal/common/logger"
	"rozgar-signup/internal/signup/session"
)

type State string

const (
	StateGreeting   State = "greeting"
	StateCollecting State = "collecting"
	StateReviewing  State = "reviewing"
	StateSubmitting State = "submitting"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

type Event string

const (
	EventSend      Event = "send_turn"
	EventDone      Event = "completion_detected"
	EventComplete  Event = "complete_registration"
	EventSucceeded Event = "succeeded"
	EventFailed    Event = "failed"
)

// A failed turn keeps the session collecting; a failed finalize is
// retryable from failed with the transcript intact.
var transitions = session.Table[State, Event]{
	StateGreeting: {
		EventSend: StateCollecting,
	},
	StateCollecting: {
		EventSend: StateCollecting,
		EventDone: StateReviewing,
	},
	StateReviewing: {
		EventComplete: StateSubmitting,
	},
	StateSubmitting: {
		EventSucceeded: StateCompleted,
		EventFailed:    StateFailed,
	},
	StateFailed: {
		EventComplete: StateSubmitting,
	},
}

type Dependencies struct {
	Conversation backend.ConversationService
	Locale       *i18n.Locale
	Logger       logger.Logger
	OnComplete   session.CompletionFunc
	// Now defaults to time.Now.
	Now func() time.Time
}
