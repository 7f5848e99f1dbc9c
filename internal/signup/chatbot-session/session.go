// Package chatbotsession drives registration as a dialogue with the
// conversation service, which alone reconstructs the registrant.
package chatbotsession

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"rozgar-signup/internal/common/backend"
	"rozgar-signup/internal/common/errors"
	"rozgar-signup/internal/common/i18n"
	"rozgar-signup/internal/common/metrics"
	"rozgar-signup/internal/models"
	"rozgar-signup/internal/signup/session"
)

type Session struct {
	mu      sync.Mutex
	id      string
	deps    Dependencies
	tracker *session.Tracker

	state    State
	turns    []models.ConversationTurn
	inFlight bool
	err      error
	closed   bool
}

// New opens a conversation and appends the greeting turn.
func New(deps Dependencies) *Session {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	id := NewSessionID(deps.Now())
	s := &Session{
		id:      id,
		deps:    deps,
		tracker: session.NewTracker(id, models.StrategyChatbot, deps.Logger),
		state:   StateGreeting,
	}
	s.turns = append(s.turns, models.ConversationTurn{
		Speaker:   models.SpeakerAssistant,
		Text:      i18n.Greeting(s.language()),
		At:        deps.Now(),
		Synthetic: true,
	})
	return s
}

// NewSessionID builds the conversation token: creation time in
// milliseconds plus a random suffix.
func NewSessionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("session_%d_%s", now.UnixMilli(), suffix)
}

func (s *Session) ID() string                { return s.id }
func (s *Session) Strategy() models.Strategy { return models.StrategyChatbot }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Status() models.SessionStatus {
	switch s.State() {
	case StateReviewing:
		return models.StatusReviewing
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

// Turns returns a copy of the transcript in order.
func (s *Session) Turns() []models.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ConversationTurn(nil), s.turns...)
}

// CanComplete reports whether the manual completion trigger is offered.
func (s *Session) CanComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return transitions.Allows(s.state, EventComplete)
}

func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) ErrorMessage() string {
	return session.Message(s.deps.Locale, s.Err())
}

// SendTurn appends the user turn, exchanges it with the conversation
// service and appends the reply. A failed exchange appends one synthetic
// error turn instead and the session stays collecting. Only one turn may be
// in flight.
func (s *Session) SendTurn(ctx context.Context, text string) (*models.ConversationTurn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.NewValidationError("message", "message is empty")
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return nil, errors.NewTurnInProgressError()
	}
	if err := s.fire(EventSend); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.inFlight = true
	s.err = nil
	s.turns = append(s.turns, models.ConversationTurn{
		Speaker: models.SpeakerUser,
		Text:    text,
		At:      s.deps.Now(),
	})
	lang := s.language()
	s.mu.Unlock()

	start := time.Now()
	reply, err := s.deps.Conversation.Exchange(ctx, s.id, text, lang)
	metrics.ObserveCall("chatbot.conversation", start, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false

	if err != nil {
		metrics.ChatTurns.WithLabelValues("error").Inc()
		s.err = err
		s.turns = append(s.turns, models.ConversationTurn{
			Speaker:   models.SpeakerAssistant,
			Text:      s.message(i18n.KeyChatError),
			At:        s.deps.Now(),
			Synthetic: true,
		})
		s.tracker.Logger().Warn("Conversation turn failed", map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	metrics.ChatTurns.WithLabelValues("success").Inc()
	turn := models.ConversationTurn{
		Speaker: models.SpeakerAssistant,
		Text:    reply.Text,
		At:      s.deps.Now(),
	}
	s.turns = append(s.turns, turn)

	if reply.SessionID != "" && reply.SessionID != s.id {
		s.tracker.Logger().Debug("Conversation service echoed a different session id", map[string]interface{}{
			"echoed": reply.SessionID,
		})
	}
	if s.closed {
		return &turn, nil
	}
	if completed(reply, lang) {
		_ = s.fire(EventDone)
	}
	return &turn, nil
}

// CompleteRegistration asks the conversation service to create the account
// it gathered. Failure keeps the transcript and may be retried.
func (s *Session) CompleteRegistration(ctx context.Context) (*models.Registration, error) {
	s.mu.Lock()
	if err := s.fire(EventComplete); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.err = nil
	lang := s.language()
	s.mu.Unlock()

	start := time.Now()
	result, err := s.deps.Conversation.Finalize(ctx, s.id)
	metrics.ObserveCall("chatbot.complete_registration", start, err)

	s.mu.Lock()
	closed := s.closed
	if err != nil {
		s.err = err
		_ = s.fire(EventFailed)
		s.tracker.Failed(err)
		s.mu.Unlock()
		s.tracker.Logger().Warn("Conversation finalize failed", map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	_ = s.fire(EventSucceeded)
	s.mu.Unlock()

	reg := models.Registration{
		Strategy:     models.StrategyChatbot,
		Token:        result.Token,
		UserID:       result.UserID,
		Role:         result.Role,
		PhoneNumber:  result.PhoneNumber,
		TempPassword: result.TempPassword,
		Language:     lang,
	}
	if reg.Role == "" {
		reg.Role = models.DefaultRole
	}

	if !closed && s.deps.OnComplete != nil {
		s.deps.OnComplete(ctx, reg)
	}
	return &reg, nil
}

// Close ends the conversation locally. The server side dialogue is left to
// expire on its own.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// completed prefers the service's explicit flag and falls back to scanning
// the reply for a completion marker of the active language.
func completed(reply *backend.ConversationReply, lang string) bool {
	if reply.Complete != nil {
		return *reply.Complete
	}
	return i18n.IsCompletion(lang, reply.Text)
}

func (s *Session) fire(ev Event) error {
	to, err := transitions.Next("chatbot session", s.state, ev)
	if err != nil {
		return err
	}
	if to != s.state {
		s.tracker.Transition(string(s.state), string(to), string(ev))
	}
	s.state = to
	return nil
}

func (s *Session) language() string {
	return session.Language(s.deps.Locale)
}

func (s *Session) message(key string) string {
	return i18n.Message(s.language(), key)
}
