// Package session holds what every registration strategy shares: the
// transition table type, the completion hook and user-visible messages.
package session

import (
	"context"

	"rozgar-signup/internal/common/errors"
	"rozgar-signup/internal/common/i18n"
	"rozgar-signup/internal/common/logger"
	"rozgar-signup/internal/common/metrics"
	"rozgar-signup/internal/models"
)

// Table is a total transition function written as data. A (state, event)
// pair missing from the table is an invalid transition.
type Table[S ~string, E ~string] map[S]map[E]S

// Next returns the state reached from `from` on ev.
func (t Table[S, E]) Next(machine string, from S, ev E) (S, error) {
	if to, ok := t[from][ev]; ok {
		return to, nil
	}
	return from, errors.NewInvalidTransitionError(machine, string(from), string(ev))
}

// Allows reports whether ev is defined in state s.
func (t Table[S, E]) Allows(s S, ev E) bool {
	_, ok := t[s][ev]
	return ok
}

// CompletionFunc receives every successful registration.
type CompletionFunc func(ctx context.Context, reg models.Registration)

// Session is the surface the controller holds for the active strategy.
type Session interface {
	ID() string
	Strategy() models.Strategy
	Status() models.SessionStatus
	// Close releases every held resource. It is safe to call more than once.
	Close() error
}

// Message renders err in the active language.
func Message(locale *i18n.Locale, err error) string {
	if err == nil {
		return ""
	}
	key := errors.MessageKey(errors.Normalize(err).Code)
	if locale == nil {
		return i18n.Message(i18n.DefaultLanguage, key)
	}
	return locale.T(key)
}

// Language returns the active locale code.
func Language(locale *i18n.Locale) string {
	if locale == nil {
		return i18n.DefaultLanguage
	}
	return locale.Language()
}

// Tracker logs transitions of one session.
type Tracker struct {
	id       string
	strategy models.Strategy
	logger   logger.Logger
}

func NewTracker(id string, strategy models.Strategy, log logger.Logger) *Tracker {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Tracker{id: id, strategy: strategy, logger: log}
}

func (t *Tracker) Transition(from, to, event string) {
	t.logger.Debug("Session transition", map[string]interface{}{
		"sessionId": t.id,
		"strategy":  string(t.strategy),
		"from":      from,
		"to":        to,
		"event":     event,
	})
}

func (t *Tracker) Logger() logger.Logger {
	return t.logger.With(map[string]interface{}{
		"sessionId": t.id,
		"strategy":  string(t.strategy),
	})
}

// Failed counts a failed submission under its error code.
func (t *Tracker) Failed(err error) {
	metrics.SessionsFailed.WithLabelValues(string(t.strategy), string(errors.Normalize(err).Code)).Inc()
}
