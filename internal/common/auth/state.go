package auth

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"rozgar-signup/internal/common/i18n"
	"rozgar-signup/internal/common/logger"
	"rozgar-signup/internal/models"
)

// UserResolver is the account lookup auth needs.
type UserResolver interface {
	CurrentUser(ctx context.Context, token string) (*models.User, error)
}

// State is the process-wide authentication state. It is mutated only by
// Init, Login and Logout.
type State struct {
	mu     sync.RWMutex
	store  TokenStore
	users  UserResolver
	locale *i18n.Locale
	logger logger.Logger
	now    func() time.Time

	token string
	user  *models.User
}

func NewState(store TokenStore, users UserResolver, locale *i18n.Locale, log logger.Logger) *State {
	return &State{
		store:  store,
		users:  users,
		locale: locale,
		logger: log,
		now:    time.Now,
	}
}

// Init restores a persisted session. A token that is expired or rejected by
// the account service is cleared; only storage failures are returned.
func (s *State) Init(ctx context.Context) error {
	token, err := s.store.Load(ctx)
	if stderrors.Is(err, ErrNoToken) {
		return nil
	}
	if err != nil {
		return err
	}

	if expired(token, s.now()) {
		s.logger.Info("Stored token expired", nil)
		return s.clear(ctx)
	}

	user, err := s.users.CurrentUser(ctx, token)
	if err != nil {
		s.logger.Warn("Stored token rejected", map[string]interface{}{"error": err.Error()})
		return s.clear(ctx)
	}

	s.mu.Lock()
	s.token = token
	s.user = user
	s.mu.Unlock()

	s.applyLanguage(user)
	s.logger.Info("Session restored", map[string]interface{}{
		"userId": user.UserID,
		"role":   string(user.Role),
	})
	return nil
}

// Login persists a freshly issued token and resolves its account. The token
// is kept even when the lookup fails; the registration that issued it has
// already succeeded.
func (s *State) Login(ctx context.Context, token string) error {
	if err := s.store.Save(ctx, token); err != nil {
		return err
	}

	s.mu.Lock()
	s.token = token
	s.user = nil
	s.mu.Unlock()

	user, err := s.users.CurrentUser(ctx, token)
	if err != nil {
		s.logger.Warn("Could not resolve user after login", map[string]interface{}{"error": err.Error()})
		return nil
	}

	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	return nil
}

// Logout forgets the token.
func (s *State) Logout(ctx context.Context) error {
	return s.clear(ctx)
}

func (s *State) clear(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()
	return s.store.Clear(ctx)
}

func (s *State) applyLanguage(user *models.User) {
	if s.locale == nil || user.Language == "" {
		return
	}
	if err := s.locale.Change(user.Language); err != nil {
		s.logger.Debug("Ignoring user language", map[string]interface{}{"language": user.Language})
	}
}

// Token returns the bearer for authenticated calls, or "".
func (s *State) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// CurrentUser returns a copy of the resolved account, or nil.
func (s *State) CurrentUser() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *State) Authenticated() bool {
	return s.Token() != ""
}

// expired reports whether token is a JWT whose exp claim has passed. Tokens
// that are not JWTs are left to the account service to judge.
func expired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}
