// Package backendtest provides testify mocks of the backend collaborators.
package backendtest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"rozgar-signup/internal/common/backend"
	"rozgar-signup/internal/models"
)

type Accounts struct {
	mock.Mock
}

func (m *Accounts) Register(ctx context.Context, req backend.RegisterRequest) (*models.IdentityResult, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*models.IdentityResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Accounts) Login(ctx context.Context, creds models.Credentials) (*models.IdentityResult, error) {
	args := m.Called(ctx, creds)
	if v := args.Get(0); v != nil {
		return v.(*models.IdentityResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Accounts) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	args := m.Called(ctx, token)
	if v := args.Get(0); v != nil {
		return v.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

type Profiles struct {
	mock.Mock
}

func (m *Profiles) CreateProfile(ctx context.Context, token string, profile models.WorkerProfile) (*models.ProfileResult, error) {
	args := m.Called(ctx, token, profile)
	if v := args.Get(0); v != nil {
		return v.(*models.ProfileResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type Transcriber struct {
	mock.Mock
}

func (m *Transcriber) Transcribe(ctx context.Context, capture models.AudioCapture, language string) (string, error) {
	args := m.Called(ctx, capture, language)
	return args.String(0), args.Error(1)
}

type Extractor struct {
	mock.Mock
}

func (m *Extractor) Extract(ctx context.Context, text, language string) (models.Registrant, error) {
	args := m.Called(ctx, text, language)
	return args.Get(0).(models.Registrant), args.Error(1)
}

type Conversation struct {
	mock.Mock
}

func (m *Conversation) Exchange(ctx context.Context, sessionID, message, language string) (*backend.ConversationReply, error) {
	args := m.Called(ctx, sessionID, message, language)
	if v := args.Get(0); v != nil {
		return v.(*backend.ConversationReply), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Conversation) Finalize(ctx context.Context, sessionID string) (*backend.FinalizeResult, error) {
	args := m.Called(ctx, sessionID)
	if v := args.Get(0); v != nil {
		return v.(*backend.FinalizeResult), args.Error(1)
	}
	return nil, args.Error(1)
}

var (
	_ backend.AccountService      = (*Accounts)(nil)
	_ backend.ProfileService      = (*Profiles)(nil)
	_ backend.Transcriber         = (*Transcriber)(nil)
	_ backend.Extractor           = (*Extractor)(nil)
	_ backend.ConversationService = (*Conversation)(nil)
)
