package backend

import (
	"context"

	"rozgar-signup/internal/models"
)

// AccountService creates and resolves identities.
type AccountService interface {
	Register(ctx context.Context, req RegisterRequest) (*models.IdentityResult, error)
	Login(ctx context.Context, creds models.Credentials) (*models.IdentityResult, error)
	CurrentUser(ctx context.Context, token string) (*models.User, error)
}

// ProfileService stores the worker specific half of a registration.
type ProfileService interface {
	CreateProfile(ctx context.Context, token string, profile models.WorkerProfile) (*models.ProfileResult, error)
}

// Transcriber turns a recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, capture models.AudioCapture, language string) (string, error)
}

// Extractor pulls registration fields out of free text. Every field of the
// returned registrant may be empty.
type Extractor interface {
	Extract(ctx context.Context, text, language string) (models.Registrant, error)
}

// ConversationService drives the chatbot dialogue on the server.
type ConversationService interface {
	Exchange(ctx context.Context, sessionID, message, language string) (*ConversationReply, error)
	Finalize(ctx context.Context, sessionID string) (*FinalizeResult, error)
}

// RegisterRequest is the create identity body.
type RegisterRequest struct {
	Name        string      `json:"name"`
	PhoneNumber string      `json:"phone_number"`
	Password    string      `json:"password"`
	Role        models.Role `json:"role"`
	Language    string      `json:"language"`
}

// ConversationReply is one assistant turn.
type ConversationReply struct {
	Text      string
	SessionID string
	// Complete is the explicit completion flag when the service sends one.
	Complete *bool
}

// FinalizeResult is the identity the conversation service created.
type FinalizeResult struct {
	Token        string      `json:"token"`
	TempPassword string      `json:"temp_password"`
	PhoneNumber  string      `json:"phone_number"`
	UserID       string      `json:"user_id,omitempty"`
	Role         models.Role `json:"role,omitempty"`
	Message      string      `json:"message,omitempty"`
}
