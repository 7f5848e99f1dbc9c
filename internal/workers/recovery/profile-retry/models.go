package profileretry

import (
	"context"

	"rozgar-signup/internal/common/backend"
	"rozgar-signup/internal/common/logger"
	"rozgar-signup/internal/models"
	"rozgar-signup/internal/signup/recovery"
)

// Input names either an outbox row or carries the profile inline.
type Input struct {
	PendingID string                `json:"pendingId,omitempty"`
	UserID    string                `json:"userId,omitempty"`
	Token     string                `json:"token,omitempty"`
	Profile   *models.WorkerProfile `json:"profile,omitempty"`
}

type Output struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	UserID         string `json:"userId,omitempty"`
	WorkerID       string `json:"workerId,omitempty"`
	PendingID      string `json:"pendingId,omitempty"`
	AlreadyExisted bool   `json:"alreadyExisted"`
}

// PendingStore is the part of the recovery outbox the worker uses.
type PendingStore interface {
	Get(ctx context.Context, id string) (*recovery.PendingProfile, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, cause string) error
}

type ServiceDependencies struct {
	Logger   logger.Logger
	Outbox   PendingStore
	Profiles backend.ProfileService
}
