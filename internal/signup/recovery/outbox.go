// Package recovery records worker profiles that failed after their identity
// was created, so they can be replayed later without re-registering.
package recovery

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rozgar-signup/internal/models"
)

// Schema creates the outbox table.
const Schema = `CREATE TABLE IF NOT EXISTS pending_profiles (
	id           UUID PRIMARY KEY,
	user_id      TEXT NOT NULL,
	token        TEXT NOT NULL,
	payload      JSONB NOT NULL,
	attempts     INTEGER NOT NULL DEFAULT 0,
	last_error   TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	completed_at TIMESTAMPTZ
)`

const (
	insertPending = `INSERT INTO pending_profiles (id, user_id, token, payload, last_error)
		VALUES ($1, $2, $3, $4, $5)`

	selectPending = `SELECT id, user_id, token, payload, attempts, created_at
		FROM pending_profiles
		WHERE completed_at IS NULL
		ORDER BY created_at
		LIMIT $1`

	selectByID = `SELECT id, user_id, token, payload, attempts, created_at
		FROM pending_profiles
		WHERE id = $1 AND completed_at IS NULL`

	markDone = `UPDATE pending_profiles SET completed_at = NOW(), updated_at = NOW() WHERE id = $1`

	markFailed = `UPDATE pending_profiles
		SET attempts = attempts + 1, last_error = $2, updated_at = NOW()
		WHERE id = $1`
)

// ErrNotFound is returned when a pending profile does not exist or is done.
var ErrNotFound = stderrors.New("pending profile not found")

// PendingProfile is one outbox row.
type PendingProfile struct {
	ID        string
	UserID    string
	Token     string
	Profile   models.WorkerProfile
	Attempts  int
	CreatedAt time.Time
}

// Outbox is the Postgres backed store of pending profiles.
type Outbox struct {
	db    *sql.DB
	newID func() string
}

func NewOutbox(db *sql.DB) *Outbox {
	return &Outbox{db: db, newID: uuid.NewString}
}

// Enqueue records a profile whose creation failed and returns its id.
func (o *Outbox) Enqueue(ctx context.Context, token string, profile models.WorkerProfile, cause string) (string, error) {
	payload, err := json.Marshal(profile)
	if err != nil {
		return "", fmt.Errorf("failed to encode profile: %w", err)
	}

	id := o.newID()
	if _, err := o.db.ExecContext(ctx, insertPending, id, profile.UserID, token, payload, cause); err != nil {
		return "", fmt.Errorf("failed to enqueue pending profile: %w", err)
	}
	return id, nil
}

// Pending lists up to limit unfinished rows, oldest first.
func (o *Outbox) Pending(ctx context.Context, limit int) ([]PendingProfile, error) {
	rows, err := o.db.QueryContext(ctx, selectPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending profiles: %w", err)
	}
	defer rows.Close()

	var out []PendingProfile
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Get loads one unfinished row.
func (o *Outbox) Get(ctx context.Context, id string) (*PendingProfile, error) {
	p, err := scan(o.db.QueryRowContext(ctx, selectByID, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// MarkDone closes a row after its profile was created.
func (o *Outbox) MarkDone(ctx context.Context, id string) error {
	res, err := o.db.ExecContext(ctx, markDone, id)
	if err != nil {
		return fmt.Errorf("failed to complete pending profile: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkFailed counts a failed replay.
func (o *Outbox) MarkFailed(ctx context.Context, id, cause string) error {
	if _, err := o.db.ExecContext(ctx, markFailed, id, cause); err != nil {
		return fmt.Errorf("failed to update pending profile: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scan(row scanner) (*PendingProfile, error) {
	var (
		p       PendingProfile
		payload []byte
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.Token, &payload, &p.Attempts, &p.CreatedAt); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan pending profile: %w", err)
	}
	if err := json.Unmarshal(payload, &p.Profile); err != nil {
		return nil, fmt.Errorf("failed to decode pending profile %s: %w", p.ID, err)
	}
	return &p, nil
}
