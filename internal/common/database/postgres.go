// Package database opens the stores behind the identity token and the
// recovery outbox.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"rozgar-signup/internal/common/config"
)

// Postgres is the connection pool of the recovery outbox. The signup client
// keeps it small; only the outbox writes through it.
type Postgres struct {
	DB *sql.DB
}

func OpenPostgres(cfg config.PostgresConfig) (*Postgres, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	maxOpen, maxIdle := cfg.MaxConnections, cfg.MaxIdle
	if maxOpen <= 0 {
		maxOpen = 4
	}
	if maxIdle <= 0 || maxIdle > maxOpen {
		maxIdle = maxOpen
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return NewPostgres(db), nil
}

// NewPostgres wraps an already opened pool.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{DB: db}
}

// Ready pings the server.
func (p *Postgres) Ready(ctx context.Context) error {
	if err := p.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres unreachable: %w", err)
	}
	return nil
}

// Migrate applies statements in order inside one transaction.
func (p *Postgres) Migrate(ctx context.Context, statements ...string) error {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return tx.Commit()
}

// ConnectOutbox opens the pool, checks it and applies the outbox schema.
func ConnectOutbox(ctx context.Context, cfg config.PostgresConfig, schema ...string) (*Postgres, error) {
	p, err := OpenPostgres(cfg)
	if err != nil {
		return nil, err
	}
	if err := p.Ready(ctx); err != nil {
		p.Close()
		return nil, err
	}
	if err := p.Migrate(ctx, schema...); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) Close() error {
	if p.DB == nil {
		return nil
	}
	return p.DB.Close()
}
