package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"imagestudio/internal/domain"
)

// Postgres persists predictions in a single table via pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a postgres-backed store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the predictions table when it does not exist yet.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS predictions (
    id            TEXT PRIMARY KEY,
    type          TEXT NOT NULL DEFAULT '',
    status        TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL,
    completed_at  TIMESTAMPTZ,
    input         JSONB NOT NULL,
    output        JSONB,
    error_message TEXT NOT NULL DEFAULT '',
    remote_id     TEXT NOT NULL DEFAULT ''
);
`)
	if err != nil {
		return fmt.Errorf("ensure predictions schema: %w", err)
	}
	return nil
}

func (s *Postgres) Put(ctx context.Context, p *domain.Prediction) error {
	query := `
INSERT INTO predictions (id, type, status, created_at, completed_at, input, output, error_message, remote_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`
	_, err := s.pool.Exec(ctx, query,
		p.ID,
		p.Type,
		p.Status,
		p.CreatedAt,
		p.CompletedAt,
		p.Input,
		nullableBytes(p.Output),
		p.Error,
		p.RemoteID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, id string) (*domain.Prediction, error) {
	query := `
SELECT id, type, status, created_at, completed_at, input, output, error_message, remote_id
FROM predictions
WHERE id = $1;
`
	row := s.pool.QueryRow(ctx, query, id)
	var p domain.Prediction
	if err := row.Scan(
		&p.ID,
		&p.Type,
		&p.Status,
		&p.CreatedAt,
		&p.CompletedAt,
		&p.Input,
		&p.Output,
		&p.Error,
		&p.RemoteID,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select prediction: %w", err)
	}
	return &p, nil
}

func (s *Postgres) Patch(ctx context.Context, id string, patch Patch) error {
	query := `
UPDATE predictions
SET status        = COALESCE($2, status),
    remote_id     = COALESCE($3, remote_id),
    output        = COALESCE($4, output),
    error_message = COALESCE($5, error_message),
    completed_at  = COALESCE($6, completed_at)
WHERE id = $1;
`
	tag, err := s.pool.Exec(ctx, query,
		id,
		(*string)(patch.Status),
		patch.RemoteID,
		nullableBytes(patch.Output),
		patch.Error,
		patch.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update prediction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Postgres) IDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM predictions ORDER BY created_at;`)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan prediction id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Postgres) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	query := `
DELETE FROM predictions
WHERE status IN ('succeeded', 'failed')
  AND completed_at IS NOT NULL
  AND completed_at < $1;
`
	tag, err := s.pool.Exec(ctx, query, olderThan)
	if err != nil {
		return 0, fmt.Errorf("prune predictions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func nullableBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
