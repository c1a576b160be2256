package presence

import (
	"context"
	"database/sql"
	"errors"
)

// NOTE: This store assumes the following table exists:
//
// worker_presence (
//   worker_id           text primary key,
//   email               text not null,
//   platform_worker_sid text not null default '',
//   activity            text not null,
//   updated_at          timestamptz not null
// )

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, workerID string) (Presence, bool, error) {
	const q = `
SELECT worker_id, email, platform_worker_sid, activity, updated_at
FROM worker_presence
WHERE worker_id = $1
`
	var p Presence
	if err := s.db.QueryRowContext(ctx, q, workerID).Scan(
		&p.WorkerID,
		&p.Email,
		&p.PlatformWorkerSID,
		&p.Activity,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Presence{}, false, nil
		}
		return Presence{}, false, err
	}
	return p, true, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, p Presence) error {
	const q = `
INSERT INTO worker_presence (worker_id, email, platform_worker_sid, activity, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (worker_id) DO UPDATE
SET email = EXCLUDED.email,
    platform_worker_sid = EXCLUDED.platform_worker_sid,
    activity = EXCLUDED.activity,
    updated_at = EXCLUDED.updated_at
`
	_, err := s.db.ExecContext(ctx, q,
		p.WorkerID,
		p.Email,
		p.PlatformWorkerSID,
		p.Activity,
		p.UpdatedAt,
	)
	return err
}

var _ Store = (*PostgresStore)(nil)
