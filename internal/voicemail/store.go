package voicemail

import (
	"context"
	"database/sql"
	"errors"
)

// NOTE: This repository assumes the following table exists:
//
// voicemail_records (
//   id               uuid primary key,
//   call_sid         text not null,
//   recording_sid    text not null unique,
//   recording_url    text not null,
//   duration_seconds int  not null,
//   transcription    text,
//   created_at       timestamptz not null
// )

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Insert(ctx context.Context, rec Record) error {
	const q = `
INSERT INTO voicemail_records (id, call_sid, recording_sid, recording_url, duration_seconds, transcription, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (recording_sid) DO NOTHING
`
	_, err := r.db.ExecContext(ctx, q,
		rec.ID,
		rec.CallSID,
		rec.RecordingSID,
		rec.RecordingURL,
		rec.DurationSeconds,
		rec.Transcription,
		rec.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) SetTranscription(ctx context.Context, recordingSID, text string) error {
	const q = `
UPDATE voicemail_records
SET transcription = $2
WHERE recording_sid = $1
`
	res, err := r.db.ExecContext(ctx, q, recordingSID, text)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) GetByRecordingSID(ctx context.Context, recordingSID string) (Record, error) {
	const q = `
SELECT id, call_sid, recording_sid, recording_url, duration_seconds, transcription, created_at
FROM voicemail_records
WHERE recording_sid = $1
`
	var rec Record
	if err := r.db.QueryRowContext(ctx, q, recordingSID).Scan(
		&rec.ID,
		&rec.CallSID,
		&rec.RecordingSID,
		&rec.RecordingURL,
		&rec.DurationSeconds,
		&rec.Transcription,
		&rec.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

var _ Repository = (*PostgresRepo)(nil)
