package voicemail

import (
	"context"
	"errors"
	"time"
)

// Record is one finalized voicemail recording. It is immutable after
// creation except for the transcription, which arrives asynchronously and
// may be much later.
type Record struct {
	ID              string
	CallSID         string
	RecordingSID    string
	RecordingURL    string
	DurationSeconds int

	// Transcription is nil until the async transcription callback lands.
	Transcription *string

	CreatedAt time.Time
}

var ErrNotFound = errors.New("voicemail: record not found")

type Repository interface {
	Insert(ctx context.Context, rec Record) error

	// SetTranscription fills in the transcription for a recording.
	// Returns ErrNotFound when no record exists for the recording.
	SetTranscription(ctx context.Context, recordingSID, text string) error

	GetByRecordingSID(ctx context.Context, recordingSID string) (Record, error)
}
