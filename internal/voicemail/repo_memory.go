package voicemail

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory Repository used by tests.
type MemoryRepo struct {
	mu      sync.Mutex
	records map[string]Record // keyed by recording SID
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{records: make(map[string]Record)}
}

func (r *MemoryRepo) Insert(ctx context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.RecordingSID]; ok {
		return nil
	}
	r.records[rec.RecordingSID] = rec
	return nil
}

func (r *MemoryRepo) SetTranscription(ctx context.Context, recordingSID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[recordingSID]
	if !ok {
		return ErrNotFound
	}
	rec.Transcription = &text
	r.records[recordingSID] = rec
	return nil
}

func (r *MemoryRepo) GetByRecordingSID(ctx context.Context, recordingSID string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[recordingSID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

var _ Repository = (*MemoryRepo)(nil)
