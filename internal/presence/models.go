package presence

import (
	"context"
	"fmt"
	"time"
)

// Activity is a worker's self-reported availability.
type Activity string

const (
	ActivityAvailable   Activity = "available"
	ActivityUnavailable Activity = "unavailable"
	ActivityOffline     Activity = "offline"
)

// ParseActivity validates a client-supplied activity string.
func ParseActivity(s string) (Activity, error) {
	switch Activity(s) {
	case ActivityAvailable, ActivityUnavailable, ActivityOffline:
		return Activity(s), nil
	}
	return "", fmt.Errorf("unknown activity %q", s)
}

// Presence is the durable presence row for one worker account. Rows are
// created lazily on first update and never deleted; the store is the source
// of truth for presence across processes.
type Presence struct {
	WorkerID string
	Email    string

	// PlatformWorkerSID is the registry identity on the platform, filled in
	// once the worker has been registered there.
	PlatformWorkerSID string

	Activity  Activity
	UpdatedAt time.Time
}

// Store persists presence with last-writer-wins semantics.
type Store interface {
	Get(ctx context.Context, workerID string) (Presence, bool, error)
	Upsert(ctx context.Context, p Presence) error
}
