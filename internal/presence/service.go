package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"dialdesk/internal/metrics"
	"dialdesk/internal/platform"
)

const (
	// One initial attempt plus activityRetries on 409-class conflicts only.
	activityRetries = 3
	retryBackoff    = 200 * time.Millisecond
)

// Config maps presence activities onto platform activity SIDs.
type Config struct {
	AvailableActivitySID   string
	UnavailableActivitySID string
	OfflineActivitySID     string
}

func (c Config) activitySID(a Activity) string {
	switch a {
	case ActivityAvailable:
		return c.AvailableActivitySID
	case ActivityUnavailable:
		return c.UnavailableActivitySID
	default:
		return c.OfflineActivitySID
	}
}

// Service keeps the platform's worker registry, the durable store, and live
// subscribers in sync. Presence is best-effort state: the platform update
// may fail without failing the whole operation.
type Service struct {
	Registry    platform.WorkerRegistry
	Store       Store
	Broadcaster *Broadcaster
	Cfg         Config
	Log         *slog.Logger

	// Sleep is swapped out by tests; nil means time.Sleep.
	Sleep func(time.Duration)
}

func (s *Service) sleep(d time.Duration) {
	if s.Sleep != nil {
		s.Sleep(d)
		return
	}
	time.Sleep(d)
}

// SetPresence records a worker's new activity: ensure a platform registry
// identity exists, push the activity to the platform with a bounded retry
// on conflicts, then persist and broadcast. The store write is
// last-writer-wins and always happens, even when the platform update
// exhausts its retries.
func (s *Service) SetPresence(ctx context.Context, workerID, email string, activity Activity) (Presence, error) {
	workerSID, err := s.ensureWorker(ctx, workerID, email)
	if err != nil {
		return Presence{}, fmt.Errorf("ensure platform worker: %w", err)
	}

	if err := s.setActivity(ctx, workerSID, s.Cfg.activitySID(activity)); err != nil {
		// Store-only fallback: the registry will catch up on the next update.
		s.Log.Warn("platform activity update exhausted retries, store-only",
			"worker", workerID, "activity", activity, "err", err)
		metrics.PresenceUpdates.WithLabelValues("store_only").Inc()
	} else {
		metrics.PresenceUpdates.WithLabelValues("synced").Inc()
	}

	p := Presence{
		WorkerID:          workerID,
		Email:             email,
		PlatformWorkerSID: workerSID,
		Activity:          activity,
		UpdatedAt:         time.Now().UTC(),
	}
	if err := s.Store.Upsert(ctx, p); err != nil {
		return Presence{}, fmt.Errorf("persist presence: %w", err)
	}

	s.Broadcaster.Publish(workerID, StatusEvent{Status: activity, HasWorker: true})
	return p, nil
}

// Get returns the stored presence, defaulting to offline for a worker that
// has never reported.
func (s *Service) Get(ctx context.Context, workerID string) (Presence, error) {
	p, ok, err := s.Store.Get(ctx, workerID)
	if err != nil {
		return Presence{}, err
	}
	if !ok {
		return Presence{WorkerID: workerID, Activity: ActivityOffline}, nil
	}
	return p, nil
}

// ensureWorker is an idempotent lookup-or-create keyed on the account email,
// which is the stable friendly name on the platform side.
func (s *Service) ensureWorker(ctx context.Context, workerID, email string) (string, error) {
	if p, ok, err := s.Store.Get(ctx, workerID); err == nil && ok && p.PlatformWorkerSID != "" {
		return p.PlatformWorkerSID, nil
	}

	sid, err := s.Registry.FindWorkerByName(ctx, email)
	if err != nil {
		return "", err
	}
	if sid != "" {
		return sid, nil
	}

	attrs, err := json.Marshal(map[string]string{
		"contact_uri": "client:" + workerID,
		"email":       email,
	})
	if err != nil {
		return "", err
	}
	return s.Registry.CreateWorker(ctx, email, string(attrs))
}

// setActivity retries only 409-class conflicts, which the platform reports
// when concurrent registry updates collide. Other error classes fail
// immediately.
func (s *Service) setActivity(ctx context.Context, workerSID, activitySID string) error {
	var err error
	for attempt := 0; attempt <= activityRetries; attempt++ {
		if attempt > 0 {
			s.sleep(retryBackoff)
		}
		err = s.Registry.SetWorkerActivity(ctx, workerSID, activitySID)
		if err == nil {
			return nil
		}
		if !platform.IsConflict(err) {
			return err
		}
	}
	return err
}
