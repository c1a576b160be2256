package presence

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	twclient "github.com/twilio/twilio-go/client"
)

// scriptedRegistry returns one queued error per SetWorkerActivity call, so
// tests can simulate a run of conflicts followed by success.
type scriptedRegistry struct {
	workers      map[string]string
	created      []string
	activityErrs []error
	activitySets int
}

func (r *scriptedRegistry) FindWorkerByName(ctx context.Context, friendlyName string) (string, error) {
	return r.workers[friendlyName], nil
}

func (r *scriptedRegistry) CreateWorker(ctx context.Context, friendlyName, attributesJSON string) (string, error) {
	if r.workers == nil {
		r.workers = map[string]string{}
	}
	sid := "WK-" + friendlyName
	r.workers[friendlyName] = sid
	r.created = append(r.created, friendlyName)
	return sid, nil
}

func (r *scriptedRegistry) SetWorkerActivity(ctx context.Context, workerSID, activitySID string) error {
	var err error
	if len(r.activityErrs) > 0 {
		err, r.activityErrs = r.activityErrs[0], r.activityErrs[1:]
	}
	if err == nil {
		r.activitySets++
	}
	return err
}

func conflictErr() error {
	return &twclient.TwilioRestError{Status: 409, Message: "conflict"}
}

func testService(reg *scriptedRegistry, store Store) (*Service, *Broadcaster) {
	b := NewBroadcaster()
	return &Service{
		Registry:    reg,
		Store:       store,
		Broadcaster: b,
		Cfg: Config{
			AvailableActivitySID:   "WA-avail",
			UnavailableActivitySID: "WA-unavail",
			OfflineActivitySID:     "WA-offline",
		},
		Log:   slog.Default(),
		Sleep: func(time.Duration) {},
	}, b
}

func TestSetPresence_CreatesWorkerOnFirstUpdate(t *testing.T) {
	reg := &scriptedRegistry{}
	store := NewMemoryStore()
	svc, _ := testService(reg, store)

	p, err := svc.SetPresence(context.Background(), "w1", "w1@example.com", ActivityAvailable)
	if err != nil {
		t.Fatalf("SetPresence: %v", err)
	}
	if len(reg.created) != 1 || reg.created[0] != "w1@example.com" {
		t.Fatalf("expected worker created by email, got %v", reg.created)
	}
	if p.PlatformWorkerSID != "WK-w1@example.com" {
		t.Fatalf("unexpected worker sid: %q", p.PlatformWorkerSID)
	}
	if reg.activitySets != 1 {
		t.Fatalf("expected one activity update, got %d", reg.activitySets)
	}

	stored, ok, _ := store.Get(context.Background(), "w1")
	if !ok || stored.Activity != ActivityAvailable {
		t.Fatalf("expected persisted presence, got %+v ok=%v", stored, ok)
	}
}

func TestSetPresence_ReusesStoredWorkerSID(t *testing.T) {
	reg := &scriptedRegistry{}
	store := NewMemoryStore()
	store.Upsert(context.Background(), Presence{
		WorkerID: "w2", Email: "w2@example.com", PlatformWorkerSID: "WK-existing",
	})
	svc, _ := testService(reg, store)

	if _, err := svc.SetPresence(context.Background(), "w2", "w2@example.com", ActivityUnavailable); err != nil {
		t.Fatalf("SetPresence: %v", err)
	}
	if len(reg.created) != 0 {
		t.Fatalf("expected no registry create, got %v", reg.created)
	}
}

func TestSetPresence_RetryBoundOnConflicts(t *testing.T) {
	// Three conflicts then success: exactly one platform update lands and
	// exactly one broadcast goes out.
	reg := &scriptedRegistry{
		activityErrs: []error{conflictErr(), conflictErr(), conflictErr()},
	}
	store := NewMemoryStore()
	svc, b := testService(reg, store)

	events, unsub := b.Subscribe("w3")
	defer unsub()

	if _, err := svc.SetPresence(context.Background(), "w3", "w3@example.com", ActivityAvailable); err != nil {
		t.Fatalf("SetPresence: %v", err)
	}
	if reg.activitySets != 1 {
		t.Fatalf("expected exactly one successful activity update, got %d", reg.activitySets)
	}
	if n := len(events); n != 1 {
		t.Fatalf("expected one broadcast, got %d", n)
	}
	ev := <-events
	if ev.Status != ActivityAvailable || !ev.HasWorker {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestSetPresence_ExhaustedRetriesFallBackToStoreOnly(t *testing.T) {
	reg := &scriptedRegistry{
		activityErrs: []error{conflictErr(), conflictErr(), conflictErr(), conflictErr()},
	}
	store := NewMemoryStore()
	svc, _ := testService(reg, store)

	p, err := svc.SetPresence(context.Background(), "w4", "w4@example.com", ActivityOffline)
	if err != nil {
		t.Fatalf("store-only fallback must not surface as an error, got %v", err)
	}
	if reg.activitySets != 0 {
		t.Fatalf("expected no successful platform update, got %d", reg.activitySets)
	}
	if p.Activity != ActivityOffline {
		t.Fatalf("expected store update to proceed, got %+v", p)
	}

	stored, ok, _ := store.Get(context.Background(), "w4")
	if !ok || stored.Activity != ActivityOffline {
		t.Fatalf("expected persisted presence despite platform failure, got %+v ok=%v", stored, ok)
	}
}

func TestSetPresence_NonConflictErrorIsNotRetried(t *testing.T) {
	reg := &scriptedRegistry{
		activityErrs: []error{errors.New("boom"), nil, nil, nil},
	}
	store := NewMemoryStore()
	svc, _ := testService(reg, store)

	if _, err := svc.SetPresence(context.Background(), "w5", "w5@example.com", ActivityAvailable); err != nil {
		t.Fatalf("non-conflict failure still falls back to store-only, got %v", err)
	}
	if reg.activitySets != 0 {
		t.Fatalf("expected no retries after a non-conflict error, got %d updates", reg.activitySets)
	}
}

func TestGet_DefaultsToOffline(t *testing.T) {
	svc, _ := testService(&scriptedRegistry{}, NewMemoryStore())

	p, err := svc.Get(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Activity != ActivityOffline || p.PlatformWorkerSID != "" {
		t.Fatalf("expected offline default, got %+v", p)
	}
}
