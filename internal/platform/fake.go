package platform

import (
	"context"
	"fmt"
	"sync"
)

// Fake is an in-memory Client for package tests. It records every command
// and lets tests script per-call errors and conference membership.
type Fake struct {
	mu sync.Mutex

	// Scripted state.
	Conferences map[string][]Participant // conference name -> fresh participant list
	Workers     map[string]string        // friendly name -> worker SID
	Errs        map[string]error         // command key -> error to return

	// Recorded commands, in order.
	CreatedCalls   []CreateCallParams
	CanceledCalls  []string
	Redirects      [][2]string // call SID, twiml URL
	CompletedTasks [][2]string // task SID, reason
	CanceledTasks  [][2]string // task SID, reason
	Accepted       [][2]string // task SID, reservation SID
	ActivitySets   [][2]string // worker SID, activity SID
	CreatedWorkers []string

	nextCall int
}

func NewFake() *Fake {
	return &Fake{
		Conferences: map[string][]Participant{},
		Workers:     map[string]string{},
		Errs:        map[string]error{},
	}
}

// Fail scripts an error for a command key. Keys are the method name, or
// "method:arg" for per-argument errors (checked first).
func (f *Fake) Fail(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errs[key] = err
}

func (f *Fake) errFor(method, arg string) error {
	if err, ok := f.Errs[method+":"+arg]; ok {
		return err
	}
	return f.Errs[method]
}

func (f *Fake) CreateCall(ctx context.Context, p CreateCallParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errFor("CreateCall", p.To); err != nil {
		return "", err
	}
	f.CreatedCalls = append(f.CreatedCalls, p)
	f.nextCall++
	return fmt.Sprintf("CA-fake-%d", f.nextCall), nil
}

func (f *Fake) CancelCall(ctx context.Context, callSID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errFor("CancelCall", callSID); err != nil {
		return err
	}
	f.CanceledCalls = append(f.CanceledCalls, callSID)
	return nil
}

func (f *Fake) RedirectCall(ctx context.Context, callSID, twimlURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errFor("RedirectCall", callSID); err != nil {
		return err
	}
	f.Redirects = append(f.Redirects, [2]string{callSID, twimlURL})
	return nil
}

func (f *Fake) ListParticipants(ctx context.Context, conferenceName string) ([]Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errFor("ListParticipants", conferenceName); err != nil {
		return nil, err
	}
	parts, ok := f.Conferences[conferenceName]
	if !ok {
		return nil, fmt.Errorf("conference %q: %w", conferenceName, ErrNotFound)
	}
	out := make([]Participant, len(parts))
	copy(out, parts)
	return out, nil
}

func (f *Fake) CompleteTask(ctx context.Context, taskSID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errFor("CompleteTask", taskSID); err != nil {
		return err
	}
	f.CompletedTasks = append(f.CompletedTasks, [2]string{taskSID, reason})
	return nil
}

func (f *Fake) CancelTask(ctx context.Context, taskSID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errFor("CancelTask", taskSID); err != nil {
		return err
	}
	f.CanceledTasks = append(f.CanceledTasks, [2]string{taskSID, reason})
	return nil
}

func (f *Fake) AcceptReservation(ctx context.Context, taskSID, reservationSID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errFor("AcceptReservation", reservationSID); err != nil {
		return err
	}
	f.Accepted = append(f.Accepted, [2]string{taskSID, reservationSID})
	return nil
}

func (f *Fake) FindWorkerByName(ctx context.Context, friendlyName string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errFor("FindWorkerByName", friendlyName); err != nil {
		return "", err
	}
	return f.Workers[friendlyName], nil
}

func (f *Fake) CreateWorker(ctx context.Context, friendlyName, attributesJSON string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errFor("CreateWorker", friendlyName); err != nil {
		return "", err
	}
	sid := fmt.Sprintf("WK-fake-%d", len(f.Workers)+1)
	f.Workers[friendlyName] = sid
	f.CreatedWorkers = append(f.CreatedWorkers, friendlyName)
	return sid, nil
}

func (f *Fake) SetWorkerActivity(ctx context.Context, workerSID, activitySID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errFor("SetWorkerActivity", workerSID); err != nil {
		return err
	}
	f.ActivitySets = append(f.ActivitySets, [2]string{workerSID, activitySID})
	return nil
}

var _ Client = (*Fake)(nil)
