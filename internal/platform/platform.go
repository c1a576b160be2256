package platform

import (
	"context"
	"time"
)

// The work-distribution platform owns tasks, reservations, calls and
// conferences. This package only issues commands against it and queries it;
// no routing state is cached here.
//
// Rules:
// - No provider SDK calls outside this package.
// - Callers must treat "already terminal" command failures as success
//   (see IsAlreadyTerminal); redundant resolution paths race by design.

// Participant is one call joined to a conference. JoinedAt ordering is the
// tie-break authority when resolving ring races: the earliest participant is
// the original inbound caller.
type Participant struct {
	CallSID  string    `json:"call_sid"`
	JoinedAt time.Time `json:"joined_at"`
}

// CreateCallParams describes one outbound leg to originate.
type CreateCallParams struct {
	To             string
	From           string
	TwiMLURL       string
	TimeoutSeconds int

	// StatusCallbackURL receives call-status events for this leg.
	StatusCallbackURL string
}

// CallCommands drives individual call legs.
type CallCommands interface {
	// CreateCall originates an outbound leg and returns its call SID.
	CreateCall(ctx context.Context, p CreateCallParams) (string, error)

	// CancelCall ends a leg. Canceling an already-terminal call must be
	// reported via an error satisfying IsAlreadyTerminal, never by panicking
	// or by a distinct success shape.
	CancelCall(ctx context.Context, callSID string) error

	// RedirectCall points an in-flight call at new instructions.
	RedirectCall(ctx context.Context, callSID, twimlURL string) error
}

// ConferenceQuery reads live conference membership. Results must be fetched
// fresh at decision time; they are never cached.
type ConferenceQuery interface {
	ListParticipants(ctx context.Context, conferenceName string) ([]Participant, error)
}

// TaskCommands mutates routing tasks and their reservations.
type TaskCommands interface {
	CompleteTask(ctx context.Context, taskSID, reason string) error
	CancelTask(ctx context.Context, taskSID, reason string) error
	AcceptReservation(ctx context.Context, taskSID, reservationSID string) error
}

// WorkerRegistry manages the platform's worker entries.
type WorkerRegistry interface {
	// FindWorkerByName returns the worker SID registered under a stable
	// friendly name, or "" when none exists.
	FindWorkerByName(ctx context.Context, friendlyName string) (string, error)

	// CreateWorker registers a worker and returns its SID.
	CreateWorker(ctx context.Context, friendlyName, attributesJSON string) (string, error)

	// SetWorkerActivity updates the registry entry's activity. Concurrent
	// updates may be rejected with a conflict; see IsConflict.
	SetWorkerActivity(ctx context.Context, workerSID, activitySID string) error
}

// Client is the full command surface the routing handlers depend on.
type Client interface {
	CallCommands
	ConferenceQuery
	TaskCommands
	WorkerRegistry
}
