package tasks

// Task status lives in the platform; this service only ever observes it
// through events. The transition table below makes the legal lifecycle
// explicit so handlers can no-op impossible combinations instead of
// trusting event delivery order. Reservation state stays platform-owned:
// only its terminal events are observed, so it carries no local table.

type TaskStatus string

const (
	TaskCreated   TaskStatus = "created"
	TaskQueued    TaskStatus = "queued"
	TaskReserved  TaskStatus = "reserved"
	TaskAssigned  TaskStatus = "assigned"
	TaskWrapping  TaskStatus = "wrapping"
	TaskCompleted TaskStatus = "completed"
	TaskCanceled  TaskStatus = "canceled"
)

var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskCreated:  {TaskQueued, TaskCanceled},
	TaskQueued:   {TaskReserved, TaskCanceled},
	TaskReserved: {TaskAssigned, TaskQueued, TaskCanceled},
	TaskAssigned: {TaskWrapping, TaskCompleted, TaskCanceled},
	TaskWrapping: {TaskCompleted, TaskCanceled},
	// completed and canceled are terminal
}

// CanTransition reports whether the task lifecycle permits from -> to.
func (s TaskStatus) CanTransition(to TaskStatus) bool {
	for _, next := range taskTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the task can no longer change.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskCanceled
}

// CallStatusTerminal reports whether a leg's reported status means the leg
// is gone. The call-ends callback completes the task only on these.
func CallStatusTerminal(status string) bool {
	switch status {
	case "completed", "busy", "failed", "no-answer", "canceled":
		return true
	default:
		return false
	}
}
