package simulring

import "strings"

// Ring conferences are named after the routing task so every event for the
// race can be traced back to its task without shared state.
const conferencePrefix = "ring-"

// ConferenceName derives the ring conference name for a task.
func ConferenceName(taskSID string) string {
	return conferencePrefix + taskSID
}

// IsRingConference reports whether a conference belongs to a simultaneous
// ring. Events for other conferences are not ours to resolve.
func IsRingConference(name string) bool {
	return strings.HasPrefix(name, conferencePrefix)
}

// TaskFromConference recovers the task SID from a ring conference name.
func TaskFromConference(name string) string {
	return strings.TrimPrefix(name, conferencePrefix)
}

// RingRequest asks the coordinator to ring one recipient at two endpoints.
type RingRequest struct {
	TaskSID        string
	ReservationSID string

	// CallerCallSID is the inbound leg waiting in the queue.
	CallerCallSID string

	ClientURI string
	Phone     string
}
