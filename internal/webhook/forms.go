package webhook

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// The platform delivers every event as application/x-www-form-urlencoded.
// These forms capture the subsets of fields the routing handlers care about.
// Parsing stays here at the adapter boundary; no routing decisions are made
// in this package.

// CallStatusForm is a call-status event for one leg.
type CallStatusForm struct {
	CallSID    string
	CallStatus string
	From       string
	To         string
	Direction  string
}

func ParseCallStatus(r *http.Request) (CallStatusForm, error) {
	if err := r.ParseForm(); err != nil {
		return CallStatusForm{}, err
	}
	return CallStatusForm{
		CallSID:    r.PostFormValue("CallSid"),
		CallStatus: r.PostFormValue("CallStatus"),
		From:       r.PostFormValue("From"),
		To:         r.PostFormValue("To"),
		Direction:  r.PostFormValue("Direction"),
	}, nil
}

// ConferenceEventForm is a conference status event (join/leave/start/end).
type ConferenceEventForm struct {
	ConferenceSID string
	FriendlyName  string
	Event         string
	CallSID       string
}

func ParseConferenceEvent(r *http.Request) (ConferenceEventForm, error) {
	if err := r.ParseForm(); err != nil {
		return ConferenceEventForm{}, err
	}
	return ConferenceEventForm{
		ConferenceSID: r.PostFormValue("ConferenceSid"),
		FriendlyName:  r.PostFormValue("FriendlyName"),
		Event:         r.PostFormValue("StatusCallbackEvent"),
		CallSID:       r.PostFormValue("CallSid"),
	}, nil
}

// TaskEventForm is a task/reservation lifecycle event from the
// work-distribution workspace event stream.
type TaskEventForm struct {
	EventType            string
	TaskSID              string
	TaskAssignmentStatus string
	TaskQueueSID         string
	TaskQueueName        string
	TaskAttributes       string
	ReservationSID       string
	WorkerSID            string
	WorkerName           string
}

func ParseTaskEvent(r *http.Request) (TaskEventForm, error) {
	if err := r.ParseForm(); err != nil {
		return TaskEventForm{}, err
	}
	return TaskEventForm{
		EventType:            r.PostFormValue("EventType"),
		TaskSID:              r.PostFormValue("TaskSid"),
		TaskAssignmentStatus: r.PostFormValue("TaskAssignmentStatus"),
		TaskQueueSID:         r.PostFormValue("TaskQueueSid"),
		TaskQueueName:        r.PostFormValue("TaskQueueName"),
		TaskAttributes:       r.PostFormValue("TaskAttributes"),
		ReservationSID:       r.PostFormValue("ReservationSid"),
		WorkerSID:            r.PostFormValue("WorkerSid"),
		WorkerName:           r.PostFormValue("WorkerName"),
	}, nil
}

// AssignmentForm is the platform's assignment callback for a freshly created
// reservation; the response tells the platform what to do with the call.
type AssignmentForm struct {
	TaskSID          string
	ReservationSID   string
	WorkerSID        string
	WorkerName       string
	TaskAttributes   string
	WorkerAttributes string
}

func ParseAssignment(r *http.Request) (AssignmentForm, error) {
	if err := r.ParseForm(); err != nil {
		return AssignmentForm{}, err
	}
	return AssignmentForm{
		TaskSID:          r.PostFormValue("TaskSid"),
		ReservationSID:   r.PostFormValue("ReservationSid"),
		WorkerSID:        r.PostFormValue("WorkerSid"),
		WorkerName:       r.PostFormValue("WorkerName"),
		TaskAttributes:   r.PostFormValue("TaskAttributes"),
		WorkerAttributes: r.PostFormValue("WorkerAttributes"),
	}, nil
}

// RecordingForm is a recording-complete callback.
type RecordingForm struct {
	CallSID         string
	RecordingSID    string
	RecordingURL    string
	DurationSeconds int
}

func ParseRecording(r *http.Request) (RecordingForm, error) {
	if err := r.ParseForm(); err != nil {
		return RecordingForm{}, err
	}
	dur, _ := strconv.Atoi(strings.TrimSpace(r.PostFormValue("RecordingDuration")))
	return RecordingForm{
		CallSID:         r.PostFormValue("CallSid"),
		RecordingSID:    r.PostFormValue("RecordingSid"),
		RecordingURL:    r.PostFormValue("RecordingUrl"),
		DurationSeconds: dur,
	}, nil
}

// TranscriptionForm is the asynchronous transcription callback. It may
// arrive long after the call's disposition is finalized.
type TranscriptionForm struct {
	CallSID           string
	RecordingSID      string
	TranscriptionText string
	Status            string
}

func ParseTranscription(r *http.Request) (TranscriptionForm, error) {
	if err := r.ParseForm(); err != nil {
		return TranscriptionForm{}, err
	}
	return TranscriptionForm{
		CallSID:           r.PostFormValue("CallSid"),
		RecordingSID:      r.PostFormValue("RecordingSid"),
		TranscriptionText: r.PostFormValue("TranscriptionText"),
		Status:            r.PostFormValue("TranscriptionStatus"),
	}, nil
}

// QueueResultForm is the enqueue action callback describing how the caller
// left the routing queue.
type QueueResultForm struct {
	CallSID     string
	QueueResult string
	QueueSID    string
}

func ParseQueueResult(r *http.Request) (QueueResultForm, error) {
	if err := r.ParseForm(); err != nil {
		return QueueResultForm{}, err
	}
	return QueueResultForm{
		CallSID:     r.PostFormValue("CallSid"),
		QueueResult: r.PostFormValue("QueueResult"),
		QueueSID:    r.PostFormValue("QueueSid"),
	}, nil
}

// TaskAttributes is the free-form attributes blob a routing task carries.
// call_sid links the task back to the inbound leg that created it.
type TaskAttributes struct {
	CallSID string `json:"call_sid"`
	From    string `json:"from"`
	To      string `json:"to"`
}

func ParseTaskAttributes(raw string) (TaskAttributes, error) {
	var a TaskAttributes
	if strings.TrimSpace(raw) == "" {
		return a, nil
	}
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return TaskAttributes{}, err
	}
	return a, nil
}

// WorkerAttributes is the registry blob describing how to reach a worker.
type WorkerAttributes struct {
	ContactURI string `json:"contact_uri"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
}

func ParseWorkerAttributes(raw string) (WorkerAttributes, error) {
	var a WorkerAttributes
	if strings.TrimSpace(raw) == "" {
		return a, nil
	}
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return WorkerAttributes{}, err
	}
	return a, nil
}
