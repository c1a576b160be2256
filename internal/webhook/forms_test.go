package webhook

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func formRequest(t *testing.T, path string, fields map[string]string) *http.Request {
	t.Helper()
	vals := url.Values{}
	for k, v := range fields {
		vals.Set(k, v)
	}
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(vals.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func TestParseCallStatus(t *testing.T) {
	r := formRequest(t, "/webhooks/ring/status", map[string]string{
		"CallSid":    "CA123",
		"CallStatus": "ringing",
		"From":       "+15551234567",
		"To":         "client:alice",
	})
	form, err := ParseCallStatus(r)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if form.CallSID != "CA123" || form.CallStatus != "ringing" {
		t.Fatalf("unexpected form: %+v", form)
	}
}

func TestParseTaskEvent(t *testing.T) {
	r := formRequest(t, "/webhooks/taskrouter/events", map[string]string{
		"EventType":            "task-queue.entered",
		"TaskSid":              "WT1",
		"TaskAssignmentStatus": "queued",
		"TaskQueueSid":         "WQ1",
		"TaskAttributes":       `{"call_sid":"CA1","from":"+15550001111"}`,
	})
	form, err := ParseTaskEvent(r)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if form.EventType != "task-queue.entered" || form.TaskQueueSID != "WQ1" {
		t.Fatalf("unexpected form: %+v", form)
	}
	if form.TaskAssignmentStatus != "queued" {
		t.Fatalf("expected assignment status parsed, got %+v", form)
	}
	attrs, err := ParseTaskAttributes(form.TaskAttributes)
	if err != nil {
		t.Fatalf("attributes: %v", err)
	}
	if attrs.CallSID != "CA1" {
		t.Fatalf("expected call sid from attributes, got %q", attrs.CallSID)
	}
}

func TestParseWorkerAttributes(t *testing.T) {
	attrs, err := ParseWorkerAttributes(`{"contact_uri":"client:alice","phone":"+15552223333","email":"alice@example.com"}`)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if attrs.ContactURI != "client:alice" || attrs.Phone != "+15552223333" {
		t.Fatalf("unexpected attrs: %+v", attrs)
	}

	empty, err := ParseWorkerAttributes("")
	if err != nil {
		t.Fatalf("empty blob should parse, got %v", err)
	}
	if empty.ContactURI != "" {
		t.Fatalf("expected zero attrs")
	}

	if _, err := ParseWorkerAttributes("{not json"); err == nil {
		t.Fatalf("expected error for malformed blob")
	}
}

func TestParseRecordingDuration(t *testing.T) {
	r := formRequest(t, "/webhooks/voicemail/recording", map[string]string{
		"CallSid":           "CA1",
		"RecordingSid":      "RE1",
		"RecordingUrl":      "https://api.example.com/recordings/RE1",
		"RecordingDuration": "14",
	})
	form, err := ParseRecording(r)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if form.DurationSeconds != 14 {
		t.Fatalf("expected duration 14, got %d", form.DurationSeconds)
	}

	r = formRequest(t, "/webhooks/voicemail/recording", map[string]string{"RecordingDuration": ""})
	form, err = ParseRecording(r)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if form.DurationSeconds != 0 {
		t.Fatalf("expected zero duration, got %d", form.DurationSeconds)
	}
}
