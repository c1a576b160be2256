package tasks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	twclient "github.com/twilio/twilio-go/client"

	"dialdesk/internal/platform"
	"dialdesk/internal/simulring"
)

type fakeRinger struct {
	mu       sync.Mutex
	requests []simulring.RingRequest
	err      error
}

func (f *fakeRinger) StartRing(ctx context.Context, req simulring.RingRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.requests = append(f.requests, req)
	return nil
}

// memOnce is an in-process stand-in for the redis once-guard.
type memOnce struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (m *memOnce) once(ctx context.Context, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	if m.seen[key] {
		return false
	}
	m.seen[key] = true
	return true
}

func testHandler(fake *platform.Fake, ring Ringer) *Handler {
	guard := &memOnce{}
	return &Handler{
		Platform: fake,
		Ring:     ring,
		Once:     guard.once,
		Cfg: Config{
			VoicemailQueueSID:    "WQ-vm",
			VoicemailSinkContact: "client:voicemail-sink",
			CallerID:             "+15550100000",
			RingTimeoutSeconds:   20,
			PostWorkActivitySID:  "WA-wrapup",
			PublicBaseURL:        "https://calls.example.com",
		},
	}
}

func taskRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhooks/taskrouter/events", h.HandleEvent)
	r.POST("/webhooks/taskrouter/assignment", h.HandleAssignment)
	r.POST("/webhooks/taskrouter/call-ended", h.HandleCallEnded)
	return r
}

func post(r *gin.Engine, path string, fields map[string]string) *httptest.ResponseRecorder {
	vals := url.Values{}
	for k, v := range fields {
		vals.Set(k, v)
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(vals.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeInstruction(t *testing.T, w *httptest.ResponseRecorder) Instruction {
	t.Helper()
	var ins Instruction
	if err := json.Unmarshal(w.Body.Bytes(), &ins); err != nil {
		t.Fatalf("instruction decode: %v (%s)", err, w.Body.String())
	}
	return ins
}

func TestAssignment_SimpleBridge(t *testing.T) {
	// One reservation for a single-endpoint worker: respond with a dequeue
	// instruction; the call-end callback later completes the task.
	fake := platform.NewFake()
	h := testHandler(fake, &fakeRinger{})
	r := taskRouter(h)

	w := post(r, "/webhooks/taskrouter/assignment", map[string]string{
		"TaskSid":          "WT1",
		"ReservationSid":   "WR1",
		"WorkerSid":        "WK1",
		"TaskAttributes":   `{"call_sid":"CA-in","from":"+15551234567"}`,
		"WorkerAttributes": `{"contact_uri":"client:w"}`,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	ins := decodeInstruction(t, w)
	if ins.Instruction != "dequeue" || ins.To != "client:w" {
		t.Fatalf("unexpected instruction: %+v", ins)
	}
	if ins.Timeout != 20 || ins.From != "+15550100000" {
		t.Fatalf("unexpected dequeue params: %+v", ins)
	}
	if ins.PostWorkActivitySID != "WA-wrapup" {
		t.Fatalf("expected post-work activity, got %+v", ins)
	}
	if !strings.Contains(ins.StatusCallbackURL, "/webhooks/taskrouter/call-ended?task=WT1") {
		t.Fatalf("unexpected status callback url: %s", ins.StatusCallbackURL)
	}

	w = post(r, "/webhooks/taskrouter/call-ended?task=WT1", map[string]string{
		"CallSid":    "CA-bridge",
		"CallStatus": "completed",
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if len(fake.CompletedTasks) != 1 || fake.CompletedTasks[0][0] != "WT1" {
		t.Fatalf("expected task completed, got %v", fake.CompletedTasks)
	}
}

func TestAssignment_RingCapableStartsRingWithoutInstruction(t *testing.T) {
	fake := platform.NewFake()
	ring := &fakeRinger{}
	r := taskRouter(testHandler(fake, ring))

	w := post(r, "/webhooks/taskrouter/assignment", map[string]string{
		"TaskSid":          "WT2",
		"ReservationSid":   "WR2",
		"TaskAttributes":   `{"call_sid":"CA-in"}`,
		"WorkerAttributes": `{"contact_uri":"client:alice","phone":"+15552223333"}`,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	ins := decodeInstruction(t, w)
	if ins.Instruction != "" {
		t.Fatalf("expected no instruction while the ring is pending, got %+v", ins)
	}
	if len(ring.requests) != 1 {
		t.Fatalf("expected one ring request, got %d", len(ring.requests))
	}
	req := ring.requests[0]
	if req.TaskSID != "WT2" || req.ReservationSID != "WR2" || req.CallerCallSID != "CA-in" {
		t.Fatalf("unexpected ring request: %+v", req)
	}
}

func TestAssignment_RingFailureFallsBackToDequeue(t *testing.T) {
	fake := platform.NewFake()
	ring := &fakeRinger{err: context.DeadlineExceeded}
	r := taskRouter(testHandler(fake, ring))

	w := post(r, "/webhooks/taskrouter/assignment", map[string]string{
		"TaskSid":          "WT3",
		"ReservationSid":   "WR3",
		"TaskAttributes":   `{"call_sid":"CA-in"}`,
		"WorkerAttributes": `{"contact_uri":"client:alice","phone":"+15552223333"}`,
	})
	ins := decodeInstruction(t, w)
	if ins.Instruction != "dequeue" || ins.To != "client:alice" {
		t.Fatalf("expected single-leg dequeue fallback, got %+v", ins)
	}
}

func TestAssignment_VoicemailSinkRejectsAndRedirects(t *testing.T) {
	fake := platform.NewFake()
	r := taskRouter(testHandler(fake, &fakeRinger{}))

	w := post(r, "/webhooks/taskrouter/assignment", map[string]string{
		"TaskSid":          "WT4",
		"ReservationSid":   "WR4",
		"TaskAttributes":   `{"call_sid":"CA-in"}`,
		"WorkerAttributes": `{"contact_uri":"client:voicemail-sink"}`,
	})
	ins := decodeInstruction(t, w)
	if ins.Instruction != "reject" {
		t.Fatalf("expected reject, got %+v", ins)
	}
	if len(fake.CanceledTasks) != 1 || fake.CanceledTasks[0][0] != "WT4" {
		t.Fatalf("expected task canceled, got %v", fake.CanceledTasks)
	}
	if len(fake.Redirects) != 1 || !strings.Contains(fake.Redirects[0][1], "/webhooks/voicemail/greet?task=WT4") {
		t.Fatalf("expected voicemail redirect, got %v", fake.Redirects)
	}
}

func TestVoicemailQueueEntry_GuardedAgainstDoubleProcessing(t *testing.T) {
	// Both the queue-entered event and the sink assignment may fire for the
	// same task; the redirect must happen once.
	fake := platform.NewFake()
	h := testHandler(fake, &fakeRinger{})
	r := taskRouter(h)

	fields := map[string]string{
		"EventType":      "task-queue.entered",
		"TaskSid":        "WT5",
		"TaskQueueSid":   "WQ-vm",
		"TaskAttributes": `{"call_sid":"CA-in"}`,
	}
	post(r, "/webhooks/taskrouter/events", fields)
	post(r, "/webhooks/taskrouter/events", fields)

	if len(fake.CanceledTasks) != 1 {
		t.Fatalf("expected one cancel, got %v", fake.CanceledTasks)
	}
	if len(fake.Redirects) != 1 {
		t.Fatalf("expected one redirect, got %v", fake.Redirects)
	}
}

func TestVoicemailQueueEntry_TerminalStatusDropped(t *testing.T) {
	// A replayed or late-delivered queue event for a task that already left
	// the cancelable lifecycle must not issue any command.
	fake := platform.NewFake()
	r := taskRouter(testHandler(fake, &fakeRinger{}))

	for _, status := range []string{"completed", "canceled"} {
		post(r, "/webhooks/taskrouter/events", map[string]string{
			"EventType":            "task-queue.entered",
			"TaskSid":              "WT5b",
			"TaskAssignmentStatus": status,
			"TaskQueueSid":         "WQ-vm",
			"TaskAttributes":       `{"call_sid":"CA-in"}`,
		})
	}
	if len(fake.CanceledTasks) != 0 || len(fake.Redirects) != 0 {
		t.Fatalf("expected no commands for a terminal task, got %v / %v",
			fake.CanceledTasks, fake.Redirects)
	}
}

func TestVoicemailQueueEntry_ReportedQueuedStatusProceeds(t *testing.T) {
	fake := platform.NewFake()
	r := taskRouter(testHandler(fake, &fakeRinger{}))

	post(r, "/webhooks/taskrouter/events", map[string]string{
		"EventType":            "task-queue.entered",
		"TaskSid":              "WT5c",
		"TaskAssignmentStatus": "queued",
		"TaskQueueSid":         "WQ-vm",
		"TaskAttributes":       `{"call_sid":"CA-in"}`,
	})
	if len(fake.CanceledTasks) != 1 || len(fake.Redirects) != 1 {
		t.Fatalf("expected cancel and redirect for a queued task, got %v / %v",
			fake.CanceledTasks, fake.Redirects)
	}
}

func TestVoicemailQueueEntry_NormalQueueIsNoop(t *testing.T) {
	fake := platform.NewFake()
	r := taskRouter(testHandler(fake, &fakeRinger{}))

	post(r, "/webhooks/taskrouter/events", map[string]string{
		"EventType":      "task-queue.entered",
		"TaskSid":        "WT6",
		"TaskQueueSid":   "WQ-sales",
		"TaskAttributes": `{"call_sid":"CA-in"}`,
	})
	if len(fake.CanceledTasks) != 0 || len(fake.Redirects) != 0 {
		t.Fatalf("expected no action for a normal queue")
	}
}

func TestReservationRejected_LogOnly(t *testing.T) {
	fake := platform.NewFake()
	r := taskRouter(testHandler(fake, &fakeRinger{}))

	w := post(r, "/webhooks/taskrouter/events", map[string]string{
		"EventType":      "reservation.timeout",
		"TaskSid":        "WT7",
		"ReservationSid": "WR7",
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if len(fake.CanceledTasks)+len(fake.CompletedTasks)+len(fake.Redirects) != 0 {
		t.Fatalf("expected no commands")
	}
}

func TestCallEnded_AlreadyCompletedIsNoop(t *testing.T) {
	// Task terminal exclusivity: the second finalize must be a no-op, not an
	// error, because redundant paths race here by design.
	fake := platform.NewFake()
	fake.Fail("CompleteTask:WT8", &twclient.TwilioRestError{Status: 400, Message: "Task is already completed"})
	r := taskRouter(testHandler(fake, &fakeRinger{}))

	w := post(r, "/webhooks/taskrouter/call-ended?task=WT8", map[string]string{
		"CallSid":    "CA-x",
		"CallStatus": "completed",
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on already-completed task, got %d", w.Code)
	}
}

func TestCallEnded_NonTerminalStatusIgnored(t *testing.T) {
	fake := platform.NewFake()
	r := taskRouter(testHandler(fake, &fakeRinger{}))

	post(r, "/webhooks/taskrouter/call-ended?task=WT9", map[string]string{
		"CallSid":    "CA-x",
		"CallStatus": "in-progress",
	})
	if len(fake.CompletedTasks) != 0 {
		t.Fatalf("expected no completion for a live call")
	}
}

func TestCallEnded_MissingTaskLinkageDropped(t *testing.T) {
	fake := platform.NewFake()
	r := taskRouter(testHandler(fake, &fakeRinger{}))

	w := post(r, "/webhooks/taskrouter/call-ended", map[string]string{
		"CallSid":    "CA-x",
		"CallStatus": "completed",
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for unlinked event, got %d", w.Code)
	}
	if len(fake.CompletedTasks) != 0 {
		t.Fatalf("expected no completion without task linkage")
	}
}
