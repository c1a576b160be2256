package tasks

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"dialdesk/internal/metrics"
	"dialdesk/internal/platform"
	"dialdesk/internal/simulring"
	"dialdesk/internal/webhook"
	"dialdesk/pkg/logger"
)

// Config carries the routing knobs the lifecycle handlers need.
type Config struct {
	VoicemailQueueSID    string
	VoicemailSinkContact string
	CallerID             string
	RingTimeoutSeconds   int
	PostWorkActivitySID  string
	PublicBaseURL        string
}

// Ringer starts a simultaneous ring for a reservation.
type Ringer interface {
	StartRing(ctx context.Context, req simulring.RingRequest) error
}

// OnceFunc claims a cross-process guard key. It deduplicates the redundant
// paths that can both decide to redirect the same task to voicemail; a false
// claim means another handler already did it. Guards are an optimization:
// every downstream command stays idempotent without them.
type OnceFunc func(ctx context.Context, key string) bool

// Handler reacts to task lifecycle events from the platform. Every handler
// is a stateless invocation: decisions are derived from the event payload
// and fresh platform queries, never from local state.
type Handler struct {
	Platform platform.Client
	Ring     Ringer
	Cfg      Config

	// Once may be nil, in which case every claim succeeds locally.
	Once OnceFunc
}

func (h *Handler) once(ctx context.Context, key string) bool {
	if h.Once == nil {
		return true
	}
	return h.Once(ctx, key)
}

// HandleEvent processes the workspace event stream.
func (h *Handler) HandleEvent(c *gin.Context) {
	log := logger.FromGin(c)
	metrics.WebhookEvents.WithLabelValues("task").Inc()

	form, err := webhook.ParseTaskEvent(c.Request)
	if err != nil {
		log.Warn("task event parse failed", "err", err)
		c.Status(http.StatusBadRequest)
		return
	}

	ctx := c.Request.Context()
	switch form.EventType {
	case "task.created":
		log.Debug("task created", "task", form.TaskSID)

	case "task-queue.entered":
		if form.TaskQueueSID != h.Cfg.VoicemailQueueSID {
			// Normal queue: the platform creates reservations on its own.
			log.Debug("task queued", "task", form.TaskSID, "queue", form.TaskQueueSID)
			break
		}
		if st := TaskStatus(form.TaskAssignmentStatus); st != "" && !st.CanTransition(TaskCanceled) {
			// Late or replayed event: the task left the cancelable part of
			// its lifecycle before this delivery arrived.
			log.Debug("task cannot be canceled from its reported status, dropping",
				"task", form.TaskSID, "status", st)
			break
		}
		attrs, aerr := webhook.ParseTaskAttributes(form.TaskAttributes)
		if aerr != nil || attrs.CallSID == "" {
			log.Warn("voicemail queue entry without call linkage, dropping",
				"task", form.TaskSID, "err", aerr)
			break
		}
		h.redirectToVoicemail(ctx, log, form.TaskSID, attrs.CallSID)

	case "reservation.rejected", "reservation.timeout":
		// The platform advances to the next candidate on its own.
		log.Info("reservation ended without answer",
			"task", form.TaskSID, "reservation", form.ReservationSID, "event", form.EventType)

	default:
		log.Debug("ignoring task event", "event", form.EventType, "task", form.TaskSID)
	}

	c.Status(http.StatusNoContent)
}

// HandleAssignment answers the platform's assignment callback with a routing
// instruction for the fresh reservation.
func (h *Handler) HandleAssignment(c *gin.Context) {
	log := logger.FromGin(c)
	metrics.WebhookEvents.WithLabelValues("assignment").Inc()

	form, err := webhook.ParseAssignment(c.Request)
	if err != nil {
		log.Warn("assignment parse failed", "err", err)
		c.JSON(http.StatusOK, Reject())
		return
	}
	log = log.With("task", form.TaskSID, "reservation", form.ReservationSID)

	taskAttrs, err := webhook.ParseTaskAttributes(form.TaskAttributes)
	if err != nil {
		log.Warn("assignment task attributes malformed, rejecting", "err", err)
		c.JSON(http.StatusOK, Reject())
		return
	}
	workerAttrs, err := webhook.ParseWorkerAttributes(form.WorkerAttributes)
	if err != nil {
		log.Warn("assignment worker attributes malformed, rejecting", "err", err)
		c.JSON(http.StatusOK, Reject())
		return
	}

	ctx := c.Request.Context()
	target := ClassifyTarget(workerAttrs, h.Cfg.VoicemailSinkContact)

	switch {
	case target.Kind == TargetVoicemailSink:
		// Reject so the reservation dies, and independently move the call to
		// the recording pipeline. Either this or the queue-entered path may
		// fire first; both are guarded and idempotent.
		if taskAttrs.CallSID == "" {
			log.Warn("voicemail sink reservation without call linkage")
		} else {
			h.redirectToVoicemail(ctx, log, form.TaskSID, taskAttrs.CallSID)
		}
		c.JSON(http.StatusOK, Reject())

	case target.RingCapable():
		req := simulring.RingRequest{
			TaskSID:        form.TaskSID,
			ReservationSID: form.ReservationSID,
			CallerCallSID:  taskAttrs.CallSID,
			ClientURI:      target.ContactURI,
			Phone:          target.Phone,
		}
		if err := h.Ring.StartRing(ctx, req); err != nil {
			// Fall back to ringing the software client alone rather than
			// losing the caller.
			log.Warn("simultaneous ring failed to start, dequeueing single leg", "err", err)
			c.JSON(http.StatusOK, h.dequeueInstruction(form.TaskSID, target.ContactURI))
			return
		}
		log.Info("simultaneous ring started", "client", target.ContactURI)
		// No instruction: the reservation stays pending until a ring leg
		// answers and the coordinator accepts it.
		c.JSON(http.StatusOK, gin.H{})

	default:
		c.JSON(http.StatusOK, h.dequeueInstruction(form.TaskSID, target.Contact()))
	}
}

// HandleCallEnded is the dequeue status callback: the authoritative trigger
// for releasing the worker once the bridged call ends.
func (h *Handler) HandleCallEnded(c *gin.Context) {
	log := logger.FromGin(c)
	metrics.WebhookEvents.WithLabelValues("call_ended").Inc()

	form, err := webhook.ParseCallStatus(c.Request)
	if err != nil {
		log.Warn("call-ended parse failed", "err", err)
		c.Status(http.StatusBadRequest)
		return
	}

	taskSID := c.Query("task")
	if taskSID == "" {
		log.Warn("call-ended callback without task linkage, dropping", "call", form.CallSID)
		c.Status(http.StatusNoContent)
		return
	}
	if !CallStatusTerminal(form.CallStatus) {
		c.Status(http.StatusNoContent)
		return
	}

	if err := h.Platform.CompleteTask(c.Request.Context(), taskSID, "call ended"); err != nil {
		if platform.IsAlreadyTerminal(err) {
			log.Debug("task already finalized", "task", taskSID)
		} else {
			log.Warn("task completion failed", "task", taskSID, "err", err)
		}
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) dequeueInstruction(taskSID, to string) Instruction {
	q := url.Values{}
	q.Set("task", taskSID)
	return Dequeue(
		to,
		h.Cfg.CallerID,
		h.Cfg.RingTimeoutSeconds,
		h.Cfg.PostWorkActivitySID,
		h.Cfg.PublicBaseURL+"/webhooks/taskrouter/call-ended?"+q.Encode(),
	)
}

// redirectToVoicemail cancels the routing task and points the inbound call
// at the recording pipeline. Failures are logged and swallowed: the call's
// audio path is driven by command responses, not by these side effects.
func (h *Handler) redirectToVoicemail(ctx context.Context, log *slog.Logger, taskSID, callSID string) {
	if !h.once(ctx, "vm-redirect:"+taskSID) {
		log.Debug("voicemail redirect already handled", "task", taskSID)
		return
	}

	if err := h.Platform.CancelTask(ctx, taskSID, "redirected to voicemail"); err != nil {
		if platform.IsAlreadyTerminal(err) {
			log.Debug("task already terminal before voicemail cancel", "task", taskSID)
		} else {
			log.Warn("voicemail task cancel failed", "task", taskSID, "err", err)
		}
	}

	q := url.Values{}
	q.Set("task", taskSID)
	greetURL := h.Cfg.PublicBaseURL + "/webhooks/voicemail/greet?" + q.Encode()
	if err := h.Platform.RedirectCall(ctx, callSID, greetURL); err != nil {
		if platform.IsAlreadyTerminal(err) {
			log.Debug("call already terminal before voicemail redirect", "call", callSID)
		} else {
			log.Warn("voicemail redirect failed", "call", callSID, "err", err)
		}
		return
	}
	log.Info("call redirected to voicemail", "task", taskSID, "call", callSID)
}
