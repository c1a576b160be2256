package simulring

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"dialdesk/internal/metrics"
	"dialdesk/internal/platform"
	"dialdesk/internal/webhook"
	"dialdesk/pkg/logger"
)

// HandleJoin returns the TwiML that drops a leg (or the caller) into the
// task's ring conference.
func (co *Coordinator) HandleJoin(c *gin.Context) {
	taskSID := c.Query("task")
	if taskSID == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	q := url.Values{}
	q.Set("task", taskSID)
	q.Set("rsvp", c.Query("rsvp"))

	twiml, err := webhook.RenderConferenceJoin(webhook.ConferenceJoin{
		Name:              ConferenceName(taskSID),
		StatusCallbackURL: co.Cfg.PublicBaseURL + "/webhooks/ring/conference?" + q.Encode(),
		// The conference must not outlive the caller, and a losing leg must
		// not tear it down.
		EndOnExit: c.Query("role") == "caller",
	})
	if err != nil {
		logger.FromGin(c).Error("conference join render failed", "err", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, twiml)
}

// HandleConferenceEvent is the primary race-resolution path: a participant
// joined a ring conference, so fetch the live membership and settle the race.
func (co *Coordinator) HandleConferenceEvent(c *gin.Context) {
	log := logger.FromGin(c)
	metrics.WebhookEvents.WithLabelValues("conference").Inc()

	form, err := webhook.ParseConferenceEvent(c.Request)
	if err != nil {
		log.Warn("conference event parse failed", "err", err)
		c.Status(http.StatusBadRequest)
		return
	}
	if form.Event != "participant-join" || !IsRingConference(form.FriendlyName) {
		c.Status(http.StatusNoContent)
		return
	}

	ctx := c.Request.Context()
	participants, err := co.Platform.ListParticipants(ctx, form.FriendlyName)
	if err != nil {
		// The conference may already be gone; the status fallback path will
		// have settled or will settle the race.
		log.Warn("participant fetch failed, dropping event",
			"conference", form.FriendlyName, "err", err)
		c.Status(http.StatusNoContent)
		return
	}

	cancel := Resolve(participants, form.CallSID)
	if len(participants) >= 3 {
		taskSID := TaskFromConference(form.FriendlyName)
		log.Info("ring race resolved",
			"task", taskSID, "winner", form.CallSID, "losers", len(cancel))
		metrics.RaceResolutions.Inc()

		co.cancelLegs(c, cancel)
		co.acceptReservation(c, taskSID, c.Query("rsvp"))
	}

	c.Status(http.StatusNoContent)
}

// HandleLegStatus is the secondary race-resolution path: a ring leg reported
// its own status before the participant-join event was observed.
func (co *Coordinator) HandleLegStatus(c *gin.Context) {
	log := logger.FromGin(c)
	metrics.WebhookEvents.WithLabelValues("ring_status").Inc()

	form, err := webhook.ParseCallStatus(c.Request)
	if err != nil {
		log.Warn("ring status parse failed", "err", err)
		c.Status(http.StatusBadRequest)
		return
	}

	taskSID := c.Query("task")
	if taskSID == "" {
		log.Warn("ring status without task linkage, dropping", "call", form.CallSID)
		c.Status(http.StatusNoContent)
		return
	}

	ctx := c.Request.Context()
	switch form.CallStatus {
	case "initiated", "ringing":
		participants, err := co.Platform.ListParticipants(ctx, ConferenceName(taskSID))
		if err != nil {
			c.Status(http.StatusNoContent)
			return
		}
		// Two or more participants means the other side already answered;
		// this still-ringing leg lost.
		if len(participants) >= 2 {
			log.Info("canceling losing ring leg", "task", taskSID, "call", form.CallSID, "leg", c.Query("leg"))
			co.cancelLegs(c, []string{form.CallSID})
		}

	case "in-progress":
		// Some ring targets (a cellular answer) never traverse the native
		// accept flow, so accept the pending reservation from here.
		co.acceptReservation(c, taskSID, c.Query("rsvp"))

	case "completed":
		// The bridged leg ended. Ring legs bypass the dequeue path, so this
		// callback is their only end-of-call signal; finalize the task here
		// the way the dequeue status callback does. Only "completed" counts:
		// losing legs end as canceled/busy/no-answer without ever having
		// carried the caller, and must not finalize a live task.
		log.Info("ring leg call ended, finalizing task", "task", taskSID, "call", form.CallSID)
		if err := co.Platform.CompleteTask(ctx, taskSID, "call ended"); err != nil {
			if platform.IsAlreadyTerminal(err) {
				log.Debug("task already finalized", "task", taskSID)
			} else {
				log.Warn("task completion failed", "task", taskSID, "err", err)
			}
		}
	}

	c.Status(http.StatusNoContent)
}

// cancelLegs issues best-effort, idempotent cancellations. A leg that ended
// through an independent path is not an error.
func (co *Coordinator) cancelLegs(c *gin.Context, callSIDs []string) {
	log := logger.FromGin(c)
	ctx := c.Request.Context()
	for _, sid := range callSIDs {
		metrics.CancelCommands.Inc()
		if err := co.Platform.CancelCall(ctx, sid); err != nil {
			if platform.IsAlreadyTerminal(err) {
				log.Debug("leg already ended", "call", sid)
				continue
			}
			log.Warn("leg cancel failed", "call", sid, "err", err)
		}
	}
}

// acceptReservation is idempotent: both resolution paths may issue it.
func (co *Coordinator) acceptReservation(c *gin.Context, taskSID, reservationSID string) {
	if reservationSID == "" {
		return
	}
	log := logger.FromGin(c)
	if err := co.Platform.AcceptReservation(c.Request.Context(), taskSID, reservationSID); err != nil {
		if platform.IsAlreadyTerminal(err) {
			log.Debug("reservation already settled", "reservation", reservationSID)
			return
		}
		log.Warn("reservation accept failed", "reservation", reservationSID, "err", err)
	}
}
