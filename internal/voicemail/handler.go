package voicemail

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dialdesk/internal/metrics"
	"dialdesk/internal/platform"
	"dialdesk/internal/webhook"
	"dialdesk/pkg/logger"
)

// Config carries the recording pipeline knobs.
type Config struct {
	PublicBaseURL    string
	Greeting         string
	MaxLengthSeconds int
}

// Notifier is invoked after a transcription lands. Delivery is best-effort;
// a failure never affects the webhook response.
type Notifier func(ctx context.Context, rec Record) error

// Pipeline drives the caller from the routing queue into a recorded message:
// queue exit, greeting, recording, and the late transcription callback.
type Pipeline struct {
	Platform platform.TaskCommands
	Repo     Repository
	Cfg      Config

	// Notify may be nil.
	Notify Notifier
}

// HandleQueueResult is the enqueue action callback. A caller who was bridged
// or hung up needs nothing more; anyone else fell out of the queue and gets
// the voicemail greeting.
func (p *Pipeline) HandleQueueResult(c *gin.Context) {
	log := logger.FromGin(c)
	metrics.WebhookEvents.WithLabelValues("queue_result").Inc()

	form, err := webhook.ParseQueueResult(c.Request)
	if err != nil {
		log.Warn("queue result parse failed", "err", err)
		c.Status(http.StatusBadRequest)
		return
	}

	switch form.QueueResult {
	case "bridged", "hangup":
		tw, err := webhook.RenderEmpty()
		p.respondTwiML(c, tw, err)
		return
	}

	log.Info("caller left queue unbridged, starting voicemail",
		"call", form.CallSID, "result", form.QueueResult)
	tw, err := p.greetTwiML(c.Query("task"))
	p.respondTwiML(c, tw, err)
}

// HandleGreet serves the greeting for calls redirected into the pipeline.
func (p *Pipeline) HandleGreet(c *gin.Context) {
	metrics.WebhookEvents.WithLabelValues("voicemail_greet").Inc()
	tw, err := p.greetTwiML(c.Query("task"))
	p.respondTwiML(c, tw, err)
}

// HandleRecording is the recording-complete callback. A zero-duration
// recording means the caller hung up without speaking; nothing is persisted
// but the task is still finalized so it cannot be re-routed.
func (p *Pipeline) HandleRecording(c *gin.Context) {
	log := logger.FromGin(c)
	metrics.WebhookEvents.WithLabelValues("voicemail_recording").Inc()

	form, err := webhook.ParseRecording(c.Request)
	if err != nil {
		log.Warn("recording parse failed", "err", err)
		c.Status(http.StatusBadRequest)
		return
	}

	ctx := c.Request.Context()
	taskSID := c.Query("task")

	if form.DurationSeconds == 0 {
		log.Info("empty recording, no message persisted", "call", form.CallSID)
		p.finalizeTask(ctx, log, taskSID, "voicemail - no message")
		tw, rerr := webhook.RenderHangup()
		p.respondTwiML(c, tw, rerr)
		return
	}

	rec := Record{
		ID:              uuid.NewString(),
		CallSID:         form.CallSID,
		RecordingSID:    form.RecordingSID,
		RecordingURL:    form.RecordingURL,
		DurationSeconds: form.DurationSeconds,
		CreatedAt:       time.Now().UTC(),
	}
	if err := p.Repo.Insert(ctx, rec); err != nil {
		// The recording still lives on the platform; losing the row is
		// recoverable, losing the caller's goodbye is not.
		log.Error("voicemail record insert failed", "recording", rec.RecordingSID, "err", err)
	} else {
		metrics.VoicemailRecords.Inc()
	}

	p.finalizeTask(ctx, log, taskSID, "voicemail left")
	tw, rerr := webhook.RenderSayHangup("Thank you. Your message has been recorded. Goodbye.")
	p.respondTwiML(c, tw, rerr)
}

// HandleTranscription is the asynchronous transcription callback. It may
// arrive minutes after the call ended; an unknown recording is dropped.
func (p *Pipeline) HandleTranscription(c *gin.Context) {
	log := logger.FromGin(c)
	metrics.WebhookEvents.WithLabelValues("voicemail_transcription").Inc()

	form, err := webhook.ParseTranscription(c.Request)
	if err != nil {
		log.Warn("transcription parse failed", "err", err)
		c.Status(http.StatusBadRequest)
		return
	}
	if form.Status != "completed" {
		log.Debug("transcription not completed, ignoring",
			"recording", form.RecordingSID, "status", form.Status)
		c.Status(http.StatusNoContent)
		return
	}

	ctx := c.Request.Context()
	if err := p.Repo.SetTranscription(ctx, form.RecordingSID, form.TranscriptionText); err != nil {
		if err == ErrNotFound {
			log.Warn("transcription for unknown recording, dropping", "recording", form.RecordingSID)
		} else {
			log.Error("transcription update failed", "recording", form.RecordingSID, "err", err)
		}
		c.Status(http.StatusNoContent)
		return
	}

	if p.Notify != nil {
		rec, gerr := p.Repo.GetByRecordingSID(ctx, form.RecordingSID)
		if gerr == nil {
			if nerr := p.Notify(ctx, rec); nerr != nil {
				log.Warn("voicemail notification failed", "recording", form.RecordingSID, "err", nerr)
			}
		}
	}
	c.Status(http.StatusNoContent)
}

func (p *Pipeline) greetTwiML(taskSID string) (string, error) {
	action := p.Cfg.PublicBaseURL + "/webhooks/voicemail/recording"
	if taskSID != "" {
		q := url.Values{}
		q.Set("task", taskSID)
		action += "?" + q.Encode()
	}
	return webhook.RenderVoicemailPrompt(webhook.VoicemailPrompt{
		Greeting:           p.Cfg.Greeting,
		MaxLengthSeconds:   p.Cfg.MaxLengthSeconds,
		ActionURL:          action,
		TranscribeCallback: p.Cfg.PublicBaseURL + "/webhooks/voicemail/transcription",
	})
}

// finalizeTask completes the routing task that delivered the caller to
// voicemail. The task may already be terminal from the redirect path; that
// is normal, not an error.
func (p *Pipeline) finalizeTask(ctx context.Context, log *slog.Logger, taskSID, reason string) {
	if taskSID == "" {
		return
	}
	if err := p.Platform.CompleteTask(ctx, taskSID, reason); err != nil {
		if platform.IsAlreadyTerminal(err) {
			log.Debug("task already finalized", "task", taskSID)
			return
		}
		log.Warn("task finalize failed", "task", taskSID, "err", err)
	}
}

func (p *Pipeline) respondTwiML(c *gin.Context, twiml string, err error) {
	if err != nil {
		logger.FromGin(c).Error("twiml render failed", "err", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, twiml)
}
