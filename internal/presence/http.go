package presence

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dialdesk/internal/auth"
	"dialdesk/pkg/logger"
)

const keepaliveInterval = 25 * time.Second

// HTTPHandler exposes the authenticated presence surface for worker clients.
type HTTPHandler struct {
	Service *Service
}

type presenceResponse struct {
	WorkerID  string `json:"worker_id"`
	Activity  string `json:"activity"`
	HasWorker bool   `json:"has_worker"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

func toResponse(p Presence) presenceResponse {
	r := presenceResponse{
		WorkerID:  p.WorkerID,
		Activity:  string(p.Activity),
		HasWorker: p.PlatformWorkerSID != "",
	}
	if !p.UpdatedAt.IsZero() {
		r.UpdatedAt = p.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return r
}

// HandleGet returns the caller's stored presence.
func (h *HTTPHandler) HandleGet(c *gin.Context) {
	workerID, err := auth.WorkerID(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	p, err := h.Service.Get(c.Request.Context(), workerID)
	if err != nil {
		logger.FromGin(c).Error("presence lookup failed", "worker", workerID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "presence lookup failed"})
		return
	}
	c.JSON(http.StatusOK, toResponse(p))
}

type setPresenceRequest struct {
	Activity string `json:"activity" binding:"required"`
}

// HandleSet updates the caller's presence.
func (h *HTTPHandler) HandleSet(c *gin.Context) {
	ctx := c.Request.Context()
	workerID, err := auth.WorkerID(ctx)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	email, _ := auth.Email(ctx)

	var req setPresenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "activity is required"})
		return
	}
	activity, err := ParseActivity(req.Activity)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.Service.SetPresence(ctx, workerID, email, activity)
	if err != nil {
		logger.FromGin(c).Error("presence update failed", "worker", workerID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "presence update failed"})
		return
	}
	c.JSON(http.StatusOK, toResponse(p))
}

// HandleHeartbeat acknowledges a client liveness ping. Presence itself
// changes only through HandleSet.
func (h *HTTPHandler) HandleHeartbeat(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// HandleStream serves the caller's presence changes over SSE. An initial
// snapshot is sent on connect, then changes as they are published, with
// keepalive comments to hold idle proxies open.
func (h *HTTPHandler) HandleStream(c *gin.Context) {
	ctx := c.Request.Context()
	workerID, err := auth.WorkerID(ctx)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	events, unsubscribe := h.Service.Broadcaster.Subscribe(workerID)
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	snapshot, err := h.Service.Get(ctx, workerID)
	if err != nil {
		logger.FromGin(c).Error("presence snapshot failed", "worker", workerID, "err", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	first := StatusEvent{Status: snapshot.Activity, HasWorker: snapshot.PlatformWorkerSID != ""}

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	writeEvent(c.Writer, first)
	c.Writer.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			writeEvent(c.Writer, ev)
			c.Writer.Flush()
		case <-keepalive.C:
			io.WriteString(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()
		}
	}
}

func writeEvent(w io.Writer, ev StatusEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	io.WriteString(w, "event: presence\ndata: ")
	w.Write(payload)
	io.WriteString(w, "\n\n")
}
