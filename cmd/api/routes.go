package main

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"dialdesk/internal/auth"
	"dialdesk/internal/config"
	"dialdesk/internal/platform"
	"dialdesk/internal/presence"
	"dialdesk/internal/simulring"
	"dialdesk/internal/tasks"
	"dialdesk/internal/voicemail"
	"dialdesk/internal/webhook"
	"dialdesk/pkg/utils"
)

// onceGuardTTL bounds how long a claimed dedupe key stays held. Long enough
// to cover webhook retry storms, short enough that a crashed handler does
// not wedge a task forever.
const onceGuardTTL = 10 * time.Minute

type registerDeps struct {
	cfg         config.Config
	authManager *auth.Manager
	db          *sql.DB
	rdb         *redis.Client
	log         *slog.Logger
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, deps registerDeps) {
	cfg := deps.cfg

	client := platform.NewTwilioClient(cfg.Platform)

	coordinator := &simulring.Coordinator{
		Platform: client,
		Cfg: simulring.Config{
			PublicBaseURL:      cfg.Routing.PublicBaseURL,
			CallerID:           cfg.Routing.CallerID,
			RingTimeoutSeconds: cfg.Routing.RingTimeoutSeconds,
		},
	}

	taskHandler := &tasks.Handler{
		Platform: client,
		Ring:     coordinator,
		Cfg: tasks.Config{
			VoicemailQueueSID:    cfg.Platform.VoicemailQueueSID,
			VoicemailSinkContact: cfg.Platform.VoicemailSinkContact,
			CallerID:             cfg.Routing.CallerID,
			RingTimeoutSeconds:   cfg.Routing.RingTimeoutSeconds,
			PostWorkActivitySID:  cfg.Platform.PostWorkActivitySID,
			PublicBaseURL:        cfg.Routing.PublicBaseURL,
		},
		Once: redisOnce(deps.rdb, deps.log),
	}

	pipeline := &voicemail.Pipeline{
		Platform: client,
		Repo:     voicemail.NewPostgresRepo(deps.db),
		Cfg: voicemail.Config{
			PublicBaseURL:    cfg.Routing.PublicBaseURL,
			Greeting:         "No one is available to take your call. Please leave a message after the beep.",
			MaxLengthSeconds: cfg.Routing.VoicemailMaxSeconds,
		},
	}

	presenceService := &presence.Service{
		Registry:    client,
		Store:       presence.NewPostgresStore(deps.db),
		Broadcaster: presence.NewBroadcaster(),
		Cfg: presence.Config{
			AvailableActivitySID:   cfg.Platform.AvailableActivitySID,
			UnavailableActivitySID: cfg.Platform.UnavailableActivitySID,
			OfflineActivitySID:     cfg.Platform.OfflineActivitySID,
		},
		Log: deps.log,
	}
	presenceHandler := &presence.HTTPHandler{Service: presenceService}

	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), deps.db, 2*time.Second); err != nil {
			c.JSON(503, gin.H{"status": "degraded"})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Provider webhooks. Every route in this group must present a valid
	// request signature computed against the public base URL.
	verifier := webhook.NewVerifier(
		cfg.Platform.AuthToken,
		cfg.Routing.PublicBaseURL,
		cfg.Routing.WebhookAllowUnsigned,
	)
	hooks := r.Group("/webhooks")
	hooks.Use(verifier.Middleware())
	{
		hooks.POST("/taskrouter/events", taskHandler.HandleEvent)
		hooks.POST("/taskrouter/assignment", taskHandler.HandleAssignment)
		hooks.POST("/taskrouter/call-ended", taskHandler.HandleCallEnded)

		hooks.POST("/ring/join", coordinator.HandleJoin)
		hooks.POST("/ring/conference", coordinator.HandleConferenceEvent)
		hooks.POST("/ring/status", coordinator.HandleLegStatus)

		hooks.POST("/voicemail/queue-result", pipeline.HandleQueueResult)
		hooks.POST("/voicemail/greet", pipeline.HandleGreet)
		hooks.POST("/voicemail/recording", pipeline.HandleRecording)
		hooks.POST("/voicemail/transcription", pipeline.HandleTranscription)
	}

	// Worker client API.
	v1 := r.Group("/v1")
	v1.Use(auth.RequireWorkerToken(deps.authManager))
	{
		v1.GET("/presence", presenceHandler.HandleGet)
		v1.POST("/presence", presenceHandler.HandleSet)
		v1.POST("/presence/heartbeat", presenceHandler.HandleHeartbeat)
		v1.GET("/presence/stream", presenceHandler.HandleStream)
	}
}

// redisOnce adapts the shared redis guard to the handler's OnceFunc. A guard
// error degrades to "claim succeeded" so a redis outage cannot stall call
// routing; the downstream commands are idempotent either way.
func redisOnce(rdb *redis.Client, log *slog.Logger) tasks.OnceFunc {
	return func(ctx context.Context, key string) bool {
		ok, err := utils.AcquireOnce(ctx, rdb, key, onceGuardTTL)
		if err != nil {
			log.Warn("once guard unavailable, proceeding", "key", key, "err", err)
			return true
		}
		return ok
	}
}
