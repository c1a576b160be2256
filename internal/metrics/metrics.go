package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the routing webhook surface. Registered on the default
// registry and exposed via /metrics.
var (
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dialdesk",
		Name:      "webhook_events_total",
		Help:      "Webhook deliveries processed, by event family.",
	}, []string{"type"})

	CancelCommands = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dialdesk",
		Name:      "cancel_commands_total",
		Help:      "Leg cancellation commands issued (including no-op repeats).",
	})

	RaceResolutions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dialdesk",
		Name:      "ring_race_resolutions_total",
		Help:      "Simultaneous-ring races resolved to a single winning leg.",
	})

	VoicemailRecords = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dialdesk",
		Name:      "voicemail_records_total",
		Help:      "Voicemail recordings persisted.",
	})

	PresenceUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dialdesk",
		Name:      "presence_updates_total",
		Help:      "Presence updates by outcome (synced, store_only).",
	}, []string{"outcome"})
)
