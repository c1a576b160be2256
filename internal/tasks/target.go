package tasks

import (
	"strings"

	"dialdesk/internal/webhook"
)

// TargetKind distinguishes a real worker endpoint from the reserved
// voicemail sink. The sink used to be a magic contact string compared all
// over the handlers; it is a first-class variant here so classification
// happens exactly once.
type TargetKind int

const (
	TargetWorker TargetKind = iota
	TargetVoicemailSink
)

// RoutingTarget is where a reservation would send the caller.
type RoutingTarget struct {
	Kind       TargetKind
	ContactURI string
	Phone      string
}

// RingCapable reports whether the target has two endpoints to ring at once
// (a software client and a cellular number).
func (t RoutingTarget) RingCapable() bool {
	return t.Kind == TargetWorker && t.ContactURI != "" && t.Phone != ""
}

// Contact is the single endpoint used when the target is not ring-capable.
func (t RoutingTarget) Contact() string {
	if t.ContactURI != "" {
		return t.ContactURI
	}
	return t.Phone
}

// ClassifyTarget folds a worker's registry attributes into a routing target.
// sinkContact is the reserved identity configured for the voicemail sink.
func ClassifyTarget(attrs webhook.WorkerAttributes, sinkContact string) RoutingTarget {
	contact := strings.TrimSpace(attrs.ContactURI)
	if sinkContact != "" && contact == sinkContact {
		return RoutingTarget{Kind: TargetVoicemailSink, ContactURI: contact}
	}
	return RoutingTarget{
		Kind:       TargetWorker,
		ContactURI: contact,
		Phone:      strings.TrimSpace(attrs.Phone),
	}
}
