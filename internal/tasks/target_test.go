package tasks

import (
	"testing"

	"dialdesk/internal/webhook"
)

func TestClassifyTarget_VoicemailSink(t *testing.T) {
	target := ClassifyTarget(webhook.WorkerAttributes{ContactURI: "client:voicemail-sink"}, "client:voicemail-sink")
	if target.Kind != TargetVoicemailSink {
		t.Fatalf("expected sink variant, got %+v", target)
	}
	if target.RingCapable() {
		t.Fatalf("sink must not be ring capable")
	}
}

func TestClassifyTarget_RingCapableWorker(t *testing.T) {
	target := ClassifyTarget(webhook.WorkerAttributes{ContactURI: "client:alice", Phone: "+15552223333"}, "client:voicemail-sink")
	if target.Kind != TargetWorker {
		t.Fatalf("expected worker variant")
	}
	if !target.RingCapable() {
		t.Fatalf("two endpoints should be ring capable")
	}
}

func TestClassifyTarget_SingleEndpoint(t *testing.T) {
	target := ClassifyTarget(webhook.WorkerAttributes{ContactURI: "client:bob"}, "client:voicemail-sink")
	if target.RingCapable() {
		t.Fatalf("one endpoint must not be ring capable")
	}
	if target.Contact() != "client:bob" {
		t.Fatalf("expected client contact, got %q", target.Contact())
	}

	phoneOnly := ClassifyTarget(webhook.WorkerAttributes{Phone: "+15554445555"}, "")
	if phoneOnly.Contact() != "+15554445555" {
		t.Fatalf("expected phone fallback, got %q", phoneOnly.Contact())
	}
}
