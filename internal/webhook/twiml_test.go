package webhook

import (
	"strings"
	"testing"
)

func TestRenderConferenceJoin(t *testing.T) {
	xml, err := RenderConferenceJoin(ConferenceJoin{
		Name:              "ring-WT42",
		StatusCallbackURL: "https://calls.example.com/webhooks/ring/conference?task=WT42",
		EndOnExit:         true,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for _, want := range []string{
		"<Dial>",
		"ring-WT42",
		`statusCallbackEvent="join"`,
		`endConferenceOnExit="true"`,
		`startConferenceOnEnter="true"`,
	} {
		if !strings.Contains(xml, want) {
			t.Fatalf("expected %q in xml: %s", want, xml)
		}
	}
}

func TestRenderVoicemailPrompt(t *testing.T) {
	xml, err := RenderVoicemailPrompt(VoicemailPrompt{
		Greeting:           "Nobody is available. Please leave a message.",
		MaxLengthSeconds:   120,
		ActionURL:          "https://calls.example.com/webhooks/voicemail/recording?task=WT42",
		TranscribeCallback: "https://calls.example.com/webhooks/voicemail/transcription",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for _, want := range []string{
		"<Say>Nobody is available. Please leave a message.</Say>",
		`maxLength="120"`,
		`transcribe="true"`,
		`transcribeCallback="https://calls.example.com/webhooks/voicemail/transcription"`,
	} {
		if !strings.Contains(xml, want) {
			t.Fatalf("expected %q in xml: %s", want, xml)
		}
	}
}

func TestRenderEmpty(t *testing.T) {
	xml, err := RenderEmpty()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(xml, "<Response") {
		t.Fatalf("expected a response element: %s", xml)
	}
	if strings.Contains(xml, "<Say") || strings.Contains(xml, "<Dial") {
		t.Fatalf("expected no verbs: %s", xml)
	}
}
