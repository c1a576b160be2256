package webhook

import (
	"bytes"
	"encoding/xml"
)

// Minimal TwiML builder in the voice-response subset this service emits.
// Command responses are the authoritative control channel for the audio
// path, so these renderers must stay dependency-free and deterministic.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Text    string   `xml:",chardata"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

type twimlRecord struct {
	XMLName            xml.Name `xml:"Record"`
	Action             string   `xml:"action,attr,omitempty"`
	Method             string   `xml:"method,attr,omitempty"`
	MaxLength          int      `xml:"maxLength,attr,omitempty"`
	PlayBeep           bool     `xml:"playBeep,attr"`
	Transcribe         bool     `xml:"transcribe,attr"`
	TranscribeCallback string   `xml:"transcribeCallback,attr,omitempty"`
}

type twimlDial struct {
	XMLName    xml.Name         `xml:"Dial"`
	Conference *twimlConference `xml:"Conference,omitempty"`
}

type twimlConference struct {
	Name                   string `xml:",chardata"`
	StatusCallback         string `xml:"statusCallback,attr,omitempty"`
	StatusCallbackEvent    string `xml:"statusCallbackEvent,attr,omitempty"`
	StartConferenceOnEnter bool   `xml:"startConferenceOnEnter,attr"`
	EndConferenceOnExit    bool   `xml:"endConferenceOnExit,attr"`
}

// ConferenceJoin describes a leg joining a named conference.
type ConferenceJoin struct {
	Name string

	// StatusCallbackURL receives participant join events for the conference.
	StatusCallbackURL string

	// EndOnExit tears the conference down when this leg leaves. Set for the
	// caller so losing legs can never strand the bridge.
	EndOnExit bool
}

// VoicemailPrompt describes the announce-then-record response.
type VoicemailPrompt struct {
	Greeting           string
	MaxLengthSeconds   int
	ActionURL          string
	TranscribeCallback string
}

// RenderConferenceJoin emits TwiML that drops a leg into the conference.
func RenderConferenceJoin(j ConferenceJoin) (string, error) {
	return render(twimlDial{Conference: &twimlConference{
		Name:                   j.Name,
		StatusCallback:         j.StatusCallbackURL,
		StatusCallbackEvent:    "join",
		StartConferenceOnEnter: true,
		EndConferenceOnExit:    j.EndOnExit,
	}})
}

// RenderVoicemailPrompt emits the unavailability announcement and a bounded
// recording with asynchronous transcription.
func RenderVoicemailPrompt(p VoicemailPrompt) (string, error) {
	return render(
		twimlSay{Text: p.Greeting},
		twimlRecord{
			Action:             p.ActionURL,
			Method:             "POST",
			MaxLength:          p.MaxLengthSeconds,
			PlayBeep:           true,
			Transcribe:         true,
			TranscribeCallback: p.TranscribeCallback,
		},
	)
}

// RenderSayHangup emits a final message followed by hangup.
func RenderSayHangup(text string) (string, error) {
	return render(twimlSay{Text: text}, twimlHangup{})
}

// RenderHangup emits a bare hangup.
func RenderHangup() (string, error) {
	return render(twimlHangup{})
}

// RenderEmpty emits an empty response (acknowledge, change nothing).
func RenderEmpty() (string, error) {
	return render()
}

func render(verbs ...any) (string, error) {
	r := twimlResponse{Verbs: verbs}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
