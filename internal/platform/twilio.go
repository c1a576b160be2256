package platform

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
	taskrouter "github.com/twilio/twilio-go/rest/taskrouter/v1"

	"dialdesk/internal/config"
)

// participantDateLayout is the RFC 2822 shape the REST API uses for
// conference participant timestamps.
const participantDateLayout = time.RFC1123Z

// TwilioClient implements Client against Twilio Programmable Voice and
// TaskRouter.
type TwilioClient struct {
	rest         *twilio.RestClient
	workspaceSID string
}

func NewTwilioClient(cfg config.PlatformConfig) *TwilioClient {
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioClient{rest: rest, workspaceSID: cfg.WorkspaceSID}
}

func (c *TwilioClient) CreateCall(ctx context.Context, p CreateCallParams) (string, error) {
	params := &api.CreateCallParams{}
	params.SetTo(p.To)
	params.SetFrom(p.From)
	params.SetUrl(p.TwiMLURL)
	params.SetMethod(http.MethodPost)
	if p.TimeoutSeconds > 0 {
		params.SetTimeout(p.TimeoutSeconds)
	}
	if p.StatusCallbackURL != "" {
		params.SetStatusCallback(p.StatusCallbackURL)
		params.SetStatusCallbackMethod(http.MethodPost)
		params.SetStatusCallbackEvent([]string{"initiated", "ringing", "answered", "completed"})
	}

	call, err := c.rest.Api.CreateCall(params)
	if err != nil {
		return "", fmt.Errorf("create call to %s: %w", p.To, err)
	}
	if call.Sid == nil {
		return "", fmt.Errorf("create call to %s: response carried no sid", p.To)
	}
	return *call.Sid, nil
}

func (c *TwilioClient) CancelCall(ctx context.Context, callSID string) error {
	params := &api.UpdateCallParams{}
	params.SetStatus("completed")
	if _, err := c.rest.Api.UpdateCall(callSID, params); err != nil {
		return fmt.Errorf("cancel call %s: %w", callSID, err)
	}
	return nil
}

func (c *TwilioClient) RedirectCall(ctx context.Context, callSID, twimlURL string) error {
	params := &api.UpdateCallParams{}
	params.SetUrl(twimlURL)
	params.SetMethod(http.MethodPost)
	if _, err := c.rest.Api.UpdateCall(callSID, params); err != nil {
		return fmt.Errorf("redirect call %s: %w", callSID, err)
	}
	return nil
}

func (c *TwilioClient) ListParticipants(ctx context.Context, conferenceName string) ([]Participant, error) {
	confParams := &api.ListConferenceParams{}
	confParams.SetFriendlyName(conferenceName)
	confParams.SetStatus("in-progress")
	confParams.SetLimit(1)

	confs, err := c.rest.Api.ListConference(confParams)
	if err != nil {
		return nil, fmt.Errorf("list conference %q: %w", conferenceName, err)
	}
	if len(confs) == 0 || confs[0].Sid == nil {
		return nil, fmt.Errorf("conference %q: %w", conferenceName, ErrNotFound)
	}

	raw, err := c.rest.Api.ListParticipant(*confs[0].Sid, &api.ListParticipantParams{})
	if err != nil {
		return nil, fmt.Errorf("list participants of %q: %w", conferenceName, err)
	}

	out := make([]Participant, 0, len(raw))
	for _, p := range raw {
		if p.CallSid == nil {
			continue
		}
		joined := time.Time{}
		if p.DateCreated != nil {
			if t, perr := time.Parse(participantDateLayout, *p.DateCreated); perr == nil {
				joined = t
			}
		}
		out = append(out, Participant{CallSID: *p.CallSid, JoinedAt: joined})
	}
	return out, nil
}

func (c *TwilioClient) CompleteTask(ctx context.Context, taskSID, reason string) error {
	params := &taskrouter.UpdateTaskParams{}
	params.SetAssignmentStatus("completed")
	if reason != "" {
		params.SetReason(reason)
	}
	if _, err := c.rest.TaskrouterV1.UpdateTask(c.workspaceSID, taskSID, params); err != nil {
		return fmt.Errorf("complete task %s: %w", taskSID, err)
	}
	return nil
}

func (c *TwilioClient) CancelTask(ctx context.Context, taskSID, reason string) error {
	params := &taskrouter.UpdateTaskParams{}
	params.SetAssignmentStatus("canceled")
	if reason != "" {
		params.SetReason(reason)
	}
	if _, err := c.rest.TaskrouterV1.UpdateTask(c.workspaceSID, taskSID, params); err != nil {
		return fmt.Errorf("cancel task %s: %w", taskSID, err)
	}
	return nil
}

func (c *TwilioClient) AcceptReservation(ctx context.Context, taskSID, reservationSID string) error {
	params := &taskrouter.UpdateTaskReservationParams{}
	params.SetReservationStatus("accepted")
	if _, err := c.rest.TaskrouterV1.UpdateTaskReservation(c.workspaceSID, taskSID, reservationSID, params); err != nil {
		return fmt.Errorf("accept reservation %s for task %s: %w", reservationSID, taskSID, err)
	}
	return nil
}

func (c *TwilioClient) FindWorkerByName(ctx context.Context, friendlyName string) (string, error) {
	params := &taskrouter.ListWorkerParams{}
	params.SetFriendlyName(friendlyName)
	params.SetLimit(1)

	workers, err := c.rest.TaskrouterV1.ListWorker(c.workspaceSID, params)
	if err != nil {
		return "", fmt.Errorf("find worker %q: %w", friendlyName, err)
	}
	if len(workers) == 0 || workers[0].Sid == nil {
		return "", nil
	}
	return *workers[0].Sid, nil
}

func (c *TwilioClient) CreateWorker(ctx context.Context, friendlyName, attributesJSON string) (string, error) {
	params := &taskrouter.CreateWorkerParams{}
	params.SetFriendlyName(friendlyName)
	if attributesJSON != "" {
		params.SetAttributes(attributesJSON)
	}

	w, err := c.rest.TaskrouterV1.CreateWorker(c.workspaceSID, params)
	if err != nil {
		return "", fmt.Errorf("create worker %q: %w", friendlyName, err)
	}
	if w.Sid == nil {
		return "", fmt.Errorf("create worker %q: response carried no sid", friendlyName)
	}
	return *w.Sid, nil
}

func (c *TwilioClient) SetWorkerActivity(ctx context.Context, workerSID, activitySID string) error {
	params := &taskrouter.UpdateWorkerParams{}
	params.SetActivitySid(activitySID)
	if _, err := c.rest.TaskrouterV1.UpdateWorker(c.workspaceSID, workerSID, params); err != nil {
		return fmt.Errorf("set worker %s activity: %w", workerSID, err)
	}
	return nil
}

var _ Client = (*TwilioClient)(nil)
