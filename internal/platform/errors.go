package platform

import (
	"errors"
	"net/http"

	twclient "github.com/twilio/twilio-go/client"
)

// Provider error codes this service cares about.
// Ref: https://www.twilio.com/docs/api/errors
const (
	errorCodeResourceNotFound = 20404
	errorCodeCallNotActive    = 21220
)

// ErrNotFound reports that the referenced platform resource does not exist.
var ErrNotFound = errors.New("platform: resource not found")

// IsNotFound reports whether err refers to a missing platform resource.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var rest *twclient.TwilioRestError
	if errors.As(err, &rest) {
		return rest.Status == http.StatusNotFound || rest.Code == errorCodeResourceNotFound
	}
	return false
}

// IsConflict reports optimistic-concurrency rejections (409-class). Only
// presence registry updates retry on these; everything else logs and moves on.
func IsConflict(err error) bool {
	var rest *twclient.TwilioRestError
	if errors.As(err, &rest) {
		return rest.Status == http.StatusConflict
	}
	return false
}

// IsAlreadyTerminal reports that a command lost a race with the resource's
// natural termination: canceling an ended call, completing a completed task.
// Redundant resolution paths are expected to land here; callers treat it as
// success.
func IsAlreadyTerminal(err error) bool {
	if IsNotFound(err) {
		return true
	}
	var rest *twclient.TwilioRestError
	if errors.As(err, &rest) {
		if rest.Code == errorCodeCallNotActive {
			return true
		}
		// The task/reservation API reports invalid status transitions as 400s.
		return rest.Status == http.StatusBadRequest
	}
	return false
}
