package platform

import (
	"errors"
	"fmt"
	"testing"

	twclient "github.com/twilio/twilio-go/client"
)

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(ErrNotFound) {
		t.Fatalf("sentinel should be not-found")
	}
	wrapped := fmt.Errorf("conference %q: %w", "ring-WT1", ErrNotFound)
	if !IsNotFound(wrapped) {
		t.Fatalf("wrapped sentinel should be not-found")
	}
	rest := &twclient.TwilioRestError{Status: 404, Code: errorCodeResourceNotFound}
	if !IsNotFound(fmt.Errorf("cancel call CA1: %w", rest)) {
		t.Fatalf("rest 404 should be not-found")
	}
	if IsNotFound(errors.New("boom")) {
		t.Fatalf("plain error should not be not-found")
	}
}

func TestIsConflict(t *testing.T) {
	rest := &twclient.TwilioRestError{Status: 409}
	if !IsConflict(fmt.Errorf("set worker activity: %w", rest)) {
		t.Fatalf("409 should be conflict")
	}
	if IsConflict(&twclient.TwilioRestError{Status: 500}) {
		t.Fatalf("500 should not be conflict")
	}
	if IsConflict(errors.New("boom")) {
		t.Fatalf("plain error should not be conflict")
	}
}

func TestIsAlreadyTerminal(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{&twclient.TwilioRestError{Status: 404}, true},
		{&twclient.TwilioRestError{Status: 400, Code: errorCodeCallNotActive}, true},
		{&twclient.TwilioRestError{Status: 400}, true},
		{&twclient.TwilioRestError{Status: 500}, false},
		{errors.New("network down"), false},
	}
	for i, tc := range cases {
		if got := IsAlreadyTerminal(tc.err); got != tc.want {
			t.Fatalf("case %d: got %v, want %v", i, got, tc.want)
		}
	}
}
