package tasks

// Instruction is the assignment-callback response contract. The platform
// executes it synchronously, which makes it the authoritative control
// channel for the call's audio path: anything this service fails to do
// afterwards cannot un-ring the call.
type Instruction struct {
	Instruction string `json:"instruction"`

	To      string `json:"to,omitempty"`
	From    string `json:"from,omitempty"`
	Timeout int    `json:"timeout,omitempty"`

	// PostWorkActivitySID moves the worker back to an available-style
	// activity when the bridged call ends; this is the post-call presence
	// reset, not a separate poll.
	PostWorkActivitySID string `json:"post_work_activity_sid,omitempty"`

	// StatusCallbackURL is hit when the dequeued call ends; that callback
	// is what releases the worker from wrapping.
	StatusCallbackURL string `json:"status_callback_url,omitempty"`
}

// Reject declines the reservation; the platform moves to the next candidate.
func Reject() Instruction {
	return Instruction{Instruction: "reject"}
}

// Dequeue bridges the queued caller to a single worker endpoint.
func Dequeue(to, from string, timeoutSeconds int, postWorkActivitySID, statusCallbackURL string) Instruction {
	return Instruction{
		Instruction:         "dequeue",
		To:                  to,
		From:                from,
		Timeout:             timeoutSeconds,
		PostWorkActivitySID: postWorkActivitySID,
		StatusCallbackURL:   statusCallbackURL,
	}
}
