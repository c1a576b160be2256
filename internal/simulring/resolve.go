package simulring

import "dialdesk/internal/platform"

// Resolve decides which legs to cancel once a participant joins a ring
// conference. It is a pure function of the freshly fetched participant list
// so that both detection paths (conference-membership-driven and
// call-status-driven) can run it redundantly and converge on one outcome.
//
// Rules:
//   - Fewer than 3 participants: no decision yet (caller alone, or caller
//     plus one still-ringing leg).
//   - Otherwise the earliest-joined participant is the original caller and
//     is never selected; the just-joined winner is never selected; every
//     other leg is canceled.
func Resolve(participants []platform.Participant, winnerCallSID string) []string {
	if len(participants) < 3 {
		return nil
	}

	caller := participants[0]
	for _, p := range participants[1:] {
		if p.JoinedAt.Before(caller.JoinedAt) {
			caller = p
		}
	}

	var cancel []string
	for _, p := range participants {
		if p.CallSID == caller.CallSID || p.CallSID == winnerCallSID {
			continue
		}
		cancel = append(cancel, p.CallSID)
	}
	return cancel
}
