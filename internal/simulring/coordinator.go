package simulring

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"dialdesk/internal/platform"
	"dialdesk/pkg/logger"
)

// Config carries the knobs for originating ring legs.
type Config struct {
	PublicBaseURL      string
	CallerID           string
	RingTimeoutSeconds int
}

// Coordinator rings one recipient at two endpoints and bridges whichever
// answers first, without the caller perceiving the race or the loser.
//
// There is no lock anywhere in this flow: both legs, the caller, and every
// webhook about them may be handled by different processes. All decisions
// re-derive state from the platform at decision time.
type Coordinator struct {
	Platform platform.Client
	Cfg      Config
}

// StartRing originates the two outbound legs into the task's conference and
// moves the waiting caller there. Legs are originated before the caller is
// redirected so a redirect failure can still fall back to a plain dequeue:
// the caller never leaves the queue unless at least one leg exists.
func (co *Coordinator) StartRing(ctx context.Context, req RingRequest) error {
	log := logger.From(ctx).With("task", req.TaskSID, "reservation", req.ReservationSID)

	if req.CallerCallSID == "" {
		return errors.New("simulring: ring request has no caller call sid")
	}

	var legs []string
	for _, leg := range []struct{ label, to string }{
		{"client", req.ClientURI},
		{"cell", req.Phone},
	} {
		sid, err := co.Platform.CreateCall(ctx, platform.CreateCallParams{
			To:                leg.to,
			From:              co.Cfg.CallerID,
			TwiMLURL:          co.joinURL(req, "leg"),
			TimeoutSeconds:    co.Cfg.RingTimeoutSeconds,
			StatusCallbackURL: co.statusURL(req, leg.label),
		})
		if err != nil {
			log.Warn("ring leg origination failed", "leg", leg.label, "to", leg.to, "err", err)
			continue
		}
		log.Info("ring leg originated", "leg", leg.label, "call", sid)
		legs = append(legs, sid)
	}
	if len(legs) == 0 {
		return errors.New("simulring: no ring leg could be originated")
	}

	if err := co.Platform.RedirectCall(ctx, req.CallerCallSID, co.joinURL(req, "caller")); err != nil {
		// The caller is still safely queued; tear the orphan legs down and
		// let the assignment handler fall back.
		for _, sid := range legs {
			if cerr := co.Platform.CancelCall(ctx, sid); cerr != nil && !platform.IsAlreadyTerminal(cerr) {
				log.Warn("orphan leg cancel failed", "call", sid, "err", cerr)
			}
		}
		return fmt.Errorf("simulring: caller redirect: %w", err)
	}
	return nil
}

func (co *Coordinator) joinURL(req RingRequest, role string) string {
	q := url.Values{}
	q.Set("task", req.TaskSID)
	q.Set("rsvp", req.ReservationSID)
	q.Set("role", role)
	return co.Cfg.PublicBaseURL + "/webhooks/ring/join?" + q.Encode()
}

func (co *Coordinator) statusURL(req RingRequest, leg string) string {
	q := url.Values{}
	q.Set("task", req.TaskSID)
	q.Set("rsvp", req.ReservationSID)
	q.Set("leg", leg)
	return co.Cfg.PublicBaseURL + "/webhooks/ring/status?" + q.Encode()
}
