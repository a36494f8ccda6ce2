// internal/engine/reconcile.go
package engine

import (
	"context"
	"log"
	"sync"

	"github.com/ManiacDC/receiver-power-sync/internal/iscp"
	"github.com/ManiacDC/receiver-power-sync/internal/receiver"
	"github.com/ManiacDC/receiver-power-sync/internal/status"
)

// mirror handles one unsolicited primary notification: cache the new
// state and push it to every out-of-sync secondary.
func (e *Engine) mirror(ctx context.Context, s iscp.State) {
	if s == iscp.Unknown {
		return
	}

	e.primary.NotePower(s)
	e.observe(e.primary)
	log.Printf("primary reported power=%s", s)

	e.reconcile(ctx, s)
}

// resyncOnce is the timer-driven full pass: ask the primary, then run
// the same reconciliation as the event path. An unknown primary skips
// the pass entirely: acting on an unknown state could toggle
// secondaries the wrong way.
func (e *Engine) resyncOnce(ctx context.Context) {
	s := e.primary.GetPower(ctx)
	e.observe(e.primary)

	if s == iscp.Unknown {
		return
	}

	e.reconcile(ctx, s)
}

// reconcile pushes state s to every secondary whose cached state
// disagrees (an Unknown cache always disagrees, which is what makes
// the tick double as the reconnect path). Secondaries are addressed
// concurrently and independently; the pass joins on all of them before
// returning.
func (e *Engine) reconcile(ctx context.Context, s iscp.State) {
	var wg sync.WaitGroup

	for _, h := range e.secondaries {
		if h.LastKnown() == s {
			e.observe(h)
			continue
		}

		wg.Add(1)
		go func(h *receiver.Handle) {
			defer wg.Done()

			if err := h.SetPower(ctx, s); err != nil {
				log.Printf("set power failed (receiver=%s state=%s): %v", h.Name(), s, err)
			} else {
				log.Printf("set power (receiver=%s state=%s)", h.Name(), s)
			}
			e.observe(h)
		}(h)
	}

	wg.Wait()
}

// observe feeds the tracker and logs health/power transitions only,
// keeping the 10-second loop quiet while nothing changes.
func (e *Engine) observe(h *receiver.Handle) {
	snap := status.Snapshot{
		Name:  h.Name(),
		Power: h.LastKnown(),
	}
	if h.Connected() {
		snap.Health = status.HealthOK
	} else {
		snap.Health = status.HealthDown
	}

	if e.tracker.Observe(snap) {
		log.Printf("status changed (receiver=%s health=%s power=%s)", snap.Name, snap.Health, snap.Power)
	}
}
