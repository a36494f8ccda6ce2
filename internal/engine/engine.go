// internal/engine/engine.go
package engine

import (
	"context"
	"log"
	"time"

	cfg "github.com/ManiacDC/receiver-power-sync/internal/config"
	"github.com/ManiacDC/receiver-power-sync/internal/iscp"
	"github.com/ManiacDC/receiver-power-sync/internal/receiver"
	"github.com/ManiacDC/receiver-power-sync/internal/status"
)

// resyncInterval is the cadence of the full reconciliation pass. The
// tick doubles as the reconnect cadence for handles that are down;
// there is no separate backoff timer.
const resyncInterval = 10 * time.Second

// Engine keeps every secondary receiver's power state in lockstep with
// the primary. A single loop goroutine drains notification events and
// resync ticks, so two reconciliation passes can never interleave
// writes to the same receiver.
type Engine struct {
	primary     *receiver.Handle
	secondaries []*receiver.Handle

	events  chan iscp.State
	tracker *status.Tracker
	resync  time.Duration
}

// New builds the engine and its receiver handles from a validated,
// normalized config. Nothing is dialed here.
func New(c *cfg.Config) (*Engine, error) {
	e := &Engine{
		events:  make(chan iscp.State, 1),
		tracker: status.NewTracker(),
		resync:  resyncInterval,
	}

	primary, err := receiver.Build(c.Sync.Primary, e.notify)
	if err != nil {
		return nil, err
	}
	e.primary = primary

	for _, rc := range c.Sync.Secondaries {
		h, err := receiver.Build(rc, nil)
		if err != nil {
			return nil, err
		}
		e.secondaries = append(e.secondaries, h)
	}

	return e, nil
}

// notify is the primary's unsolicited-notification callback. It runs
// on the transport's reader goroutine, so it only queues: the loop
// goroutine does the mirroring. When the queue is full the stale event
// is replaced, last writer wins; the resync pass covers anything
// dropped. Only the primary's reader calls this, so the two steps
// cannot race another producer.
func (e *Engine) notify(s iscp.State) {
	select {
	case e.events <- s:
		return
	default:
	}

	select {
	case <-e.events:
	default:
	}
	select {
	case e.events <- s:
	default:
	}
}

// Run drives the sync loop until ctx is cancelled, then releases every
// connection.
func (e *Engine) Run(ctx context.Context) error {
	defer e.closeAll()

	// Best-effort initial connect. A receiver that is down at startup
	// is picked up by the resync cadence, never fatal.
	for _, h := range e.allHandles() {
		if err := h.EnsureConnected(ctx); err != nil {
			log.Printf("startup connect failed (receiver=%s): %v", h.Name(), err)
		} else {
			log.Printf("connected (receiver=%s)", h.Name())
		}
	}

	ticker := time.NewTicker(e.resync)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case s := <-e.events:
			e.mirror(ctx, s)

		case <-ticker.C:
			e.resyncOnce(ctx)
		}
	}
}

func (e *Engine) allHandles() []*receiver.Handle {
	all := make([]*receiver.Handle, 0, len(e.secondaries)+1)
	all = append(all, e.primary)
	return append(all, e.secondaries...)
}

func (e *Engine) closeAll() {
	for _, h := range e.allHandles() {
		if err := h.Close(); err != nil {
			log.Printf("close failed (receiver=%s): %v", h.Name(), err)
		}
	}
}
