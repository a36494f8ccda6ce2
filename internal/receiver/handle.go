// internal/receiver/handle.go
package receiver

import (
	"context"
	"fmt"
	"sync"

	"github.com/ManiacDC/receiver-power-sync/internal/iscp"
)

// Handle wraps one Transport with reconnect bookkeeping and the
// last-known power state for that physical device. The handle persists
// for the process lifetime; its link may die and be reopened across
// uses.
//
// The cache exists purely to avoid redundant writes. Unknown means
// "must be addressed" to the reconciliation pass, so any failure drops
// the cache to Unknown.
type Handle struct {
	name string
	tr   Transport

	mu   sync.Mutex
	last iscp.State
}

func NewHandle(name string, tr Transport) *Handle {
	return &Handle{name: name, tr: tr}
}

func (h *Handle) Name() string { return h.name }

func (h *Handle) Connected() bool { return h.tr.Connected() }

// LastKnown returns the cached power state.
func (h *Handle) LastKnown() iscp.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

// NotePower records a state observed out-of-band (an unsolicited
// notification). Safe to call from the transport's reader goroutine.
func (h *Handle) NotePower(s iscp.State) {
	h.mu.Lock()
	h.last = s
	h.mu.Unlock()
}

// EnsureConnected opens the link if it is down. One attempt: on
// failure the handle stays disconnected and the next attempt waits for
// the caller's retry cadence.
func (h *Handle) EnsureConnected(ctx context.Context) error {
	if h.tr.Connected() {
		return nil
	}
	if err := h.tr.Connect(ctx); err != nil {
		h.NotePower(iscp.Unknown)
		return fmt.Errorf("receiver %s: connect: %w", h.name, err)
	}
	return nil
}

// SetPower connects if needed and sends the command. A failure is
// returned for the caller to log, never escalated further: a missed
// command to an unreachable receiver is corrected by the next resync.
func (h *Handle) SetPower(ctx context.Context, s iscp.State) error {
	if err := h.EnsureConnected(ctx); err != nil {
		return err
	}
	if err := h.tr.SendPower(s); err != nil {
		h.NotePower(iscp.Unknown)
		return fmt.Errorf("receiver %s: send power: %w", h.name, err)
	}
	h.NotePower(s)
	return nil
}

// GetPower connects if needed and queries the device. All failures
// yield Unknown; the cache is refreshed with whatever the query
// produced.
func (h *Handle) GetPower(ctx context.Context) iscp.State {
	if err := h.EnsureConnected(ctx); err != nil {
		return iscp.Unknown
	}
	s, err := h.tr.QueryPower(ctx)
	if err != nil {
		s = iscp.Unknown
	}
	h.NotePower(s)
	return s
}

func (h *Handle) Close() error { return h.tr.Close() }
