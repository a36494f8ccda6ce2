// internal/receiver/transport.go
package receiver

import (
	"context"

	"github.com/ManiacDC/receiver-power-sync/internal/iscp"
)

// Transport is the exact contract the sync engine needs from one
// receiver connection, identical across all three modes.
// IMPORTANT: There must be NO other version of this interface anywhere.
type Transport interface {
	// Connect establishes the link. One attempt, no internal retry:
	// retry policy belongs to the caller's cadence.
	Connect(ctx context.Context) error

	// Close releases the link. Idempotent, safe on a closed transport.
	Close() error

	// Connected reports link health.
	Connected() bool

	// SendPower transmits a power command on a live link. It MUST NOT
	// reconnect implicitly.
	SendPower(s iscp.State) error

	// QueryPower asks the device for its current power state. A reply
	// timeout is (Unknown, nil), not an error: a stale read is
	// recovered by the next resync pass.
	QueryPower(ctx context.Context) (iscp.State, error)
}
