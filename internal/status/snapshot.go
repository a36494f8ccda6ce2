// internal/status/snapshot.go
package status

import "github.com/ManiacDC/receiver-power-sync/internal/iscp"

// Health is the connection health of one receiver.
type Health int

const (
	HealthUnknown Health = iota
	HealthOK
	HealthDown
)

func (h Health) String() string {
	switch h {
	case HealthOK:
		return "ok"
	case HealthDown:
		return "down"
	default:
		return "unknown"
	}
}

// Snapshot is one receiver's observed condition after a pass.
// It contains no logic and no memory of the past beyond current state.
type Snapshot struct {
	Name   string
	Health Health
	Power  iscp.State
}
