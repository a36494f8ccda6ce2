// internal/iscp/power.go
package iscp

import (
	"fmt"
	"strings"
)

// State is the power state of a receiver.
// Unknown is the zero value: before any successful query and after a
// connection failure. Unknown is never a command target.
type State int

const (
	Unknown State = iota
	Off
	On
)

func (s State) String() string {
	switch s {
	case Off:
		return "off"
	case On:
		return "on"
	default:
		return "unknown"
	}
}

// ---- POWER VOCABULARY ----

// Vendor-defined ISCP constants. These values define the protocol
// and MUST NOT be configurable.

const (
	unitPrefix = "!1" // receiver unit type 1

	powerCmd = "PWR"

	paramOff   = "00"
	paramOn    = "01"
	paramQuery = "QSTN"
)

// PowerQuery is the wire command that asks a receiver for its power state.
const PowerQuery = unitPrefix + powerCmd + paramQuery

// PowerCommand builds the wire command that sets a receiver's power state.
func PowerCommand(s State) (string, error) {
	switch s {
	case On:
		return unitPrefix + powerCmd + paramOn, nil
	case Off:
		return unitPrefix + powerCmd + paramOff, nil
	default:
		return "", fmt.Errorf("iscp: no power command for state %q", s)
	}
}

// ParsePower extracts a power state from an inbound message. The
// second result is false for non-power messages. A power message with
// an unrecognized parameter parses to Unknown: a malformed reply is
// recoverable, not an error.
func ParsePower(msg string) (State, bool) {
	const prefix = unitPrefix + powerCmd
	if !strings.HasPrefix(msg, prefix) {
		return Unknown, false
	}
	switch msg[len(prefix):] {
	case paramOn:
		return On, true
	case paramOff:
		return Off, true
	default:
		return Unknown, true
	}
}
