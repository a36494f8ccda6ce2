// internal/config/config.go
package config

// Mode selects the transport a receiver is reached over.
// Fixed per receiver for its lifetime.
type Mode string

const (
	ModeEISCP  Mode = "eiscp"  // vendor network protocol, fixed port 60128
	ModeTCP    Mode = "tcp"    // raw ISCP over a serial-to-network bridge
	ModeSerial Mode = "serial" // direct serial, 9600 baud
)

type Config struct {
	Sync SyncConfig `yaml:"sync"`
}

// ---- SYNC ----

// SyncConfig holds exactly one primary and zero-or-more secondaries.
// The set is fixed after startup; reconfiguration requires restart.
type SyncConfig struct {
	Primary     ReceiverConfig   `yaml:"primary"`
	Secondaries []ReceiverConfig `yaml:"secondaries"`
}

// ---- RECEIVER ----

type ReceiverConfig struct {
	Name string `yaml:"name"`
	Mode Mode   `yaml:"mode"`

	IP         string `yaml:"ip"`          // eiscp, tcp
	TCPPort    int    `yaml:"tcp_port"`    // tcp
	SerialPort string `yaml:"serial_port"` // serial

	TimeoutMs int `yaml:"timeout_ms"`
}
