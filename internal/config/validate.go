// internal/config/validate.go
package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
// Any error here is fatal: the process does not start on a config
// that would be discovered broken later.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: empty configuration")
	}

	if err := validateReceiver("primary", cfg.Sync.Primary); err != nil {
		return err
	}

	for i, rc := range cfg.Sync.Secondaries {
		if err := validateReceiver(fmt.Sprintf("secondary %d", i+1), rc); err != nil {
			return err
		}
	}

	return nil
}

// validateReceiver enforces the per-mode field presence rules.
// Mode matching is case-insensitive; canonicalization happens in
// Normalize.
func validateReceiver(which string, rc ReceiverConfig) error {
	switch Mode(strings.ToLower(string(rc.Mode))) {
	case ModeEISCP:
		if rc.IP == "" {
			return fmt.Errorf("config: %s: ip required for mode %q", which, rc.Mode)
		}

	case ModeTCP:
		if rc.IP == "" {
			return fmt.Errorf("config: %s: ip required for mode %q", which, rc.Mode)
		}
		if rc.TCPPort == 0 {
			return fmt.Errorf("config: %s: tcp_port required for mode %q", which, rc.Mode)
		}
		if rc.TCPPort < 1 || rc.TCPPort > 65535 {
			return fmt.Errorf("config: %s: tcp_port %d out of range", which, rc.TCPPort)
		}

	case ModeSerial:
		if rc.SerialPort == "" {
			return fmt.Errorf("config: %s: serial_port required for mode %q", which, rc.Mode)
		}

	case "":
		return fmt.Errorf("config: %s: mode required", which)

	default:
		return fmt.Errorf("config: %s: invalid mode %q", which, rc.Mode)
	}

	if rc.TimeoutMs < 0 {
		return fmt.Errorf("config: %s: timeout_ms must be >= 0", which)
	}

	return nil
}
