// internal/config/normalize.go
package config

import (
	"fmt"
	"strings"
)

// defaultTimeoutMs is the per-receiver operation timeout applied when
// the config leaves timeout_ms unset.
const defaultTimeoutMs = 2000

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	normalizeReceiver(&cfg.Sync.Primary, "primary")

	for i := range cfg.Sync.Secondaries {
		normalizeReceiver(&cfg.Sync.Secondaries[i], fmt.Sprintf("secondary-%d", i+1))
	}
}

func normalizeReceiver(rc *ReceiverConfig, defaultName string) {
	rc.Mode = Mode(strings.ToLower(string(rc.Mode)))

	if rc.Name == "" {
		rc.Name = defaultName
	}

	if rc.TimeoutMs == 0 {
		rc.TimeoutMs = defaultTimeoutMs
	}
}
