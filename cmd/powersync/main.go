// cmd/powersync/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ManiacDC/receiver-power-sync/internal/config"
	"github.com/ManiacDC/receiver-power-sync/internal/engine"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: powersync <config.yaml>")
	}

	cfgPath := os.Args[1]

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}

	config.Normalize(cfg)

	// --------------------
	// Build the sync engine
	// --------------------

	eng, err := engine.New(cfg)
	if err != nil {
		log.Fatalf("engine build failed: %v", err)
	}

	// --------------------
	// Run until SIGINT/SIGTERM
	// --------------------

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("powersync starting (primary=%s secondaries=%d)",
		cfg.Sync.Primary.Name, len(cfg.Sync.Secondaries))

	if err := eng.Run(ctx); err != nil {
		log.Fatalf("engine stopped: %v", err)
	}

	log.Print("powersync stopped")
}
