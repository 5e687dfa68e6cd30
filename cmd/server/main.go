package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"supplierflow/internal/app"
	"supplierflow/internal/platform/config"
	"supplierflow/internal/platform/logger"
)

// main loads configuration, wires the service and serves until SIGINT or
// SIGTERM. Business logic lives in the internal packages.
func main() {
	configPath := flag.String("config", os.Getenv("SUPPLIERFLOW_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.NewLoader().Load(*configPath)
	if err != nil {
		logger.New(config.Default().Log).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to start", "error", err)
		stop()
		os.Exit(1)
	}
	if err := a.Run(ctx); err != nil {
		log.Error("server stopped", "error", err)
		stop()
		os.Exit(1)
	}
	log.Info("server stopped")
}
