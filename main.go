// Package main is the entry point for the Fluxo de Caixa API server.
// It initializes all dependencies and starts the HTTP server.
package main

import (
	"context"
	"log"
	"os"

	"fluxocaixa/src/app/server"
	"fluxocaixa/src/infra/config"
	"fluxocaixa/src/infra/db"
	"fluxocaixa/src/infra/logger"
	"fluxocaixa/src/infra/metrics"
)

func main() {
	if err := run(); err != nil {
		log.Printf("fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize logger
	log := logger.New(cfg.Log)
	log.Info("starting application",
		"port", cfg.Server.Port,
		"environment", cfg.Server.Environment,
		"log_level", cfg.Log.Level,
	)

	m := metrics.New()

	// Fails when the server cannot be reached, before anything listens
	pg, err := db.New(context.Background(), cfg.Database, m, logger.WithComponent(log, "db"))
	if err != nil {
		return err
	}

	if err := m.ObservePool(pg.Pool.Stats); err != nil {
		_ = pg.Close(context.Background())
		return err
	}

	srv := server.New(cfg, log, pg, m)

	// Run blocks until shutdown signal is received, then closes pg
	return srv.Run(context.Background())
}
