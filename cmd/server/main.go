// Package main implements the entry point for the Parlo API server, which
// manages language-learning topics and flashcards, meters study sessions and
// card generation against daily subscription quotas, and drives LLM-backed
// card generation in the background.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/parlohq/parlo-api/internal/config"
	"github.com/parlohq/parlo-api/internal/platform/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("parlo-api: %v", err)
	}
}

// run wires the application together and blocks until shutdown. Failures
// before the logger exists surface through the returned error; everything
// after is logged structurally.
func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

	db, err := setupDatabase(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}

	if err := runMigrations(ctx, db, appLogger); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			appLogger.Error("failed to close database after migration failure", "error", closeErr)
		}
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	app, err := newApplication(ctx, cfg, appLogger, db)
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			appLogger.Error("failed to close database after init failure", "error", closeErr)
		}
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}
