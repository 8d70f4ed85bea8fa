// Package main implements the entry point for the sample agent server,
// which analyzes audio sample collections in batches using an LLM and
// serves batch lifecycle and progress APIs.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/config"
	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/platform/logger"
)

// main is the entry point for the sample agent server. It initializes
// configuration, sets up logging, wires the analyzer, cache and
// orchestrator together, and starts the HTTP server.
func main() {
	ctx := context.Background()

	app, err := initializeApp(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// initializeApp loads configuration and builds the application dependency
// graph. Returns the assembled application or any initialization error.
func initializeApp(ctx context.Context) (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger := logger.Setup(cfg.Server)

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"cache_dir", cfg.Cache.Dir,
		"model", cfg.LLM.ModelName)

	return newApplication(ctx, cfg, appLogger)
}
