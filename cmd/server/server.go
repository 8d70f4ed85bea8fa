package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"
)

// shutdownGrace bounds how long in-flight HTTP requests (including open
// progress streams) get to finish after a shutdown signal.
const shutdownGrace = 10 * time.Second

// startHTTPServer serves the router until SIGINT/SIGTERM or a listener
// failure, then shuts down gracefully: the HTTP server drains first, then
// in-flight batch runs are cancelled and awaited at their group boundaries.
func (app *application) startHTTPServer(ctx context.Context, router http.Handler) error {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", app.config.Server.Port),
		Handler: router,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		app.logger.Info("server listening", "port", app.config.Server.Port)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case <-signalCtx.Done():
		app.logger.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("server shutdown failed", "error", err)
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	app.cleanup()

	app.logger.Info("server stopped")
	return nil
}
