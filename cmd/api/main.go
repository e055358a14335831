// cmd/api/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	app "userstore/internal"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Cancelled on SIGINT/SIGTERM; also bounds startup work such as migrations.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application := app.NewApplication()
	if err := application.Initialize(ctx); err != nil {
		application.Logger.Error("Failed to initialize application", "error", err)
		_ = closeResources(application)
		return 1
	}

	code := 0
	if err := application.Run(ctx); err != nil {
		application.Logger.Error("HTTP server stopped with error", "error", err)
		code = 1
	}

	if err := closeResources(application); err != nil {
		code = 1
	}
	if code == 0 {
		application.Logger.Info("Application gracefully stopped.")
	}
	return code
}

// closeResources releases the database pool even when startup failed halfway.
func closeResources(application *app.Application) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := application.Shutdown(ctx); err != nil {
		application.Logger.Error("Application shutdown failed", "error", err)
		return err
	}
	return nil
}
