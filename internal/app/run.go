package app

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"webhook-gateway/internal/common/logging"
	"webhook-gateway/internal/config"
)

const shutdownTimeout = 30 * time.Second

// Run is the main entry point for the application
func Run() error {
	// Load environment variables
	_ = godotenv.Load()

	cfg := config.Load()

	if err := logging.InitGlobalLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		return err
	}
	defer logging.MustSync()

	logging.Info("Starting webhook gateway", logging.Field{Key: "cpus", Value: runtime.NumCPU()})

	if err := cfg.Validate(); err != nil {
		logging.Error("Configuration validation failed", err)
		return err
	}

	app, err := New(cfg)
	if err != nil {
		logging.Error("Failed to initialize application", err)
		return err
	}
	defer app.Cleanup()

	_ = app.WarmKeys(context.Background())

	srv := app.RunServer()
	if err := srv.Start(); err != nil {
		logging.Error("Server failed to start", err)
		return err
	}
	logging.Info("Server listening", logging.Field{Key: "addr", Value: srv.Addr()})

	// Wait for interrupt signal or a fatal serve error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	var serveErr error
	select {
	case <-quit:
		logging.Info("Shutting down server...")
	case serveErr = <-srv.Errors():
		logging.Error("Server stopped unexpectedly", serveErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Stop taking requests first so no new deliveries are queued, then drain
	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", err)
	}
	if err := app.Shutdown(ctx); err != nil {
		logging.Warn("Pending deliveries dropped", logging.Field{Key: "error", Value: err.Error()})
	}

	logging.Info("Server exited")
	return serveErr
}
