// Package cli holds the start-up and shutdown steps shared by the
// financas commands.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"financas/internal/config"
	applog "financas/internal/log"
)

// SetupLogger builds a text logger at the given level and installs it as
// the process default.
func SetupLogger(w io.Writer, level, component string) *applog.Logger {
	logger := applog.NewText(w, applog.ParseLevel(level), component)
	applog.SetDefault(logger)
	return logger
}

// Bootstrap loads the configuration, sets up logging from it and exits
// the process when the configuration is invalid.
func Bootstrap(component string) (*config.Config, *applog.Logger) {
	cfg := config.Load()
	logger := SetupLogger(os.Stdout, cfg.LogLevel, component)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// GracefulShutdown waits for SIGINT or SIGTERM and then runs cleanup with
// a context bounded by timeout. The returned context is cancelled once the
// signal arrives; done is closed after cleanup returns or times out.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	return shutdownOn(sigChan, logger, timeout, cleanup)
}

func shutdownOn(sigChan <-chan os.Signal, logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan struct{})
		go func() {
			defer close(finished)
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached", "timeout", timeout)
		}
	}()

	return ctx, done
}

// WaitForShutdown blocks until the shutdown started by GracefulShutdown
// has finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
