package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	applog "financas/internal/log"
)

func TestSetupLogger(t *testing.T) {
	prev := applog.FromContext(context.Background())
	t.Cleanup(func() { applog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := SetupLogger(&buf, "warn", applog.ComponentWorker)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn line missing: %q", out)
	}
	if logger.Component() != applog.ComponentWorker {
		t.Errorf("component = %q", logger.Component())
	}
}

func TestShutdownOnRunsCleanup(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.NewText(&buf, applog.ParseLevel("info"), applog.ComponentApp)

	sig := make(chan os.Signal, 1)
	var cleaned bool
	ctx, done := shutdownOn(sig, logger, time.Second, func(ctx context.Context) {
		if ctx.Err() != nil {
			t.Errorf("cleanup context already done: %v", ctx.Err())
		}
		cleaned = true
	})

	select {
	case <-ctx.Done():
		t.Fatal("context cancelled before a signal")
	default:
	}

	sig <- syscall.SIGTERM
	WaitForShutdown(ctx, done)

	if !cleaned {
		t.Error("cleanup not called")
	}
	if !errors.Is(ctx.Err(), context.Canceled) {
		t.Errorf("ctx.Err() = %v", ctx.Err())
	}
	if !strings.Contains(buf.String(), "Shutdown complete") {
		t.Errorf("log = %q", buf.String())
	}
}

func TestShutdownOnTimeout(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.NewText(&buf, applog.ParseLevel("info"), applog.ComponentApp)

	sig := make(chan os.Signal, 1)
	release := make(chan struct{})
	defer close(release)
	ctx, done := shutdownOn(sig, logger, 20*time.Millisecond, func(context.Context) {
		<-release
	})

	sig <- syscall.SIGINT
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not give up after the timeout")
	}
	if ctx.Err() == nil {
		t.Error("context not cancelled")
	}
	if !strings.Contains(buf.String(), "Shutdown timeout reached") {
		t.Errorf("log = %q", buf.String())
	}
}
