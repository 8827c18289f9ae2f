package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"financas/internal/amqp"
	"financas/internal/app"
	"financas/internal/auth"
	"financas/internal/backend"
	"financas/internal/cache"
	"financas/internal/cli"
	apphttp "financas/internal/http"
	applog "financas/internal/log"
	"financas/internal/store"
	"financas/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentApp)
	ctx := context.Background()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}

	// Change messages only matter when several processes share a store
	// behind a notification hub.
	var (
		amqpClient *amqp.Client
		bus        *worker.ChangeBus
	)
	if cfg.AMQPURL != "" && cfg.PushMode() && bcfg.Type != backend.MemoryBackend {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Error("Failed to connect to AMQP", applog.FieldError, err)
			os.Exit(1)
		}
		bus = worker.NewChangeBus(amqpClient, logger.WithComponent(applog.ComponentAMQP))
		bcfg.Publisher = bus
	}

	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize storage backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	sessions := app.NewSessions(res.Store, cfg.SessionMax, cfg.SessionTTL, app.Options{
		ConfirmTTL: cfg.ConfirmTTL,
		Logger:     logger.WithComponent(applog.ComponentSession),
	})

	var authSvc *auth.Service
	if cfg.AuthEnabled {
		authSvc = auth.NewService(res.Store, []byte(cfg.JWTSecret), cfg.JWTTTL,
			auth.WithLogger(logger.WithComponent(applog.ComponentAuth)))
	}

	caches := cache.NewManager()
	caches.Register(sessions)

	// Without a bus nobody tells the hub about writes made elsewhere, so the
	// reload job refreshes its subscribers too.
	var hub worker.Refresher
	if res.Hub != nil && bus == nil {
		hub = res.Hub
	}
	sched, err := worker.NewScheduler(worker.Config{
		ReloadSchedule:       cfg.ReloadSchedule,
		CacheCleanupSchedule: cfg.CacheCleanupSchedule,
	}, sessions, caches, hub, logger.WithComponent(applog.ComponentWorker))
	if err != nil {
		logger.Error("Failed to create scheduler", applog.FieldError, err)
		os.Exit(1)
	}

	pinger, _ := res.Store.(store.Pinger)
	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
		Logger:             logger,
	}, sessions, authSvc, pinger)

	runCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if err := sched.Stop(ctx); err != nil {
			logger.Warn("Scheduler stop error", applog.FieldError, err)
		}
		sessions.Close()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", applog.FieldError, err)
			}
		}
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Warn("Storage cleanup error", applog.FieldError, err)
			}
		}
	})

	sched.Start()
	if bus != nil && res.Hub != nil {
		go func() {
			if err := bus.Run(runCtx, res.Hub); err != nil {
				logger.Error("Change consumer stopped", applog.FieldError, err)
			}
		}()
	}

	logger.Info("Starting financas server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"notify_mode", cfg.NotifyMode,
		"auth", cfg.AuthEnabled)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(runCtx, done)
	logger.Info("Server stopped gracefully")
}
