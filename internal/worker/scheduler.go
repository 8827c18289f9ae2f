// Package worker runs the background jobs of the service: periodic reload
// of pull-based sessions, cache expiry sweeps and the change bus consumer.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"financas/internal/app"
	"financas/internal/cache"
	applog "financas/internal/log"
)

// Refresher re-reads store data for subscribers that would otherwise miss
// changes made by other processes.
type Refresher interface {
	RefreshAll(ctx context.Context) error
}

// Config holds the cron specs of the scheduled jobs. Specs accept the
// standard five fields and descriptors such as "@every 1m".
type Config struct {
	ReloadSchedule       string
	CacheCleanupSchedule string
	// ReloadConcurrency bounds parallel session reloads.
	ReloadConcurrency int
}

// Scheduler owns the cron runner and the jobs registered on it.
type Scheduler struct {
	cron     *cron.Cron
	sessions *app.Sessions
	caches   *cache.Manager
	hub      Refresher
	logger   *applog.Logger
	limit    int

	reloads  atomic.Int64
	failures atomic.Int64
}

// NewScheduler registers the reload job (pull sessions plus hub, when
// set) and the cache sweep over caches.
func NewScheduler(cfg Config, sessions *app.Sessions, caches *cache.Manager, hub Refresher, logger *applog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	logger = logger.WithComponent(applog.ComponentWorker)
	if cfg.ReloadConcurrency <= 0 {
		cfg.ReloadConcurrency = 4
	}

	s := &Scheduler{
		sessions: sessions,
		caches:   caches,
		hub:      hub,
		logger:   logger,
		limit:    cfg.ReloadConcurrency,
	}
	cl := cronLogger{logger}
	s.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	if _, err := s.cron.AddFunc(cfg.ReloadSchedule, func() { s.ReloadSessions(context.Background()) }); err != nil {
		return nil, fmt.Errorf("reload schedule %q: %w", cfg.ReloadSchedule, err)
	}
	if _, err := s.cron.AddFunc(cfg.CacheCleanupSchedule, func() { s.CleanCaches() }); err != nil {
		return nil, fmt.Errorf("cache cleanup schedule %q: %w", cfg.CacheCleanupSchedule, err)
	}
	return s, nil
}

// Start runs the jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop prevents new runs and waits for running jobs or ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReloadSessions reloads every resident pull-based session and refreshes
// the hub's subscribers. It returns how many sessions were reloaded.
// Failures are logged; the next run tries again.
func (s *Scheduler) ReloadSessions(ctx context.Context) int {
	var pull []*app.Controller
	s.sessions.Range(func(c *app.Controller) bool {
		if !c.PushBased() {
			pull = append(pull, c)
		}
		return true
	})

	var reloaded atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for _, c := range pull {
		g.Go(func() error {
			err := c.Reload(gctx)
			switch {
			case err == nil:
				reloaded.Add(1)
			case errors.Is(err, app.ErrClosed):
				// Evicted while waiting.
			default:
				s.failures.Add(1)
				s.logger.WarnContext(gctx, "Session reload failed",
					applog.FieldUser, c.User(),
					applog.FieldOperation, applog.OpReload,
					applog.FieldError, err.Error())
			}
			return nil
		})
	}
	_ = g.Wait()

	if s.hub != nil {
		if err := s.hub.RefreshAll(ctx); err != nil {
			s.failures.Add(1)
			s.logger.WarnContext(ctx, "Hub refresh failed",
				applog.FieldOperation, applog.OpReload,
				applog.FieldError, err.Error())
		}
	}

	n := int(reloaded.Load())
	s.reloads.Add(int64(n))
	if n > 0 {
		s.logger.DebugContext(ctx, "Sessions reloaded", "count", n)
	}
	return n
}

// CleanCaches sweeps every registered cache and returns the number of
// entries removed.
func (s *Scheduler) CleanCaches() int {
	n := s.caches.CleanAll()
	if n > 0 {
		s.logger.Debug("Cache cleanup completed", "entries_removed", n)
	}
	return n
}

// Stats reports cumulative reload counters.
func (s *Scheduler) Stats() (reloads, failures int64) {
	return s.reloads.Load(), s.failures.Load()
}

// cronLogger adapts the application logger to cron's logging interface.
type cronLogger struct {
	l *applog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append(keysAndValues, applog.FieldError, err.Error())...)
}
