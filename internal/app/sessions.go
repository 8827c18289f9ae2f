package app

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"financas/internal/cache"
	"financas/internal/core"
	"financas/internal/log"
	"financas/internal/store"
)

// anonymous is the cache key for the session used when authentication is off.
const anonymous = "\x00anonymous"

// Sessions keeps one Controller per user. Idle controllers expire after the
// configured TTL and are closed when they leave the cache.
type Sessions struct {
	store store.Store
	opts  Options
	cache *cache.LRUCache[*Controller]

	// building collapses concurrent constructions for one user.
	building singleflight.Group
}

func NewSessions(st store.Store, maxSize int, ttl time.Duration, opts Options) *Sessions {
	s := &Sessions{
		store: st,
		opts:  opts.withDefaults(),
		cache: cache.NewLRUCache[*Controller](maxSize, ttl),
	}
	s.cache.OnEvict(func(key string, c *Controller) {
		s.opts.Logger.Debug("Session closed", log.FieldUser, c.User())
		c.Close()
	})
	return s
}

// Get returns the user's controller, creating and loading it on first use.
// A new session starts on the month containing the current time.
func (s *Sessions) Get(ctx context.Context, user string) (*Controller, error) {
	key := cacheKey(user)
	if c, ok := s.cache.Get(key); ok {
		return c, nil
	}

	// The first caller's cancellation must not fail the others waiting on
	// the same construction.
	bctx := context.WithoutCancel(ctx)
	v, err, _ := s.building.Do(key, func() (any, error) {
		if c, ok := s.cache.Get(key); ok {
			return c, nil
		}
		c, err := New(bctx, s.store, user, core.CurrentScope(s.opts.Now()), s.opts)
		if err != nil {
			return nil, err
		}
		s.cache.Set(key, c)
		s.opts.Logger.DebugContext(bctx, "Session opened", log.FieldUser, user)
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Controller), nil
}

// Drop closes and forgets the user's session, as a sign-out does.
func (s *Sessions) Drop(user string) {
	s.cache.Delete(cacheKey(user))
}

// Range calls fn for every live controller without extending its TTL.
func (s *Sessions) Range(fn func(*Controller) bool) {
	s.cache.Range(func(_ string, c *Controller) bool {
		return fn(c)
	})
}

// CleanExpired closes sessions whose TTL elapsed.
func (s *Sessions) CleanExpired() int {
	return s.cache.CleanExpired()
}

func (s *Sessions) Len() int {
	return s.cache.Size()
}

// Close closes every session.
func (s *Sessions) Close() {
	s.cache.CleanExpired()
	var keys []string
	s.cache.Range(func(k string, _ *Controller) bool {
		keys = append(keys, k)
		return true
	})
	for _, k := range keys {
		s.cache.Delete(k)
	}
}

func cacheKey(user string) string {
	if user == "" {
		return anonymous
	}
	return user
}
