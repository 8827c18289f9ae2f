// Package notify turns any pull-based store into a push-based one.
//
// Hub forwards writes to the wrapped store and, after each successful
// mutation, re-reads the touched collection and hands the whole of it to
// the collection's subscribers. Changes made by other processes reach
// subscribers through Refresh, typically driven by a change bus.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"financas/internal/store"
)

type Op string

const (
	OpCreate Op = "create"
	OpDelete Op = "delete"
	OpClear  Op = "clear"
)

// Change describes one mutation for other processes sharing the backend.
type Change struct {
	Path store.Path
	Op   Op
	ID   string
}

// Publisher broadcasts changes to other processes. Errors are logged by the
// hub and never returned to the writer.
type Publisher interface {
	Publish(ctx context.Context, c Change) error
}

type Hub struct {
	inner  store.Store
	bc     *store.Broadcaster
	pub    Publisher
	logger *slog.Logger

	// Serializes read-and-publish so subscribers never see an older
	// snapshot after a newer one.
	mu sync.Mutex
}

var (
	_ store.Store   = (*Hub)(nil)
	_ store.Watcher = (*Hub)(nil)
	_ store.Pinger  = (*Hub)(nil)
)

type Option func(*Hub)

func WithPublisher(p Publisher) Option {
	return func(h *Hub) { h.pub = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) { h.logger = l }
}

func New(inner store.Store, opts ...Option) *Hub {
	h := &Hub{inner: inner, bc: store.NewBroadcaster(), logger: slog.Default()}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Hub) Create(ctx context.Context, path store.Path, data json.RawMessage) (string, error) {
	id, err := h.inner.Create(ctx, path, data)
	if err != nil {
		return "", err
	}
	h.changed(ctx, Change{Path: path, Op: OpCreate, ID: id})
	return id, nil
}

func (h *Hub) Delete(ctx context.Context, path store.Path, id string) error {
	if err := h.inner.Delete(ctx, path, id); err != nil {
		return err
	}
	h.changed(ctx, Change{Path: path, Op: OpDelete, ID: id})
	return nil
}

func (h *Hub) ReadAll(ctx context.Context, path store.Path) ([]store.Record, error) {
	return h.inner.ReadAll(ctx, path)
}

func (h *Hub) RemoveAll(ctx context.Context, path store.Path) error {
	if err := h.inner.RemoveAll(ctx, path); err != nil {
		return err
	}
	h.changed(ctx, Change{Path: path, Op: OpClear})
	return nil
}

func (h *Hub) changed(ctx context.Context, c Change) {
	if err := h.Refresh(ctx, c.Path); err != nil {
		h.logger.ErrorContext(ctx, "Failed to refresh subscribers after write",
			"component", "notify", "operation", string(c.Op), "path", c.Path.String(), "error", err)
	}
	if h.pub == nil {
		return
	}
	if err := h.pub.Publish(ctx, c); err != nil {
		h.logger.WarnContext(ctx, "Failed to publish change",
			"component", "notify", "operation", string(c.Op), "path", c.Path.String(), "error", err)
	}
}

// Refresh re-reads path and delivers it to its subscribers. Paths nobody
// listens on are skipped without touching the backend.
func (h *Hub) Refresh(ctx context.Context, path store.Path) error {
	if !h.bc.Has(path) {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	recs, err := h.inner.ReadAll(ctx, path)
	if err != nil {
		return err
	}
	h.bc.Publish(path, recs)
	return nil
}

// RefreshAll refreshes every watched path and returns the first error.
func (h *Hub) RefreshAll(ctx context.Context) error {
	var first error
	for _, p := range h.bc.Paths() {
		if err := h.Refresh(ctx, p); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Subscribe reads the collection once, delivers it, and keeps delivering
// after every change until unsubscribed or ctx is done.
func (h *Hub) Subscribe(ctx context.Context, path store.Path, onChange func([]store.Record)) (store.Subscription, error) {
	if err := path.Validate(); err != nil {
		return nil, err
	}
	l := h.bc.Add(path, onChange)

	h.mu.Lock()
	recs, err := h.inner.ReadAll(ctx, path)
	if err == nil {
		l.Deliver(recs)
	}
	h.mu.Unlock()
	if err != nil {
		l.Unsubscribe()
		return nil, err
	}

	l.Bind(ctx)
	return l, nil
}

func (h *Hub) Ping(ctx context.Context) error {
	if p, ok := h.inner.(store.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
