package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"financas/internal/core"
	"financas/internal/log"
	"financas/internal/store"
)

var ErrClosed = errors.New("session closed")

// DefaultConfirmTTL bounds how long a pending delete can be confirmed.
const DefaultConfirmTTL = 5 * time.Minute

type Options struct {
	Now        func() time.Time
	ConfirmTTL time.Duration
	Logger     *log.Logger
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.ConfirmTTL <= 0 {
		o.ConfirmTTL = DefaultConfirmTTL
	}
	if o.Logger == nil {
		o.Logger = log.FromContext(context.Background()).WithComponent(log.ComponentApp)
	}
	return o
}

// Controller owns one user's State. With a push-based store it follows
// change notifications; otherwise it re-reads collections after each write.
type Controller struct {
	store   store.Store
	watcher store.Watcher
	ns      store.Namespace
	user    string
	opts    Options
	sl      *log.StructuredLogger

	// Subscriptions live as long as the controller, not the request that
	// created it.
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	state   State
	gen     uint64
	subs    map[collection]store.Subscription
	pending map[string]PendingDelete
	closed  bool
}

// New loads every collection for user in scope and, when st can push,
// subscribes to all of them. An empty user means authentication is off.
func New(ctx context.Context, st store.Store, user string, scope core.Scope, opts Options) (*Controller, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c := &Controller{
		store:   st,
		ns:      store.Namespace{User: user},
		user:    user,
		opts:    opts,
		sl:      log.NewStructuredLogger(opts.Logger),
		ctx:     bg,
		cancel:  cancel,
		subs:    make(map[collection]store.Subscription),
		pending: make(map[string]PendingDelete),
	}
	c.state.Scope = scope
	c.state.derive()
	if w, ok := st.(store.Watcher); ok {
		c.watcher = w
	}

	if err := c.Reload(ctx); err != nil {
		cancel()
		return nil, err
	}
	if c.watcher != nil {
		for _, col := range allCollections {
			if err := c.subscribe(ctx, col, scope, 0); err != nil {
				c.Close()
				return nil, err
			}
		}
	}
	return c, nil
}

func (c *Controller) User() string { return c.user }

// PushBased reports whether state follows store notifications.
func (c *Controller) PushBased() bool { return c.watcher != nil }

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

func (c *Controller) Scope() core.Scope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Scope
}

// Reload re-reads every collection. Scoped collections read for a scope
// that was switched away from in the meantime are discarded.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	scope, gen := c.state.Scope, c.gen
	c.mu.Unlock()

	recs, err := c.load(ctx, allCollections, scope)
	if err != nil {
		c.logError(ctx, "Failed to load collections", err, log.OpReload, "")
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, col := range allCollections {
		if col.scoped() && gen != c.gen {
			continue
		}
		c.applyLocked(ctx, col, recs[i])
	}
	return nil
}

// SwitchScope selects another month. Only income and expense are reloaded
// (or re-subscribed); investments, goals and the profile stay resident.
func (c *Controller) SwitchScope(ctx context.Context, scope core.Scope) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.gen++
	gen := c.gen
	c.state.Scope = scope
	c.state.Income, c.state.Expenses = nil, nil
	c.state.derive()
	for _, col := range scopedCollections {
		if sub, ok := c.subs[col]; ok {
			sub.Unsubscribe()
			delete(c.subs, col)
		}
	}
	c.mu.Unlock()

	c.opts.Logger.DebugContext(ctx, "Switching scope", log.NewFields().WithUser(c.user).WithScope(scope.Year, scope.Month).ToSlice()...)

	recs, err := c.load(ctx, scopedCollections, scope)
	if err != nil {
		c.logError(ctx, "Failed to load month", err, log.OpScope, "")
		return err
	}
	c.mu.Lock()
	if gen == c.gen {
		for i, col := range scopedCollections {
			c.applyLocked(ctx, col, recs[i])
		}
	}
	c.mu.Unlock()

	if c.watcher != nil {
		for _, col := range scopedCollections {
			if err := c.subscribe(ctx, col, scope, gen); err != nil {
				return err
			}
		}
	}
	return nil
}

// AddTransaction validates in and writes it to the selected month. A
// rejected input leaves the state untouched and returns *core.ValidationError.
func (c *Controller) AddTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	tx, err := in.Build(core.DateOf(c.opts.Now()))
	if err != nil {
		return core.Transaction{}, err
	}
	scope, gen := c.scopeAndGen()
	col := collectionFor(tx.Kind)
	path := pathFor(c.ns, col, scope)
	id, err := c.create(ctx, path, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}
	tx.ID = id
	c.sl.LogTransactionCreated(ctx, path.String(), id, string(tx.Kind), string(tx.Category), tx.Description, tx.Amount.Cents)
	c.afterWrite(ctx, col, scope, gen)
	return tx, nil
}

func (c *Controller) AddInvestment(ctx context.Context, in core.InvestmentInput) (core.Investment, error) {
	inv, err := in.Build(core.DateOf(c.opts.Now()))
	if err != nil {
		return core.Investment{}, err
	}
	scope, gen := c.scopeAndGen()
	id, err := c.create(ctx, c.ns.Investments(), inv)
	if err != nil {
		return core.Investment{}, fmt.Errorf("add investment: %w", err)
	}
	inv.ID = id
	c.afterWrite(ctx, colInvestments, scope, gen)
	return inv, nil
}

func (c *Controller) AddGoal(ctx context.Context, in core.GoalInput) (core.Goal, error) {
	goal, err := in.Build()
	if err != nil {
		return core.Goal{}, err
	}
	scope, gen := c.scopeAndGen()
	id, err := c.create(ctx, c.ns.Goals(), goal)
	if err != nil {
		return core.Goal{}, fmt.Errorf("add goal: %w", err)
	}
	goal.ID = id
	c.afterWrite(ctx, colGoals, scope, gen)
	return goal, nil
}

// Close cancels every subscription. Further mutations return ErrClosed.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	subs := c.subs
	c.subs = make(map[collection]store.Subscription)
	c.pending = make(map[string]PendingDelete)
	c.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
	c.cancel()
}

func (c *Controller) scopeAndGen() (core.Scope, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Scope, c.gen
}

func (c *Controller) create(ctx context.Context, path store.Path, v any) (string, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return "", ErrClosed
	}
	data, err := store.Encode(v)
	if err != nil {
		return "", err
	}
	id, err := c.store.Create(ctx, path, data)
	if err != nil {
		c.logError(ctx, "Failed to create record", err, log.OpCreate, path.String())
		return "", err
	}
	return id, nil
}

// afterWrite re-reads one collection on pull-based stores. Push-based
// stores have already delivered the change to the subscription by the time
// the write returns.
func (c *Controller) afterWrite(ctx context.Context, col collection, scope core.Scope, gen uint64) {
	if c.watcher != nil {
		return
	}
	c.refresh(ctx, col, scope, gen)
}

// refresh replaces one collection with what the store holds now, unless
// the scope was switched since gen.
func (c *Controller) refresh(ctx context.Context, col collection, scope core.Scope, gen uint64) {
	path := pathFor(c.ns, col, scope)
	recs, err := c.store.ReadAll(ctx, path)
	if err != nil {
		c.logError(ctx, "Failed to reload collection after write", err, log.OpReload, path.String())
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || (col.scoped() && gen != c.gen) {
		return
	}
	c.applyLocked(ctx, col, recs)
}

func (c *Controller) load(ctx context.Context, cols []collection, scope core.Scope) ([][]store.Record, error) {
	out := make([][]store.Record, len(cols))
	g, gctx := errgroup.WithContext(ctx)
	for i, col := range cols {
		path := pathFor(c.ns, col, scope)
		g.Go(func() error {
			recs, err := c.store.ReadAll(gctx, path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			out[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Controller) subscribe(ctx context.Context, col collection, scope core.Scope, gen uint64) error {
	path := pathFor(c.ns, col, scope)
	sub, err := c.watcher.Subscribe(c.ctx, path, func(recs []store.Record) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed || (col.scoped() && gen != c.gen) {
			return
		}
		c.applyLocked(c.ctx, col, recs)
	})
	if err != nil {
		c.logError(ctx, "Failed to subscribe", err, log.OpRead, path.String())
		return fmt.Errorf("subscribe %s: %w", path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || (col.scoped() && gen != c.gen) {
		sub.Unsubscribe()
		return nil
	}
	if old, ok := c.subs[col]; ok {
		old.Unsubscribe()
	}
	c.subs[col] = sub
	return nil
}

// applyLocked replaces one collection. Caller holds mu.
func (c *Controller) applyLocked(ctx context.Context, col collection, recs []store.Record) {
	bad, invalid := apply(&c.state, col, recs)
	if len(bad) > 0 {
		c.opts.Logger.WarnContext(ctx, "Skipped undecodable records",
			log.FieldCollection, col.String(), "record_ids", bad, log.FieldUser, c.user)
	}
	if len(invalid) > 0 {
		c.opts.Logger.WarnContext(ctx, "Stored records failed validation",
			log.FieldCollection, col.String(), "record_ids", invalid, log.FieldUser, c.user)
	}
}

func (c *Controller) logError(ctx context.Context, msg string, err error, op, path string) {
	fields := log.NewFields().WithUser(c.user)
	if path != "" {
		fields = fields.WithCollection(path, "")
	}
	c.sl.LogError(ctx, msg, err, log.ComponentApp, op, fields)
}
