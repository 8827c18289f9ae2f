package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"financas/internal/core"
	"financas/internal/log"
	"financas/internal/store"
)

var (
	ErrUnknownToken  = errors.New("unknown confirmation token")
	ErrTokenExpired  = errors.New("confirmation token expired")
	ErrRecordMissing = errors.New("record not found in current state")
	ErrInvalidTarget = errors.New("invalid delete target")
)

type TargetKind string

const (
	TargetTransaction TargetKind = "transaction"
	TargetInvestment  TargetKind = "investment"
	TargetGoal        TargetKind = "goal"
	TargetMonth       TargetKind = "month"
)

// DeleteTarget names what a confirmed delete removes. TxKind is only used
// for transactions; ID is empty for TargetMonth.
type DeleteTarget struct {
	Kind   TargetKind `json:"kind"`
	TxKind core.Kind  `json:"transactionKind,omitempty"`
	ID     string     `json:"id,omitempty"`
}

func TransactionTarget(kind core.Kind, id string) DeleteTarget {
	return DeleteTarget{Kind: TargetTransaction, TxKind: kind, ID: id}
}

func InvestmentTarget(id string) DeleteTarget {
	return DeleteTarget{Kind: TargetInvestment, ID: id}
}

func GoalTarget(id string) DeleteTarget {
	return DeleteTarget{Kind: TargetGoal, ID: id}
}

// MonthTarget clears income and expense of the selected month.
func MonthTarget() DeleteTarget {
	return DeleteTarget{Kind: TargetMonth}
}

// Prompt is the question the user answers before confirming.
func (t DeleteTarget) Prompt() string {
	switch t.Kind {
	case TargetTransaction:
		return "Tem certeza que deseja apagar esta movimentação?"
	case TargetInvestment:
		return "Tem certeza que deseja apagar este investimento?"
	case TargetGoal:
		return "Tem certeza que deseja apagar esta meta?"
	case TargetMonth:
		return "Tem certeza que deseja apagar todas as movimentações (receitas e despesas) deste mês?"
	}
	return ""
}

// PendingDelete is an issued but unconfirmed delete. The scope is captured
// at request time so a later month switch cannot redirect it.
type PendingDelete struct {
	Token     string       `json:"token"`
	Target    DeleteTarget `json:"target"`
	Scope     core.Scope   `json:"scope"`
	Prompt    string       `json:"prompt"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// RequestDelete issues a single-use confirmation token for target. Nothing
// is deleted until ConfirmDelete is called with the token.
func (c *Controller) RequestDelete(target DeleteTarget) (PendingDelete, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return PendingDelete{}, ErrClosed
	}
	if err := c.checkTargetLocked(target); err != nil {
		return PendingDelete{}, err
	}
	now := c.opts.Now()
	c.purgeExpiredLocked(now)
	p := PendingDelete{
		Token:     uuid.NewString(),
		Target:    target,
		Scope:     c.state.Scope,
		Prompt:    target.Prompt(),
		ExpiresAt: now.Add(c.opts.ConfirmTTL),
	}
	c.pending[p.Token] = p
	return p, nil
}

// CancelDelete discards a pending delete; state is left untouched.
func (c *Controller) CancelDelete(token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[token]; !ok {
		return ErrUnknownToken
	}
	delete(c.pending, token)
	return nil
}

// ConfirmDelete consumes token and performs the delete. A backend failure
// is logged and returned; the record stays visible until the next reload
// or notification, except when the store no longer has it.
func (c *Controller) ConfirmDelete(ctx context.Context, token string) (DeleteTarget, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return DeleteTarget{}, ErrClosed
	}
	p, ok := c.pending[token]
	delete(c.pending, token)
	gen := c.gen
	current := c.state.Scope
	c.mu.Unlock()

	if !ok {
		return DeleteTarget{}, ErrUnknownToken
	}
	if c.opts.Now().After(p.ExpiresAt) {
		return DeleteTarget{}, ErrTokenExpired
	}

	var (
		err     error
		touched []collection
	)
	switch p.Target.Kind {
	case TargetTransaction:
		col := collectionFor(p.Target.TxKind)
		err = c.store.Delete(ctx, pathFor(c.ns, col, p.Scope), p.Target.ID)
		touched = []collection{col}
	case TargetInvestment:
		err = c.store.Delete(ctx, c.ns.Investments(), p.Target.ID)
		touched = []collection{colInvestments}
	case TargetGoal:
		err = c.store.Delete(ctx, c.ns.Goals(), p.Target.ID)
		touched = []collection{colGoals}
	case TargetMonth:
		// Both partitions are attempted even if the first fails.
		err = errors.Join(
			c.store.RemoveAll(ctx, c.ns.Income(p.Scope)),
			c.store.RemoveAll(ctx, c.ns.Expense(p.Scope)),
		)
		touched = scopedCollections
	}
	if err != nil {
		c.logError(ctx, "Failed to delete", err, log.OpDelete, string(p.Target.Kind))
		if errors.Is(err, store.ErrNotFound) {
			// Someone else removed it; drop the stale row.
			c.refreshTouched(ctx, touched, p.Scope, current, gen, c.refresh)
		}
		return p.Target, fmt.Errorf("delete %s: %w", p.Target.Kind, err)
	}

	c.refreshTouched(ctx, touched, p.Scope, current, gen, c.afterWrite)
	return p.Target, nil
}

func (c *Controller) refreshTouched(ctx context.Context, touched []collection, scope, current core.Scope, gen uint64,
	fn func(context.Context, collection, core.Scope, uint64)) {
	for _, col := range touched {
		if col.scoped() && scope != current {
			continue
		}
		fn(ctx, col, scope, gen)
	}
}

// checkTargetLocked rejects targets that are not in the current state.
func (c *Controller) checkTargetLocked(t DeleteTarget) error {
	has := func(ok bool) error {
		if !ok {
			return ErrRecordMissing
		}
		return nil
	}
	switch t.Kind {
	case TargetTransaction:
		list := c.state.Expenses
		switch t.TxKind {
		case core.KindIncome:
			list = c.state.Income
		case core.KindExpense:
		default:
			return ErrInvalidTarget
		}
		return has(slices.ContainsFunc(list, func(tx core.Transaction) bool { return tx.ID == t.ID }))
	case TargetInvestment:
		return has(slices.ContainsFunc(c.state.Investments, func(i core.Investment) bool { return i.ID == t.ID }))
	case TargetGoal:
		return has(slices.ContainsFunc(c.state.Goals, func(g core.Goal) bool { return g.ID == t.ID }))
	case TargetMonth:
		return nil
	}
	return ErrInvalidTarget
}

func (c *Controller) purgeExpiredLocked(now time.Time) {
	for tok, p := range c.pending {
		if now.After(p.ExpiresAt) {
			delete(c.pending, tok)
		}
	}
}

// pendingCount is used by tests.
func (c *Controller) pendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
