// Package app holds the per-user application state and the controller that
// mutates it through the storage port.
package app

import (
	"slices"

	"financas/internal/core"
)

// State is everything one user sees. Aggregates are re-derived whenever a
// collection is replaced and are never updated incrementally.
type State struct {
	Scope       core.Scope
	Income      []core.Transaction
	Expenses    []core.Transaction
	Investments []core.Investment
	Goals       []core.Goal
	Profile     core.UserProfile

	Totals         core.Totals
	CategoryTotals []core.CategoryAmount
}

// Transactions returns income followed by expenses, in storage order.
func (s State) Transactions() []core.Transaction {
	out := make([]core.Transaction, 0, len(s.Income)+len(s.Expenses))
	out = append(out, s.Income...)
	return append(out, s.Expenses...)
}

func (s *State) derive() {
	s.Totals = core.ComputeTotals(s.Transactions())
	s.CategoryTotals = core.CategoryBreakdown(s.Expenses)
}

func (s State) clone() State {
	s.Income = slices.Clone(s.Income)
	s.Expenses = slices.Clone(s.Expenses)
	s.Investments = slices.Clone(s.Investments)
	s.Goals = slices.Clone(s.Goals)
	s.CategoryTotals = slices.Clone(s.CategoryTotals)
	return s
}
