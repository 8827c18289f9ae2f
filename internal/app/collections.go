package app

import (
	"encoding/json"

	"financas/internal/core"
	"financas/internal/store"
)

type collection int

const (
	colIncome collection = iota
	colExpense
	colInvestments
	colGoals
	colProfile
)

var (
	allCollections    = []collection{colIncome, colExpense, colInvestments, colGoals, colProfile}
	scopedCollections = []collection{colIncome, colExpense}
)

func (c collection) String() string {
	switch c {
	case colIncome:
		return "income"
	case colExpense:
		return "expense"
	case colInvestments:
		return "investments"
	case colGoals:
		return "goals"
	case colProfile:
		return "profile"
	}
	return "unknown"
}

// scoped reports whether the collection is partitioned by month.
func (c collection) scoped() bool {
	return c == colIncome || c == colExpense
}

func collectionFor(kind core.Kind) collection {
	if kind == core.KindIncome {
		return colIncome
	}
	return colExpense
}

func pathFor(ns store.Namespace, c collection, s core.Scope) store.Path {
	switch c {
	case colIncome:
		return ns.Income(s)
	case colExpense:
		return ns.Expense(s)
	case colInvestments:
		return ns.Investments()
	case colGoals:
		return ns.Goals()
	default:
		return ns.Profile()
	}
}

// apply decodes recs into the matching part of st and re-derives the
// aggregates. Records that do not decode are skipped and returned as bad.
// Records that decode but fail validation are kept and returned as invalid.
func apply(st *State, c collection, recs []store.Record) (bad, invalid []string) {
	switch c {
	case colIncome, colExpense:
		kind := core.KindExpense
		if c == colIncome {
			kind = core.KindIncome
		}
		txs := make([]core.Transaction, 0, len(recs))
		for _, r := range recs {
			var tx core.Transaction
			if err := json.Unmarshal(r.Data, &tx); err != nil {
				bad = append(bad, r.ID)
				continue
			}
			tx.ID = r.ID
			// The partition decides the kind, whatever the payload says.
			tx.Kind = kind
			if tx.Validate() != nil {
				invalid = append(invalid, r.ID)
			}
			txs = append(txs, tx)
		}
		if c == colIncome {
			st.Income = txs
		} else {
			st.Expenses = txs
		}
	case colInvestments:
		items := make([]core.Investment, 0, len(recs))
		for _, r := range recs {
			var it core.Investment
			if err := json.Unmarshal(r.Data, &it); err != nil {
				bad = append(bad, r.ID)
				continue
			}
			it.ID = r.ID
			if it.Validate() != nil {
				invalid = append(invalid, r.ID)
			}
			items = append(items, it)
		}
		st.Investments = items
	case colGoals:
		goals := make([]core.Goal, 0, len(recs))
		for _, r := range recs {
			var g core.Goal
			if err := json.Unmarshal(r.Data, &g); err != nil {
				bad = append(bad, r.ID)
				continue
			}
			g.ID = r.ID
			if g.Validate() != nil {
				invalid = append(invalid, r.ID)
			}
			goals = append(goals, g)
		}
		st.Goals = goals
	case colProfile:
		st.Profile = core.UserProfile{}
		// The profile collection holds one document; the last one wins.
		for _, r := range recs {
			var p core.UserProfile
			if err := json.Unmarshal(r.Data, &p); err != nil {
				bad = append(bad, r.ID)
				continue
			}
			st.Profile = p
		}
	}
	st.derive()
	return bad, invalid
}
