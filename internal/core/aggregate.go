package core

// Totals are the derived monthly figures shown on the dashboard.
type Totals struct {
	TotalIncome  Money
	TotalExpense Money
	Balance      Money
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   Category
	Amount Money
}

// ComputeTotals sums amounts by kind. Balance is income minus expense.
func ComputeTotals(transactions []Transaction) Totals {
	var t Totals
	for _, tx := range transactions {
		switch tx.Kind {
		case KindIncome:
			t.TotalIncome = t.TotalIncome.Add(tx.Amount)
		case KindExpense:
			t.TotalExpense = t.TotalExpense.Add(tx.Amount)
		}
	}
	t.Balance = t.TotalIncome.Sub(t.TotalExpense)
	return t
}

// ComputeCategoryTotals sums amounts per category. Callers pass expenses;
// the kind is not re-checked here.
func ComputeCategoryTotals(expenses []Transaction) map[Category]Money {
	out := make(map[Category]Money)
	for _, e := range expenses {
		out[e.Category] = out[e.Category].Add(e.Amount)
	}
	return out
}

// CategoryBreakdown is ComputeCategoryTotals in first-seen order, for charts.
func CategoryBreakdown(expenses []Transaction) []CategoryAmount {
	totals := ComputeCategoryTotals(expenses)
	out := make([]CategoryAmount, 0, len(totals))
	seen := make(map[Category]bool, len(totals))
	for _, e := range expenses {
		if seen[e.Category] {
			continue
		}
		seen[e.Category] = true
		out = append(out, CategoryAmount{Name: e.Category, Amount: totals[e.Category]})
	}
	return out
}

// ComputeGoalProgress returns current/target x 100. The value is not
// clamped; use ClampProgress for display. A non-positive target yields 0.
func ComputeGoalProgress(current, target Money) float64 {
	if target.Cents <= 0 {
		return 0
	}
	return float64(current.Cents) / float64(target.Cents) * 100
}

// ClampProgress limits a progress percentage to [0, 100] for display.
func ClampProgress(p float64) float64 {
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return p
}
