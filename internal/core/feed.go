package core

import "slices"

// SortByDateDesc returns a copy of items ordered most recent first. The sort
// is stable: records with equal dates keep their input order. Records whose
// date could not be parsed carry the zero date and end up last.
func SortByDateDesc[T any](items []T, date func(T) Date) []T {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b T) int {
		return date(b).Compare(date(a))
	})
	return out
}

// MergeFeed joins income and expense (in that order) and sorts the result by
// date, most recent first.
func MergeFeed(income, expense []Transaction) []Transaction {
	all := make([]Transaction, 0, len(income)+len(expense))
	all = append(all, income...)
	all = append(all, expense...)
	return SortByDateDesc(all, transactionDate)
}

// SortInvestments orders investments by date, most recent first.
func SortInvestments(items []Investment) []Investment {
	return SortByDateDesc(items, func(i Investment) Date { return i.Date })
}

// FilterKind keeps the transactions of one kind, preserving order.
func FilterKind(txs []Transaction, kind Kind) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}

func transactionDate(t Transaction) Date { return t.Date }
