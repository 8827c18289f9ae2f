package core

import (
	"math"
	"testing"
)

func tx(kind Kind, cat Category, cents int64, d Date) Transaction {
	return Transaction{Description: string(cat), Amount: Money{Cents: cents}, Kind: kind, Category: cat, Date: d}
}

func TestComputeTotals(t *testing.T) {
	d := NewDate(2025, 1, 1)
	txs := []Transaction{
		tx(KindIncome, CategorySalary, 300000, d),
		tx(KindIncome, CategoryFreelance, 50050, d),
		tx(KindExpense, CategoryFood, 12345, d),
		tx(KindExpense, CategoryBills, 1, d),
	}
	got := ComputeTotals(txs)
	if got.TotalIncome.Cents != 350050 || got.TotalExpense.Cents != 12346 {
		t.Fatalf("unexpected totals %+v", got)
	}
	if got.Balance.Cents != got.TotalIncome.Cents-got.TotalExpense.Cents {
		t.Fatalf("balance identity broken: %+v", got)
	}
}

func TestComputeTotalsSingleSalary(t *testing.T) {
	got := ComputeTotals([]Transaction{tx(KindIncome, CategorySalary, 100000, NewDate(2025, 5, 1))})
	if got.TotalIncome.Cents != 100000 || got.TotalExpense.Cents != 0 || got.Balance.Cents != 100000 {
		t.Fatalf("got %+v", got)
	}
}

func TestComputeTotalsEmpty(t *testing.T) {
	if got := ComputeTotals(nil); got != (Totals{}) {
		t.Fatalf("got %+v", got)
	}
}

func TestComputeCategoryTotals(t *testing.T) {
	d := NewDate(2025, 1, 1)
	expenses := []Transaction{
		tx(KindExpense, CategoryLeisure, 5000, d),
		tx(KindExpense, CategoryBills, 2000, d),
		tx(KindExpense, CategoryLeisure, 3000, d),
	}
	got := ComputeCategoryTotals(expenses)
	if len(got) != 2 || got[CategoryLeisure].Cents != 8000 || got[CategoryBills].Cents != 2000 {
		t.Fatalf("got %+v", got)
	}

	breakdown := CategoryBreakdown(expenses)
	if len(breakdown) != 2 || breakdown[0].Name != CategoryLeisure || breakdown[1].Name != CategoryBills {
		t.Fatalf("unexpected breakdown order %+v", breakdown)
	}
	if breakdown[0].Amount.Cents != 8000 {
		t.Fatalf("unexpected breakdown amount %+v", breakdown[0])
	}
}

func TestComputeGoalProgress(t *testing.T) {
	cases := []struct {
		current, target int64
		want, clamped   float64
	}{
		{5000, 20000, 25, 25},
		{15000, 10000, 150, 100},
		{0, 10000, 0, 0},
		{10000, 10000, 100, 100},
		{100, 0, 0, 0},
	}
	for _, tc := range cases {
		got := ComputeGoalProgress(Money{Cents: tc.current}, Money{Cents: tc.target})
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("progress(%d, %d) = %v, want %v", tc.current, tc.target, got, tc.want)
		}
		if c := ClampProgress(got); math.Abs(c-tc.clamped) > 1e-9 {
			t.Errorf("clamp(%v) = %v, want %v", got, c, tc.clamped)
		}
	}
	if ClampProgress(-3) != 0 {
		t.Fatal("negative progress not clamped")
	}
}
