package core

import (
	"errors"
	"strings"
	"testing"
)

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"receita": KindIncome, "Income": KindIncome, " despesa ": KindExpense, "expense": KindExpense} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseKind("transfer"); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestParseCategory(t *testing.T) {
	cases := []struct {
		kind Kind
		in   string
		want Category
		ok   bool
	}{
		{KindIncome, "salário", CategorySalary, true},
		{KindIncome, "Freelance", CategoryFreelance, true},
		{KindIncome, "", CategoryOther, true},
		{KindIncome, "Lazer", "", false},
		{KindExpense, "lazer", CategoryLeisure, true},
		{KindExpense, "ALIMENTAÇÃO", CategoryFood, true},
		{KindExpense, "outros", CategoryOther, true},
		{KindExpense, "Venda", "", false},
	}
	for _, tc := range cases {
		got, err := ParseCategory(tc.kind, tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("ParseCategory(%s, %q) = %q, %v; want %q", tc.kind, tc.in, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Errorf("ParseCategory(%s, %q) expected error", tc.kind, tc.in)
		}
	}
}

func TestKindVocabularies(t *testing.T) {
	if n := len(KindIncome.Categories()); n != 4 {
		t.Fatalf("income vocabulary has %d entries", n)
	}
	if n := len(KindExpense.Categories()); n != 9 {
		t.Fatalf("expense vocabulary has %d entries", n)
	}
	// Returned slices are copies.
	cats := KindIncome.Categories()
	cats[0] = "x"
	if KindIncome.Categories()[0] != CategorySalary {
		t.Fatal("vocabulary mutated through returned slice")
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Description: "ok",
		Amount:      Money{Cents: 100},
		Kind:        KindExpense,
		Category:    CategoryBills,
		Date:        NewDate(2025, 1, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Description: "", Amount: Money{Cents: 1}, Kind: KindExpense, Category: CategoryBills, Date: NewDate(2025, 1, 1)},
		{Description: strings.Repeat("a", 201), Amount: Money{Cents: 1}, Kind: KindExpense, Category: CategoryBills, Date: NewDate(2025, 1, 1)},
		{Description: "a", Amount: Money{Cents: 0}, Kind: KindExpense, Category: CategoryBills, Date: NewDate(2025, 1, 1)},
		{Description: "a", Amount: Money{Cents: 1}, Kind: "x", Category: CategoryBills, Date: NewDate(2025, 1, 1)},
		{Description: "a", Amount: Money{Cents: 1}, Kind: KindIncome, Category: CategoryBills, Date: NewDate(2025, 1, 1)},
		{Description: "a", Amount: Money{Cents: 1}, Kind: KindIncome, Category: CategorySalary, PaymentMethod: "Pix", Date: NewDate(2025, 1, 1)},
		{Description: "a", Amount: Money{Cents: 1}, Kind: KindExpense, Category: CategoryBills},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestGoalValidate(t *testing.T) {
	if err := (Goal{Description: "Viagem", Target: Money{Cents: 100}, Current: Money{}}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Goal{Description: "Viagem", Target: Money{Cents: 100}, Current: Money{Cents: -1}}).Validate(); err == nil {
		t.Fatal("expected negative current to be rejected")
	}
	if err := (Goal{Description: "Viagem", Target: Money{}, Current: Money{}}).Validate(); err == nil {
		t.Fatal("expected zero target to be rejected")
	}
}
