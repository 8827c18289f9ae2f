package render

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"financas/internal/app"
	"financas/internal/core"
)

func money(reais int64) core.Money { return core.Money{Cents: reais * 100} }

func sampleState() app.State {
	income := []core.Transaction{
		{ID: "i1", Description: "Salary", Amount: money(1000), Kind: core.KindIncome, Category: core.CategorySalary, Date: core.NewDate(2024, 3, 5)},
	}
	expenses := []core.Transaction{
		{ID: "e1", Description: "Cinema", Amount: money(80), Kind: core.KindExpense, Category: core.CategoryLeisure, Date: core.NewDate(2024, 3, 10), PaymentMethod: "pix"},
		{ID: "e2", Description: "Luz", Amount: money(20), Kind: core.KindExpense, Category: core.CategoryBills, Date: core.NewDate(2024, 3, 1)},
	}
	all := append(append([]core.Transaction(nil), income...), expenses...)
	return app.State{
		Scope:    core.Scope{Year: 2024, Month: 3},
		Income:   income,
		Expenses: expenses,
		Investments: []core.Investment{
			{ID: "v1", Description: "CDB", Amount: money(100), Date: core.NewDate(2024, 1, 2)},
			{ID: "v2", Description: "Tesouro", Amount: money(50), Date: core.NewDate(2024, 2, 2)},
		},
		Goals: []core.Goal{
			{ID: "g1", Description: "Viagem", Target: money(1000), Current: money(250), Progress: 25},
			{ID: "g2", Description: "Carro", Target: money(100), Current: money(150), Progress: 150},
		},
		Totals:         core.ComputeTotals(all),
		CategoryTotals: core.CategoryBreakdown(expenses),
	}
}

func TestTransactionFeed(t *testing.T) {
	rows := TransactionFeed(sampleState())
	var ids []string
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	if got := strings.Join(ids, ","); got != "e1,i1,e2" {
		t.Fatalf("order = %s", got)
	}
	if rows[1].KindLabel != "Entrada" || rows[1].Color != ColorIncome || rows[1].Amount != "R$ 1000,00" {
		t.Errorf("income row = %+v", rows[1])
	}
	if rows[0].KindLabel != "Saída" || rows[0].Color != ColorExpense || rows[0].Date != "10/03/2024" {
		t.Errorf("expense row = %+v", rows[0])
	}
}

func TestExpenseListAndInvestments(t *testing.T) {
	st := sampleState()
	exp := ExpenseList(st)
	if len(exp) != 2 || exp[0].ID != "e1" {
		t.Errorf("expenses = %+v", exp)
	}
	inv := InvestmentList(st)
	if len(inv) != 2 || inv[0].ID != "v2" || inv[0].Amount != "R$ 50,00" {
		t.Errorf("investments = %+v", inv)
	}
}

func TestGoalCardsClampProgress(t *testing.T) {
	cards := GoalCards(sampleState())
	tests := []struct {
		id, width, label string
		progress         float64
	}{
		{"g1", "25.00%", "25%", 25},
		{"g2", "100.00%", "100%", 100},
	}
	for i, tt := range tests {
		c := cards[i]
		if c.ID != tt.id || c.Width != tt.width || c.Label != tt.label || c.Progress != tt.progress {
			t.Errorf("card %d = %+v", i, c)
		}
	}
}

func TestSummary(t *testing.T) {
	got := SummaryOf(sampleState())
	want := Summary{TotalIncome: "R$ 1000,00", TotalExpense: "R$ 100,00", Balance: "R$ 900,00"}
	if got != want {
		t.Errorf("summary = %+v, want %+v", got, want)
	}
}

func TestCategoryChart(t *testing.T) {
	c := CategoryChart(sampleState())
	if strings.Join(c.Labels, ",") != "Lazer,Contas" {
		t.Fatalf("labels = %v", c.Labels)
	}
	ds := c.Datasets[0]
	if ds.Data[0] != 80 || ds.Data[1] != 20 {
		t.Errorf("data = %v", ds.Data)
	}
	if ds.BackgroundColor[1] != "hsl(45, 70%, 60%)" || ds.BorderColor[0] != "hsl(0, 80%, 50%)" {
		t.Errorf("colors = %v / %v", ds.BackgroundColor, ds.BorderColor)
	}
}

func TestIncomeExpenseChart(t *testing.T) {
	c := IncomeExpenseChart(sampleState())
	if c.Type != "doughnut" || c.Labels[0] != "Receita" || c.Labels[1] != "Despesa" {
		t.Fatalf("chart = %+v", c)
	}
	if d := c.Datasets[0].Data; d[0] != 1000 || d[1] != 100 {
		t.Errorf("data = %v", d)
	}
}

func TestGreeting(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{0, "Bom dia!"},
		{11, "Bom dia!"},
		{12, "Boa tarde!"},
		{17, "Boa tarde!"},
		{18, "Boa noite!"},
		{23, "Boa noite!"},
	}
	for _, tt := range tests {
		now := time.Date(2024, 3, 1, tt.hour, 0, 0, 0, time.UTC)
		if got := Greeting(now); got != tt.want {
			t.Errorf("Greeting(%dh) = %q, want %q", tt.hour, got, tt.want)
		}
	}
}

func TestHeader(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 5, 0, 0, time.UTC)
	h := HeaderOf(sampleState(), now)
	if h.Month != "Março" || h.Clock != "09:05 Bom dia!" || h.UserName != DefaultProfileName {
		t.Errorf("header = %+v", h)
	}

	st := sampleState()
	st.Profile = core.UserProfile{Name: "Ana"}
	if got := HeaderOf(st, now).UserName; got != "Ana" {
		t.Errorf("user name = %q", got)
	}
}

func TestDashboardOfEmptyStateEncodes(t *testing.T) {
	d := DashboardOf(app.State{Scope: core.Scope{Year: 2024, Month: 1}}, time.Now())
	if d.Summary.Balance != "R$ 0,00" {
		t.Errorf("balance = %q", d.Summary.Balance)
	}
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	// Empty lists encode as [] so clients need no null checks.
	if strings.Contains(string(b), "null") {
		t.Errorf("dashboard json contains null: %s", b)
	}
}
