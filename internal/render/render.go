// Package render turns application state into display structures: formatted
// rows, goal cards and chart datasets that a front end can draw as is.
package render

import (
	"fmt"
	"time"

	"financas/internal/app"
	"financas/internal/core"
)

const (
	ColorIncome  = "#2ecc71"
	ColorExpense = "#e74c3c"
)

// DefaultProfileName is shown when the profile has no name.
const DefaultProfileName = "Usuário"

type TransactionRow struct {
	ID            string `json:"id"`
	Description   string `json:"description"`
	Amount        string `json:"amount"`
	Color         string `json:"color"`
	Date          string `json:"date"`
	Kind          string `json:"kind"`
	KindLabel     string `json:"kindLabel"`
	Category      string `json:"category"`
	PaymentMethod string `json:"paymentMethod,omitempty"`
}

type InvestmentRow struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
}

type GoalCard struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Current     string  `json:"current"`
	Target      string  `json:"target"`
	Progress    float64 `json:"progress"`
	// Width is the CSS width of the progress bar, e.g. "25.00%".
	Width string `json:"width"`
	Label string `json:"label"`
}

type Summary struct {
	TotalIncome  string `json:"totalIncome"`
	TotalExpense string `json:"totalExpense"`
	Balance      string `json:"balance"`
}

type Dataset struct {
	Label           string    `json:"label,omitempty"`
	Data            []float64 `json:"data"`
	BackgroundColor []string  `json:"backgroundColor"`
	BorderColor     []string  `json:"borderColor"`
	BorderWidth     int       `json:"borderWidth"`
}

type Chart struct {
	Type     string    `json:"type"`
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

type Header struct {
	Month    string `json:"month"`
	Year     int    `json:"year"`
	Time     string `json:"time"`
	Greeting string `json:"greeting"`
	// Clock is the time followed by the greeting, "09:05 Bom dia!".
	Clock    string `json:"clock"`
	UserName string `json:"userName"`
	Premium  bool   `json:"premium"`
}

type Dashboard struct {
	Header       Header           `json:"header"`
	Summary      Summary          `json:"summary"`
	Transactions []TransactionRow `json:"transactions"`
	Expenses     []TransactionRow `json:"expenses"`
	Investments  []InvestmentRow  `json:"investments"`
	Goals        []GoalCard       `json:"goals"`
	Charts       struct {
		IncomeExpense Chart `json:"incomeExpense"`
		Categories    Chart `json:"categories"`
	} `json:"charts"`
}

// TransactionFeed merges income and expense, most recent first.
func TransactionFeed(st app.State) []TransactionRow {
	return transactionRows(core.MergeFeed(st.Income, st.Expenses))
}

// ExpenseList is the expense-only view of the feed, most recent first.
func ExpenseList(st app.State) []TransactionRow {
	return transactionRows(core.FilterKind(core.MergeFeed(st.Income, st.Expenses), core.KindExpense))
}

func transactionRows(txs []core.Transaction) []TransactionRow {
	rows := make([]TransactionRow, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, TransactionRowOf(tx))
	}
	return rows
}

// TransactionRowOf formats one transaction as a feed row.
func TransactionRowOf(tx core.Transaction) TransactionRow {
	color := ColorExpense
	if tx.Kind == core.KindIncome {
		color = ColorIncome
	}
	return TransactionRow{
		ID:            tx.ID,
		Description:   tx.Description,
		Amount:        core.FormatBRL(tx.Amount),
		Color:         color,
		Date:          tx.Date.String(),
		Kind:          string(tx.Kind),
		KindLabel:     tx.Kind.Label(),
		Category:      string(tx.Category),
		PaymentMethod: tx.PaymentMethod,
	}
}

func InvestmentList(st app.State) []InvestmentRow {
	items := core.SortInvestments(st.Investments)
	rows := make([]InvestmentRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, InvestmentRowOf(it))
	}
	return rows
}

func InvestmentRowOf(it core.Investment) InvestmentRow {
	return InvestmentRow{
		ID:          it.ID,
		Description: it.Description,
		Amount:      core.FormatBRL(it.Amount),
		Date:        it.Date.String(),
	}
}

// GoalCards keeps storage order.
func GoalCards(st app.State) []GoalCard {
	cards := make([]GoalCard, 0, len(st.Goals))
	for _, g := range st.Goals {
		cards = append(cards, GoalCardOf(g))
	}
	return cards
}

// GoalCardOf shows the stored progress clamped to 100.
func GoalCardOf(g core.Goal) GoalCard {
	p := core.ClampProgress(g.Progress)
	return GoalCard{
		ID:          g.ID,
		Description: g.Description,
		Current:     core.FormatBRL(g.Current),
		Target:      core.FormatBRL(g.Target),
		Progress:    p,
		Width:       fmt.Sprintf("%.2f%%", p),
		Label:       fmt.Sprintf("%.0f%%", p),
	}
}

func SummaryOf(st app.State) Summary {
	return Summary{
		TotalIncome:  core.FormatBRL(st.Totals.TotalIncome),
		TotalExpense: core.FormatBRL(st.Totals.TotalExpense),
		Balance:      core.FormatBRL(st.Totals.Balance),
	}
}

func IncomeExpenseChart(st app.State) Chart {
	return Chart{
		Type:   "doughnut",
		Labels: []string{"Receita", "Despesa"},
		Datasets: []Dataset{{
			Data:            []float64{st.Totals.TotalIncome.Reais(), st.Totals.TotalExpense.Reais()},
			BackgroundColor: []string{ColorIncome, ColorExpense},
			BorderColor:     []string{"#fff"},
			BorderWidth:     2,
		}},
	}
}

// CategoryChart charts expense per category in first-seen order.
func CategoryChart(st app.State) Chart {
	n := len(st.CategoryTotals)
	labels := make([]string, n)
	data := make([]float64, n)
	bg := make([]string, n)
	border := make([]string, n)
	for i, c := range st.CategoryTotals {
		labels[i] = string(c.Name)
		data[i] = c.Amount.Reais()
		bg[i] = fmt.Sprintf("hsl(%d, 70%%, 60%%)", i*45)
		border[i] = fmt.Sprintf("hsl(%d, 80%%, 50%%)", i*45)
	}
	return Chart{
		Type:   "bar",
		Labels: labels,
		Datasets: []Dataset{{
			Label:           "Total Gasto",
			Data:            data,
			BackgroundColor: bg,
			BorderColor:     border,
			BorderWidth:     1,
		}},
	}
}

// Greeting picks the salutation for the hour of now.
func Greeting(now time.Time) string {
	switch h := now.Hour(); {
	case h < 12:
		return "Bom dia!"
	case h < 18:
		return "Boa tarde!"
	default:
		return "Boa noite!"
	}
}

func HeaderOf(st app.State, now time.Time) Header {
	name := st.Profile.Name
	if name == "" {
		name = DefaultProfileName
	}
	clock := now.Format("15:04")
	greeting := Greeting(now)
	return Header{
		Month:    st.Scope.MonthName(),
		Year:     st.Scope.Year,
		Time:     clock,
		Greeting: greeting,
		Clock:    clock + " " + greeting,
		UserName: name,
		Premium:  st.Profile.IsPremium,
	}
}

// DashboardOf builds every view of st at once.
func DashboardOf(st app.State, now time.Time) Dashboard {
	d := Dashboard{
		Header:       HeaderOf(st, now),
		Summary:      SummaryOf(st),
		Transactions: TransactionFeed(st),
		Expenses:     ExpenseList(st),
		Investments:  InvestmentList(st),
		Goals:        GoalCards(st),
	}
	d.Charts.IncomeExpense = IncomeExpenseChart(st)
	d.Charts.Categories = CategoryChart(st)
	return d
}
