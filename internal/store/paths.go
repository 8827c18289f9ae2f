package store

import "financas/internal/core"

// Collection roots.
const (
	RootIncome      = "receitas"
	RootExpense     = "despesas"
	RootInvestments = "investimentos"
	RootGoals       = "metas"
	RootUsers       = "users"
	RootCredentials = "credenciais"
)

// Namespace builds the collection paths of one user. With an empty User
// (authentication disabled) the user segment is dropped and every visitor
// shares the same collections.
type Namespace struct {
	User string
}

// Transactions returns the partition holding transactions of kind in scope.
func (n Namespace) Transactions(kind core.Kind, s core.Scope) Path {
	root := RootExpense
	if kind == core.KindIncome {
		root = RootIncome
	}
	return Join(root, n.User, s.PartitionKey())
}

func (n Namespace) Income(s core.Scope) Path {
	return n.Transactions(core.KindIncome, s)
}

func (n Namespace) Expense(s core.Scope) Path {
	return n.Transactions(core.KindExpense, s)
}

func (n Namespace) Investments() Path {
	return Join(RootInvestments, n.User)
}

func (n Namespace) Goals() Path {
	return Join(RootGoals, n.User)
}

// Profile holds a single record with the user's profile document.
func (n Namespace) Profile() Path {
	return Join(RootUsers, n.User)
}

// Credentials is keyed by login email and holds one record per account.
func Credentials(email string) Path {
	return Join(RootCredentials, email)
}
