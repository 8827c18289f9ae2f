package core

import (
	"errors"
	"strings"
)

// User-facing messages shown when a form is rejected.
const (
	MsgInvalidEntry    = "Por favor, preencha a descrição e um valor válido."
	MsgInvalidGoal     = "Por favor, preencha todos os campos com valores válidos."
	MsgInvalidKind     = "Tipo de movimentação inválido."
	MsgInvalidCategory = "Categoria inválida para o tipo selecionado."
	MsgInvalidDate     = "Data inválida. Use o formato DD/MM/AAAA."
	MsgDescriptionLong = "A descrição deve ter no máximo 200 caracteres."
)

// ValidationError rejects a whole add operation. Message is safe to show to
// the user; Err is the underlying sentinel for errors.Is.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field, msg string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: msg, Err: err}
}

// TransactionInput holds the raw fields of the add-transaction form.
type TransactionInput struct {
	Description   string `json:"description"`
	Amount        string `json:"amount"`
	Kind          string `json:"kind"`
	Category      string `json:"category"`
	PaymentMethod string `json:"paymentMethod"`
	// Date is optional (DD/MM/YYYY); the caller's "today" is used when empty.
	Date string `json:"date"`
}

// Build validates the input and constructs the record. Nothing is returned
// on failure besides a *ValidationError.
func (in TransactionInput) Build(today Date) (Transaction, error) {
	desc := strings.TrimSpace(in.Description)
	if err := validateDescription(desc); err != nil {
		return Transaction{}, descriptionError(err, MsgInvalidEntry)
	}
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return Transaction{}, invalid("amount", MsgInvalidEntry, err)
	}
	kind, err := ParseKind(in.Kind)
	if err != nil {
		return Transaction{}, invalid("kind", MsgInvalidKind, err)
	}
	cat, err := ParseCategory(kind, in.Category)
	if err != nil {
		return Transaction{}, invalid("category", MsgInvalidCategory, err)
	}
	date, err := dateOrToday(in.Date, today)
	if err != nil {
		return Transaction{}, err
	}
	tx := Transaction{
		Description: desc,
		Amount:      amount,
		Kind:        kind,
		Category:    cat,
		Date:        date,
	}
	if kind == KindExpense {
		tx.PaymentMethod = strings.TrimSpace(in.PaymentMethod)
	}
	return tx, nil
}

// InvestmentInput holds the raw fields of the add-investment form.
type InvestmentInput struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
}

func (in InvestmentInput) Build(today Date) (Investment, error) {
	desc := strings.TrimSpace(in.Description)
	if err := validateDescription(desc); err != nil {
		return Investment{}, descriptionError(err, MsgInvalidEntry)
	}
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return Investment{}, invalid("amount", MsgInvalidEntry, err)
	}
	date, err := dateOrToday(in.Date, today)
	if err != nil {
		return Investment{}, err
	}
	return Investment{Description: desc, Amount: amount, Date: date}, nil
}

// GoalInput holds the raw fields of the add-goal form.
type GoalInput struct {
	Description string `json:"description"`
	Target      string `json:"target"`
	Current     string `json:"current"`
}

// Build validates the goal and fixes its progress at creation time.
func (in GoalInput) Build() (Goal, error) {
	desc := strings.TrimSpace(in.Description)
	if err := validateDescription(desc); err != nil {
		return Goal{}, descriptionError(err, MsgInvalidGoal)
	}
	target, err := ParseAmount(in.Target)
	if err != nil {
		return Goal{}, invalid("target", MsgInvalidGoal, err)
	}
	current, err := ParseNonNegativeAmount(in.Current)
	if err != nil {
		return Goal{}, invalid("current", MsgInvalidGoal, err)
	}
	return Goal{
		Description: desc,
		Target:      target,
		Current:     current,
		Progress:    ComputeGoalProgress(current, target),
	}, nil
}

func descriptionError(err error, emptyMsg string) *ValidationError {
	if errors.Is(err, ErrDescriptionLength) {
		return invalid("description", MsgDescriptionLong, err)
	}
	return invalid("description", emptyMsg, err)
}

func dateOrToday(s string, today Date) (Date, error) {
	if strings.TrimSpace(s) == "" {
		return today, nil
	}
	d, err := ParseDate(s)
	if err != nil {
		return Date{}, invalid("date", MsgInvalidDate, err)
	}
	return d, nil
}
