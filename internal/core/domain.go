package core

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	KindIncome  Kind = "receita"
	KindExpense Kind = "despesa"
)

const (
	CategorySalary    Category = "Salário"
	CategorySale      Category = "Venda"
	CategoryFreelance Category = "Freelance"
	CategoryOther     Category = "Outros"

	CategoryFood      Category = "Alimentação"
	CategoryHousing   Category = "Moradia"
	CategoryTransport Category = "Transporte"
	CategoryEducation Category = "Educação"
	CategoryHealth    Category = "Saúde"
	CategoryLeisure   Category = "Lazer"
	CategoryBills     Category = "Contas"
	CategoryShopping  Category = "Compras"
)

// MaxDescriptionLength bounds every free-text description.
const MaxDescriptionLength = 200

type (
	// Kind discriminates income from expense and selects the category vocabulary.
	Kind string

	Category string

	Transaction struct {
		ID            string   `json:"-"`
		Description   string   `json:"descricao"`
		Amount        Money    `json:"valor"`
		Kind          Kind     `json:"tipo"`
		Category      Category `json:"categoria"`
		PaymentMethod string   `json:"meioPagamento,omitempty"`
		Date          Date     `json:"data"`
	}

	Investment struct {
		ID          string `json:"-"`
		Description string `json:"descricao"`
		Amount      Money  `json:"valor"`
		Date        Date   `json:"data"`
	}

	// Goal is a savings target. Progress is computed once at creation and is
	// not kept in sync with Current or Target afterwards.
	Goal struct {
		ID          string  `json:"-"`
		Description string  `json:"descricao"`
		Target      Money   `json:"alvo"`
		Current     Money   `json:"atual"`
		Progress    float64 `json:"progresso"`
	}

	// UserProfile is loaded for display only; IsPremium gates nothing.
	UserProfile struct {
		Name      string `json:"name"`
		Email     string `json:"email,omitempty"`
		IsPremium bool   `json:"isPremium"`
	}
)

var (
	ErrInvalidDay        = errors.New("invalid day")
	ErrInvalidMonth      = errors.New("invalid month")
	ErrInvalidYear       = errors.New("invalid year")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrNegativeAmount    = errors.New("negative amount")
	ErrEmptyDescription  = errors.New("empty description")
	ErrDescriptionLength = errors.New("description too long (max 200 characters)")
	ErrInvalidKind       = errors.New("invalid transaction kind")
	ErrInvalidCategory   = errors.New("invalid category")
)

var (
	incomeCategories = []Category{CategorySalary, CategorySale, CategoryFreelance, CategoryOther}

	expenseCategories = []Category{
		CategoryFood, CategoryHousing, CategoryTransport, CategoryEducation, CategoryHealth,
		CategoryLeisure, CategoryBills, CategoryShopping, CategoryOther,
	}
)

// ParseKind accepts the stored Portuguese values as well as their English names.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "receita", "income":
		return KindIncome, nil
	case "despesa", "expense":
		return KindExpense, nil
	}
	return "", ErrInvalidKind
}

func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// Label returns the feed label shown next to a transaction.
func (k Kind) Label() string {
	if k == KindIncome {
		return "Entrada"
	}
	return "Saída"
}

// Categories returns the closed vocabulary for the kind.
func (k Kind) Categories() []Category {
	switch k {
	case KindIncome:
		return append([]Category(nil), incomeCategories...)
	case KindExpense:
		return append([]Category(nil), expenseCategories...)
	}
	return nil
}

// ParseCategory matches s case-insensitively against the kind's vocabulary
// and returns the canonical name. An empty value maps to Outros.
func ParseCategory(kind Kind, s string) (Category, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CategoryOther, nil
	}
	for _, c := range kind.Categories() {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", ErrInvalidCategory
}

func validateDescription(desc string) error {
	if len(strings.TrimSpace(desc)) == 0 {
		return ErrEmptyDescription
	}
	if utf8.RuneCountInString(desc) > MaxDescriptionLength {
		return ErrDescriptionLength
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := validateDescription(t.Description); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if _, err := ParseCategory(t.Kind, string(t.Category)); err != nil {
		return err
	}
	if t.Kind == KindIncome && t.PaymentMethod != "" {
		return errors.New("payment method is only allowed on expenses")
	}
	return t.Date.Validate()
}

func (i Investment) Validate() error {
	if err := validateDescription(i.Description); err != nil {
		return err
	}
	if err := i.Amount.Validate(); err != nil {
		return err
	}
	return i.Date.Validate()
}

func (g Goal) Validate() error {
	if err := validateDescription(g.Description); err != nil {
		return err
	}
	if err := g.Target.Validate(); err != nil {
		return err
	}
	if g.Current.Cents < 0 {
		return ErrNegativeAmount
	}
	return nil
}
