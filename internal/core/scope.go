package core

import (
	"fmt"
	"strconv"
	"time"
)

var monthNames = [12]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// Scope is the selected month (1-12) and four-digit year. Income and expense
// collections are partitioned by it; investments and goals are not.
type Scope struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func NewScope(year, month int) (Scope, error) {
	s := Scope{Year: year, Month: month}
	if err := s.Validate(); err != nil {
		return Scope{}, err
	}
	return s, nil
}

// CurrentScope returns the scope containing t.
func CurrentScope(t time.Time) Scope {
	return Scope{Year: t.Year(), Month: int(t.Month())}
}

func (s Scope) Validate() error {
	if s.Month < 1 || s.Month > 12 {
		return ErrInvalidMonth
	}
	if s.Year < 1000 || s.Year > 9999 {
		return ErrInvalidYear
	}
	return nil
}

// PartitionKey is the storage path segment for the scope: "{year}/{month}",
// month not zero-padded. Every store adapter uses this one function for
// both reads and writes.
func (s Scope) PartitionKey() string {
	return strconv.Itoa(s.Year) + "/" + strconv.Itoa(s.Month)
}

// MonthName returns the Portuguese month name.
func (s Scope) MonthName() string {
	if s.Month < 1 || s.Month > 12 {
		return ""
	}
	return monthNames[s.Month-1]
}

func (s Scope) String() string {
	return fmt.Sprintf("%04d-%02d", s.Year, s.Month)
}
