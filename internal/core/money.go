// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from form input
// and formatting cents as Brazilian Real.
package core

import (
	"bytes"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

type Money struct {
	Cents int64
}

var maxCents = decimal.NewFromInt(math.MaxInt64)

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

// Reais returns the value as a float64 for display and chart datasets.
// Use cents for calculations.
func (m Money) Reais() float64 {
	return m.Decimal().InexactFloat64()
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// MarshalJSON writes the amount as a plain JSON number in reais (e.g. 1000.5 -> 1000.50).
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().StringFixed(2)), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string in reais.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || string(data) == "null" {
		m.Cents = 0
		return nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(string(data), ",", "."))
	if err != nil {
		return ErrInvalidAmount
	}
	m.Cents = d.Shift(2).Round(0).IntPart()
	return nil
}

// ParseAmount parses a positive decimal amount typed by a user.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half away from zero to whole cents. Zero, negative, non-finite and
// malformed values are rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("1000")   -> Money{100000}, nil
//	ParseAmount("12,34")  -> Money{1234}, nil
//	ParseAmount("1.005")  -> Money{101}, nil
//	ParseAmount("-5")     -> ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	m, err := parseCents(s)
	if err != nil {
		return Money{}, err
	}
	if m.Cents <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return m, nil
}

// ParseNonNegativeAmount is ParseAmount that also accepts zero.
func ParseNonNegativeAmount(s string) (Money, error) {
	m, err := parseCents(s)
	if err != nil {
		return Money{}, err
	}
	if m.Cents < 0 {
		return Money{}, ErrNegativeAmount
	}
	return m, nil
}

func parseCents(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	if strings.Count(s, ",") > 1 || (strings.Contains(s, ",") && strings.Contains(s, ".")) {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.ContainsAny(s, "eE") {
		// Exponent notation is not something a person types into a money field.
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Shift(2).Round(0)
	if cents.Abs().GreaterThan(maxCents) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// FormatBRL formats cents as "R$ 1234,56". Negative values keep the sign
// after the currency symbol ("R$ -5,00").
func FormatBRL(m Money) string {
	return "R$ " + strings.Replace(m.Decimal().StringFixed(2), ".", ",", 1)
}
