// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"financas/internal/core"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 64 << 10

var errBodyTooLarge = errors.New("request body too large")

// ParseScopeParams reads month and year from the query. A missing value
// keeps the corresponding part of current; a malformed one is an error.
// The second result reports whether either parameter was present.
func ParseScopeParams(query url.Values, current core.Scope) (core.Scope, bool, error) {
	scope := current
	present := false

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return core.Scope{}, true, core.ErrInvalidYear
		}
		scope.Year = y
		present = true
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return core.Scope{}, true, core.ErrInvalidMonth
		}
		scope.Month = m
		present = true
	}

	if err := scope.Validate(); err != nil {
		return core.Scope{}, present, err
	}
	return scope, present, nil
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON objects and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once, up to maxBodyBytes, and stores it for parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = errBodyTooLarge
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' || strings.HasPrefix(p.contentType, "application/json") {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(trimmed), &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(trimmed)
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// TransactionInput maps the body onto the add-transaction form.
func (p *RequestBodyParser) TransactionInput() core.TransactionInput {
	return core.TransactionInput{
		Description:   p.Get("description"),
		Amount:        p.Get("amount"),
		Kind:          p.Get("kind"),
		Category:      p.Get("category"),
		PaymentMethod: p.Get("paymentMethod"),
		Date:          p.Get("date"),
	}
}

func (p *RequestBodyParser) InvestmentInput() core.InvestmentInput {
	return core.InvestmentInput{
		Description: p.Get("description"),
		Amount:      p.Get("amount"),
		Date:        p.Get("date"),
	}
}

func (p *RequestBodyParser) GoalInput() core.GoalInput {
	return core.GoalInput{
		Description: p.Get("description"),
		Target:      p.Get("target"),
		Current:     p.Get("current"),
	}
}

// stringValue converts a decoded JSON value to string. Numbers keep their
// shortest representation so 12.5 stays "12.5".
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput drops control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
