package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"financas/internal/core"
)

func TestParseScopeParams(t *testing.T) {
	current := core.Scope{Year: 2024, Month: 3}
	tests := []struct {
		name        string
		query       string
		want        core.Scope
		wantPresent bool
		wantErr     error
	}{
		{"none keeps current", "", current, false, nil},
		{"both", "month=12&year=2023", core.Scope{Year: 2023, Month: 12}, true, nil},
		{"month only", "month=7", core.Scope{Year: 2024, Month: 7}, true, nil},
		{"month out of range", "month=13", core.Scope{}, true, core.ErrInvalidMonth},
		{"month not a number", "month=abc", core.Scope{}, true, core.ErrInvalidMonth},
		{"short year", "year=24", core.Scope{}, true, core.ErrInvalidYear},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			got, present, err := ParseScopeParams(q, current)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want || present != tt.wantPresent {
				t.Errorf("got %+v present=%v, want %+v present=%v", got, present, tt.want, tt.wantPresent)
			}
		})
	}
}

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"description": " Mercado ", "amount": 42.5, "kind": "despesa", "category": "Alimentação"}`
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	in := parser.TransactionInput()
	want := core.TransactionInput{Description: "Mercado", Amount: "42.5", Kind: "despesa", Category: "Alimentação"}
	if in != want {
		t.Errorf("TransactionInput() = %+v, want %+v", in, want)
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	body := "description=Viagem&target=1000&current=250"
	req := httptest.NewRequest(http.MethodPost, "/api/goals", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := parser.GoalInput(); got != (core.GoalInput{Description: "Viagem", Target: "1000", Current: "250"}) {
		t.Errorf("GoalInput() = %+v", got)
	}
}

func TestRequestBodyParser_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"description":`},
		{"too large", `{"description":"` + strings.Repeat("a", maxBodyBytes) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/goals", strings.NewReader(tt.body))
			if err := NewRequestBodyParser(req).Parse(); err == nil {
				t.Error("Parse() accepted the body")
			}
		})
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(""))

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if val := parser.Get("nonexistent"); val != "" {
		t.Errorf("Get('nonexistent') = %q, want empty string", val)
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  a\x00b\tc\n "); got != "ab\tc" {
		t.Errorf("sanitizeInput() = %q", got)
	}
}
