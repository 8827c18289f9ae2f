package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in      string
		want    Date
		wantErr error
	}{
		{"05/03/2025", NewDate(2025, 3, 5), nil},
		{"5/3/2025", NewDate(2025, 3, 5), nil},
		{" 29/02/2024 ", NewDate(2024, 2, 29), nil},
		{"31/12/1999", NewDate(1999, 12, 31), nil},
		{"29/02/2025", Date{}, ErrInvalidDay},
		{"32/01/2025", Date{}, ErrInvalidDay},
		{"00/01/2025", Date{}, ErrInvalidDay},
		{"01/13/2025", Date{}, ErrInvalidMonth},
		{"01/00/2025", Date{}, ErrInvalidMonth},
		{"01/01/0", Date{}, ErrInvalidYear},
		{"2025-03-05", Date{}, ErrInvalidDate},
		{"03/05", Date{}, ErrInvalidDate},
		{"aa/bb/cccc", Date{}, ErrInvalidDate},
		{"", Date{}, ErrInvalidDate},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.wantErr != nil {
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("ParseDate(%q) err = %v, want %v", tc.in, err, tc.wantErr)
			}
			continue
		}
		if err != nil || !got.Equal(tc.want.Time) {
			t.Errorf("ParseDate(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
	}
}

func TestParseDateIsDayFirst(t *testing.T) {
	// 03/05 is the 3rd of May, never March 5th.
	d, err := ParseDate("03/05/2025")
	if err != nil {
		t.Fatal(err)
	}
	if d.Day() != 3 || d.Month() != time.May {
		t.Fatalf("got %v", d.Time)
	}
}

func TestDateString(t *testing.T) {
	if s := NewDate(2025, 1, 7).String(); s != "07/01/2025" {
		t.Fatalf("got %q", s)
	}
	if s := (Date{}).String(); s != "" {
		t.Fatalf("zero date rendered %q", s)
	}
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(NewDate(2025, 10, 2))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"02/10/2025"` {
		t.Fatalf("got %s", b)
	}

	var d Date
	if err := json.Unmarshal([]byte(`"15/08/2024"`), &d); err != nil {
		t.Fatal(err)
	}
	if !d.Equal(NewDate(2024, 8, 15).Time) {
		t.Fatalf("got %v", d.Time)
	}

	// Garbage decodes to the zero date instead of failing.
	for _, in := range []string{`"2024-08-15"`, `12`, `"xx"`} {
		d = NewDate(2024, 1, 1)
		if err := json.Unmarshal([]byte(in), &d); err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if !d.IsZero() {
			t.Fatalf("%s: expected zero date, got %v", in, d.Time)
		}
	}
}
