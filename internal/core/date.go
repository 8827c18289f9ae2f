package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Date is a calendar date written day-first as DD/MM/YYYY.
type Date struct {
	time.Time
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a DD/MM/YYYY literal. The string is split on "/" and the
// date rebuilt from its parts, never through a locale-dependent parser.
func ParseDate(s string) (Date, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return Date{}, ErrInvalidDate
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Date{}, ErrInvalidDate
		}
		nums[i] = n
	}
	day, month, year := nums[0], nums[1], nums[2]
	if year < 1 || year > 9999 {
		return Date{}, ErrInvalidYear
	}
	if month < 1 || month > 12 {
		return Date{}, ErrInvalidMonth
	}
	if day < 1 || day > daysIn(year, month) {
		return Date{}, ErrInvalidDay
	}
	return NewDate(year, month, day), nil
}

func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("date cannot be zero: %w", ErrInvalidDate)
	}
	return nil
}

// String formats the date as DD/MM/YYYY; the zero date renders empty.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%02d/%02d/%04d", d.Day(), int(d.Month()), d.Year())
}

// Compare orders dates chronologically; zero dates sort before every real date.
func (d Date) Compare(o Date) int {
	return d.Time.Compare(o.Time)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON is lenient: a stored value that is not a DD/MM/YYYY literal
// decodes to the zero date instead of failing the whole collection.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		d.Time = time.Time{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		d.Time = time.Time{}
		return nil
	}
	*d = parsed
	return nil
}
