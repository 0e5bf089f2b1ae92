package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultCategory is assigned when an expense is added without a category.
const DefaultCategory = "General"

const dateLayout = "2006-01-02"

type (
	Date struct {
		time.Time
	}

	Expense struct {
		ID          int64  `json:"id"`
		Date        Date   `json:"date"`
		Description string `json:"description"`
		Amount      Money  `json:"amount"`
		Category    string `json:"category"`
	}
)

var (
	ErrInvalidMonth     = errors.New("invalid month: must be between 1 and 12")
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrMalformedAmount  = errors.New("malformed amount")
	ErrEmptyDescription = errors.New("description cannot be empty")
	ErrNotFound         = errors.New("expense not found")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// Month returns the month as 1-12
func (d Date) Month() int {
	return int(d.Time.Month())
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("date must be a YYYY-MM-DD string, got %s", s)
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// SameCategory reports whether two category labels match, ignoring case.
func SameCategory(a, b string) bool {
	return strings.EqualFold(a, b)
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	return nil
}
