package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Expense TransactionType = "expense"
	Income  TransactionType = "income"
)

const dateLayout = "2006-01-02"

// MaxAmountCents is the largest amount a single transaction may carry
// (100,000,000,000.00). Sums of up to ~900k such amounts fit in an int64.
const MaxAmountCents int64 = 10_000_000_000_000

type (
	TransactionType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is a single income or expense entry. Category holds the
	// category name, not its id, and is not updated when a category is renamed.
	Transaction struct {
		ID          string          `json:"id" yaml:"id"`
		Amount      Money           `json:"amount" yaml:"amount"`
		Category    string          `json:"category" yaml:"category"`
		Description string          `json:"description" yaml:"description"`
		Date        Date            `json:"date" yaml:"date"`
		Type        TransactionType `json:"type" yaml:"type"`
	}

	Category struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Color     Color  `json:"color"`
		Icon      string `json:"icon,omitempty"`
		Protected bool   `json:"protected,omitempty"`
	}
)

func (t TransactionType) IsValid() bool {
	switch t {
	case Expense, Income:
		return true
	default:
		return false
	}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return &ValidationError{Field: "date", Message: "date cannot be zero"}
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD or a full RFC 3339 timestamp and keeps the calendar date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return NewDate(t.Year(), int(t.Month()), t.Day()), nil
}

// String formats the date as YYYY-MM-DD
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// SameMonth reports whether d falls in the calendar month and year of t.
func (d Date) SameMonth(t time.Time) bool {
	return d.Year() == t.Year() && d.Month() == t.Month()
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d *Date) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return &ValidationError{Field: "amount", Message: ErrInvalidAmount.Error()}
	}
	if m.Cents > MaxAmountCents {
		return &ValidationError{Field: "amount", Message: "amount exceeds " + Money{Cents: MaxAmountCents}.String()}
	}
	return nil
}

// Decimal returns the amount as an exact decimal with two fractional digits.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount with two decimals, e.g. "12.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

var maxAmount = decimal.New(MaxAmountCents, 0)

// MoneyFromDecimal rounds d to cents. Magnitudes above MaxAmountCents are
// rejected before conversion so they cannot wrap around int64.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Shift(2).Round(0)
	if cents.Abs().GreaterThan(maxAmount) {
		return Money{}, fmt.Errorf("%w: %s exceeds %s", ErrInvalidAmount, d.String(), Money{Cents: MaxAmountCents})
	}
	return Money{Cents: cents.IntPart()}, nil
}

// ParseMoney parses a decimal amount such as "12.5" or "12,50" and rounds it to cents.
// Zero and negative values are accepted; see ParseAmount for user input.
func ParseMoney(s string) (Money, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return MoneyFromDecimal(d)
}

// MarshalJSON writes the amount as a bare JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(b []byte) error {
	raw := string(bytes.Trim(bytes.TrimSpace(b), `"`))
	if raw == "" || raw == "null" {
		return fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	parsed, err := MoneyFromDecimal(d)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m Money) MarshalYAML() (interface{}, error) {
	return m.String(), nil
}

func (m *Money) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (t Transaction) IsExpense() bool {
	return t.Type == Expense
}

func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Type.IsValid() {
		return &ValidationError{Field: "type", Message: fmt.Sprintf("invalid transaction type %q", t.Type)}
	}
	if strings.TrimSpace(t.Category) == "" {
		return &ValidationError{Field: "category", Message: ErrEmptyCategory.Error()}
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return &ValidationError{Field: "name", Message: "category name is required"}
	}
	if !c.Color.IsValid() {
		return &ValidationError{Field: "color", Message: fmt.Sprintf("unknown color %q", c.Color)}
	}
	return nil
}
