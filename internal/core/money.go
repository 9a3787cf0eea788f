package core

import (
	"fmt"
	"strings"
)

// ParseAmount parses an amount typed by a user, such as "12.34" or "12,34",
// rounding half-up to cents. Unlike ParseMoney it only accepts unsigned
// values that round to at least one cent and at most MaxAmountCents.
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	if s[0] == '+' || s[0] == '-' {
		return Money{}, fmt.Errorf("%w: %q has a sign", ErrInvalidAmount, s)
	}
	if strings.ContainsAny(s, "eE") {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	m, err := ParseMoney(s)
	if err != nil {
		return Money{}, err
	}
	if m.Cents <= 0 {
		return Money{}, fmt.Errorf("%w: %q rounds to zero", ErrInvalidAmount, s)
	}
	return m, nil
}
