// Package money converts between decimal amounts on the wire and int64
// minor units (cents) used everywhere else.
package money

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrTooPrecise    = errors.New("amount has more than 2 decimal places")
)

// Parse converts a decimal string such as "1500", "1500.5" or "1500.50" to
// cents. Negative values and more than two fractional digits are rejected.
func Parse(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, ErrInvalidAmount
	}

	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if hasDot && frac == "" {
		return 0, ErrInvalidAmount
	}
	if !isDigits(whole) || (hasDot && !isDigits(frac)) {
		return 0, ErrInvalidAmount
	}
	if len(frac) > 2 {
		return 0, ErrTooPrecise
	}
	for len(frac) < 2 {
		frac += "0"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if units > (1<<63-1-cents)/100 {
		return 0, ErrInvalidAmount
	}
	return units*100 + cents, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Format renders cents with exactly two fractional digits.
func Format(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
