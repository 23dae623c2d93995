package util

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var reCurrency = regexp.MustCompile(`[€$£\s\x{00A0}]`)

// ParseAmount reads a money string such as "1,234.56" or "€ 18.00".
// Commas are always treated as thousands separators.
func ParseAmount(input string) (decimal.Decimal, error) {
	s := reCurrency.ReplaceAllString(strings.TrimSpace(input), "")
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", input, err)
	}
	return d, nil
}

// AmountOrZero is ParseAmount with failures coerced to zero.
func AmountOrZero(input string) decimal.Decimal {
	d, err := ParseAmount(input)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatPositive renders d with two decimals, or "" when d is not above zero.
func FormatPositive(d decimal.Decimal) string {
	if !d.IsPositive() {
		return ""
	}
	return FormatAmount(d)
}
