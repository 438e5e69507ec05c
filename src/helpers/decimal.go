package helpers

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// -----------------------------------------------------------------------------

// DecimalTextFromFloat renders an upstream float as canonical decimal text.
func DecimalTextFromFloat(v float64) string {
	return decimal.NewFromFloat(v).String()
}

// -----------------------------------------------------------------------------

// DecimalTextFromString validates and canonicalizes an upstream decimal string.
func DecimalTextFromString(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "None" {
		return "", fmt.Errorf("empty decimal value")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return "", fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return d.String(), nil
}

// -----------------------------------------------------------------------------

// PercentToFractionText converts a percent (0.15 => 0.0015) to decimal text.
func PercentToFractionText(percent float64) string {
	return decimal.NewFromFloat(percent).Div(hundred).String()
}
