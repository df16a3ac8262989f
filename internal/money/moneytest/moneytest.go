// Package moneytest provides helpers for tests that build money amounts from
// literals.
package moneytest

import (
	"cashpos/internal/money"

	"github.com/shopspring/decimal"
)

// MustParse converts a decimal literal such as "230.00" or "-5" to Money and
// panics on malformed input. Negative literals are allowed so tests can build
// discrepancies and deltas.
func MustParse(s string) money.Money {
	d := decimal.RequireFromString(s)
	return money.FromCents(d.Mul(decimal.NewFromInt(100)).Round(0).IntPart())
}
