// Package money implements the fixed-point cash amounts used by the register
// ledger. Every value is an integer count of cents; decimal.Decimal is only used
// at the edges to parse and format.
package money

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"

	"cashpos/internal/apperror"

	"github.com/shopspring/decimal"
)

// maxCents bounds any single amount so sums over a session cannot overflow int64.
const maxCents = int64(1_000_000_000_000_00)

var hundred = decimal.NewFromInt(100)

// Money is a signed amount of cents. Balances are never negative; negative
// values only appear as discrepancies and adjustment deltas.
type Money struct {
	cents int64
}

func Zero() Money { return Money{} }

// FromCents wraps a raw cent count. It performs no validation and is meant for
// values that come from storage or from arithmetic on validated amounts.
func FromCents(c int64) Money { return Money{cents: c} }

// FromTotal converts a non-negative decimal amount, rounding to the nearest cent.
func FromTotal(d decimal.Decimal) (Money, error) {
	if d.IsNegative() {
		return Money{}, apperror.Validation("total", "amount must not be negative")
	}
	c := d.Mul(hundred).Round(0)
	if c.GreaterThan(decimal.NewFromInt(maxCents)) {
		return Money{}, apperror.Validation("total", "amount exceeds the maximum of %s", FromCents(maxCents))
	}
	return Money{cents: c.IntPart()}, nil
}

func (m Money) Cents() int64 { return m.cents }

func (m Money) Add(o Money) Money { return Money{cents: m.cents + o.cents} }

// Sub may yield a negative value.
func (m Money) Sub(o Money) Money { return Money{cents: m.cents - o.cents} }

func (m Money) Neg() Money { return Money{cents: -m.cents} }

func (m Money) IsZero() bool     { return m.cents == 0 }
func (m Money) IsNegative() bool { return m.cents < 0 }
func (m Money) IsPositive() bool { return m.cents > 0 }

func (m Money) Equal(o Money) bool { return m.cents == o.cents }

// Cmp returns -1, 0 or +1.
func (m Money) Cmp(o Money) int {
	switch {
	case m.cents < o.cents:
		return -1
	case m.cents > o.cents:
		return 1
	default:
		return 0
	}
}

func (m Money) Decimal() decimal.Decimal { return decimal.New(m.cents, -2) }

// String renders the amount with exactly two decimal places ("230.00", "-5.00").
func (m Money) String() string { return m.Decimal().StringFixed(2) }

// MarshalJSON encodes the amount as a decimal string so no client ever sees a
// binary float.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(m.String())), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := json.Unmarshal(b, &d); err != nil {
		return err
	}
	*m = FromCents(d.Mul(hundred).Round(0).IntPart())
	return nil
}

// Value stores the amount as BIGINT cents.
func (m Money) Value() (driver.Value, error) { return m.cents, nil }

func (m *Money) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		m.cents = v
	case int32:
		m.cents = int64(v)
	case []byte:
		c, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return fmt.Errorf("money: scan %q: %w", v, err)
		}
		m.cents = c
	case string:
		c, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("money: scan %q: %w", v, err)
		}
		m.cents = c
	case nil:
		m.cents = 0
	default:
		return fmt.Errorf("money: cannot scan %T", src)
	}
	return nil
}
