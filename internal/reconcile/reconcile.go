// Package reconcile holds the drawer arithmetic shared by close, preview and
// the expected-cash query. Nothing here touches storage.
package reconcile

import (
	"iter"

	"cashpos/internal/apperror"
	"cashpos/internal/model"
	"cashpos/internal/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Class grades a discrepancy relative to expected cash.
type Class string

const (
	Balanced Class = "balanced"
	Normal   Class = "normal"
	Warning  Class = "warning"
	Critical Class = "critical"
)

// Thresholds are absolute percentages of expected cash.
type Thresholds struct {
	WarnPct     decimal.Decimal
	CriticalPct decimal.Decimal
}

func DefaultThresholds() Thresholds {
	return Thresholds{WarnPct: decimal.NewFromInt(1), CriticalPct: decimal.NewFromInt(5)}
}

// NewThresholds builds thresholds from configured percentages. Non-positive
// values fall back to the defaults.
func NewThresholds(warnPct, criticalPct float64) Thresholds {
	th := DefaultThresholds()
	if warnPct > 0 {
		th.WarnPct = decimal.NewFromFloat(warnPct)
	}
	if criticalPct > 0 {
		th.CriticalPct = decimal.NewFromFloat(criticalPct)
	}
	return th
}

// Result is the outcome of reconciling a counted drawer against the ledger.
type Result struct {
	Expected    money.Money
	Ending      money.Money
	Discrepancy money.Money
	Pct         decimal.Decimal
	Class       Class
}

// Expected folds the session's CASH_IN and CASH_OUT events onto starting cash.
// Events from other sessions, drops, and OPEN/CLOSE markers do not count.
func Expected(starting money.Money, sessionID uuid.UUID, events iter.Seq2[model.LedgerEvent, error]) (money.Money, error) {
	total := starting
	for e, err := range events {
		if err != nil {
			return money.Money{}, err
		}
		if e.SessionID == nil || *e.SessionID != sessionID {
			continue
		}
		switch e.Type {
		case model.EventCashIn:
			total = total.Add(e.Amount)
		case model.EventCashOut:
			total = total.Sub(e.Amount)
		}
	}
	return total, nil
}

// Ending applies a signed adjustment to the counted amount.
func Ending(counted, adjustment money.Money) (money.Money, error) {
	ending := counted.Add(adjustment)
	if ending.IsNegative() {
		return money.Money{}, apperror.Validation("adjustment", "ending cash would be negative (%s)", ending)
	}
	return ending, nil
}

// Compute derives ending cash, discrepancy and its class. A discrepancy is
// never an error.
func Compute(expected, counted, adjustment money.Money, th Thresholds) (Result, error) {
	ending, err := Ending(counted, adjustment)
	if err != nil {
		return Result{}, err
	}
	disc := ending.Sub(expected)
	pct := Percent(disc, expected)
	return Result{
		Expected:    expected,
		Ending:      ending,
		Discrepancy: disc,
		Pct:         pct,
		Class:       Classify(disc, expected, th),
	}, nil
}

// Percent is discrepancy / |expected| × 100, rounded to two places; zero when
// expected is zero.
func Percent(disc, expected money.Money) decimal.Decimal {
	if expected.IsZero() {
		return decimal.Zero
	}
	return disc.Decimal().Div(expected.Decimal().Abs()).Mul(decimal.NewFromInt(100)).Round(2)
}

func Classify(disc, expected money.Money, th Thresholds) Class {
	if disc.IsZero() {
		return Balanced
	}
	if expected.IsZero() {
		return Critical
	}
	abs := Percent(disc, expected).Abs()
	switch {
	case abs.LessThanOrEqual(th.WarnPct):
		return Normal
	case abs.LessThanOrEqual(th.CriticalPct):
		return Warning
	default:
		return Critical
	}
}
