package money

import (
	"cashpos/internal/apperror"

	"github.com/shopspring/decimal"
)

// Mode names which representation of an amount is authoritative.
type Mode string

const (
	ModeTotal         Mode = "TOTAL"
	ModeDenominations Mode = "DENOMINATIONS"
)

// CashInput is the request form of a counted amount. Exactly one of Total and
// Denominations is authoritative, selected by Mode.
type CashInput struct {
	Mode          Mode             `json:"mode"`
	Total         *decimal.Decimal `json:"total,omitempty"`
	Denominations Breakdown        `json:"denominations,omitempty"`
}

// Total builds a TOTAL-mode input; used by tests and the CLI.
func Total(s string) CashInput {
	d := decimal.RequireFromString(s)
	return CashInput{Mode: ModeTotal, Total: &d}
}

// Count builds a DENOMINATIONS-mode input.
func Count(b Breakdown) CashInput {
	return CashInput{Mode: ModeDenominations, Denominations: b}
}

// Resolve returns the authoritative amount and, in DENOMINATIONS mode, the
// breakdown it was computed from.
func (in CashInput) Resolve(field string) (Money, Breakdown, error) {
	return resolve(field, in.Mode, in.Total, in.Denominations)
}

func resolve(field string, mode Mode, total *decimal.Decimal, b Breakdown) (Money, Breakdown, error) {
	switch mode {
	case ModeTotal:
		if total == nil {
			return Money{}, nil, apperror.Validation(field, "total is required when mode is %s", ModeTotal)
		}
		if len(b) > 0 {
			return Money{}, nil, apperror.Validation(field, "denominations are not accepted when mode is %s", ModeTotal)
		}
		m, err := FromTotal(*total)
		if err != nil {
			return Money{}, nil, apperror.Validation(field, "%s", err.Error())
		}
		return m, nil, nil
	case ModeDenominations:
		m, err := FromDenominations(b)
		if err != nil {
			return Money{}, nil, apperror.Validation(field, "%s", err.Error())
		}
		if total != nil {
			t, err := FromTotal(*total)
			if err != nil || !t.Equal(m) {
				return Money{}, nil, apperror.Validation(field, "total %s does not match the denomination count %s", total.StringFixed(2), m)
			}
		}
		if b == nil {
			b = Breakdown{}
		}
		return m, b, nil
	case "":
		return Money{}, nil, apperror.Validation(field, "mode is required (%s or %s)", ModeTotal, ModeDenominations)
	default:
		return Money{}, nil, apperror.Validation(field, "unknown mode %q", mode)
	}
}

// AdjustmentType selects the sign of an adjustment.
type AdjustmentType string

const (
	AdjustNone    AdjustmentType = "NONE"
	AdjustAdd     AdjustmentType = "ADD"
	AdjustTakeOut AdjustmentType = "TAKE_OUT"
)

// Adjustment is a signed correction applied on top of a computed base amount
// at open, close or drop time. The zero value is NONE.
type Adjustment struct {
	Type          AdjustmentType   `json:"type"`
	Mode          Mode             `json:"mode,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Denominations Breakdown        `json:"denominations,omitempty"`
}

// Add and TakeOut build TOTAL-mode adjustments.
func Add(s string) Adjustment {
	d := decimal.RequireFromString(s)
	return Adjustment{Type: AdjustAdd, Mode: ModeTotal, Amount: &d}
}

func TakeOut(s string) Adjustment {
	d := decimal.RequireFromString(s)
	return Adjustment{Type: AdjustTakeOut, Mode: ModeTotal, Amount: &d}
}

// Signed returns +amount for ADD, -amount for TAKE_OUT and zero for NONE.
func (a Adjustment) Signed() (Money, error) {
	switch a.Type {
	case "", AdjustNone:
		return Zero(), nil
	case AdjustAdd, AdjustTakeOut:
		m, _, err := resolve("adjustment", a.Mode, a.Amount, a.Denominations)
		if err != nil {
			return Money{}, err
		}
		if a.Type == AdjustTakeOut {
			return m.Neg(), nil
		}
		return m, nil
	default:
		return Money{}, apperror.Validation("adjustment", "unknown adjustment type %q", a.Type)
	}
}
