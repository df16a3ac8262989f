package dto

import (
	"cashpos/internal/money"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type OpenRequest struct {
	Adjustment money.Adjustment `json:"adjustment"`
	Notes      *string          `json:"notes" validate:"omitempty,max=500"`
}

type CloseRequest struct {
	CountedCash money.CashInput  `json:"counted_cash"`
	Adjustment  money.Adjustment `json:"adjustment"`
	Notes       *string          `json:"notes" validate:"omitempty,max=500"`
}

// PreviewRequest carries the same inputs as a close, without notes.
type PreviewRequest struct {
	CountedCash money.CashInput  `json:"counted_cash"`
	Adjustment  money.Adjustment `json:"adjustment"`
}

type MovementRequest struct {
	Type   string          `json:"type"   validate:"required,oneof=CASH_IN CASH_OUT"`
	Amount money.CashInput `json:"amount"`
	Reason *string         `json:"reason" validate:"omitempty,max=200"`
	Notes  *string         `json:"notes"  validate:"omitempty,max=500"`
}

type DropRequest struct {
	CountedCash money.CashInput  `json:"counted_cash"`
	Adjustment  money.Adjustment `json:"adjustment"`
	Notes       *string          `json:"notes" validate:"omitempty,max=500"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SessionResponse struct {
	ID           string       `json:"id"`
	RegisterID   int64        `json:"register_id"`
	State        string       `json:"state"`
	StartingCash money.Money  `json:"starting_cash"`
	ExpectedCash *money.Money `json:"expected_cash"`
	EndingCash   *money.Money `json:"ending_cash"`
	Discrepancy  *money.Money `json:"discrepancy"`
	OpenedAt     string       `json:"opened_at"`
	ClosedAt     *string      `json:"closed_at"`
	OpenedBy     string       `json:"opened_by"`
	ClosedBy     *string      `json:"closed_by"`
	OpenNotes    *string      `json:"open_notes"`
	CloseNotes   *string      `json:"close_notes"`
}

type DiscrepancyResponse struct {
	Amount         money.Money     `json:"amount"`
	Percent        decimal.Decimal `json:"percent"`
	Classification string          `json:"classification"` // balanced | normal | warning | critical
}

type CloseResponse struct {
	Session     SessionResponse     `json:"session"`
	Discrepancy DiscrepancyResponse `json:"discrepancy"`
}

type PreviewResponse struct {
	RegisterID   int64               `json:"register_id"`
	SessionID    string              `json:"session_id"`
	StartingCash money.Money         `json:"starting_cash"`
	ExpectedCash money.Money         `json:"expected_cash"`
	EndingCash   money.Money         `json:"ending_cash"`
	Discrepancy  DiscrepancyResponse `json:"discrepancy"`
}

type ExpectedCashResponse struct {
	RegisterID   int64       `json:"register_id"`
	SessionID    string      `json:"session_id"`
	ExpectedCash money.Money `json:"expected_cash"`
}

type EventResponse struct {
	ID            int64           `json:"id"`
	RegisterID    int64           `json:"register_id"`
	SessionID     *string         `json:"session_id"`
	Type          string          `json:"type"`
	Amount        money.Money     `json:"amount"`
	Denominations money.Breakdown `json:"denominations"`
	OccurredAt    string          `json:"occurred_at"`
	EmployeeID    string          `json:"employee_id"`
	Reason        *string         `json:"reason"`
	Notes         *string         `json:"notes"`
}

// SessionReportResponse is a session with its ledger events. For an open
// session ExpectedCash is computed live; for a closed one it is the value
// recorded at close.
type SessionReportResponse struct {
	Session      SessionResponse      `json:"session"`
	ExpectedCash money.Money          `json:"expected_cash"`
	Discrepancy  *DiscrepancyResponse `json:"discrepancy"`
	Events       []EventResponse      `json:"events"`
}

type SessionListResponse struct {
	Data  []SessionResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}
