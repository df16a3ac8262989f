package model

import (
	"encoding/json"
	"time"

	"cashpos/internal/apperror"
	"cashpos/internal/money"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SessionState: "OPEN" | "CLOSED"
type SessionState string

const (
	SessionOpen   SessionState = "OPEN"
	SessionClosed SessionState = "CLOSED"
)

// Session is the cached summary of one OPEN-to-CLOSE span of a register's
// ledger. It is created by open, mutated once by close and never deleted.
// At most one OPEN session exists per register (ux_sessions_one_open).
type Session struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey"`
	RegisterID   int64        `gorm:"not null;index"`
	State        SessionState `gorm:"type:varchar(10);not null"`
	StartingCash money.Money  `gorm:"type:bigint;not null"`
	// ExpectedCash, EndingCash and Discrepancy are set on close.
	ExpectedCash *money.Money `gorm:"type:bigint"`
	EndingCash   *money.Money `gorm:"type:bigint"`
	Discrepancy  *money.Money `gorm:"type:bigint"`
	OpenedAt     time.Time    `gorm:"not null"`
	ClosedAt     *time.Time
	OpenedBy     string  `gorm:"type:varchar(64);not null"`
	ClosedBy     *string `gorm:"type:varchar(64)"`
	OpenNotes    *string
	CloseNotes   *string

	Register *Register `gorm:"foreignKey:RegisterID;constraint:OnDelete:RESTRICT"`
}

func (Session) TableName() string { return "cash_sessions" }

// EventType: "OPEN" | "CLOSE" | "CASH_IN" | "CASH_OUT" | "DROP"
type EventType string

const (
	EventOpen    EventType = "OPEN"
	EventClose   EventType = "CLOSE"
	EventCashIn  EventType = "CASH_IN"
	EventCashOut EventType = "CASH_OUT"
	EventDrop    EventType = "DROP"
)

func (t EventType) Valid() bool {
	switch t {
	case EventOpen, EventClose, EventCashIn, EventCashOut, EventDrop:
		return true
	}
	return false
}

// LedgerEvent is an immutable entry of the register ledger. Amount is always a
// magnitude; the type carries its meaning (CASH_OUT and DROP are reductions,
// CLOSE is the absolute ending cash). ID and OccurredAt are assigned by the
// repository on append, never by the caller.
type LedgerEvent struct {
	ID         int64       `gorm:"primaryKey;autoIncrement"`
	RegisterID int64       `gorm:"not null;index:idx_ledger_register_time,priority:1"`
	SessionID  *uuid.UUID  `gorm:"type:uuid;index"`
	Type       EventType   `gorm:"type:varchar(10);not null"`
	Amount     money.Money `gorm:"column:amount_cents;type:bigint;not null"`
	// Denominations holds the counted breakdown when the amount was entered
	// by denomination; JSON null otherwise.
	Denominations datatypes.JSON `gorm:"not null"`
	OccurredAt    time.Time      `gorm:"not null;index:idx_ledger_register_time,priority:2"`
	EmployeeID    string         `gorm:"type:varchar(64);not null"`
	Reason        *string
	Notes         *string

	Register *Register `gorm:"foreignKey:RegisterID;constraint:OnDelete:RESTRICT"`
}

func (LedgerEvent) TableName() string { return "ledger_events" }

// Validate checks the invariants an event must satisfy before it is appended.
func (e *LedgerEvent) Validate() error {
	if !e.Type.Valid() {
		return apperror.Validation("type", "unknown event type %q", e.Type)
	}
	if e.RegisterID <= 0 {
		return apperror.Validation("register_id", "register id is required")
	}
	if e.Amount.IsNegative() {
		return apperror.Validation("amount", "%s amount must not be negative", e.Type)
	}
	return nil
}

// SetBreakdown stores b as the event's denomination breakdown.
func (e *LedgerEvent) SetBreakdown(b money.Breakdown) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	e.Denominations = datatypes.JSON(raw)
	return nil
}

// Breakdown decodes the stored breakdown; nil when the amount was a total.
func (e *LedgerEvent) Breakdown() money.Breakdown {
	if len(e.Denominations) == 0 {
		return nil
	}
	var b money.Breakdown
	if err := json.Unmarshal(e.Denominations, &b); err != nil {
		return nil
	}
	return b
}
