package service

import (
	"iter"
	"time"

	"cashpos/internal/dto"
	"cashpos/internal/model"
	"cashpos/internal/reconcile"
)

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func sessionToResponse(s *model.Session) *dto.SessionResponse {
	r := &dto.SessionResponse{
		ID:           s.ID.String(),
		RegisterID:   s.RegisterID,
		State:        string(s.State),
		StartingCash: s.StartingCash,
		ExpectedCash: s.ExpectedCash,
		EndingCash:   s.EndingCash,
		Discrepancy:  s.Discrepancy,
		OpenedAt:     formatTime(s.OpenedAt),
		OpenedBy:     s.OpenedBy,
		ClosedBy:     s.ClosedBy,
		OpenNotes:    s.OpenNotes,
		CloseNotes:   s.CloseNotes,
	}
	if s.ClosedAt != nil {
		t := formatTime(*s.ClosedAt)
		r.ClosedAt = &t
	}
	return r
}

func eventToResponse(e *model.LedgerEvent) *dto.EventResponse {
	r := &dto.EventResponse{
		ID:            e.ID,
		RegisterID:    e.RegisterID,
		Type:          string(e.Type),
		Amount:        e.Amount,
		Denominations: e.Breakdown(),
		OccurredAt:    formatTime(e.OccurredAt),
		EmployeeID:    e.EmployeeID,
		Reason:        e.Reason,
		Notes:         e.Notes,
	}
	if e.SessionID != nil {
		id := e.SessionID.String()
		r.SessionID = &id
	}
	return r
}

func discrepancyToResponse(r reconcile.Result) dto.DiscrepancyResponse {
	return dto.DiscrepancyResponse{
		Amount:         r.Discrepancy,
		Percent:        r.Pct,
		Classification: string(r.Class),
	}
}

// eventSeq adapts an in-memory slice to the streaming shape reconcile.Expected takes.
func eventSeq(events []model.LedgerEvent) iter.Seq2[model.LedgerEvent, error] {
	return func(yield func(model.LedgerEvent, error) bool) {
		for _, e := range events {
			if !yield(e, nil) {
				return
			}
		}
	}
}
