package service

import (
	"context"
	"errors"
	"fmt"

	"cashpos/internal/apperror"
	"cashpos/internal/dto"
	"cashpos/internal/infra"
	"cashpos/internal/model"
	"cashpos/internal/money"
	"cashpos/internal/reconcile"
	"cashpos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	defaultEventLimit   = 50
	maxEventLimit       = 500
	defaultSessionLimit = 20
	maxSessionLimit     = 100
)

const (
	errAlreadyOpen = "register already open"
	errNotOpen     = "register not open"
)

// CloseReportDispatcher queues the asynchronous close-out report.
type CloseReportDispatcher interface {
	EnqueueCloseReport(ctx context.Context, sessionID uuid.UUID) error
}

// CajaService is the session state machine of a register. Every write runs
// atomically per register; see repository.CajaRepository.Atomic.
type CajaService interface {
	Open(ctx context.Context, registerID int64, employeeID string, req dto.OpenRequest) (*dto.SessionResponse, error)
	Close(ctx context.Context, registerID int64, employeeID string, req dto.CloseRequest) (*dto.CloseResponse, error)
	RecordCashMovement(ctx context.Context, registerID int64, employeeID string, req dto.MovementRequest) (*dto.EventResponse, error)
	RecordDrop(ctx context.Context, registerID int64, employeeID string, req dto.DropRequest) (*dto.EventResponse, error)

	GetActive(ctx context.Context, registerID int64) (*dto.SessionResponse, error)
	Report(ctx context.Context, sessionID uuid.UUID) (*dto.SessionReportResponse, error)
	ListSessions(ctx context.Context, registerID int64, page, limit int) (*dto.SessionListResponse, error)
	ListEvents(ctx context.Context, registerID int64, limit int) ([]dto.EventResponse, error)
}

type cajaService struct {
	repo       repository.CajaRepository
	thresholds reconcile.Thresholds
	metrics    *infra.Metrics
	dispatcher CloseReportDispatcher
}

// NewCajaService wires the session manager. metrics and dispatcher may be nil.
func NewCajaService(repo repository.CajaRepository, th reconcile.Thresholds, metrics *infra.Metrics, dispatcher CloseReportDispatcher) CajaService {
	return &cajaService{repo: repo, thresholds: th, metrics: metrics, dispatcher: dispatcher}
}

// ── Open ──────────────────────────────────────────────────────────────────────

func (s *cajaService) Open(ctx context.Context, registerID int64, employeeID string, req dto.OpenRequest) (*dto.SessionResponse, error) {
	adj, err := req.Adjustment.Signed()
	if err != nil {
		return nil, err
	}

	var sess *model.Session
	err = s.repo.Atomic(ctx, registerID, func(tx repository.CajaRepository) error {
		if _, err := tx.FindOpenSession(ctx, registerID); err == nil {
			return apperror.State(errAlreadyOpen)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		base := money.Zero()
		last, err := tx.LastClosedSession(ctx, registerID)
		switch {
		case err == nil && last.EndingCash != nil:
			base = *last.EndingCash
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return err
		}

		starting := base.Add(adj)
		if starting.IsNegative() {
			return apperror.Validation("adjustment", "starting cash would be negative (%s)", starting)
		}

		sess = &model.Session{
			ID:           uuid.New(),
			RegisterID:   registerID,
			State:        model.SessionOpen,
			StartingCash: starting,
			OpenedBy:     employeeID,
			OpenNotes:    req.Notes,
		}
		ev := &model.LedgerEvent{
			RegisterID: registerID,
			SessionID:  &sess.ID,
			Type:       model.EventOpen,
			Amount:     starting,
			EmployeeID: employeeID,
			Notes:      req.Notes,
		}
		if err := tx.Append(ctx, ev); err != nil {
			return err
		}
		sess.OpenedAt = ev.OccurredAt
		return tx.CreateSession(ctx, sess)
	})
	if err != nil {
		return nil, s.mapErr(err, registerID)
	}

	s.observeEvent(model.EventOpen)
	if s.metrics != nil {
		s.metrics.SessionsOpened.Inc()
	}
	log.Info().
		Int64("register_id", registerID).
		Str("session_id", sess.ID.String()).
		Str("starting_cash", sess.StartingCash.String()).
		Str("employee_id", employeeID).
		Msg("register opened")
	return sessionToResponse(sess), nil
}

// ── Close ─────────────────────────────────────────────────────────────────────

func (s *cajaService) Close(ctx context.Context, registerID int64, employeeID string, req dto.CloseRequest) (*dto.CloseResponse, error) {
	counted, breakdown, err := req.CountedCash.Resolve("counted_cash")
	if err != nil {
		return nil, err
	}
	adj, err := req.Adjustment.Signed()
	if err != nil {
		return nil, err
	}

	var (
		sess   *model.Session
		result reconcile.Result
	)
	err = s.repo.Atomic(ctx, registerID, func(tx repository.CajaRepository) error {
		open, err := tx.FindOpenSession(ctx, registerID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.State(errNotOpen)
		}
		if err != nil {
			return err
		}

		expected, err := reconcile.Expected(open.StartingCash, open.ID, tx.EventsSince(ctx, registerID, open.OpenedAt))
		if err != nil {
			return err
		}
		result, err = reconcile.Compute(expected, counted, adj, s.thresholds)
		if err != nil {
			return err
		}

		ev := &model.LedgerEvent{
			RegisterID: registerID,
			SessionID:  &open.ID,
			Type:       model.EventClose,
			Amount:     result.Ending,
			EmployeeID: employeeID,
			Notes:      req.Notes,
		}
		if breakdown != nil {
			if err := ev.SetBreakdown(breakdown); err != nil {
				return err
			}
		}
		if err := tx.Append(ctx, ev); err != nil {
			return err
		}

		closedAt := ev.OccurredAt
		open.State = model.SessionClosed
		open.ExpectedCash = &result.Expected
		open.EndingCash = &result.Ending
		open.Discrepancy = &result.Discrepancy
		open.ClosedAt = &closedAt
		open.ClosedBy = &employeeID
		open.CloseNotes = req.Notes
		if err := tx.UpdateSession(ctx, open); err != nil {
			return err
		}
		sess = open
		return nil
	})
	if err != nil {
		return nil, s.mapErr(err, registerID)
	}

	s.observeEvent(model.EventClose)
	if s.metrics != nil {
		s.metrics.SessionsClosed.WithLabelValues(string(result.Class)).Inc()
		abs := result.Discrepancy.Cents()
		if abs < 0 {
			abs = -abs
		}
		s.metrics.DiscrepancyCents.Observe(float64(abs))
	}
	logEv := log.Info()
	if result.Class == reconcile.Critical {
		logEv = log.Warn()
	}
	logEv.
		Int64("register_id", registerID).
		Str("session_id", sess.ID.String()).
		Str("expected_cash", result.Expected.String()).
		Str("ending_cash", result.Ending.String()).
		Str("discrepancy", result.Discrepancy.String()).
		Str("classification", string(result.Class)).
		Str("employee_id", employeeID).
		Msg("register closed")

	if s.dispatcher != nil {
		if err := s.dispatcher.EnqueueCloseReport(ctx, sess.ID); err != nil {
			log.Warn().Err(err).Str("session_id", sess.ID.String()).Msg("close report enqueue failed")
		}
	}

	return &dto.CloseResponse{
		Session:     *sessionToResponse(sess),
		Discrepancy: discrepancyToResponse(result),
	}, nil
}

// ── RecordCashMovement ────────────────────────────────────────────────────────
// Movements are immutable once appended; corrections are new movements.

func (s *cajaService) RecordCashMovement(ctx context.Context, registerID int64, employeeID string, req dto.MovementRequest) (*dto.EventResponse, error) {
	typ := model.EventType(req.Type)
	if typ != model.EventCashIn && typ != model.EventCashOut {
		return nil, apperror.Validation("type", "must be %s or %s", model.EventCashIn, model.EventCashOut)
	}

	var ev *model.LedgerEvent
	err := s.repo.Atomic(ctx, registerID, func(tx repository.CajaRepository) error {
		open, err := tx.FindOpenSession(ctx, registerID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.State(errNotOpen)
		}
		if err != nil {
			return err
		}
		// no open session wins over a bad amount
		amount, breakdown, err := req.Amount.Resolve("amount")
		if err != nil {
			return err
		}
		if !amount.IsPositive() {
			return apperror.Validation("amount", "must be greater than zero")
		}
		ev = &model.LedgerEvent{
			RegisterID: registerID,
			SessionID:  &open.ID,
			Type:       typ,
			Amount:     amount,
			EmployeeID: employeeID,
			Reason:     req.Reason,
			Notes:      req.Notes,
		}
		if breakdown != nil {
			if err := ev.SetBreakdown(breakdown); err != nil {
				return err
			}
		}
		return tx.Append(ctx, ev)
	})
	if err != nil {
		return nil, s.mapErr(err, registerID)
	}

	s.observeEvent(typ)
	log.Info().
		Int64("register_id", registerID).
		Str("type", string(typ)).
		Str("amount", ev.Amount.String()).
		Str("employee_id", employeeID).
		Msg("cash movement recorded")
	return eventToResponse(ev), nil
}

// ── RecordDrop ────────────────────────────────────────────────────────────────
// A drop is an audit record of cash counted out of the drawer. It does not
// change expected cash and does not require an open session.

func (s *cajaService) RecordDrop(ctx context.Context, registerID int64, employeeID string, req dto.DropRequest) (*dto.EventResponse, error) {
	counted, breakdown, err := req.CountedCash.Resolve("counted_cash")
	if err != nil {
		return nil, err
	}
	adj, err := req.Adjustment.Signed()
	if err != nil {
		return nil, err
	}
	amount, err := reconcile.Ending(counted, adj)
	if err != nil {
		return nil, err
	}

	var ev *model.LedgerEvent
	err = s.repo.Atomic(ctx, registerID, func(tx repository.CajaRepository) error {
		ev = &model.LedgerEvent{
			RegisterID: registerID,
			Type:       model.EventDrop,
			Amount:     amount,
			EmployeeID: employeeID,
			Notes:      req.Notes,
		}
		open, err := tx.FindOpenSession(ctx, registerID)
		switch {
		case err == nil:
			ev.SessionID = &open.ID
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}
		if breakdown != nil {
			if err := ev.SetBreakdown(breakdown); err != nil {
				return err
			}
		}
		return tx.Append(ctx, ev)
	})
	if err != nil {
		return nil, s.mapErr(err, registerID)
	}

	s.observeEvent(model.EventDrop)
	log.Info().
		Int64("register_id", registerID).
		Str("amount", amount.String()).
		Str("employee_id", employeeID).
		Msg("cash drop recorded")
	return eventToResponse(ev), nil
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *cajaService) GetActive(ctx context.Context, registerID int64) (*dto.SessionResponse, error) {
	if _, err := s.repo.FindRegister(ctx, registerID); err != nil {
		return nil, s.mapErr(err, registerID)
	}
	sess, err := s.repo.FindOpenSession(ctx, registerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.State(errNotOpen)
	}
	if err != nil {
		return nil, err
	}
	return sessionToResponse(sess), nil
}

func (s *cajaService) Report(ctx context.Context, sessionID uuid.UUID) (*dto.SessionReportResponse, error) {
	var (
		sess   *model.Session
		events []model.LedgerEvent
	)
	err := s.repo.Snapshot(ctx, func(tx repository.CajaRepository) error {
		var err error
		if sess, err = tx.FindSessionByID(ctx, sessionID); err != nil {
			return err
		}
		events, err = tx.ListSessionEvents(ctx, sessionID)
		return err
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound("session", sessionID)
	}
	if err != nil {
		return nil, err
	}

	resp := &dto.SessionReportResponse{
		Session: *sessionToResponse(sess),
		Events:  make([]dto.EventResponse, 0, len(events)),
	}
	for i := range events {
		resp.Events = append(resp.Events, *eventToResponse(&events[i]))
	}

	if sess.State == model.SessionClosed && sess.ExpectedCash != nil && sess.Discrepancy != nil {
		resp.ExpectedCash = *sess.ExpectedCash
		d := dto.DiscrepancyResponse{
			Amount:         *sess.Discrepancy,
			Percent:        reconcile.Percent(*sess.Discrepancy, *sess.ExpectedCash),
			Classification: string(reconcile.Classify(*sess.Discrepancy, *sess.ExpectedCash, s.thresholds)),
		}
		resp.Discrepancy = &d
		return resp, nil
	}

	expected, err := reconcile.Expected(sess.StartingCash, sess.ID, eventSeq(events))
	if err != nil {
		return nil, err
	}
	resp.ExpectedCash = expected
	return resp, nil
}

func (s *cajaService) ListSessions(ctx context.Context, registerID int64, page, limit int) (*dto.SessionListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultSessionLimit
	}
	limit = min(limit, maxSessionLimit)

	if _, err := s.repo.FindRegister(ctx, registerID); err != nil {
		return nil, s.mapErr(err, registerID)
	}
	sessions, total, err := s.repo.ListSessions(ctx, registerID, page, limit)
	if err != nil {
		return nil, err
	}
	resp := &dto.SessionListResponse{
		Data:  make([]dto.SessionResponse, 0, len(sessions)),
		Total: total,
		Page:  page,
		Limit: limit,
	}
	for i := range sessions {
		resp.Data = append(resp.Data, *sessionToResponse(&sessions[i]))
	}
	return resp, nil
}

func (s *cajaService) ListEvents(ctx context.Context, registerID int64, limit int) ([]dto.EventResponse, error) {
	if limit < 1 {
		limit = defaultEventLimit
	}
	limit = min(limit, maxEventLimit)

	if _, err := s.repo.FindRegister(ctx, registerID); err != nil {
		return nil, s.mapErr(err, registerID)
	}
	events, err := s.repo.ListEvents(ctx, registerID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.EventResponse, 0, len(events))
	for i := range events {
		out = append(out, *eventToResponse(&events[i]))
	}
	return out, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// mapErr turns repository sentinels into typed domain errors. Typed errors
// raised inside a transaction pass through unchanged.
func (s *cajaService) mapErr(err error, registerID int64) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperror.NotFound("register", registerID)
	case errors.Is(err, repository.ErrOpenSessionExists):
		return apperror.State(errAlreadyOpen)
	case apperror.IsValidation(err), apperror.IsState(err), apperror.IsNotFound(err), apperror.IsConflict(err):
		return err
	default:
		return fmt.Errorf("register %d: %w", registerID, err)
	}
}

func (s *cajaService) observeEvent(t model.EventType) {
	if s.metrics != nil {
		s.metrics.LedgerEvents.WithLabelValues(string(t)).Inc()
	}
}
