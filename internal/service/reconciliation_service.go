package service

import (
	"context"
	"errors"

	"cashpos/internal/apperror"
	"cashpos/internal/dto"
	"cashpos/internal/model"
	"cashpos/internal/money"
	"cashpos/internal/reconcile"
	"cashpos/internal/repository"
)

// ReconciliationService answers read-only questions about an open session.
// Both operations run inside a snapshot and never write.
type ReconciliationService interface {
	ExpectedCash(ctx context.Context, registerID int64) (*dto.ExpectedCashResponse, error)
	PreviewClose(ctx context.Context, registerID int64, req dto.PreviewRequest) (*dto.PreviewResponse, error)
}

type reconciliationService struct {
	repo       repository.CajaRepository
	thresholds reconcile.Thresholds
}

func NewReconciliationService(repo repository.CajaRepository, th reconcile.Thresholds) ReconciliationService {
	return &reconciliationService{repo: repo, thresholds: th}
}

func (s *reconciliationService) ExpectedCash(ctx context.Context, registerID int64) (*dto.ExpectedCashResponse, error) {
	sess, expected, err := s.expected(ctx, registerID)
	if err != nil {
		return nil, err
	}
	return &dto.ExpectedCashResponse{
		RegisterID:   registerID,
		SessionID:    sess.ID.String(),
		ExpectedCash: expected,
	}, nil
}

func (s *reconciliationService) PreviewClose(ctx context.Context, registerID int64, req dto.PreviewRequest) (*dto.PreviewResponse, error) {
	counted, _, err := req.CountedCash.Resolve("counted_cash")
	if err != nil {
		return nil, err
	}
	adj, err := req.Adjustment.Signed()
	if err != nil {
		return nil, err
	}

	sess, expected, err := s.expected(ctx, registerID)
	if err != nil {
		return nil, err
	}
	result, err := reconcile.Compute(expected, counted, adj, s.thresholds)
	if err != nil {
		return nil, err
	}
	return &dto.PreviewResponse{
		RegisterID:   registerID,
		SessionID:    sess.ID.String(),
		StartingCash: sess.StartingCash,
		ExpectedCash: result.Expected,
		EndingCash:   result.Ending,
		Discrepancy:  discrepancyToResponse(result),
	}, nil
}

func (s *reconciliationService) expected(ctx context.Context, registerID int64) (*model.Session, money.Money, error) {
	var (
		sess     *model.Session
		expected money.Money
	)
	err := s.repo.Snapshot(ctx, func(tx repository.CajaRepository) error {
		if _, err := tx.FindRegister(ctx, registerID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperror.NotFound("register", registerID)
			}
			return err
		}
		var err error
		sess, err = tx.FindOpenSession(ctx, registerID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.State(errNotOpen)
		}
		if err != nil {
			return err
		}
		expected, err = reconcile.Expected(sess.StartingCash, sess.ID, tx.EventsSince(ctx, registerID, sess.OpenedAt))
		return err
	})
	if err != nil {
		return nil, money.Money{}, err
	}
	return sess, expected, nil
}
