package repository

import (
	"context"
	"errors"

	"cashpos/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound wraps gorm.ErrRecordNotFound so callers do not import gorm.
	ErrNotFound = errors.New("record not found")
	// ErrHasHistory is returned when deleting a register that has sessions or ledger events.
	ErrHasHistory = errors.New("register has history")
	// ErrOpenSessionExists is returned when the one-open-session index rejects an insert.
	ErrOpenSessionExists = errors.New("register already has an open session")
)

type RegisterRepository interface {
	Create(ctx context.Context, r *model.Register) error
	FindByID(ctx context.Context, id int64) (*model.Register, error)
	List(ctx context.Context) ([]model.Register, error)
	Rename(ctx context.Context, id int64, name string) (*model.Register, error)
	// DeleteWithoutHistory removes the register only if no session or ledger
	// event references it; the check and the delete share one transaction.
	DeleteWithoutHistory(ctx context.Context, id int64) error
}

type registerRepo struct{ db *gorm.DB }

func NewRegisterRepository(db *gorm.DB) RegisterRepository { return &registerRepo{db: db} }

func (r *registerRepo) Create(ctx context.Context, reg *model.Register) error {
	return r.db.WithContext(ctx).Create(reg).Error
}

func (r *registerRepo) FindByID(ctx context.Context, id int64) (*model.Register, error) {
	var reg model.Register
	err := r.db.WithContext(ctx).First(&reg, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &reg, nil
}

func (r *registerRepo) List(ctx context.Context) ([]model.Register, error) {
	var regs []model.Register
	err := r.db.WithContext(ctx).Order("id ASC").Find(&regs).Error
	return regs, err
}

func (r *registerRepo) Rename(ctx context.Context, id int64, name string) (*model.Register, error) {
	var reg model.Register
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&reg, id).Error; err != nil {
			return err
		}
		reg.Name = name
		return tx.Save(&reg).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &reg, nil
}

func (r *registerRepo) DeleteWithoutHistory(ctx context.Context, id int64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reg model.Register
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&reg, id).Error; err != nil {
			return err
		}
		var sessions, events int64
		if err := tx.Model(&model.Session{}).Where("register_id = ?", id).Count(&sessions).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.LedgerEvent{}).Where("register_id = ?", id).Count(&events).Error; err != nil {
			return err
		}
		if sessions > 0 || events > 0 {
			return ErrHasHistory
		}
		return tx.Delete(&reg).Error
	})
	return translate(err)
}

// translate maps gorm sentinel errors onto the repository's own.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	default:
		return err
	}
}
