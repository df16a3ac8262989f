package repository

import (
	"context"
	"database/sql"
	"errors"
	"iter"
	"time"

	"cashpos/internal/apperror"
	"cashpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CajaRepository persists register sessions and the append-only ledger.
// There is no update or delete for ledger events; UpdateSession is only used
// by close.
type CajaRepository interface {
	// Atomic runs fn in a single transaction holding an exclusive lock on the
	// register row. Returns ErrNotFound when the register does not exist.
	Atomic(ctx context.Context, registerID int64, fn func(tx CajaRepository) error) error
	// Snapshot runs fn against a consistent read-only view.
	Snapshot(ctx context.Context, fn func(tx CajaRepository) error) error

	FindRegister(ctx context.Context, id int64) (*model.Register, error)
	FindOpenSession(ctx context.Context, registerID int64) (*model.Session, error)
	FindSessionByID(ctx context.Context, id uuid.UUID) (*model.Session, error)
	LastClosedSession(ctx context.Context, registerID int64) (*model.Session, error)
	CreateSession(ctx context.Context, s *model.Session) error
	UpdateSession(ctx context.Context, s *model.Session) error
	ListSessions(ctx context.Context, registerID int64, page, limit int) ([]model.Session, int64, error)

	// Append assigns the event id and a server timestamp that never precedes
	// the register's latest event.
	Append(ctx context.Context, e *model.LedgerEvent) error
	// EventsSince streams the register's events with occurred_at >= since in
	// ascending (occurred_at, id) order. Each call re-queries the store.
	EventsSince(ctx context.Context, registerID int64, since time.Time) iter.Seq2[model.LedgerEvent, error]
	// ListEvents returns the latest limit events in ascending order.
	ListEvents(ctx context.Context, registerID int64, limit int) ([]model.LedgerEvent, error)
	ListSessionEvents(ctx context.Context, sessionID uuid.UUID) ([]model.LedgerEvent, error)
}

type cajaRepo struct {
	db       *gorm.DB
	now      func() time.Time
	readOpts *sql.TxOptions
}

// NewCajaRepository returns a gorm-backed repository. Snapshots use a
// read-only REPEATABLE READ transaction on PostgreSQL; SQLite transactions are
// already serializable.
func NewCajaRepository(db *gorm.DB) CajaRepository {
	return NewCajaRepositoryWithClock(db, time.Now)
}

func NewCajaRepositoryWithClock(db *gorm.DB, now func() time.Time) CajaRepository {
	r := &cajaRepo{db: db, now: now}
	if db.Dialector.Name() == "postgres" {
		r.readOpts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return r
}

func (r *cajaRepo) with(tx *gorm.DB) *cajaRepo {
	return &cajaRepo{db: tx, now: r.now, readOpts: r.readOpts}
}

func (r *cajaRepo) Atomic(ctx context.Context, registerID int64, fn func(tx CajaRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reg model.Register
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&reg, registerID).Error; err != nil {
			return translate(err)
		}
		return fn(r.with(tx))
	})
}

func (r *cajaRepo) Snapshot(ctx context.Context, fn func(tx CajaRepository) error) error {
	if r.readOpts == nil {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(r.with(tx))
		})
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.with(tx))
	}, r.readOpts)
}

func (r *cajaRepo) FindRegister(ctx context.Context, id int64) (*model.Register, error) {
	var reg model.Register
	if err := r.db.WithContext(ctx).First(&reg, id).Error; err != nil {
		return nil, translate(err)
	}
	return &reg, nil
}

func (r *cajaRepo) FindOpenSession(ctx context.Context, registerID int64) (*model.Session, error) {
	var s model.Session
	err := r.db.WithContext(ctx).
		Where("register_id = ? AND state = ?", registerID, model.SessionOpen).
		First(&s).Error
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *cajaRepo) FindSessionByID(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	var s model.Session
	if err := r.db.WithContext(ctx).Preload("Register").First(&s, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *cajaRepo) LastClosedSession(ctx context.Context, registerID int64) (*model.Session, error) {
	var s model.Session
	err := r.db.WithContext(ctx).
		Where("register_id = ? AND state = ?", registerID, model.SessionClosed).
		Order("closed_at DESC").
		First(&s).Error
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *cajaRepo) CreateSession(ctx context.Context, s *model.Session) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(s).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrOpenSessionExists
	}
	return err
}

func (r *cajaRepo) UpdateSession(ctx context.Context, s *model.Session) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(s).Error
}

func (r *cajaRepo) ListSessions(ctx context.Context, registerID int64, page, limit int) ([]model.Session, int64, error) {
	var (
		sessions []model.Session
		total    int64
	)
	q := r.db.WithContext(ctx).Model(&model.Session{}).Where("register_id = ?", registerID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("opened_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&sessions).Error
	return sessions, total, err
}

func (r *cajaRepo) Append(ctx context.Context, e *model.LedgerEvent) error {
	if err := e.Validate(); err != nil {
		return err
	}
	db := r.db.WithContext(ctx)

	var exists int64
	if err := db.Model(&model.Register{}).Where("id = ?", e.RegisterID).Count(&exists).Error; err != nil {
		return err
	}
	if exists == 0 {
		return apperror.Validation("register_id", "register %d does not exist", e.RegisterID)
	}

	var last model.LedgerEvent
	err := db.Where("register_id = ?", e.RegisterID).Order("occurred_at DESC, id DESC").First(&last).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	ts := r.now().UTC().Truncate(time.Microsecond)
	if ts.Before(last.OccurredAt) {
		ts = last.OccurredAt.UTC()
	}

	e.ID = 0
	e.OccurredAt = ts
	if len(e.Denominations) == 0 {
		e.Denominations = []byte("null")
	}
	return db.Omit(clause.Associations).Create(e).Error
}

func (r *cajaRepo) EventsSince(ctx context.Context, registerID int64, since time.Time) iter.Seq2[model.LedgerEvent, error] {
	return func(yield func(model.LedgerEvent, error) bool) {
		rows, err := r.db.WithContext(ctx).Model(&model.LedgerEvent{}).
			Where("register_id = ? AND occurred_at >= ?", registerID, since.UTC()).
			Order("occurred_at ASC, id ASC").
			Rows()
		if err != nil {
			yield(model.LedgerEvent{}, err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			var e model.LedgerEvent
			if err := r.db.ScanRows(rows, &e); err != nil {
				yield(model.LedgerEvent{}, err)
				return
			}
			if !yield(e, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(model.LedgerEvent{}, err)
		}
	}
}

func (r *cajaRepo) ListEvents(ctx context.Context, registerID int64, limit int) ([]model.LedgerEvent, error) {
	var events []model.LedgerEvent
	err := r.db.WithContext(ctx).
		Where("register_id = ?", registerID).
		Order("occurred_at DESC, id DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

func (r *cajaRepo) ListSessionEvents(ctx context.Context, sessionID uuid.UUID) ([]model.LedgerEvent, error) {
	var events []model.LedgerEvent
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("occurred_at ASC, id ASC").
		Find(&events).Error
	return events, err
}
