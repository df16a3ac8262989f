package repository_test

import (
	"context"
	"testing"
	"time"

	"cashpos/internal/apperror"
	"cashpos/internal/infra"
	"cashpos/internal/model"
	"cashpos/internal/money"
	"cashpos/internal/money/moneytest"
	"cashpos/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := infra.NewDatabase("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedRegister(t *testing.T, db *gorm.DB, name string) int64 {
	t.Helper()
	reg := &model.Register{Name: name}
	require.NoError(t, repository.NewRegisterRepository(db).Create(context.Background(), reg))
	return reg.ID
}

// steppedClock returns the given instants in order, repeating the last one.
func steppedClock(ts ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := ts[min(i, len(ts)-1)]
		i++
		return t
	}
}

func TestAppendAssignsIDAndTimestamp(t *testing.T) {
	db := newTestDB(t)
	regID := seedRegister(t, db, "Front")
	at := time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.UTC)
	repo := repository.NewCajaRepositoryWithClock(db, steppedClock(at))
	ctx := context.Background()

	ev := &model.LedgerEvent{
		ID:         999,
		RegisterID: regID,
		Type:       model.EventCashIn,
		Amount:     moneytest.MustParse("10.00"),
		EmployeeID: "1",
		OccurredAt: time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Append(ctx, ev))
	assert.NotEqual(t, int64(999), ev.ID)
	assert.Positive(t, ev.ID)
	assert.True(t, ev.OccurredAt.Equal(at.Truncate(time.Microsecond)))
}

func TestAppendValidation(t *testing.T) {
	db := newTestDB(t)
	regID := seedRegister(t, db, "Front")
	repo := repository.NewCajaRepository(db)
	ctx := context.Background()

	err := repo.Append(ctx, &model.LedgerEvent{RegisterID: regID, Type: model.EventCashOut, Amount: moneytest.MustParse("-1"), EmployeeID: "1"})
	assert.True(t, apperror.IsValidation(err))

	err = repo.Append(ctx, &model.LedgerEvent{RegisterID: regID + 100, Type: model.EventCashIn, Amount: moneytest.MustParse("1"), EmployeeID: "1"})
	assert.True(t, apperror.IsValidation(err))

	err = repo.Append(ctx, &model.LedgerEvent{RegisterID: regID, Type: "REFUND", Amount: moneytest.MustParse("1"), EmployeeID: "1"})
	assert.True(t, apperror.IsValidation(err))
}

func TestAppendTimestampsNeverGoBackwards(t *testing.T) {
	db := newTestDB(t)
	regID := seedRegister(t, db, "Front")
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	repo := repository.NewCajaRepositoryWithClock(db, steppedClock(t0, t0.Add(-time.Hour), t0.Add(time.Second)))
	ctx := context.Background()

	var got []time.Time
	for range 3 {
		ev := &model.LedgerEvent{RegisterID: regID, Type: model.EventCashIn, Amount: moneytest.MustParse("1"), EmployeeID: "1"}
		require.NoError(t, repo.Append(ctx, ev))
		got = append(got, ev.OccurredAt)
	}
	assert.True(t, got[1].Equal(got[0]), "clock skew is clamped to the last event")
	assert.True(t, got[2].After(got[1]))
}

func TestEventsSinceOrderingAndRequery(t *testing.T) {
	db := newTestDB(t)
	front := seedRegister(t, db, "Front")
	back := seedRegister(t, db, "Back")
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	var step int
	clock := func() time.Time {
		step++
		return t0.Add(time.Duration(step) * time.Minute)
	}
	repo := repository.NewCajaRepositoryWithClock(db, clock)
	ctx := context.Background()

	for _, amt := range []string{"1", "2", "3"} {
		require.NoError(t, repo.Append(ctx, &model.LedgerEvent{RegisterID: front, Type: model.EventCashIn, Amount: moneytest.MustParse(amt), EmployeeID: "1"}))
	}
	require.NoError(t, repo.Append(ctx, &model.LedgerEvent{RegisterID: back, Type: model.EventCashIn, Amount: moneytest.MustParse("99"), EmployeeID: "1"}))

	seq := repo.EventsSince(ctx, front, t0.Add(2*time.Minute))
	collect := func() []string {
		var out []string
		for e, err := range seq {
			require.NoError(t, err)
			out = append(out, e.Amount.String())
		}
		return out
	}
	assert.Equal(t, []string{"2.00", "3.00"}, collect())

	require.NoError(t, repo.Append(ctx, &model.LedgerEvent{RegisterID: front, Type: model.EventCashOut, Amount: moneytest.MustParse("4"), EmployeeID: "1"}))
	assert.Equal(t, []string{"2.00", "3.00", "4.00"}, collect(), "each iteration re-queries the store")

	// early break releases the cursor so later queries still run
	for range seq {
		break
	}
	events, err := repo.ListEvents(ctx, front, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "3.00", events[0].Amount.String())
	assert.Equal(t, "4.00", events[1].Amount.String())
}

func TestOneOpenSessionPerRegisterIndex(t *testing.T) {
	db := newTestDB(t)
	regID := seedRegister(t, db, "Front")
	repo := repository.NewCajaRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	first := &model.Session{RegisterID: regID, State: model.SessionOpen, OpenedAt: now, OpenedBy: "1"}
	require.NoError(t, repo.CreateSession(ctx, first))
	assert.NotEqual(t, uuid.Nil, first.ID)

	second := &model.Session{RegisterID: regID, State: model.SessionOpen, OpenedAt: now, OpenedBy: "2"}
	assert.ErrorIs(t, repo.CreateSession(ctx, second), repository.ErrOpenSessionExists)

	// closed sessions are not constrained
	closed := &model.Session{RegisterID: regID, State: model.SessionClosed, OpenedAt: now, OpenedBy: "3"}
	require.NoError(t, repo.CreateSession(ctx, closed))
}

func TestAtomicUnknownRegister(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewCajaRepository(db)
	called := false
	err := repo.Atomic(context.Background(), 42, func(repository.CajaRepository) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.False(t, called)
}

func TestAtomicRollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	regID := seedRegister(t, db, "Front")
	repo := repository.NewCajaRepository(db)
	ctx := context.Background()

	err := repo.Atomic(ctx, regID, func(tx repository.CajaRepository) error {
		require.NoError(t, tx.Append(ctx, &model.LedgerEvent{RegisterID: regID, Type: model.EventCashIn, Amount: moneytest.MustParse("5"), EmployeeID: "1"}))
		return apperror.State("nope")
	})
	assert.True(t, apperror.IsState(err))

	events, err := repo.ListEvents(ctx, regID, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestLastClosedSession(t *testing.T) {
	db := newTestDB(t)
	regID := seedRegister(t, db, "Front")
	repo := repository.NewCajaRepository(db)
	ctx := context.Background()

	_, err := repo.LastClosedSession(ctx, regID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, amt := range []string{"10.00", "20.00"} {
		closedAt := base.Add(time.Duration(i+1) * time.Hour)
		ending := moneytest.MustParse(amt)
		require.NoError(t, repo.CreateSession(ctx, &model.Session{
			RegisterID: regID, State: model.SessionClosed, OpenedAt: base, OpenedBy: "1",
			ClosedAt: &closedAt, EndingCash: &ending,
		}))
	}
	last, err := repo.LastClosedSession(ctx, regID)
	require.NoError(t, err)
	assert.Equal(t, "20.00", last.EndingCash.String())

	sessions, total, err := repo.ListSessions(ctx, regID, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, sessions, 1)
}

func TestBreakdownPersisted(t *testing.T) {
	db := newTestDB(t)
	regID := seedRegister(t, db, "Front")
	repo := repository.NewCajaRepository(db)
	ctx := context.Background()

	ev := &model.LedgerEvent{RegisterID: regID, Type: model.EventDrop, Amount: moneytest.MustParse("230"), EmployeeID: "1"}
	require.NoError(t, ev.SetBreakdown(money.Breakdown{money.Twenty: 10, money.Five: 6}))
	require.NoError(t, repo.Append(ctx, ev))
	require.NoError(t, repo.Append(ctx, &model.LedgerEvent{RegisterID: regID, Type: model.EventCashIn, Amount: moneytest.MustParse("1"), EmployeeID: "1"}))

	events, err := repo.ListEvents(ctx, regID, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, money.Breakdown{money.Twenty: 10, money.Five: 6}, events[0].Breakdown())
	assert.Nil(t, events[1].Breakdown())
}
