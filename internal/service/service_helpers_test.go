package service_test

import (
	"context"
	"sync"
	"testing"

	"cashpos/internal/dto"
	"cashpos/internal/infra"
	"cashpos/internal/money"
	"cashpos/internal/reconcile"
	"cashpos/internal/repository"
	"cashpos/internal/service"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeDispatcher struct {
	mu       sync.Mutex
	sessions []uuid.UUID
	err      error
}

func (d *fakeDispatcher) EnqueueCloseReport(_ context.Context, id uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessions = append(d.sessions, id)
	return d.err
}

type fixture struct {
	db         *gorm.DB
	caja       service.CajaService
	recon      service.ReconciliationService
	registers  service.RegisterService
	dispatcher *fakeDispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := infra.NewDatabase("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	repo := repository.NewCajaRepository(db)
	th := reconcile.DefaultThresholds()
	d := &fakeDispatcher{}
	return &fixture{
		db:         db,
		caja:       service.NewCajaService(repo, th, infra.NewMetrics(prometheus.NewRegistry()), d),
		recon:      service.NewReconciliationService(repo, th),
		registers:  service.NewRegisterService(repository.NewRegisterRepository(db), infra.NewMemoryRegisterCache()),
		dispatcher: d,
	}
}

func (f *fixture) register(t *testing.T, name string) int64 {
	t.Helper()
	r, err := f.registers.Create(context.Background(), dto.RegisterRequest{Name: name})
	require.NoError(t, err)
	return r.ID
}

func (f *fixture) open(t *testing.T, regID int64, adj money.Adjustment) *dto.SessionResponse {
	t.Helper()
	s, err := f.caja.Open(context.Background(), regID, "emp-1", dto.OpenRequest{Adjustment: adj})
	require.NoError(t, err)
	return s
}

func (f *fixture) move(t *testing.T, regID int64, typ, amount string) {
	t.Helper()
	_, err := f.caja.RecordCashMovement(context.Background(), regID, "emp-1", dto.MovementRequest{
		Type:   typ,
		Amount: money.Total(amount),
	})
	require.NoError(t, err)
}

func (f *fixture) expected(t *testing.T, regID int64) string {
	t.Helper()
	r, err := f.recon.ExpectedCash(context.Background(), regID)
	require.NoError(t, err)
	return r.ExpectedCash.String()
}
