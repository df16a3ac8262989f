package service_test

import (
	"context"
	"strings"
	"testing"

	"cashpos/internal/apperror"
	"cashpos/internal/dto"
	"cashpos/internal/infra"
	"cashpos/internal/model"
	"cashpos/internal/money"
	"cashpos/internal/repository"
	"cashpos/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterCreateAndRename(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r, err := f.registers.Create(ctx, dto.RegisterRequest{Name: "  Front  "})
	require.NoError(t, err)
	assert.Equal(t, "Front", r.Name)

	_, err = f.registers.Create(ctx, dto.RegisterRequest{Name: "   "})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.registers.Create(ctx, dto.RegisterRequest{Name: strings.Repeat("x", 101)})
	assert.True(t, apperror.IsValidation(err))

	renamed, err := f.registers.Rename(ctx, r.ID, dto.RegisterRequest{Name: "Drive-thru"})
	require.NoError(t, err)
	assert.Equal(t, "Drive-thru", renamed.Name)

	_, err = f.registers.Rename(ctx, 404, dto.RegisterRequest{Name: "x"})
	assert.True(t, apperror.IsNotFound(err))

	got, err := f.registers.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Drive-thru", got.Name)
}

func TestRegisterListIsInvalidatedOnWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, "A")
	list, err := f.registers.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	b := f.register(t, "B")
	list, err = f.registers.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	_, err = f.registers.Rename(ctx, b, dto.RegisterRequest{Name: "B2"})
	require.NoError(t, err)
	list, err = f.registers.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "B2", list[1].Name)

	require.NoError(t, f.registers.Remove(ctx, b))
	list, err = f.registers.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

// slowListRepo runs onList after reading the rows, before List returns them.
type slowListRepo struct {
	repository.RegisterRepository
	onList func()
}

func (r *slowListRepo) List(ctx context.Context) ([]model.Register, error) {
	regs, err := r.RegisterRepository.List(ctx)
	if r.onList != nil {
		r.onList()
		r.onList = nil
	}
	return regs, err
}

func TestRegisterListDoesNotCacheRowsInvalidatedDuringLoad(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	repo := &slowListRepo{RegisterRepository: repository.NewRegisterRepository(f.db)}
	svc := service.NewRegisterService(repo, infra.NewMemoryRegisterCache())

	_, err := svc.Create(ctx, dto.RegisterRequest{Name: "A"})
	require.NoError(t, err)

	// a create lands between the miss and the write-back
	repo.onList = func() {
		_, err := svc.Create(ctx, dto.RegisterRequest{Name: "B"})
		require.NoError(t, err)
	}
	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestRegisterRemoveWithHistoryConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := f.register(t, "Front")

	f.open(t, reg, money.Adjustment{})
	err := f.registers.Remove(ctx, reg)
	assert.True(t, apperror.IsConflict(err))

	// still there
	_, err = f.registers.Get(ctx, reg)
	require.NoError(t, err)

	assert.True(t, apperror.IsNotFound(f.registers.Remove(ctx, 404)))
}
