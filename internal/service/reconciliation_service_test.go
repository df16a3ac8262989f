package service_test

import (
	"context"
	"testing"

	"cashpos/internal/apperror"
	"cashpos/internal/dto"
	"cashpos/internal/model"
	"cashpos/internal/money"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreviewCloseDoesNotWrite(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "Front")
	ctx := context.Background()
	f.open(t, reg, money.Add("200.00"))
	f.move(t, reg, "CASH_IN", "150.00")
	f.move(t, reg, "CASH_OUT", "20.00")

	var before int64
	require.NoError(t, f.db.Model(&model.LedgerEvent{}).Count(&before).Error)

	p, err := f.recon.PreviewClose(ctx, reg, dto.PreviewRequest{
		CountedCash: money.Count(money.Breakdown{money.Twenty: 10, money.Five: 6}),
	})
	require.NoError(t, err)
	assert.Equal(t, "200.00", p.StartingCash.String())
	assert.Equal(t, "330.00", p.ExpectedCash.String())
	assert.Equal(t, "230.00", p.EndingCash.String())
	assert.Equal(t, "-100.00", p.Discrepancy.Amount.String())
	assert.Equal(t, "critical", p.Discrepancy.Classification)

	var after int64
	require.NoError(t, f.db.Model(&model.LedgerEvent{}).Count(&after).Error)
	assert.Equal(t, before, after)

	active, err := f.caja.GetActive(ctx, reg)
	require.NoError(t, err)
	assert.Equal(t, "OPEN", active.State)
}

func TestPreviewCloseMatchesClose(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "Front")
	ctx := context.Background()
	f.open(t, reg, money.Add("80.00"))
	f.move(t, reg, "CASH_IN", "12.34")

	in := money.Total("90.00")
	adj := money.Add("2.00")
	p, err := f.recon.PreviewClose(ctx, reg, dto.PreviewRequest{CountedCash: in, Adjustment: adj})
	require.NoError(t, err)

	c, err := f.caja.Close(ctx, reg, "emp-1", dto.CloseRequest{CountedCash: in, Adjustment: adj})
	require.NoError(t, err)
	assert.Equal(t, p.EndingCash, *c.Session.EndingCash)
	assert.Equal(t, p.Discrepancy.Amount, *c.Session.Discrepancy)
	assert.Equal(t, p.Discrepancy.Classification, c.Discrepancy.Classification)
}

func TestPreviewCloseErrors(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "Front")
	ctx := context.Background()

	_, err := f.recon.PreviewClose(ctx, reg, dto.PreviewRequest{CountedCash: money.Total("1")})
	assert.True(t, apperror.IsState(err))

	_, err = f.recon.PreviewClose(ctx, 404, dto.PreviewRequest{CountedCash: money.Total("1")})
	assert.True(t, apperror.IsNotFound(err))

	f.open(t, reg, money.Adjustment{})
	_, err = f.recon.PreviewClose(ctx, reg, dto.PreviewRequest{CountedCash: money.CashInput{}})
	assert.True(t, apperror.IsValidation(err))
}
