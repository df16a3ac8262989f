package infra

import (
	"os"
	"testing"
	"time"

	"cashpos/internal/model"
	"cashpos/internal/money"
	"cashpos/internal/money/moneytest"
	"cashpos/internal/reconcile"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "$0.00", FormatAmount(money.Zero()))
	assert.Equal(t, "$1,234.50", FormatAmount(moneytest.MustParse("1234.5")))
	assert.Equal(t, "-$100.00", FormatAmount(moneytest.MustParse("-100")))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "8 hours 12 minutes", FormatDuration(8*time.Hour+12*time.Minute+10*time.Second))
}

func TestGenerateCloseReportPDF(t *testing.T) {
	opened := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	closed := opened.Add(8 * time.Hour)
	expected := moneytest.MustParse("330.00")
	ending := moneytest.MustParse("230.00")
	disc := ending.Sub(expected)
	sid := uuid.New()
	reason := "float top-up"

	path, err := GenerateCloseReportPDF(CloseReport{
		StoreName: "Test Store",
		Register:  model.Register{ID: 1, Name: "Front"},
		Session: model.Session{
			ID: sid, RegisterID: 1, State: model.SessionClosed,
			StartingCash: moneytest.MustParse("200.00"),
			ExpectedCash: &expected, EndingCash: &ending, Discrepancy: &disc,
			OpenedAt: opened, ClosedAt: &closed, OpenedBy: "7",
		},
		Events: []model.LedgerEvent{
			{Type: model.EventOpen, Amount: moneytest.MustParse("200.00"), OccurredAt: opened},
			{Type: model.EventCashIn, Amount: moneytest.MustParse("150.00"), OccurredAt: opened.Add(time.Hour), Reason: &reason},
		},
		Class: reconcile.Critical,
	}, t.TempDir())
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
	assert.Contains(t, path, sid.String())
}
