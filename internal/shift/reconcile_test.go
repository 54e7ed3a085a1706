package shift

import (
	"math/rand"
	"testing"

	"kasa-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func movement(typ models.MovementType, amount string) models.CashMovement {
	return models.CashMovement{Type: typ, Amount: decimal.RequireFromString(amount)}
}

func TestExpectedCashScenario(t *testing.T) {
	sh := models.Shift{OpeningCash: dec("300.00")}
	movs := []models.CashMovement{
		movement(models.MovementPayIn, "50.00"),
		movement(models.MovementPayOut, "20.00"),
	}

	expected := ExpectedCash(sh, movs, dec("120.00"))
	require.True(t, expected.Equal(dec("450.00")), expected.String())
	require.True(t, Difference(dec("445.00"), expected).Equal(dec("-5.00")))
	require.True(t, Difference(dec("455.50"), expected).Equal(dec("5.50")))
}

func TestExpectedCashIsOrderIndependent(t *testing.T) {
	sh := models.Shift{OpeningCash: dec("125.40")}
	movs := []models.CashMovement{
		movement(models.MovementPayIn, "10.10"),
		movement(models.MovementPayOut, "3.33"),
		movement(models.MovementPayIn, "0.01"),
		movement(models.MovementPayOut, "99.99"),
		movement(models.MovementPayIn, "42.00"),
		movement(models.MovementPayOut, "0.19"),
	}
	want := ExpectedCash(sh, movs, dec("17.25"))
	require.True(t, want.Equal(dec("91.25")), want.String())

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		shuffled := append([]models.CashMovement(nil), movs...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		require.True(t, ExpectedCash(sh, shuffled, dec("17.25")).Equal(want))
	}
}

func TestBuildSummary(t *testing.T) {
	open := models.Shift{ID: 3, OpeningCash: dec("100"), Status: models.ShiftStatusOpen}
	movs := []models.CashMovement{movement(models.MovementPayIn, "5"), movement(models.MovementPayOut, "2")}

	s := BuildSummary(open, movs, dec("10"), dec("40"))
	require.True(t, s.ExpectedCash.Equal(dec("113")))
	require.True(t, s.CardSales.Equal(dec("40")))
	require.False(t, s.ClosingCash.Valid)
	require.False(t, s.Difference.Valid)
	require.Equal(t, 2, s.MovementCount)

	closed := open
	closed.Status = models.ShiftStatusClosed
	closed.ClosingCash = decimal.NewNullDecimal(dec("120"))
	s = BuildSummary(closed, movs, dec("10"), dec("40"))
	require.True(t, s.Difference.Valid)
	require.True(t, s.Difference.Decimal.Equal(dec("7")))
}

func TestSumMovementsEmpty(t *testing.T) {
	totals := SumMovements(nil)
	require.True(t, totals.PayIn.IsZero())
	require.True(t, totals.PayOut.IsZero())
}
