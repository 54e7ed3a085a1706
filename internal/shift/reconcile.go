package shift

import (
	"kasa-backend/internal/models"

	"github.com/shopspring/decimal"
)

// Summary vardiyanın türetilmiş kasa özeti. Hiçbir alanı veritabanında tutulmaz.
type Summary struct {
	Shift         models.Shift        `json:"shift"`
	OpeningCash   decimal.Decimal     `json:"opening_cash"`
	CashSales     decimal.Decimal     `json:"cash_sales"`
	CardSales     decimal.Decimal     `json:"card_sales"`
	PayIns        decimal.Decimal     `json:"pay_ins"`
	PayOuts       decimal.Decimal     `json:"pay_outs"`
	ExpectedCash  decimal.Decimal     `json:"expected_cash"`
	ClosingCash   decimal.NullDecimal `json:"closing_cash"`
	Difference    decimal.NullDecimal `json:"difference"` // + fazla, - eksik
	MovementCount int                 `json:"movement_count"`
}

type MovementTotals struct {
	PayIn  decimal.Decimal
	PayOut decimal.Decimal
}

// SumMovements sıralamadan bağımsızdır.
func SumMovements(movements []models.CashMovement) MovementTotals {
	totals := MovementTotals{PayIn: decimal.Zero, PayOut: decimal.Zero}
	for _, m := range movements {
		switch m.Type {
		case models.MovementPayIn:
			totals.PayIn = totals.PayIn.Add(m.Amount)
		case models.MovementPayOut:
			totals.PayOut = totals.PayOut.Add(m.Amount)
		}
	}
	return totals
}

// ExpectedCash = açılış + nakit satış + girişler - çıkışlar
func ExpectedCash(sh models.Shift, movements []models.CashMovement, cashSales decimal.Decimal) decimal.Decimal {
	totals := SumMovements(movements)
	return sh.OpeningCash.Add(cashSales).Add(totals.PayIn).Sub(totals.PayOut)
}

func Difference(closingCash, expectedCash decimal.Decimal) decimal.Decimal {
	return closingCash.Sub(expectedCash)
}

func BuildSummary(sh models.Shift, movements []models.CashMovement, cashSales, cardSales decimal.Decimal) Summary {
	totals := SumMovements(movements)
	expected := ExpectedCash(sh, movements, cashSales)

	summary := Summary{
		Shift:         sh,
		OpeningCash:   sh.OpeningCash,
		CashSales:     cashSales,
		CardSales:     cardSales,
		PayIns:        totals.PayIn,
		PayOuts:       totals.PayOut,
		ExpectedCash:  expected,
		ClosingCash:   sh.ClosingCash,
		MovementCount: len(movements),
	}
	if sh.ClosingCash.Valid {
		summary.Difference = decimal.NewNullDecimal(Difference(sh.ClosingCash.Decimal, expected))
	}
	return summary
}
