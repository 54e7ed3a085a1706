package dashboard

import (
	"context"
	"fmt"
	"time"

	"kasa-backend/internal/auth"
	"kasa-backend/internal/models"
	"kasa-backend/internal/shift"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CashChartPoint struct {
	Label        string          `json:"label"` // gün / hafta başı / ay başı
	Cash         decimal.Decimal `json:"cash"`
	POS          decimal.Decimal `json:"pos"`
	Online       decimal.Decimal `json:"online"`
	Total        decimal.Decimal `json:"total"`
	ClosedShifts int             `json:"closed_shifts"`
	Difference   decimal.Decimal `json:"difference"` // kapanan vardiyaların kasa farkı toplamı
}

type CashChartGrandTotals struct {
	Cash         decimal.Decimal `json:"cash"`
	POS          decimal.Decimal `json:"pos"`
	Online       decimal.Decimal `json:"online"`
	Total        decimal.Decimal `json:"total"`
	ClosedShifts int             `json:"closed_shifts"`
	Difference   decimal.Decimal `json:"difference"`
}

type CashChartResponse struct {
	BranchID    uint                 `json:"branch_id"`
	Period      string               `json:"period"` // daily | weekly | monthly
	From        string               `json:"from"`
	To          string               `json:"to"`
	Points      []CashChartPoint     `json:"points"`
	GrandTotals CashChartGrandTotals `json:"grand_totals"`
}

// ShiftSummaries kapanmış vardiyanın türetilmiş özetini verir.
type ShiftSummaries interface {
	Summary(ctx context.Context, id uint) (shift.Summary, error)
}

// Chart şube ciro ve kasa farkı grafiği.
type Chart struct {
	db        *gorm.DB
	summaries ShiftSummaries
	now       func() time.Time
}

func NewChart(db *gorm.DB, summaries ShiftSummaries) *Chart {
	return &Chart{db: db, summaries: summaries, now: func() time.Time { return time.Now().UTC() }}
}

func (c *Chart) WithNow(now func() time.Time) {
	if now != nil {
		c.now = now
	}
}

func defaultCount(period string) int {
	switch period {
	case "weekly":
		return 8
	case "monthly":
		return 12
	default:
		return 7
	}
}

// bucketOf t'nin düştüğü dönem başlangıcı. Haftalar pazartesi başlar.
func bucketOf(t time.Time, period string) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch period {
	case "weekly":
		return d.AddDate(0, 0, -((int(d.Weekday()) + 6) % 7))
	case "monthly":
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return d
	}
}

func step(t time.Time, period string, n int) time.Time {
	switch period {
	case "weekly":
		return t.AddDate(0, 0, 7*n)
	case "monthly":
		return t.AddDate(0, n, 0)
	default:
		return t.AddDate(0, 0, n)
	}
}

// CashChart son count dönem için satış ve kapanış farklarını toplar.
// Boş dönemler sıfır değerli nokta olarak döner.
func (c *Chart) CashChart(ctx context.Context, branchID uint, period string, count int) (CashChartResponse, error) {
	switch period {
	case "daily", "weekly", "monthly":
	default:
		period = "daily"
	}
	if count <= 0 {
		count = defaultCount(period)
	}

	last := bucketOf(c.now(), period)
	start := step(last, period, -(count - 1))
	end := step(last, period, 1)

	points := make([]CashChartPoint, count)
	index := make(map[time.Time]int, count)
	for i := 0; i < count; i++ {
		b := step(start, period, i)
		index[b] = i
		points[i] = CashChartPoint{
			Label:      b.Format("2006-01-02"),
			Cash:       decimal.Zero,
			POS:        decimal.Zero,
			Online:     decimal.Zero,
			Total:      decimal.Zero,
			Difference: decimal.Zero,
		}
	}

	var entries []models.SalesEntry
	if err := c.db.WithContext(ctx).
		Select("id", "date", "method", "amount").
		Where("branch_id = ? AND date >= ? AND date < ?", branchID, start, end).
		Find(&entries).Error; err != nil {
		return CashChartResponse{}, fmt.Errorf("satışlar okunamadı: %w", err)
	}
	for _, e := range entries {
		i, ok := index[bucketOf(e.Date, period)]
		if !ok {
			continue
		}
		p := &points[i]
		switch e.Method {
		case models.SalesMethodCash:
			p.Cash = p.Cash.Add(e.Amount)
		case models.SalesMethodPOS:
			p.POS = p.POS.Add(e.Amount)
		case models.SalesMethodOnline:
			p.Online = p.Online.Add(e.Amount)
		}
		p.Total = p.Total.Add(e.Amount)
	}

	var closed []models.Shift
	if err := c.db.WithContext(ctx).
		Select("id", "closed_at").
		Where("branch_id = ? AND status = ? AND closed_at >= ? AND closed_at < ?",
			branchID, models.ShiftStatusClosed, start, end).
		Find(&closed).Error; err != nil {
		return CashChartResponse{}, fmt.Errorf("kapanan vardiyalar okunamadı: %w", err)
	}
	for _, sh := range closed {
		if sh.ClosedAt == nil {
			continue
		}
		i, ok := index[bucketOf(*sh.ClosedAt, period)]
		if !ok {
			continue
		}
		summary, err := c.summaries.Summary(ctx, sh.ID)
		if err != nil {
			return CashChartResponse{}, fmt.Errorf("vardiya %d özeti alınamadı: %w", sh.ID, err)
		}
		points[i].ClosedShifts++
		points[i].Difference = points[i].Difference.Add(summary.Difference.Decimal)
	}

	grand := CashChartGrandTotals{
		Cash:       decimal.Zero,
		POS:        decimal.Zero,
		Online:     decimal.Zero,
		Total:      decimal.Zero,
		Difference: decimal.Zero,
	}
	for _, p := range points {
		grand.Cash = grand.Cash.Add(p.Cash)
		grand.POS = grand.POS.Add(p.POS)
		grand.Online = grand.Online.Add(p.Online)
		grand.Total = grand.Total.Add(p.Total)
		grand.ClosedShifts += p.ClosedShifts
		grand.Difference = grand.Difference.Add(p.Difference)
	}

	return CashChartResponse{
		BranchID:    branchID,
		Period:      period,
		From:        start.Format("2006-01-02"),
		To:          end.AddDate(0, 0, -1).Format("2006-01-02"),
		Points:      points,
		GrandTotals: grand,
	}, nil
}

// GET /api/dashboard/cash-chart?period=daily&count=7&branch_id=1
func CashChartHandler(chart *Chart) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.BranchFromQuery(c)
		if err != nil {
			return err
		}

		period := c.Query("period", "daily")
		count := c.QueryInt("count", 0)
		if count < 0 || count > 366 {
			return fiber.NewError(fiber.StatusBadRequest, "count geçersiz")
		}

		resp, err := chart.CashChart(c.UserContext(), branchID, period, count)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Veri toplanırken hata oluştu")
		}
		return c.JSON(resp)
	}
}
