package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kasa-backend/internal/models"
	"kasa-backend/internal/shift"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrInvalidMethod = &shift.ValidationError{Field: "method", Message: "geçersiz method (cash|pos|online)"}

// Service ciro kayıtlarını tutar ve vardiya mutabakatına nakit/kart toplamlarını verir.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) CashSalesTotal(ctx context.Context, shiftID uint) (decimal.Decimal, error) {
	return s.shiftTotal(ctx, shiftID, models.SalesMethodCash)
}

func (s *Service) CardSalesTotal(ctx context.Context, shiftID uint) (decimal.Decimal, error) {
	return s.shiftTotal(ctx, shiftID, models.SalesMethodPOS)
}

func (s *Service) shiftTotal(ctx context.Context, shiftID uint, method models.SalesMethod) (decimal.Decimal, error) {
	var entries []models.SalesEntry
	err := s.db.WithContext(ctx).
		Select("id", "amount").
		Where("shift_id = ? AND method = ?", shiftID, method).
		Find(&entries).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("satış toplamı hesaplanamadı: %w", err)
	}
	return sumAmounts(entries), nil
}

func sumAmounts(entries []models.SalesEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total
}

type CreateInput struct {
	BranchID    uint
	ShiftID     *uint
	Date        time.Time // boşsa bugün
	Method      models.SalesMethod
	Amount      decimal.Decimal
	Description string
	Actor       uint
	ClientRef   *uuid.UUID
}

// Create ciro kaydı ekler. ShiftID verilmişse vardiya yazma anında açık ve aynı
// şubede olmalıdır; kapanmış vardiyanın satış toplamı değişmez.
func (s *Service) Create(ctx context.Context, in CreateInput) (models.SalesEntry, error) {
	if !in.Method.Valid() {
		return models.SalesEntry{}, ErrInvalidMethod
	}
	if !in.Amount.Round(2).IsPositive() {
		return models.SalesEntry{}, shift.ErrInvalidAmount
	}
	if in.BranchID == 0 {
		return models.SalesEntry{}, shift.ErrMissingScope
	}

	date := in.Date
	if date.IsZero() {
		// sadece tarih kısmını kullanmak için bugün 00:00
		now := s.now()
		date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}

	var entry models.SalesEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.ClientRef != nil {
			err := tx.Where("client_ref = ?", *in.ClientRef).First(&entry).Error
			if err == nil {
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		if in.ShiftID != nil {
			if err := lockOpenShift(tx, *in.ShiftID, in.BranchID); err != nil {
				return err
			}
		}

		entry = models.SalesEntry{
			BranchID:    in.BranchID,
			ShiftID:     in.ShiftID,
			Date:        date,
			Method:      in.Method,
			Amount:      in.Amount.Round(2),
			Description: in.Description,
			ClientRef:   in.ClientRef,
			CreatedBy:   in.Actor,
		}
		return tx.Create(&entry).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) && in.ClientRef != nil {
		var existing models.SalesEntry
		if ferr := s.db.WithContext(ctx).Where("client_ref = ?", *in.ClientRef).First(&existing).Error; ferr == nil {
			return existing, nil
		}
	}
	if err != nil {
		return models.SalesEntry{}, err
	}
	return entry, nil
}

func lockOpenShift(tx *gorm.DB, shiftID, branchID uint) error {
	res := tx.Model(&models.Shift{}).
		Where("id = ? AND branch_id = ? AND status = ?", shiftID, branchID, models.ShiftStatusOpen).
		Update("revision", gorm.Expr("revision + 1"))
	if res.Error != nil {
		return fmt.Errorf("vardiya kilitlenemedi: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var sh models.Shift
	err := tx.Select("id", "branch_id", "status").First(&sh, "id = ?", shiftID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && sh.BranchID != branchID) {
		return shift.ErrNotFound
	}
	if err != nil {
		return err
	}
	return shift.ErrShiftClosed
}

type ListFilter struct {
	BranchID uint
	ShiftID  *uint
	From     *time.Time
	To       *time.Time
	Method   models.SalesMethod
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]models.SalesEntry, error) {
	dbq := s.db.WithContext(ctx).Model(&models.SalesEntry{}).Where("branch_id = ?", f.BranchID)
	if f.ShiftID != nil {
		dbq = dbq.Where("shift_id = ?", *f.ShiftID)
	}
	if f.From != nil {
		dbq = dbq.Where("date >= ?", *f.From)
	}
	if f.To != nil {
		dbq = dbq.Where("date <= ?", *f.To)
	}
	if f.Method != "" {
		dbq = dbq.Where("method = ?", f.Method)
	}

	var entries []models.SalesEntry
	if err := dbq.Order("date asc, id asc").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("ciro kayıtları listelenemedi: %w", err)
	}
	return entries, nil
}

type MonthlySummaryItem struct {
	Method models.SalesMethod `json:"method"`
	Total  decimal.Decimal    `json:"total"`
}

type MonthlySummary struct {
	BranchID   uint                 `json:"branch_id"`
	Year       int                  `json:"year"`
	Month      int                  `json:"month"`
	Items      []MonthlySummaryItem `json:"items"`
	GrandTotal decimal.Decimal      `json:"grand_total"`
}

var methodOrder = []models.SalesMethod{models.SalesMethodCash, models.SalesMethodPOS, models.SalesMethodOnline}

func (s *Service) MonthlySummary(ctx context.Context, branchID uint, year, month int) (MonthlySummary, error) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	var entries []models.SalesEntry
	err := s.db.WithContext(ctx).
		Select("id", "method", "amount").
		Where("branch_id = ? AND date >= ? AND date < ?", branchID, start, end).
		Find(&entries).Error
	if err != nil {
		return MonthlySummary{}, fmt.Errorf("özet hesaplanamadı: %w", err)
	}

	totals := make(map[models.SalesMethod]decimal.Decimal)
	for _, e := range entries {
		totals[e.Method] = totals[e.Method].Add(e.Amount)
	}

	resp := MonthlySummary{
		BranchID:   branchID,
		Year:       year,
		Month:      month,
		Items:      make([]MonthlySummaryItem, 0, len(totals)),
		GrandTotal: decimal.Zero,
	}
	for _, m := range methodOrder {
		total, ok := totals[m]
		if !ok {
			continue
		}
		resp.Items = append(resp.Items, MonthlySummaryItem{Method: m, Total: total})
		resp.GrandTotal = resp.GrandTotal.Add(total)
	}
	return resp, nil
}
