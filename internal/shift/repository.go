package shift

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kasa-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OpenShiftQuery açık vardiya araması. Nil alanlar filtrelenmez.
type OpenShiftQuery struct {
	BranchID  *uint
	SectionID *uint
	OpenedBy  *uint
}

type ListFilter struct {
	BranchID  *uint
	SectionID *uint
	Status    *models.ShiftStatus
	Limit     int
	Offset    int
}

type Page struct {
	Items  []models.Shift `json:"items"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 200
)

func (f ListFilter) normalized() ListFilter {
	if f.Limit <= 0 {
		f.Limit = defaultPageLimit
	}
	if f.Limit > maxPageLimit {
		f.Limit = maxPageLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error

	CreateShift(ctx context.Context, sh *models.Shift) error
	GetShift(ctx context.Context, id uint) (models.Shift, error)
	FindOpenShift(ctx context.Context, q OpenShiftQuery) (models.Shift, error)
	ListShifts(ctx context.Context, f ListFilter) ([]models.Shift, int64, error)
	// MarkClosed sadece açık vardiyayı kapatır; false dönerse vardiya açık değildir.
	MarkClosed(ctx context.Context, id uint, closingCash decimal.Decimal, actor uint, at time.Time) (bool, error)
	// BumpOpenRevision açık vardiya satırını kilitler; false dönerse vardiya açık değildir.
	BumpOpenRevision(ctx context.Context, id uint) (bool, error)

	CreateMovement(ctx context.Context, m *models.CashMovement) error
	FindMovementByRef(ctx context.Context, shiftID uint, ref uuid.UUID) (models.CashMovement, error)
	ListMovements(ctx context.Context, shiftID uint) ([]models.CashMovement, error)
}

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) WithTx(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &GormRepository{db: tx})
	})
}

func (r *GormRepository) CreateShift(ctx context.Context, sh *models.Shift) error {
	if err := r.db.WithContext(ctx).Create(sh).Error; err != nil {
		return translateError(err)
	}
	return nil
}

func (r *GormRepository) GetShift(ctx context.Context, id uint) (models.Shift, error) {
	var sh models.Shift
	if err := r.db.WithContext(ctx).First(&sh, "id = ?", id).Error; err != nil {
		return models.Shift{}, translateError(err)
	}
	return sh, nil
}

func (r *GormRepository) FindOpenShift(ctx context.Context, q OpenShiftQuery) (models.Shift, error) {
	dbq := r.db.WithContext(ctx).Model(&models.Shift{}).Where("status = ?", models.ShiftStatusOpen)
	if q.BranchID != nil {
		dbq = dbq.Where("branch_id = ?", *q.BranchID)
	}
	if q.SectionID != nil {
		dbq = dbq.Where("section_id = ?", *q.SectionID)
	}
	if q.OpenedBy != nil {
		dbq = dbq.Where("opened_by = ?", *q.OpenedBy)
	}

	var sh models.Shift
	if err := dbq.Order("opened_at DESC, id DESC").First(&sh).Error; err != nil {
		return models.Shift{}, translateError(err)
	}
	return sh, nil
}

func (r *GormRepository) ListShifts(ctx context.Context, f ListFilter) ([]models.Shift, int64, error) {
	f = f.normalized()
	dbq := r.db.WithContext(ctx).Model(&models.Shift{})
	if f.BranchID != nil {
		dbq = dbq.Where("branch_id = ?", *f.BranchID)
	}
	if f.SectionID != nil {
		dbq = dbq.Where("section_id = ?", *f.SectionID)
	}
	if f.Status != nil {
		dbq = dbq.Where("status = ?", *f.Status)
	}

	var total int64
	if err := dbq.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("vardiyalar sayılamadı: %w", err)
	}

	var shifts []models.Shift
	if err := dbq.Order("opened_at DESC, id DESC").Limit(f.Limit).Offset(f.Offset).Find(&shifts).Error; err != nil {
		return nil, 0, fmt.Errorf("vardiyalar listelenemedi: %w", err)
	}
	return shifts, total, nil
}

func (r *GormRepository) MarkClosed(ctx context.Context, id uint, closingCash decimal.Decimal, actor uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Shift{}).
		Where("id = ? AND status = ?", id, models.ShiftStatusOpen).
		Updates(map[string]any{
			"status":       models.ShiftStatusClosed,
			"closing_cash": closingCash,
			"closed_at":    at,
			"closed_by":    actor,
			"revision":     gorm.Expr("revision + 1"),
		})
	if res.Error != nil {
		return false, fmt.Errorf("vardiya kapatılamadı: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepository) BumpOpenRevision(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Shift{}).
		Where("id = ? AND status = ?", id, models.ShiftStatusOpen).
		Update("revision", gorm.Expr("revision + 1"))
	if res.Error != nil {
		return false, fmt.Errorf("vardiya kilitlenemedi: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepository) CreateMovement(ctx context.Context, m *models.CashMovement) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return translateError(err)
	}
	return nil
}

func (r *GormRepository) FindMovementByRef(ctx context.Context, shiftID uint, ref uuid.UUID) (models.CashMovement, error) {
	var m models.CashMovement
	err := r.db.WithContext(ctx).Where("shift_id = ? AND client_ref = ?", shiftID, ref).First(&m).Error
	if err != nil {
		return models.CashMovement{}, translateError(err)
	}
	return m, nil
}

func (r *GormRepository) ListMovements(ctx context.Context, shiftID uint) ([]models.CashMovement, error) {
	var movs []models.CashMovement
	err := r.db.WithContext(ctx).
		Where("shift_id = ?", shiftID).
		Order("created_at DESC, id DESC").
		Find(&movs).Error
	if err != nil {
		return nil, fmt.Errorf("kasa hareketleri listelenemedi: %w", err)
	}
	return movs, nil
}

func translateError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return err
	}
}

// isUniqueViolation TranslateError kapalıyken pgx 23505 hatasını yakalar
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
