package shift

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"kasa-backend/internal/models"
	"kasa-backend/internal/sections"

	"github.com/shopspring/decimal"
)

// SalesTotals satış alt sisteminden vardiyaya bağlı ciro toplamları.
type SalesTotals interface {
	CashSalesTotal(ctx context.Context, shiftID uint) (decimal.Decimal, error)
	CardSalesTotal(ctx context.Context, shiftID uint) (decimal.Decimal, error)
}

type SectionLookup interface {
	GetSection(ctx context.Context, id uint) (models.Section, error)
}

const maxOpenAttempts = 3

// Service vardiya yaşam döngüsü ve kasa defterini yönetir.
type Service struct {
	repo     Repository
	sales    SalesTotals
	sections SectionLookup
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo Repository, sales SalesTotals, sections SectionLookup, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		sales:    sales,
		sections: sections,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithNow testlerde saati sabitlemek için.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

type OpenInput struct {
	BranchID    uint
	SectionID   uint
	OpeningCash decimal.Decimal
	Actor       uint
}

type OpenResult struct {
	Shift   models.Shift
	Adopted bool // aynı kapsamda zaten açık vardiya vardı, o döndü
}

func (in OpenInput) Validate() error {
	if in.BranchID == 0 || in.SectionID == 0 {
		return ErrMissingScope
	}
	if in.Actor == 0 {
		return ErrMissingActor
	}
	if in.OpeningCash.IsNegative() {
		return ErrNegativeOpeningCash
	}
	return nil
}

// Open yeni vardiya açar. Aynı kapsamda açık vardiya varsa (yarış dahil) hata
// yerine mevcut vardiyayı Adopted=true ile döner.
func (s *Service) Open(ctx context.Context, in OpenInput) (OpenResult, error) {
	if err := in.Validate(); err != nil {
		return OpenResult{}, err
	}
	if err := s.checkSection(ctx, in.BranchID, in.SectionID); err != nil {
		return OpenResult{}, err
	}

	for attempt := 0; attempt < maxOpenAttempts; attempt++ {
		sh := models.Shift{
			BranchID:    in.BranchID,
			SectionID:   in.SectionID,
			OpenedBy:    in.Actor,
			OpenedAt:    s.now(),
			OpeningCash: in.OpeningCash.Round(2),
			Status:      models.ShiftStatusOpen,
		}
		err := s.repo.CreateShift(ctx, &sh)
		if err == nil {
			s.logger.Info("vardiya açıldı",
				slog.Uint64("shift_id", uint64(sh.ID)),
				slog.Uint64("branch_id", uint64(sh.BranchID)),
				slog.Uint64("section_id", uint64(sh.SectionID)))
			return OpenResult{Shift: sh}, nil
		}
		if !errors.Is(err, ErrConflict) {
			return OpenResult{}, fmt.Errorf("vardiya açılamadı: %w", err)
		}

		existing, err := s.repo.FindOpenShift(ctx, OpenShiftQuery{BranchID: &in.BranchID, SectionID: &in.SectionID})
		if err == nil {
			s.logger.Info("açık vardiya benimsendi",
				slog.Uint64("shift_id", uint64(existing.ID)),
				slog.Uint64("actor", uint64(in.Actor)))
			return OpenResult{Shift: existing, Adopted: true}, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return OpenResult{}, fmt.Errorf("açık vardiya okunamadı: %w", err)
		}
		// Kazanan vardiya arada kapandı, tekrar dene
	}
	return OpenResult{}, errOpenAttemptsExceeded
}

func (s *Service) checkSection(ctx context.Context, branchID, sectionID uint) error {
	if s.sections == nil {
		return nil
	}
	sec, err := s.sections.GetSection(ctx, sectionID)
	if errors.Is(err, sections.ErrNotFound) {
		return ErrUnknownSection
	}
	if err != nil {
		return fmt.Errorf("bölüm okunamadı: %w", err)
	}
	if sec.BranchID != branchID {
		return ErrSectionMismatch
	}
	return nil
}

type CloseInput struct {
	ShiftID     uint
	ClosingCash decimal.Decimal
	Actor       uint
}

// Close vardiyayı kapatır ve mutabakat özetini döner. Vardiya zaten kapalıysa
// ilk kapanışın özeti *AlreadyClosedError ile birlikte döner.
func (s *Service) Close(ctx context.Context, in CloseInput) (Summary, error) {
	if in.Actor == 0 {
		return Summary{}, ErrMissingActor
	}
	if in.ClosingCash.IsNegative() {
		// Kapalı vardiyaya tekrar gelen istek geçersiz tutarla da ilk özeti alır
		summary, err := s.Summary(ctx, in.ShiftID)
		if err != nil {
			return Summary{}, err
		}
		if !summary.Shift.IsOpen() {
			return summary, &AlreadyClosedError{ShiftID: in.ShiftID, Summary: summary}
		}
		return Summary{}, ErrNegativeClosingCash
	}

	closed, err := s.repo.MarkClosed(ctx, in.ShiftID, in.ClosingCash.Round(2), in.Actor, s.now())
	if err != nil {
		return Summary{}, err
	}

	// Kapanıştan sonra defter ve vardiyaya bağlı satışlar donar; özet her okumada aynı çıkar.
	summary, err := s.Summary(ctx, in.ShiftID)
	if err != nil {
		return Summary{}, err
	}
	if !closed {
		if summary.Shift.IsOpen() {
			// MarkClosed false döndü ama vardiya hala açık görünüyor
			return Summary{}, fmt.Errorf("vardiya %d kapatılamadı", in.ShiftID)
		}
		return summary, &AlreadyClosedError{ShiftID: in.ShiftID, Summary: summary}
	}

	s.logger.Info("vardiya kapandı",
		slog.Uint64("shift_id", uint64(in.ShiftID)),
		slog.String("expected_cash", summary.ExpectedCash.StringFixed(2)),
		slog.String("difference", summary.Difference.Decimal.StringFixed(2)))
	return summary, nil
}

func (s *Service) Get(ctx context.Context, id uint) (models.Shift, error) {
	return s.repo.GetShift(ctx, id)
}

// Summary beklenen nakdi defter + satış toplamlarından okuma anında türetir.
func (s *Service) Summary(ctx context.Context, id uint) (Summary, error) {
	sh, err := s.repo.GetShift(ctx, id)
	if err != nil {
		return Summary{}, err
	}
	movs, err := s.repo.ListMovements(ctx, id)
	if err != nil {
		return Summary{}, err
	}

	cashSales, cardSales := decimal.Zero, decimal.Zero
	if s.sales != nil {
		if cashSales, err = s.sales.CashSalesTotal(ctx, id); err != nil {
			return Summary{}, fmt.Errorf("nakit satış toplamı alınamadı: %w", err)
		}
		if cardSales, err = s.sales.CardSalesTotal(ctx, id); err != nil {
			return Summary{}, fmt.Errorf("kart satış toplamı alınamadı: %w", err)
		}
	}
	return BuildSummary(sh, movs, cashSales, cardSales), nil
}

func (s *Service) List(ctx context.Context, f ListFilter) (Page, error) {
	f = f.normalized()
	items, total, err := s.repo.ListShifts(ctx, f)
	if err != nil {
		return Page{}, err
	}
	if items == nil {
		items = []models.Shift{}
	}
	return Page{Items: items, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

// ----------------------------------------
// Açık vardiya çözümleyicisinin kullandığı sorgular.
// Bulunamadı durumu hata değil, nil döner.
// ----------------------------------------

func (s *Service) Lookup(ctx context.Context, id uint) (*models.Shift, error) {
	sh, err := s.repo.GetShift(ctx, id)
	return optional(sh, err)
}

func (s *Service) CurrentForActor(ctx context.Context, actorID uint) (*models.Shift, error) {
	sh, err := s.repo.FindOpenShift(ctx, OpenShiftQuery{OpenedBy: &actorID})
	return optional(sh, err)
}

func (s *Service) Current(ctx context.Context, branchID, sectionID *uint) (*models.Shift, error) {
	sh, err := s.repo.FindOpenShift(ctx, OpenShiftQuery{BranchID: branchID, SectionID: sectionID})
	return optional(sh, err)
}

func (s *Service) ListOpen(ctx context.Context, branchID uint, limit int) ([]models.Shift, error) {
	status := models.ShiftStatusOpen
	items, _, err := s.repo.ListShifts(ctx, ListFilter{BranchID: &branchID, Status: &status, Limit: limit})
	return items, err
}

func optional(sh models.Shift, err error) (*models.Shift, error) {
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sh, nil
}
