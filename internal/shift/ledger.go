package shift

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"kasa-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MovementInput struct {
	ShiftID   uint
	Type      models.MovementType
	Amount    decimal.Decimal
	Note      string
	Actor     uint
	ClientRef *uuid.UUID
}

func (in MovementInput) Validate() error {
	if !in.Type.Valid() {
		return ErrInvalidMovementType
	}
	if !in.Amount.Round(2).IsPositive() {
		return ErrInvalidAmount
	}
	if in.Actor == 0 {
		return ErrMissingActor
	}
	if utf8.RuneCountInString(in.Note) > 255 {
		return ErrNoteTooLong
	}
	return nil
}

// RecordMovement açık vardiyaya kasa girişi/çıkışı yazar. Vardiya durumu yazma
// anında tekrar kontrol edilir; eşzamanlı kapanışı kaybeden yazma ErrShiftClosed
// ile reddedilir ve defter değişmez.
func (s *Service) RecordMovement(ctx context.Context, in MovementInput) (models.CashMovement, error) {
	if err := in.Validate(); err != nil {
		return models.CashMovement{}, err
	}

	var mov models.CashMovement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if in.ClientRef != nil {
			existing, err := tx.FindMovementByRef(ctx, in.ShiftID, *in.ClientRef)
			if err == nil {
				mov = existing
				return nil
			}
			if !errors.Is(err, ErrNotFound) {
				return err
			}
		}

		open, err := tx.BumpOpenRevision(ctx, in.ShiftID)
		if err != nil {
			return err
		}
		if !open {
			if _, err := tx.GetShift(ctx, in.ShiftID); err != nil {
				return err
			}
			return ErrShiftClosed
		}

		mov = models.CashMovement{
			ShiftID:   in.ShiftID,
			Type:      in.Type,
			Amount:    in.Amount.Round(2),
			Note:      in.Note,
			CreatedAt: s.now(),
			CreatedBy: in.Actor,
			ClientRef: in.ClientRef,
		}
		return tx.CreateMovement(ctx, &mov)
	})
	if errors.Is(err, ErrConflict) && in.ClientRef != nil {
		// Aynı client_ref ile paralel tekrar deneme kazandı
		return s.repo.FindMovementByRef(ctx, in.ShiftID, *in.ClientRef)
	}
	if err != nil {
		if errors.Is(err, ErrShiftClosed) || errors.Is(err, ErrNotFound) {
			return models.CashMovement{}, err
		}
		return models.CashMovement{}, fmt.Errorf("kasa hareketi yazılamadı: %w", err)
	}

	s.logger.Debug("kasa hareketi yazıldı",
		slog.Uint64("shift_id", uint64(mov.ShiftID)),
		slog.String("type", string(mov.Type)),
		slog.String("amount", mov.Amount.StringFixed(2)))
	return mov, nil
}

// ListMovements vardiyanın tüm hareketlerini yeniden eskiye döner.
func (s *Service) ListMovements(ctx context.Context, shiftID uint) ([]models.CashMovement, error) {
	if _, err := s.repo.GetShift(ctx, shiftID); err != nil {
		return nil, err
	}
	movs, err := s.repo.ListMovements(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if movs == nil {
		movs = []models.CashMovement{}
	}
	return movs, nil
}
