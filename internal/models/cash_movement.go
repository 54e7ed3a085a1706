package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MovementType string

const (
	MovementPayIn  MovementType = "pay_in"  // kasaya para girişi
	MovementPayOut MovementType = "pay_out" // kasadan para çıkışı
)

func (t MovementType) Valid() bool {
	return t == MovementPayIn || t == MovementPayOut
}

// CashMovement vardiya içindeki manuel kasa hareketi. Yazıldıktan sonra değişmez.
type CashMovement struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	ShiftID   uint            `gorm:"index;not null;uniqueIndex:ux_cash_movements_client_ref,priority:1" json:"shift_id"`
	Type      MovementType    `gorm:"size:10;not null" json:"type"`
	Amount    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Note      string          `gorm:"size:255" json:"note"`
	CreatedAt time.Time       `gorm:"not null" json:"created_at"`
	CreatedBy uint            `gorm:"not null" json:"created_by"`

	// Terminal tekrar denemeleri için istemci referansı (opsiyonel)
	ClientRef *uuid.UUID `gorm:"type:uuid;uniqueIndex:ux_cash_movements_client_ref,priority:2" json:"client_ref,omitempty"`
}
