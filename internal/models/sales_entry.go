package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SalesMethod string

const (
	SalesMethodCash   SalesMethod = "cash"   // nakit
	SalesMethodPOS    SalesMethod = "pos"    // kart / pos
	SalesMethodOnline SalesMethod = "online" // yemek sepeti vb.
)

func (m SalesMethod) Valid() bool {
	switch m {
	case SalesMethodCash, SalesMethodPOS, SalesMethodOnline:
		return true
	}
	return false
}

// SalesEntry ciro kaydı. ShiftID doluysa vardiyanın satış toplamına girer.
type SalesEntry struct {
	ID          uint            `gorm:"primaryKey"`
	BranchID    uint            `gorm:"index;not null"`
	ShiftID     *uint           `gorm:"index"`
	Date        time.Time       `gorm:"index;not null"`   // gün bazlı
	Method      SalesMethod     `gorm:"size:20;not null"` // cash / pos / online
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Description string          `gorm:"size:255"`
	ClientRef   *uuid.UUID      `gorm:"type:uuid;uniqueIndex"`
	CreatedBy   uint
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
