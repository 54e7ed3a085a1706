package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ShiftStatus string

const (
	ShiftStatusOpen   ShiftStatus = "open"
	ShiftStatusClosed ShiftStatus = "closed"
)

// Shift bir şube bölümündeki kasa oturumu (vardiya).
// (branch_id, section_id) için aynı anda en fazla bir "open" kayıt olabilir;
// bu kural database paketindeki kısmi unique index ile korunur.
// Beklenen nakit ve fark hiçbir zaman saklanmaz, her okumada türetilir.
type Shift struct {
	ID          uint                `gorm:"primaryKey" json:"id"`
	BranchID    uint                `gorm:"index;not null" json:"branch_id"`
	SectionID   uint                `gorm:"index;not null" json:"section_id"`
	OpenedBy    uint                `gorm:"index;not null" json:"opened_by"`
	OpenedAt    time.Time           `gorm:"not null" json:"opened_at"`
	ClosedBy    *uint               `json:"closed_by"`
	ClosedAt    *time.Time          `json:"closed_at"`
	OpeningCash decimal.Decimal     `gorm:"type:numeric(14,2);not null" json:"opening_cash"`
	ClosingCash decimal.NullDecimal `gorm:"type:numeric(14,2)" json:"closing_cash"`
	Status      ShiftStatus         `gorm:"size:10;not null;index" json:"status"`

	// Her kasa hareketi ve kapanışta artar; satır kilidi için kullanılır
	Revision int64 `gorm:"not null;default:0" json:"-"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (s Shift) IsOpen() bool {
	return s.Status == ShiftStatusOpen
}
