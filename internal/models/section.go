package models

import "time"

// Section bir şubenin kasa bölümü (salon, bahçe, paket servis...).
type Section struct {
	ID        uint   `gorm:"primaryKey"`
	BranchID  uint   `gorm:"not null;uniqueIndex:ux_sections_branch_name,priority:1"`
	Name      string `gorm:"size:100;not null;uniqueIndex:ux_sections_branch_name,priority:2"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
