package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"kasa-backend/internal/models"

	"gorm.io/gorm"
)

type LogOptions struct {
	BranchID    *uint
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Data        any
}

// Writer audit kayıtlarını yazar. Nil Writer sessizce hiçbir şey yapmaz.
type Writer struct {
	db *gorm.DB
}

func NewWriter(db *gorm.DB) *Writer {
	return &Writer{db: db}
}

func (w *Writer) WriteLog(ctx context.Context, opts LogOptions) error {
	if w == nil || w.db == nil {
		return nil
	}

	// PostgreSQL jsonb için boş string yerine "null" JSON string'i kullanmalıyız
	data := "null"
	if opts.Data != nil {
		if b, err := json.Marshal(opts.Data); err == nil {
			data = string(b)
		}
	}

	if opts.UserName == "" && opts.UserID != 0 {
		var user models.User
		if err := w.db.WithContext(ctx).Select("name").First(&user, opts.UserID).Error; err == nil {
			opts.UserName = user.Name
		}
	}

	entry := models.AuditLog{
		BranchID:    opts.BranchID,
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		Data:        data,
	}

	if err := w.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("audit log kaydedilemedi: %w", err)
	}
	return nil
}
