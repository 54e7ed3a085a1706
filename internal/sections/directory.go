package sections

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"kasa-backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("bölüm bulunamadı")
	ErrDuplicate = errors.New("bu şubede aynı isimde bölüm var")
	ErrEmptyName = errors.New("bölüm adı boş olamaz")
)

// Directory şube bölümlerini okur/yazar.
type Directory struct {
	db *gorm.DB
}

func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

func (d *Directory) ListSections(ctx context.Context, branchID uint) ([]models.Section, error) {
	var out []models.Section
	if err := d.db.WithContext(ctx).Where("branch_id = ?", branchID).Order("name ASC, id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("bölümler listelenemedi: %w", err)
	}
	return out, nil
}

func (d *Directory) GetSection(ctx context.Context, id uint) (models.Section, error) {
	var sec models.Section
	err := d.db.WithContext(ctx).First(&sec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Section{}, ErrNotFound
	}
	if err != nil {
		return models.Section{}, fmt.Errorf("bölüm okunamadı: %w", err)
	}
	return sec, nil
}

func (d *Directory) CreateSection(ctx context.Context, branchID uint, name string) (models.Section, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Section{}, ErrEmptyName
	}
	sec := models.Section{BranchID: branchID, Name: name}
	err := d.db.WithContext(ctx).Create(&sec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return models.Section{}, ErrDuplicate
	}
	if err != nil {
		return models.Section{}, fmt.Errorf("bölüm oluşturulamadı: %w", err)
	}
	return sec, nil
}
