package database

import (
	"fmt"
	"log/slog"

	"kasa-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// OpenShiftIndex (branch_id, section_id) başına tek açık vardiya kuralını veritabanında zorlar.
const OpenShiftIndex = "ux_shifts_open_scope"

// Open Postgres bağlantısını açar. TranslateError sayesinde unique ihlalleri
// gorm.ErrDuplicatedKey olarak döner.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("veritabanına bağlanılamadı: %w", err)
	}
	return db, nil
}

func Migrate(db *gorm.DB, logger *slog.Logger) error {
	// Eski şemada cash_movements tablosu ciro kayıtlarını tutuyordu (method kolonu).
	// Kasa hareketleri için tablo yeniden kullanılmadan önce sales_entries'e taşınır.
	if db.Migrator().HasTable("cash_movements") && db.Migrator().HasColumn(&legacyRevenue{}, "method") {
		if db.Migrator().HasTable(&models.SalesEntry{}) {
			return fmt.Errorf("eski cash_movements ve sales_entries birlikte mevcut, manuel migration gerekli")
		}
		logger.Info("eski ciro tablosu sales_entries olarak yeniden adlandırılıyor")
		if err := db.Migrator().RenameTable("cash_movements", "sales_entries"); err != nil {
			return fmt.Errorf("cash_movements yeniden adlandırılamadı: %w", err)
		}
		if err := db.Exec("UPDATE sales_entries SET method = ? WHERE method = ?", models.SalesMethodOnline, "yemeksepeti").Error; err != nil {
			return fmt.Errorf("eski ödeme yöntemleri güncellenemedi: %w", err)
		}
	}

	err := db.AutoMigrate(
		&models.Branch{},
		&models.User{},
		&models.Section{},
		&models.Shift{},
		&models.CashMovement{},
		&models.SalesEntry{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("AutoMigrate hatası: %w", err)
	}

	// Kısmi unique index AutoMigrate ile tanımlanamıyor, elle ekleniyor
	if !db.Migrator().HasIndex(&models.Shift{}, OpenShiftIndex) {
		logger.Info("açık vardiya unique index'i ekleniyor", slog.String("index", OpenShiftIndex))
		stmt := fmt.Sprintf(
			"CREATE UNIQUE INDEX IF NOT EXISTS %s ON shifts (branch_id, section_id) WHERE status = '%s'",
			OpenShiftIndex, models.ShiftStatusOpen,
		)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("%s oluşturulamadı: %w", OpenShiftIndex, err)
		}
	}

	logger.Info("veritabanı migration tamamlandı")
	return nil
}

// legacyRevenue sadece eski tablo kolonlarını sorgulamak için
type legacyRevenue struct {
	Method string
}

func (legacyRevenue) TableName() string { return "cash_movements" }
