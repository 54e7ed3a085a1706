// Package dbtest testler için migrate edilmiş in-memory SQLite veritabanı sağlar.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"kasa-backend/internal/database"
	"kasa-backend/internal/logging"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func Open(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Tek bağlantı: paylaşımlı in-memory veritabanında kilitlenmeyi önler
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db, logging.Discard()))
	return db
}
