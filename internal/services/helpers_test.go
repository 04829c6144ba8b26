package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Cyvadra/signal-desk/internal/database"
	"github.com/Cyvadra/signal-desk/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name), database.Options{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func seedAccount(t *testing.T, db *gorm.DB, name string, active bool) *models.AccountRecord {
	t.Helper()
	account := &models.AccountRecord{Name: name, Exchange: "binance", IsActive: true}
	require.NoError(t, db.Create(account).Error)
	if !active {
		require.NoError(t, db.Model(account).Update("is_active", false).Error)
		account.IsActive = false
	}
	return account
}
