package database

import (
	"testing"

	"github.com/Cyvadra/signal-desk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMigrates(t *testing.T) {
	db, err := Open("file:migrate_test?mode=memory&cache=shared", Options{})
	require.NoError(t, err)

	for _, table := range []interface{}{
		&models.AccountRecord{},
		&models.ConversationRecord{},
		&models.MessageRecord{},
		&models.SignalRecord{},
		&models.TradeRecord{},
		&models.RelatedOrderRecord{},
	} {
		assert.True(t, db.Migrator().HasTable(table))
	}
	assert.True(t, db.Migrator().HasIndex(&models.TradeRecord{}, "idx_account_trade"))
}

func TestInitDatabase(t *testing.T) {
	prev := DB
	t.Cleanup(func() { DB = prev })

	require.NoError(t, InitDatabase("file:init_test?mode=memory&cache=shared", Options{Debug: true}))
	assert.NotNil(t, GetDB())
}
