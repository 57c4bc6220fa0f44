package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dmorandi/mailbridge/internal/models"
)

// setupTestDB creates an in-memory SQLite database with the schema
// migrated.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to open in-memory database")

	err = db.AutoMigrate(
		&models.Email{},
		&models.SyncState{},
		&models.BlockedSender{},
		&models.BlockedDomain{},
	)
	require.NoError(t, err, "failed to migrate schema")

	return db
}
