package settings

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wesinator/and-bible/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	dbPath := "./test_settings_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.Setting{})
	require.NoError(t, err)

	repo := NewRepository(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return repo, cleanup
}

func TestRepository_Set_New(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	err := repo.Set(entities.SettingKeyDeviceID, "hub-device-id")
	require.NoError(t, err)

	setting, err := repo.Get(entities.SettingKeyDeviceID)
	require.NoError(t, err)
	assert.Equal(t, entities.SettingKeyDeviceID, setting.Key)
	assert.Equal(t, "hub-device-id", setting.Value)
}

func TestRepository_Set_Update(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	// Set initial value
	err := repo.Set(entities.SettingKeyAutoExportSchedule, "@hourly")
	require.NoError(t, err)

	// Update value
	err = repo.Set(entities.SettingKeyAutoExportSchedule, "@daily")
	require.NoError(t, err)

	value, err := repo.GetValue(entities.SettingKeyAutoExportSchedule)
	require.NoError(t, err)
	assert.Equal(t, "@daily", value)
}

func TestRepository_Get_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.Get("nonexistent")

	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_GetValue_Unset(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	value, err := repo.GetValue("nonexistent")
	require.NoError(t, err)
	assert.Equal(t, "", value)
}

func TestRepository_Delete(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	err := repo.Set("to-delete", "value")
	require.NoError(t, err)

	err = repo.Delete("to-delete")
	require.NoError(t, err)

	_, err = repo.Get("to-delete")
	assert.Error(t, err)
}

func TestRepository_Delete_NonExistent(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	// Should not error even if key doesn't exist
	err := repo.Delete("nonexistent")
	assert.NoError(t, err)
}
