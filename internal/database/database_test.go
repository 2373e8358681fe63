package database

import (
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/wesinator/and-bible/internal/entities"
	"github.com/wesinator/and-bible/internal/sync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates a fresh bookmarks category database
func setupTestDB(t *testing.T) (*Database, func()) {
	t.Helper()
	dbPath := "./test_" + t.Name() + ".db"
	def, ok := sync.Lookup(sync.CategoryBookmarks)
	require.True(t, ok)

	db, err := Open(dbPath, def, "test-device")
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return db, cleanup
}

func countMaster(t *testing.T, db *Database, kind, name string) int64 {
	t.Helper()
	var count int64
	err := db.DB.Raw(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = ? AND name = ?", kind, name,
	).Scan(&count).Error
	require.NoError(t, err)
	return count
}

func TestOpen(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	t.Run("creates database file", func(t *testing.T) {
		_, err := os.Stat(db.Path)
		assert.NoError(t, err)
	})

	t.Run("migrates category tables", func(t *testing.T) {
		for _, table := range []string{"labels", "bookmarks", "bookmark_labels", "study_pad_entries"} {
			assert.Equal(t, int64(1), countMaster(t, db, "table", table), "table %s missing", table)
		}
	})

	t.Run("creates sync bookkeeping tables", func(t *testing.T) {
		assert.Equal(t, int64(1), countMaster(t, db, "table", "change_log"))
		assert.Equal(t, int64(1), countMaster(t, db, "table", "sync_config"))
	})

	t.Run("installs capture triggers for every table", func(t *testing.T) {
		// Three triggers (insert, update, delete) per synced table.
		var count int64
		err := db.DB.Raw(
			"SELECT COUNT(*) FROM sqlite_master WHERE type = 'trigger' AND name LIKE 'sync_%'",
		).Scan(&count).Error
		require.NoError(t, err)
		assert.Equal(t, int64(3*len(db.Def.Tables)), count)
	})

	t.Run("enables foreign key enforcement", func(t *testing.T) {
		var enabled int64
		err := db.DB.Raw("PRAGMA foreign_keys").Scan(&enabled).Error
		require.NoError(t, err)
		assert.Equal(t, int64(1), enabled)
	})

	t.Run("writes are recorded in the change log", func(t *testing.T) {
		label := entities.Label{ID: uuid.NewString(), Name: "inductive"}
		require.NoError(t, db.DB.Create(&label).Error)

		var logged int64
		err := db.DB.Raw(
			"SELECT COUNT(*) FROM change_log WHERE table_name = 'labels' AND entity_id1 = ?", label.ID,
		).Scan(&logged).Error
		require.NoError(t, err)
		assert.Equal(t, int64(1), logged)
	})
}

func TestOpen_UnknownCategoryTables(t *testing.T) {
	dbPath := "./test_" + t.Name() + ".db"
	defer os.Remove(dbPath)

	def := sync.CategoryDef{
		Category: sync.Category("mystery"),
		Tables:   []sync.TableDef{{Name: "mystery_rows", KeyColumn: "id"}},
	}
	_, err := Open(dbPath, def, "test-device")
	assert.Error(t, err)
}

func TestOpen_Reopen(t *testing.T) {
	dbPath := "./test_" + t.Name() + ".db"
	defer os.Remove(dbPath)

	def, ok := sync.Lookup(sync.CategoryReadingPlans)
	require.True(t, ok)

	db1, err := Open(dbPath, def, "test-device")
	require.NoError(t, err)
	require.NoError(t, db1.Close())

	// Reopening must not duplicate triggers or tables.
	db2, err := Open(dbPath, def, "test-device")
	require.NoError(t, err)
	defer db2.Close()

	var count int64
	err = db2.DB.Raw(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'trigger' AND name LIKE 'sync_%'",
	).Scan(&count).Error
	require.NoError(t, err)
	assert.Equal(t, int64(3*len(def.Tables)), count)
}

func TestOpenHub(t *testing.T) {
	dbPath := "./test_" + t.Name() + ".db"
	defer os.Remove(dbPath)

	hub, err := OpenHub(dbPath)
	require.NoError(t, err)
	defer hub.Close()

	t.Run("migrates hub tables", func(t *testing.T) {
		for _, table := range []string{"devices", "patch_records", "settings"} {
			var count int64
			err := hub.DB.Raw(
				"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table,
			).Scan(&count).Error
			require.NoError(t, err)
			assert.Equal(t, int64(1), count, "table %s missing", table)
		}
	})

	t.Run("carries no capture triggers", func(t *testing.T) {
		// The hub database is local state and never travels in patches.
		var count int64
		err := hub.DB.Raw(
			"SELECT COUNT(*) FROM sqlite_master WHERE type = 'trigger'",
		).Scan(&count).Error
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})
}

func TestClose(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	assert.NoError(t, db.Close())
}
