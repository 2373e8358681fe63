// Package database opens the SQLite files of the hub: one per synchronized
// category, wired with capture triggers, plus the hub database holding
// devices, patch records and settings.
package database

import (
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wesinator/and-bible/internal/entities"
	"github.com/wesinator/and-bible/internal/sync"
)

// dsnOptions keeps every connection in WAL mode with foreign keys on.
// _txlock=immediate makes write transactions take the write lock up front
// instead of failing with SQLITE_BUSY halfway through.
const dsnOptions = "?_journal=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate"

// Database is one open category database with capture triggers installed.
type Database struct {
	DB   *gorm.DB
	Path string
	Def  sync.CategoryDef
}

// Open opens (creating if needed) the database of one category, migrates
// its tables and installs the capture triggers for deviceID.
func Open(path string, def sync.CategoryDef, deviceID string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(path+dsnOptions), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(categoryModels(def.Category)...); err != nil {
		return nil, fmt.Errorf("failed to migrate %s database: %w", def.Category, err)
	}

	if err := sync.InstallCapture(db, def, deviceID); err != nil {
		return nil, fmt.Errorf("failed to install capture for %s: %w", def.Category, err)
	}

	log.Printf("Category database %s initialized at %s", def.Category, path)

	return &Database{DB: db, Path: path, Def: def}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// categoryModels returns the gorm models backing one category, in the same
// parent-before-child order as the sync registry.
func categoryModels(c sync.Category) []any {
	switch c {
	case sync.CategoryBookmarks:
		return []any{&entities.Label{}, &entities.Bookmark{}, &entities.BookmarkToLabel{}, &entities.StudyPadEntry{}}
	case sync.CategoryReadingPlans:
		return []any{&entities.ReadingPlan{}, &entities.ReadingPlanStatus{}}
	case sync.CategoryWorkspaces:
		return []any{&entities.Workspace{}, &entities.Window{}, &entities.PageManager{}}
	}
	return nil
}

// Hub is the non-synchronized database of the hub itself: registered
// devices, received patches and settings.
type Hub struct {
	DB   *gorm.DB
	Path string
}

// OpenHub opens (creating if needed) the hub database and migrates its
// tables.
func OpenHub(path string) (*Hub, error) {
	db, err := gorm.Open(sqlite.Open(path+dsnOptions), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to hub database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.Device{},
		&entities.PatchRecord{},
		&entities.Setting{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate hub database: %w", err)
	}

	log.Printf("Hub database initialized at %s", path)

	return &Hub{DB: db, Path: path}, nil
}

func (h *Hub) Close() error {
	sqlDB, err := h.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
