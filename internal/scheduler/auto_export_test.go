package scheduler

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wesinator/and-bible/internal/config"
	"github.com/wesinator/and-bible/internal/entities"
	hubsync "github.com/wesinator/and-bible/internal/sync"
)

type fakeRecorder struct {
	mu      sync.Mutex
	records []entities.PatchRecord
}

func (f *fakeRecorder) Record(category, fileName, deviceID string, sizeBytes, entryCount int64) (*entities.PatchRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record := entities.PatchRecord{Category: category, FileName: fileName, DeviceID: deviceID, SizeBytes: sizeBytes, EntryCount: entryCount}
	f.records = append(f.records, record)
	return &record, nil
}

func (f *fakeRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type fakeSettings struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{values: map[string]string{}}
}

func (f *fakeSettings) GetValue(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[key], nil
}

func (f *fakeSettings) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	return nil
}

func setupExportEngine(t *testing.T) (*gorm.DB, *hubsync.Engine, func()) {
	t.Helper()
	dbPath := "./test_scheduler_" + t.Name() + ".db"
	patchDir := "./test_scheduler_patches_" + t.Name()

	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on&_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.Label{}, &entities.Bookmark{}, &entities.BookmarkToLabel{}, &entities.StudyPadEntry{})
	require.NoError(t, err)

	def, ok := hubsync.Lookup(hubsync.CategoryBookmarks)
	require.True(t, ok)
	require.NoError(t, hubsync.InstallCapture(db, def, "hub-device"))

	engine, err := hubsync.NewEngine(db, def, "hub-device", patchDir)
	require.NoError(t, err)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
		os.RemoveAll(patchDir)
	}
	return db, engine, cleanup
}

func TestAutoExportScheduler_ExportsPendingChanges(t *testing.T) {
	db, engine, cleanup := setupExportEngine(t)
	defer cleanup()

	require.NoError(t, db.Create(&entities.Label{ID: "lbl-1", Name: "Favourites"}).Error)

	recorder := &fakeRecorder{}
	settings := newFakeSettings()
	s := NewAutoExportScheduler(map[string]*hubsync.Engine{"bookmarks": engine}, recorder, settings,
		config.AutoExport{Enabled: true, Schedule: "*/15 * * * *"})

	s.runExport()

	require.Equal(t, 1, recorder.count())
	assert.Equal(t, "bookmarks", recorder.records[0].Category)
	assert.Equal(t, "hub-device", recorder.records[0].DeviceID)
	assert.EqualValues(t, 1, recorder.records[0].EntryCount)

	lastAt, err := settings.GetValue(entities.SettingKeyAutoExportLastAt)
	require.NoError(t, err)
	assert.NotEmpty(t, lastAt)

	// A second run with nothing new pending exports nothing
	s.runExport()
	assert.Equal(t, 1, recorder.count())
}

func TestAutoExportScheduler_NothingPending(t *testing.T) {
	_, engine, cleanup := setupExportEngine(t)
	defer cleanup()

	recorder := &fakeRecorder{}
	settings := newFakeSettings()
	s := NewAutoExportScheduler(map[string]*hubsync.Engine{"bookmarks": engine}, recorder, settings,
		config.AutoExport{Enabled: true, Schedule: "*/15 * * * *"})

	s.runExport()

	assert.Zero(t, recorder.count())
	lastAt, _ := settings.GetValue(entities.SettingKeyAutoExportLastAt)
	assert.Empty(t, lastAt)
}

func TestAutoExportScheduler_DisabledByConfig(t *testing.T) {
	s := NewAutoExportScheduler(nil, nil, newFakeSettings(),
		config.AutoExport{Enabled: false, Schedule: "*/15 * * * *"})

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestAutoExportScheduler_DisabledBySetting(t *testing.T) {
	db, engine, cleanup := setupExportEngine(t)
	defer cleanup()

	require.NoError(t, db.Create(&entities.Label{ID: "lbl-1", Name: "Favourites"}).Error)

	recorder := &fakeRecorder{}
	settings := newFakeSettings()
	require.NoError(t, settings.Set(entities.SettingKeyAutoExportEnabled, "false"))

	s := NewAutoExportScheduler(map[string]*hubsync.Engine{"bookmarks": engine}, recorder, settings,
		config.AutoExport{Enabled: true, Schedule: "*/15 * * * *"})

	s.runExport()
	assert.Zero(t, recorder.count())
}

func TestAutoExportScheduler_InvalidSchedule(t *testing.T) {
	s := NewAutoExportScheduler(nil, nil, newFakeSettings(),
		config.AutoExport{Enabled: true, Schedule: "whenever"})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron schedule")
}

func TestAutoExportScheduler_StartStop(t *testing.T) {
	_, engine, cleanup := setupExportEngine(t)
	defer cleanup()

	s := NewAutoExportScheduler(map[string]*hubsync.Engine{"bookmarks": engine}, &fakeRecorder{}, newFakeSettings(),
		config.AutoExport{Enabled: true, Schedule: "*/15 * * * *"})

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	next := s.GetNextRunTime()
	require.NotNil(t, next)
	assert.True(t, next.After(time.Now()))

	// Starting again is a no-op
	require.NoError(t, s.Start(context.Background()))

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.GetNextRunTime())
}

func TestAutoExportScheduler_SettingsScheduleOverride(t *testing.T) {
	settings := newFakeSettings()
	require.NoError(t, settings.Set(entities.SettingKeyAutoExportSchedule, "0 3 * * *"))

	s := NewAutoExportScheduler(nil, nil, settings,
		config.AutoExport{Enabled: true, Schedule: "*/15 * * * *"})

	assert.Equal(t, "0 3 * * *", s.schedule())
}
