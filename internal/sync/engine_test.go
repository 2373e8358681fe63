package sync

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesinator/and-bible/internal/entities"
	"github.com/wesinator/and-bible/internal/patchio"
)

func (d *testDevice) export(t *testing.T) *Patch {
	t.Helper()
	patch, err := d.engine.CreatePatch(context.Background())
	require.NoError(t, err)
	require.NotNil(t, patch)
	return patch
}

func (d *testDevice) apply(t *testing.T, patch *Patch) *ApplyStats {
	t.Helper()
	stats, err := d.engine.ApplyPatch(context.Background(), patch.Path)
	require.NoError(t, err)
	return stats
}

func (d *testDevice) labelState(t *testing.T) []entities.Label {
	t.Helper()
	var labels []entities.Label
	require.NoError(t, d.db.Order("id").Find(&labels).Error)
	return labels
}

func (d *testDevice) logState(t *testing.T) []LogEntry {
	t.Helper()
	var entries []LogEntry
	require.NoError(t, d.db.Order("table_name, entity_id1, entity_id2").Find(&entries).Error)
	return entries
}

// openPatchContents inflates a patch and opens it as a plain SQLite file
// for inspection.
func openPatchContents(t *testing.T, patch *Patch) *sql.DB {
	t.Helper()
	path, cleanupFile, err := patchio.Open(patch.Path)
	require.NoError(t, err)
	t.Cleanup(cleanupFile)

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func countPatchRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&count))
	return count
}

func TestEngine_ExportNothingPending(t *testing.T) {
	device, cleanup := setupTestDevice(t, "device-a")
	defer cleanup()

	patch, err := device.engine.CreatePatch(context.Background())
	require.NoError(t, err)
	assert.Nil(t, patch)
}

func TestEngine_ExportCreatesCompressedPatch(t *testing.T) {
	device, cleanup := setupTestDevice(t, "device-a")
	defer cleanup()

	device.createLabel(t, "lbl-1", "Greek words")
	device.createLabel(t, "lbl-2", "Hebrew words")

	patch := device.export(t)
	assert.Equal(t, CategoryBookmarks, patch.Category)
	assert.EqualValues(t, 2, patch.EntryCount)
	assert.EqualValues(t, 0, patch.FromWatermark)
	assert.Greater(t, patch.ToWatermark, int64(0))
	assert.Greater(t, patch.SizeBytes, int64(0))

	compressed, err := patchio.IsCompressed(patch.Path)
	require.NoError(t, err)
	assert.True(t, compressed)

	// The watermark now sits on the newest exported entry.
	watermark, err := device.engine.Watermark()
	require.NoError(t, err)
	assert.Equal(t, patch.ToWatermark, watermark)

	pending, err := device.engine.CountPending()
	require.NoError(t, err)
	assert.EqualValues(t, 0, pending)

	again, err := device.engine.CreatePatch(context.Background())
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestEngine_ExportDeltaOnly(t *testing.T) {
	device, cleanup := setupTestDevice(t, "device-a")
	defer cleanup()

	device.createLabel(t, "lbl-1", "first")
	first := device.export(t)

	device.createLabel(t, "lbl-2", "second")
	second := device.export(t)

	assert.Equal(t, first.ToWatermark, second.FromWatermark)
	assert.EqualValues(t, 1, second.EntryCount)

	contents := openPatchContents(t, second)
	assert.Equal(t, 1, countPatchRows(t, contents, "labels"))
	assert.Equal(t, 1, countPatchRows(t, contents, "change_log"))

	var id string
	require.NoError(t, contents.QueryRow("SELECT entity_id1 FROM change_log").Scan(&id))
	assert.Equal(t, "lbl-2", id)
}

func TestEngine_ExportIncludesImportedEntries(t *testing.T) {
	a, cleanupA := setupTestDevice(t, "device-a")
	defer cleanupA()
	b, cleanupB := setupTestDevice(t, "device-b")
	defer cleanupB()

	a.createLabel(t, "lbl-a", "from a")
	b.apply(t, a.export(t))

	b.createLabel(t, "lbl-b", "from b")

	// A patch built on B carries A's entries too: B's watermark has never
	// advanced, and a fresh device needs both.
	patch := b.export(t)
	assert.EqualValues(t, 2, patch.EntryCount)
}

func TestEngine_ImportRoundTrip(t *testing.T) {
	a, cleanupA := setupTestDevice(t, "device-a")
	defer cleanupA()
	b, cleanupB := setupTestDevice(t, "device-b")
	defer cleanupB()

	labelID := "lbl-1"
	a.createLabel(t, labelID, "Greek words")
	require.NoError(t, a.db.Create(&entities.Bookmark{
		ID:             "bm-1",
		OrdinalStart:   10,
		OrdinalEnd:     12,
		Versification:  "KJV",
		Notes:          "check the aorist",
		PrimaryLabelID: &labelID,
	}).Error)
	require.NoError(t, a.db.Create(&entities.BookmarkToLabel{BookmarkID: "bm-1", LabelID: labelID, OrderNumber: 1}).Error)
	require.NoError(t, a.db.Create(&entities.StudyPadEntry{ID: "pad-1", LabelID: labelID, Text: "notes on John 3"}).Error)

	patch := a.export(t)
	assert.EqualValues(t, 4, patch.EntryCount)

	stats := b.apply(t, patch)
	assert.EqualValues(t, 4, stats.Entries)
	assert.Equal(t, 0, stats.Violations)

	assert.EqualValues(t, 1, b.countRows(t, "labels"))
	assert.EqualValues(t, 1, b.countRows(t, "bookmarks"))
	assert.EqualValues(t, 1, b.countRows(t, "bookmark_labels"))
	assert.EqualValues(t, 1, b.countRows(t, "study_pad_entries"))

	var bookmark entities.Bookmark
	require.NoError(t, b.db.First(&bookmark, "id = ?", "bm-1").Error)
	require.NotNil(t, bookmark.PrimaryLabelID)
	assert.Equal(t, labelID, *bookmark.PrimaryLabelID)
	assert.Equal(t, "check the aorist", bookmark.Notes)

	// Imported rows keep their origin, they are not re-logged as local
	// edits.
	assert.Equal(t, "device-a", b.entry(t, "labels", labelID, "").DeviceID)
	assert.Equal(t, "device-a", b.entry(t, "bookmark_labels", "bm-1", labelID).DeviceID)

	// Importing never advances the local watermark.
	watermark, err := b.engine.Watermark()
	require.NoError(t, err)
	assert.EqualValues(t, 0, watermark)

	assert.Equal(t, a.labelState(t), b.labelState(t))
	assert.Equal(t, a.logState(t), b.logState(t))
}

func TestEngine_ImportIdempotent(t *testing.T) {
	a, cleanupA := setupTestDevice(t, "device-a")
	defer cleanupA()
	b, cleanupB := setupTestDevice(t, "device-b")
	defer cleanupB()

	a.createLabel(t, "lbl-1", "Greek words")
	a.createLabel(t, "lbl-2", "Hebrew words")
	patch := a.export(t)

	first := b.apply(t, patch)
	labelsAfterFirst := b.labelState(t)
	logAfterFirst := b.logState(t)

	second := b.apply(t, patch)
	assert.Equal(t, first.Entries, second.Entries)
	assert.Equal(t, 0, second.Violations)

	assert.Equal(t, labelsAfterFirst, b.labelState(t))
	assert.Equal(t, logAfterFirst, b.logState(t))
}

func TestEngine_LastWriteWins(t *testing.T) {
	a, cleanupA := setupTestDevice(t, "device-a")
	defer cleanupA()
	b, cleanupB := setupTestDevice(t, "device-b")
	defer cleanupB()

	a.createLabel(t, "lbl-1", "from a")
	replayable := a.export(t)
	b.apply(t, replayable)

	// Cross-device ordering rides on the wall clock; a small gap keeps the
	// millisecond timestamps apart.
	time.Sleep(5 * time.Millisecond)
	b.renameLabel(t, "lbl-1", "from b")

	a.apply(t, b.export(t))

	var label entities.Label
	require.NoError(t, a.db.First(&label, "id = ?", "lbl-1").Error)
	assert.Equal(t, "from b", label.Name)
	assert.Equal(t, "device-b", a.entry(t, "labels", "lbl-1", "").DeviceID)

	// Replaying the stale patch cannot roll the newer state back.
	b.apply(t, replayable)
	require.NoError(t, b.db.First(&label, "id = ?", "lbl-1").Error)
	assert.Equal(t, "from b", label.Name)

	assert.Equal(t, a.labelState(t), b.labelState(t))
	assert.Equal(t, a.logState(t), b.logState(t))
}

func TestEngine_CompositeKeyLastWriteWins(t *testing.T) {
	a, cleanupA := setupTestDevice(t, "device-a")
	defer cleanupA()
	b, cleanupB := setupTestDevice(t, "device-b")
	defer cleanupB()

	a.createLabel(t, "lbl-1", "Greek words")
	require.NoError(t, a.db.Create(&entities.Bookmark{ID: "bm-1"}).Error)
	require.NoError(t, a.db.Create(&entities.BookmarkToLabel{BookmarkID: "bm-1", LabelID: "lbl-1", OrderNumber: 1}).Error)
	stale := a.export(t)
	b.apply(t, stale)

	time.Sleep(5 * time.Millisecond)
	result := b.db.Model(&entities.BookmarkToLabel{}).
		Where("bookmark_id = ? AND label_id = ?", "bm-1", "lbl-1").
		Update("order_number", 7)
	require.NoError(t, result.Error)
	require.EqualValues(t, 1, result.RowsAffected)

	a.apply(t, b.export(t))
	a.apply(t, stale)

	var mapping entities.BookmarkToLabel
	require.NoError(t, a.db.First(&mapping, "bookmark_id = ? AND label_id = ?", "bm-1", "lbl-1").Error)
	assert.Equal(t, 7, mapping.OrderNumber)
	assert.Equal(t, "device-b", a.entry(t, "bookmark_labels", "bm-1", "lbl-1").DeviceID)
}

func TestEngine_DeletePropagates(t *testing.T) {
	a, cleanupA := setupTestDevice(t, "device-a")
	defer cleanupA()
	b, cleanupB := setupTestDevice(t, "device-b")
	defer cleanupB()

	a.createLabel(t, "lbl-1", "Greek words")
	b.apply(t, a.export(t))
	require.EqualValues(t, 1, b.countRows(t, "labels"))

	require.NoError(t, a.db.Delete(&entities.Label{}, "id = ?", "lbl-1").Error)
	patch := a.export(t)
	assert.EqualValues(t, 1, patch.EntryCount)

	b.apply(t, patch)
	assert.EqualValues(t, 0, b.countRows(t, "labels"))
	assert.Equal(t, EventDelete, b.entry(t, "labels", "lbl-1", "").EventType)
}

func TestEngine_DeleteLosesToNewerUpdate(t *testing.T) {
	a, cleanupA := setupTestDevice(t, "device-a")
	defer cleanupA()
	b, cleanupB := setupTestDevice(t, "device-b")
	defer cleanupB()

	a.createLabel(t, "lbl-1", "from a")
	b.apply(t, a.export(t))

	require.NoError(t, a.db.Delete(&entities.Label{}, "id = ?", "lbl-1").Error)
	time.Sleep(5 * time.Millisecond)
	b.renameLabel(t, "lbl-1", "edited after the delete")

	b.apply(t, a.export(t))
	a.apply(t, b.export(t))

	// The edit is newer, so the label survives on both devices.
	require.EqualValues(t, 1, a.countRows(t, "labels"))
	require.EqualValues(t, 1, b.countRows(t, "labels"))
	assert.Equal(t, EventUpsert, a.entry(t, "labels", "lbl-1", "").EventType)
	assert.Equal(t, a.labelState(t), b.labelState(t))
	assert.Equal(t, a.logState(t), b.logState(t))
}

func TestEngine_DeleteWinsOverOlderUpdate(t *testing.T) {
	a, cleanupA := setupTestDevice(t, "device-a")
	defer cleanupA()
	b, cleanupB := setupTestDevice(t, "device-b")
	defer cleanupB()

	a.createLabel(t, "lbl-1", "from a")
	b.apply(t, a.export(t))

	b.renameLabel(t, "lbl-1", "edited before the delete")
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, a.db.Delete(&entities.Label{}, "id = ?", "lbl-1").Error)

	// B ships its stale edit before learning about the deletion.
	staleEdit := b.export(t)
	b.apply(t, a.export(t))
	a.apply(t, staleEdit)

	require.EqualValues(t, 0, a.countRows(t, "labels"))
	require.EqualValues(t, 0, b.countRows(t, "labels"))
	assert.Equal(t, EventDelete, b.entry(t, "labels", "lbl-1", "").EventType)
	assert.Equal(t, a.logState(t), b.logState(t))
}

func TestEngine_ImportRepairsOrphans(t *testing.T) {
	a, cleanupA := setupTestDevice(t, "device-a")
	defer cleanupA()
	b, cleanupB := setupTestDevice(t, "device-b")
	defer cleanupB()

	a.createLabel(t, "lbl-1", "Greek words")
	require.NoError(t, a.db.Create(&entities.Bookmark{ID: "bm-1"}).Error)
	b.apply(t, a.export(t))

	// B drops the label while A, not knowing that, attaches it to a
	// bookmark.
	require.NoError(t, b.db.Delete(&entities.Label{}, "id = ?", "lbl-1").Error)
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, a.db.Create(&entities.BookmarkToLabel{BookmarkID: "bm-1", LabelID: "lbl-1", OrderNumber: 1}).Error)

	stats := b.apply(t, a.export(t))
	assert.Equal(t, 1, stats.Violations)
	assert.EqualValues(t, 0, b.countRows(t, "bookmark_labels"))
	assert.EqualValues(t, 0, b.countRows(t, "labels"))
	assert.EqualValues(t, 1, b.countRows(t, "bookmarks"))

	// The other direction: A learns about the deletion and repairs its own
	// mapping row.
	stats = a.apply(t, b.export(t))
	assert.Equal(t, 1, stats.Violations)

	assert.EqualValues(t, 0, a.countRows(t, "labels"))
	assert.EqualValues(t, 0, a.countRows(t, "bookmark_labels"))
	assert.EqualValues(t, 1, a.countRows(t, "bookmarks"))
	assert.Equal(t, a.logState(t), b.logState(t))
}

func TestEngine_ConvergenceBothOrders(t *testing.T) {
	a, cleanupA := setupTestDevice(t, "device-a")
	defer cleanupA()
	b, cleanupB := setupTestDevice(t, "device-b")
	defer cleanupB()
	c, cleanupC := setupTestDevice(t, "device-c")
	defer cleanupC()
	d, cleanupD := setupTestDevice(t, "device-d")
	defer cleanupD()

	a.createLabel(t, "lbl-shared", "from a")
	base := a.export(t)
	b.apply(t, base)

	time.Sleep(5 * time.Millisecond)
	b.renameLabel(t, "lbl-shared", "from b")
	a.createLabel(t, "lbl-a", "only on a")
	b.createLabel(t, "lbl-b", "only on b")

	fromA := a.export(t)
	fromB := b.export(t)

	// Same patches, opposite application order.
	for _, patch := range []*Patch{base, fromA, fromB} {
		c.apply(t, patch)
	}
	for _, patch := range []*Patch{fromB, base, fromA} {
		d.apply(t, patch)
	}

	assert.Equal(t, c.labelState(t), d.labelState(t))
	assert.Equal(t, c.logState(t), d.logState(t))

	require.Len(t, c.labelState(t), 3)
	var shared entities.Label
	require.NoError(t, c.db.First(&shared, "id = ?", "lbl-shared").Error)
	assert.Equal(t, "from b", shared.Name)
}

func TestEngine_SchemaMismatchRejected(t *testing.T) {
	device, cleanup := setupTestDevice(t, "device-a")
	defer cleanup()

	path := "./test_bogus_" + t.Name() + ".abp"
	defer os.Remove(path)

	bogus, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = bogus.Exec("CREATE TABLE change_log (table_name TEXT, entity_id1 TEXT)")
	require.NoError(t, err)
	require.NoError(t, bogus.Close())

	_, err = device.engine.ApplyPatch(context.Background(), path)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestEngine_MissingTableRejected(t *testing.T) {
	device, cleanup := setupTestDevice(t, "device-a")
	defer cleanup()

	path := "./test_bogus_" + t.Name() + ".abp"
	defer os.Remove(path)

	bogus, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = bogus.Exec(`CREATE TABLE change_log (
		table_name TEXT NOT NULL,
		entity_id1 TEXT NOT NULL,
		entity_id2 TEXT NOT NULL DEFAULT '',
		event_type TEXT NOT NULL,
		last_updated INTEGER NOT NULL,
		device_id TEXT NOT NULL,
		PRIMARY KEY (table_name, entity_id1, entity_id2))`)
	require.NoError(t, err)
	require.NoError(t, bogus.Close())

	_, err = device.engine.ApplyPatch(context.Background(), path)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestEngine_CorruptPatchRejected(t *testing.T) {
	device, cleanup := setupTestDevice(t, "device-a")
	defer cleanup()

	device.createLabel(t, "lbl-1", "survives")

	path := "./test_corrupt_" + t.Name() + ".abp.gz"
	defer os.Remove(path)
	require.NoError(t, os.WriteFile(path, append([]byte{0x1f, 0x8b}, []byte("not a gzip stream")...), 0o644))

	_, err := device.engine.ApplyPatch(context.Background(), path)
	require.Error(t, err)

	assert.EqualValues(t, 1, device.countRows(t, "labels"))
}

func TestEngine_TriggersSurviveImport(t *testing.T) {
	a, cleanupA := setupTestDevice(t, "device-a")
	defer cleanupA()
	b, cleanupB := setupTestDevice(t, "device-b")
	defer cleanupB()

	a.createLabel(t, "lbl-a", "from a")
	b.apply(t, a.export(t))

	b.createLabel(t, "lbl-b", "made after the import")
	entry := b.entry(t, "labels", "lbl-b", "")
	assert.Equal(t, EventUpsert, entry.EventType)
	assert.Equal(t, "device-b", entry.DeviceID)
}

func TestEngine_ApplyPatches_StopsAtMissingFile(t *testing.T) {
	a, cleanupA := setupTestDevice(t, "device-a")
	defer cleanupA()
	b, cleanupB := setupTestDevice(t, "device-b")
	defer cleanupB()

	a.createLabel(t, "lbl-1", "Greek words")
	patch := a.export(t)

	stats, err := b.engine.ApplyPatches(context.Background(), []string{patch.Path, "./does-not-exist.abp.gz"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does-not-exist.abp.gz")

	// The first file went through before the failure.
	assert.EqualValues(t, 1, stats.Entries)
	assert.EqualValues(t, 1, b.countRows(t, "labels"))
}

func TestEngine_WorkspaceCategoryRoundTrip(t *testing.T) {
	models := []any{&entities.Workspace{}, &entities.Window{}, &entities.PageManager{}}
	a, cleanupA := setupCategoryDevice(t, "device-a", CategoryWorkspaces, models...)
	defer cleanupA()
	b, cleanupB := setupCategoryDevice(t, "device-b", CategoryWorkspaces, models...)
	defer cleanupB()

	require.NoError(t, a.db.Create(&entities.Workspace{ID: "ws-1", Name: "Morning study"}).Error)
	require.NoError(t, a.db.Create(&entities.Window{ID: "win-1", WorkspaceID: "ws-1", OrderNumber: 1, IsSynchronized: true}).Error)
	require.NoError(t, a.db.Create(&entities.PageManager{WindowID: "win-1", CurrentDocument: "KJV", CurrentKey: "John.3.16"}).Error)

	patch := a.export(t)
	assert.EqualValues(t, 3, patch.EntryCount)

	stats := b.apply(t, patch)
	assert.Equal(t, 0, stats.Violations)
	assert.EqualValues(t, 1, b.countRows(t, "workspaces"))
	assert.EqualValues(t, 1, b.countRows(t, "windows"))
	assert.EqualValues(t, 1, b.countRows(t, "page_managers"))

	// page_managers is keyed by window_id rather than an id column.
	entry := b.entry(t, "page_managers", "win-1", "")
	assert.Equal(t, EventUpsert, entry.EventType)

	var page entities.PageManager
	require.NoError(t, b.db.First(&page, "window_id = ?", "win-1").Error)
	assert.Equal(t, "John.3.16", page.CurrentKey)
}
