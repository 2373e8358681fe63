package sync

import (
	"gorm.io/gorm"
)

// EventType tells whether a logged key still has a row (UPSERT) or was
// removed (DELETE).
type EventType string

const (
	EventUpsert EventType = "UPSERT"
	EventDelete EventType = "DELETE"
)

// EntityKey identifies one logical row across devices. ID2 is empty for
// single-key tables; the log stores it as '' rather than NULL so the
// composite primary key can deduplicate entries.
type EntityKey struct {
	Table string
	ID1   string
	ID2   string
}

// LogEntry is the latest-state change record for one entity key. The
// capture triggers keep exactly one entry per key, replacing the previous
// one on every write.
type LogEntry struct {
	Table       string    `gorm:"column:table_name;primaryKey;size:64;not null"`
	EntityID1   string    `gorm:"column:entity_id1;primaryKey;size:36;not null"`
	EntityID2   string    `gorm:"column:entity_id2;primaryKey;size:36;not null"`
	EventType   EventType `gorm:"column:event_type;size:10;not null"`
	LastUpdated int64     `gorm:"column:last_updated;not null;index"`
	DeviceID    string    `gorm:"column:device_id;size:36;not null"`
}

func (LogEntry) TableName() string {
	return "change_log"
}

// Key returns the entity key of the entry.
func (e LogEntry) Key() EntityKey {
	return EntityKey{Table: e.Table, ID1: e.EntityID1, ID2: e.EntityID2}
}

// LogRepository handles change log database operations.
type LogRepository struct {
	db *gorm.DB
}

// NewLogRepository creates a new change log repository.
func NewLogRepository(db *gorm.DB) *LogRepository {
	return &LogRepository{db: db}
}

// RecordChange writes the latest-state entry for a key, replacing any
// previous entry. Normal writes are captured by the SQL triggers; this
// method exists for tests and manual repair.
func (r *LogRepository) RecordChange(key EntityKey, event EventType, timestamp int64, deviceID string) error {
	entry := LogEntry{
		Table:       key.Table,
		EntityID1:   key.ID1,
		EntityID2:   key.ID2,
		EventType:   event,
		LastUpdated: timestamp,
		DeviceID:    deviceID,
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("table_name = ? AND entity_id1 = ? AND entity_id2 = ?", key.Table, key.ID1, key.ID2).
			Delete(&LogEntry{}).Error
		if err != nil {
			return err
		}
		return tx.Create(&entry).Error
	})
}

// CountNewerThan returns the number of entries strictly newer than the
// given timestamp, regardless of which device produced them. Entries this
// device merely imported count too: a patch built from them still moves a
// recipient forward.
func (r *LogRepository) CountNewerThan(since int64) (int64, error) {
	var count int64
	err := r.db.Model(&LogEntry{}).Where("last_updated > ?", since).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// EntriesNewerThan returns the entries of one table strictly newer than the
// given timestamp, ordered by entity key.
func (r *LogRepository) EntriesNewerThan(table string, since int64) ([]LogEntry, error) {
	var entries []LogEntry
	err := r.db.Where("table_name = ? AND last_updated > ?", table, since).
		Order("entity_id1, entity_id2").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// EntryFor retrieves the entry for a key.
func (r *LogRepository) EntryFor(key EntityKey) (*LogEntry, error) {
	var entry LogEntry
	err := r.db.Where("table_name = ? AND entity_id1 = ? AND entity_id2 = ?", key.Table, key.ID1, key.ID2).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// MaxTimestamp returns the newest timestamp in the log, or zero when the
// log is empty.
func (r *LogRepository) MaxTimestamp() (int64, error) {
	var max int64
	err := r.db.Model(&LogEntry{}).Select("COALESCE(MAX(last_updated), 0)").Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max, nil
}
