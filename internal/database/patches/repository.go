// Package patches provides database operations for the hub's patch
// inventory.
//
// This package implements the PatchStore interface defined in
// internal/http.
//
// # Usage
//
//	repo := patches.NewRepository(db)
//	records, err := repo.List("bookmarks")
package patches

import (
	"time"

	"gorm.io/gorm"

	"github.com/wesinator/and-bible/internal/entities"
)

// Repository handles all patch inventory database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new patches repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Record stores the inventory entry for a patch file that landed on disk.
func (r *Repository) Record(category, fileName, deviceID string, sizeBytes, entryCount int64) (*entities.PatchRecord, error) {
	record := &entities.PatchRecord{
		Category:   category,
		FileName:   fileName,
		DeviceID:   deviceID,
		SizeBytes:  sizeBytes,
		EntryCount: entryCount,
	}
	if err := r.db.Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// GetByFileName retrieves the record of one patch file.
func (r *Repository) GetByFileName(fileName string) (*entities.PatchRecord, error) {
	var record entities.PatchRecord
	err := r.db.Where("file_name = ?", fileName).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// List retrieves the records of one category, newest first.
func (r *Repository) List(category string) ([]entities.PatchRecord, error) {
	var records []entities.PatchRecord
	err := r.db.Where("category = ?", category).Order("created_at DESC, id DESC").Find(&records).Error
	return records, err
}

// ListNewerThan retrieves the records of one category created after the
// given time, oldest first so they can be applied in order.
func (r *Repository) ListNewerThan(category string, after time.Time) ([]entities.PatchRecord, error) {
	var records []entities.PatchRecord
	err := r.db.Where("category = ? AND created_at > ?", category, after).
		Order("created_at, id").Find(&records).Error
	return records, err
}

// ListAll retrieves every record, newest first.
func (r *Repository) ListAll() ([]entities.PatchRecord, error) {
	var records []entities.PatchRecord
	err := r.db.Order("created_at DESC, id DESC").Find(&records).Error
	return records, err
}

// DeleteOlderThan removes records created before the cutoff and returns
// them so the caller can unlink the files.
func (r *Repository) DeleteOlderThan(cutoff time.Time) ([]entities.PatchRecord, error) {
	var records []entities.PatchRecord
	err := r.db.Where("created_at < ?", cutoff).Find(&records).Error
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	err = r.db.Where("created_at < ?", cutoff).Delete(&entities.PatchRecord{}).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// CountByCategory returns the number of stored patches per category.
func (r *Repository) CountByCategory() (map[string]int64, error) {
	type row struct {
		Category string
		Count    int64
	}
	var rows []row
	err := r.db.Model(&entities.PatchRecord{}).
		Select("category, COUNT(*) as count").
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Category] = r.Count
	}
	return counts, nil
}
