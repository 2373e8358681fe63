// Package settings provides database operations for hub settings.
//
// This package implements the sync.IdentityStore interface used for
// device id provisioning, and the SettingsStore interface defined in
// internal/http.
//
// # Interface Implementation
//
//	var _ sync.IdentityStore = (*Repository)(nil)
//
// # Usage
//
//	repo := settings.NewRepository(db)
//	value, err := repo.GetValue("sync_device_id")
package settings

import (
	"gorm.io/gorm"

	"github.com/wesinator/and-bible/internal/entities"
)

// Repository handles all settings database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new settings repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Get retrieves a setting by key.
func (r *Repository) Get(key string) (*entities.Setting, error) {
	var setting entities.Setting
	err := r.db.Where("key = ?", key).First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// GetValue retrieves the value of a setting, or the empty string when the
// key was never set.
func (r *Repository) GetValue(key string) (string, error) {
	setting, err := r.Get(key)
	if err == gorm.ErrRecordNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return setting.Value, nil
}

// Set creates or updates a setting.
func (r *Repository) Set(key, value string) error {
	var setting entities.Setting
	result := r.db.Where("key = ?", key).First(&setting)

	if result.Error == gorm.ErrRecordNotFound {
		setting = entities.Setting{
			Key:   key,
			Value: value,
		}
		return r.db.Create(&setting).Error
	} else if result.Error != nil {
		return result.Error
	}

	setting.Value = value
	return r.db.Save(&setting).Error
}

// Delete removes a setting by key.
func (r *Repository) Delete(key string) error {
	return r.db.Where("key = ?", key).Delete(&entities.Setting{}).Error
}
