package sync

import (
	"gorm.io/gorm"
)

// ConfigKeyLastPatchWritten holds the watermark: the newest change log
// timestamp that already left this device in a patch file.
const ConfigKeyLastPatchWritten = "last_patch_written"

// SyncConfig is one sync bookkeeping value. The table stays outside the
// synchronized set: watermarks are local state and never travel in
// patches.
type SyncConfig struct {
	Key   string `gorm:"column:key;primaryKey;size:100"`
	Value int64  `gorm:"column:value;not null"`
}

func (SyncConfig) TableName() string {
	return "sync_config"
}

// ConfigRepository handles sync bookkeeping reads and writes.
type ConfigRepository struct {
	db *gorm.DB
}

// NewConfigRepository creates a new sync config repository.
func NewConfigRepository(db *gorm.DB) *ConfigRepository {
	return &ConfigRepository{db: db}
}

// GetLong returns the stored value for key, or fallback when the key was
// never written.
func (r *ConfigRepository) GetLong(key string, fallback int64) (int64, error) {
	var cfg SyncConfig
	result := r.db.Where("key = ?", key).First(&cfg)
	if result.Error == gorm.ErrRecordNotFound {
		return fallback, nil
	} else if result.Error != nil {
		return 0, result.Error
	}
	return cfg.Value, nil
}

// SetLong creates or updates the value stored under key.
func (r *ConfigRepository) SetLong(key string, value int64) error {
	var cfg SyncConfig
	result := r.db.Where("key = ?", key).First(&cfg)

	if result.Error == gorm.ErrRecordNotFound {
		cfg = SyncConfig{Key: key, Value: value}
		return r.db.Create(&cfg).Error
	} else if result.Error != nil {
		return result.Error
	}

	cfg.Value = value
	return r.db.Save(&cfg).Error
}
