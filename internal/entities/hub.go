package entities

import (
	"time"
)

// Hub-side entities. These live in the hub database only and are never
// synced between devices.

// Device is a registered peer allowed to exchange patches with the hub.
type Device struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	Name       string     `gorm:"size:100" json:"name"`
	Token      string     `gorm:"uniqueIndex;size:64" json:"-"` // API token, hidden from JSON
	CreatedAt  time.Time  `json:"created_at"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
}

// PatchRecord is the hub's inventory entry for a stored patch file, both
// hub-exported and device-uploaded ones.
type PatchRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Category   string    `gorm:"index;size:40" json:"category"`
	FileName   string    `gorm:"uniqueIndex;size:255" json:"file_name"`
	DeviceID   string    `gorm:"index;size:36" json:"device_id"` // originating device
	SizeBytes  int64     `json:"size_bytes"`
	EntryCount int64     `json:"entry_count"` // change log entries carried
	CreatedAt  time.Time `json:"created_at"`
}

type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Device) TableName() string {
	return "devices"
}

func (PatchRecord) TableName() string {
	return "patch_records"
}

func (Setting) TableName() string {
	return "settings"
}

// Known setting keys
const (
	// Identity of this hub in the sync mesh; generated on first start.
	SettingKeyDeviceID = "sync_device_id"

	// bcrypt hash of the admin UI password.
	SettingKeyAdminPasswordHash = "admin_password_hash"

	// Secret used to sign CSRF tokens; generated on first start.
	SettingKeySessionSecret = "session_secret"

	// Auto export settings
	SettingKeyAutoExportEnabled  = "auto_export_enabled"
	SettingKeyAutoExportSchedule = "auto_export_schedule"
	SettingKeyAutoExportLastAt   = "auto_export_last_at"
)
