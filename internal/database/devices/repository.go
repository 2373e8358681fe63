// Package devices provides database operations for registered sync
// devices.
//
// This package implements the DeviceStore interface defined in
// internal/http and the auth token lookup used by the API middleware.
//
// # Usage
//
//	repo := devices.NewRepository(db)
//	device, err := repo.Register("Tablet")
package devices

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wesinator/and-bible/internal/entities"
)

// Repository handles all device database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new devices repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Register creates a new device with a generated id and access token. The
// token is shown once at registration and afterwards only travels in the
// Authorization header.
func (r *Repository) Register(name string) (*entities.Device, error) {
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	device := &entities.Device{
		ID:    uuid.NewString(),
		Name:  name,
		Token: token,
	}

	if err := r.db.Create(device).Error; err != nil {
		return nil, err
	}

	return device, nil
}

// GetByToken retrieves a device by its access token.
func (r *Repository) GetByToken(token string) (*entities.Device, error) {
	var device entities.Device
	err := r.db.Where("token = ?", token).First(&device).Error
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// GetByID retrieves a device by id.
func (r *Repository) GetByID(id string) (*entities.Device, error) {
	var device entities.Device
	err := r.db.First(&device, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// List retrieves all registered devices, oldest first.
func (r *Repository) List() ([]entities.Device, error) {
	var devices []entities.Device
	err := r.db.Order("created_at").Find(&devices).Error
	return devices, err
}

// Touch records that a device was just seen.
func (r *Repository) Touch(id string) error {
	now := time.Now()
	return r.db.Model(&entities.Device{}).Where("id = ?", id).
		Update("last_seen_at", &now).Error
}

// Delete removes a device registration. Patches it already delivered stay.
func (r *Repository) Delete(id string) error {
	return r.db.Delete(&entities.Device{}, "id = ?", id).Error
}

func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
