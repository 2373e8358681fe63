package auth

import (
	"errors"
	"fmt"

	"github.com/wesinator/and-bible/internal/config"
	"github.com/wesinator/and-bible/internal/entities"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrAuthRequired  = errors.New("authentication required")
	ErrNotConfigured = errors.New("admin password is not configured")
)

// SettingsStore persists hub settings such as the admin password hash.
type SettingsStore interface {
	GetValue(key string) (string, error)
	Set(key, value string) error
}

// DeviceStore resolves device API tokens.
type DeviceStore interface {
	GetByToken(token string) (*entities.Device, error)
	Touch(id string) error
}

// Service handles admin password and device token authentication. The
// admin password hash and signing secret live in the hub settings table;
// device tokens live in the devices table.
type Service struct {
	settings SettingsStore
	devices  DeviceStore
	config   config.Auth
}

// NewService creates a new authentication service.
func NewService(settings SettingsStore, devices DeviceStore, cfg config.Auth) *Service {
	return &Service{
		settings: settings,
		devices:  devices,
		config:   cfg,
	}
}

// HasAdminPassword reports whether an admin password has been set.
func (s *Service) HasAdminPassword() (bool, error) {
	hash, err := s.settings.GetValue(entities.SettingKeyAdminPasswordHash)
	if err != nil {
		return false, fmt.Errorf("failed to load admin password hash: %w", err)
	}
	return hash != "", nil
}

// SetAdminPassword hashes and stores the admin password.
func (s *Service) SetAdminPassword(password string) error {
	hash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return err
	}
	return s.settings.Set(entities.SettingKeyAdminPasswordHash, hash)
}

// EnsureAdminPassword stores the bootstrap password from configuration if
// no password has been set yet. A password already stored always wins over
// the environment.
func (s *Service) EnsureAdminPassword() error {
	if s.config.AdminPassword == "" {
		return nil
	}
	configured, err := s.HasAdminPassword()
	if err != nil {
		return err
	}
	if configured {
		return nil
	}
	return s.SetAdminPassword(s.config.AdminPassword)
}

// Authenticate validates the admin password.
func (s *Service) Authenticate(password string) error {
	hash, err := s.settings.GetValue(entities.SettingKeyAdminPasswordHash)
	if err != nil {
		return fmt.Errorf("failed to load admin password hash: %w", err)
	}
	if hash == "" {
		return ErrNotConfigured
	}
	return CheckPassword(password, hash)
}

// ValidateToken checks a device API token and returns the device.
// Refreshes the device's last-seen timestamp on success.
func (s *Service) ValidateToken(token string) (*entities.Device, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	device, err := s.devices.GetByToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	// Last-seen tracking is best effort; a failed update must not block the request.
	_ = s.devices.Touch(device.ID)

	return device, nil
}

// SessionSecret returns the stored signing secret, generating and
// persisting one on first use so CSRF tokens survive hub restarts.
func (s *Service) SessionSecret() ([]byte, error) {
	stored, err := s.settings.GetValue(entities.SettingKeySessionSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to load session secret: %w", err)
	}
	if stored == "" {
		stored, err = GenerateSessionSecret()
		if err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		if err := s.settings.Set(entities.SettingKeySessionSecret, stored); err != nil {
			return nil, fmt.Errorf("failed to store session secret: %w", err)
		}
	}
	return []byte(stored), nil
}

// IsAuthEnabled returns true if authentication is required.
func (s *Service) IsAuthEnabled() bool {
	return s.config.Mode == config.AuthModeLocal
}

// GetAuthMode returns the current authentication mode.
func (s *Service) GetAuthMode() config.AuthMode {
	return s.config.Mode
}
