package sync

import (
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/wesinator/and-bible/internal/entities"
)

// IdentityStore persists the device identity between runs. The settings
// repository of the hub database implements it.
type IdentityStore interface {
	GetValue(key string) (string, error)
	Set(key, value string) error
}

// EnsureDeviceID returns the stable identity of this installation,
// generating and storing a fresh UUID on first run. The id ends up in
// every change log entry this device produces, so it must never change
// once provisioned.
func EnsureDeviceID(store IdentityStore) (string, error) {
	id, err := store.GetValue(entities.SettingKeyDeviceID)
	if err != nil {
		return "", fmt.Errorf("failed to read device id: %w", err)
	}
	if id != "" {
		return id, nil
	}

	id = uuid.NewString()
	if err := store.Set(entities.SettingKeyDeviceID, id); err != nil {
		return "", fmt.Errorf("failed to store device id: %w", err)
	}
	log.Printf("Provisioned sync device id %s", id)
	return id, nil
}
