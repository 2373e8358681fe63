// Package cli implements the hub's command line interface: patch export
// and import, device registration and a status overview, all operating on
// the same database files the server uses.
package cli

import (
	"fmt"
	"os"

	"github.com/wesinator/and-bible/internal/config"
	"github.com/wesinator/and-bible/internal/database"
	"github.com/wesinator/and-bible/internal/database/devices"
	"github.com/wesinator/and-bible/internal/database/patches"
	"github.com/wesinator/and-bible/internal/database/settings"
	"github.com/wesinator/and-bible/internal/sync"
)

// hubContext bundles the open hub database with the repositories and the
// device identity every command needs.
type hubContext struct {
	hub      *database.Hub
	settings *settings.Repository
	devices  *devices.Repository
	patches  *patches.Repository
	deviceID string
}

// openHub opens the hub database under dataDir and resolves the device
// identity, provisioning one on first run.
func openHub(dataDir string) (*hubContext, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}

	hub, err := database.OpenHub(config.Database{DataDir: dataDir}.HubPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open hub database: %w", err)
	}

	settingsRepo := settings.NewRepository(hub.DB)
	deviceID, err := sync.EnsureDeviceID(settingsRepo)
	if err != nil {
		hub.Close()
		return nil, err
	}

	return &hubContext{
		hub:      hub,
		settings: settingsRepo,
		devices:  devices.NewRepository(hub.DB),
		patches:  patches.NewRepository(hub.DB),
		deviceID: deviceID,
	}, nil
}

func (h *hubContext) Close() {
	if err := h.hub.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close hub database: %v\n", err)
	}
}

// openEngine opens one category database with its triggers installed and
// wraps it in a sync engine writing patches into patchesDir.
func openEngine(dataDir, patchesDir string, def sync.CategoryDef, deviceID string) (*database.Database, *sync.Engine, error) {
	path := config.Database{DataDir: dataDir}.CategoryPath(string(def.Category))
	db, err := database.Open(path, def, deviceID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s database: %w", def.Category, err)
	}

	engine, err := sync.NewEngine(db.DB, def, deviceID, patchesDir)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, engine, nil
}
