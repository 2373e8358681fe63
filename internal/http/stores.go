package http

import (
	"time"

	"github.com/wesinator/and-bible/internal/entities"
)

// This file consolidates the store interface definitions used by HTTP
// controllers. Each controller depends only on the methods it actually
// uses; the gorm repositories under internal/database satisfy them.

// PatchStore records and lists the patch files the hub knows about.
type PatchStore interface {
	Record(category, fileName, deviceID string, sizeBytes, entryCount int64) (*entities.PatchRecord, error)
	GetByFileName(fileName string) (*entities.PatchRecord, error)
	List(category string) ([]entities.PatchRecord, error)
	ListNewerThan(category string, after time.Time) ([]entities.PatchRecord, error)
	ListAll() ([]entities.PatchRecord, error)
	CountByCategory() (map[string]int64, error)
}

// DeviceStore manages the devices registered with the hub.
type DeviceStore interface {
	Register(name string) (*entities.Device, error)
	GetByID(id string) (*entities.Device, error)
	List() ([]entities.Device, error)
	Delete(id string) error
}

// BookmarkStore provides read access to the bookmarks category.
type BookmarkStore interface {
	ListLabels() ([]entities.Label, error)
	ListBookmarks() ([]entities.Bookmark, error)
	CountBookmarks() (int64, error)
}

// ReadingPlanStore provides read access to the reading plans category.
type ReadingPlanStore interface {
	ListPlans() ([]entities.ReadingPlan, error)
}

// WorkspaceStore provides read access to the workspaces category.
type WorkspaceStore interface {
	ListWorkspaces() ([]entities.Workspace, error)
}

// --- Interface Documentation ---
//
// Controller-specific usage:
//
// PatchStore (patches.go, status.go, ui.go):
//   - Patch inventory: record on export/upload, list for polling devices
//   - Download lookups by file name
//
// DeviceStore (devices.go, status.go, ui.go):
//   - Device registration with one-time token issuance
//   - Inventory and revocation
//
// BookmarkStore / ReadingPlanStore / WorkspaceStore (content.go, ui.go):
//   - Read-only views over the category databases for the API and the
//     dashboard; all writes flow through patch imports
