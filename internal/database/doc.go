// Package database provides the data access layer for the hub.
//
// # Architecture
//
// The hub keeps one SQLite file per synchronized category plus one for its
// own bookkeeping. The layer is organized into domain-specific
// sub-packages:
//
//	database/
//	├── database.go      # Category and hub database setup, migrations
//	├── bookmarks/       # Bookmark, label and study pad operations
//	├── readingplans/    # Reading plan progress operations
//	├── workspaces/      # Workspace, window and page state operations
//	├── devices/         # Device registration and token lookup
//	├── patches/         # Patch file inventory
//	└── settings/        # Hub settings (device id, admin password, ...)
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific
// operations:
//
//	// Open the bookmarks category with capture triggers installed
//	def, _ := sync.Lookup(sync.CategoryBookmarks)
//	db, err := database.Open("./bookmarks.db", def, deviceID)
//
//	// Create domain-specific repositories
//	bookmarksRepo := bookmarks.NewRepository(db.DB)
//	labels, err := bookmarksRepo.ListLabels()
//
// Category databases carry the sync change log and capture triggers, so
// every write through a repository is recorded for the next patch export.
// The hub database (database.OpenHub) holds devices, patch records and
// settings; it is local state and never travels in patches.
//
// # Interface Implementations
//
// Each sub-package implements specific interfaces:
//
//   - bookmarks.Repository: implements http.BookmarkStore
//   - readingplans.Repository: implements http.ReadingPlanStore
//   - workspaces.Repository: implements http.WorkspaceStore
//   - devices.Repository: implements http.DeviceStore
//   - patches.Repository: implements http.PatchStore
//   - settings.Repository: implements sync.IdentityStore,
//     auth.SettingsStore and scheduler.SettingsStore
//
// # Adding a New Domain
//
// To add a new domain (e.g. notes):
//
//  1. Create a new sub-package: internal/database/notes/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Implement the required interface
//  5. Add compile-time interface check: var _ SomeInterface = (*Repository)(nil)
package database
