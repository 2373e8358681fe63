// Package interfaces documents the core abstractions used throughout the application.
//
// This package consolidates interface documentation to help code agents understand
// extension points and how to implement new functionality.
//
// # Interface Categories
//
// The application uses several categories of interfaces:
//
// ## Data Access Interfaces
//
//   - PatchStore: Patch file inventory (internal/http/stores.go)
//   - DeviceStore: Device registration and tokens (internal/http/stores.go)
//   - BookmarkStore: Read-only bookmark access (internal/http/stores.go)
//   - ReadingPlanStore: Read-only reading plan access (internal/http/stores.go)
//   - WorkspaceStore: Read-only workspace access (internal/http/stores.go)
//
// ## Sync Engine Interfaces
//
//   - IdentityStore: Device identity persistence (internal/sync/device.go)
//
// ## Authentication Interfaces
//
//   - auth.SettingsStore: Password hash and signing secret storage (internal/auth/service.go)
//   - auth.DeviceStore: Token resolution (internal/auth/service.go)
//
// ## Background Work Interfaces
//
//   - tasks.PatchRecorder: Inventory entries for exported patches (internal/tasks/export_patch.go)
//   - tasks.PatchPruner: Retention cleanup (internal/tasks/cleanup_patches.go)
//   - scheduler.PatchRecorder / scheduler.SettingsStore: Auto-export wiring (internal/scheduler/auto_export.go)
//
// # Adding a New Synchronized Category
//
// To synchronize a new family of tables (e.g., notes):
//
//  1. Define the gorm entities in internal/entities/ with explicit column
//     names matching the device schema:
//
//     type Note struct {
//         ID   string `gorm:"column:id;primaryKey"`
//         Body string `gorm:"column:body"`
//     }
//
//  2. Register the category in internal/sync/registry.go, parents before
//     children so merge order respects foreign keys:
//
//     {
//         Category: CategoryNotes,
//         Tables: []TableDef{
//             {Name: "notes", IDColumns: []string{"id"}},
//         },
//     }
//
//  3. Add the models to categoryModels in internal/database/database.go so
//     Open migrates them and installs capture triggers.
//
//  4. Create a repository sub-package internal/database/notes/ and a
//     read-only store interface in internal/http/stores.go:
//
//     type NoteStore interface {
//         ListNotes() ([]entities.Note, error)
//     }
//
//     var _ http.NoteStore = (*notes.Repository)(nil)
//
//  5. Wire the engine and repository in internal/entrypoint/entrypoint.go.
//     The registry loop picks the category up automatically for export,
//     import, status and the scheduler.
//
// # Adding a New Background Task
//
// To add a new queued task type:
//
//  1. Define the task and its queue configuration in internal/tasks/
//
//     type RebuildIndexTask struct {
//         Category string `json:"category"`
//     }
//
//     func (t RebuildIndexTask) Config() backlite.QueueConfig
//
//  2. Implement the processor and constructor:
//
//     func NewRebuildIndexQueue(engines map[string]*sync.Engine) backlite.Queue
//
//  3. Register it with the task client in entrypoint.go and expose it in
//     the tasks controller's type list if it should be runnable by hand.
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// This pattern is used throughout the codebase. See checks.go for examples.
package interfaces
