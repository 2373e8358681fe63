package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/wesinator/and-bible/internal/auth"
	"github.com/wesinator/and-bible/internal/database/bookmarks"
	"github.com/wesinator/and-bible/internal/database/devices"
	"github.com/wesinator/and-bible/internal/database/patches"
	"github.com/wesinator/and-bible/internal/database/readingplans"
	"github.com/wesinator/and-bible/internal/database/settings"
	"github.com/wesinator/and-bible/internal/database/workspaces"
	"github.com/wesinator/and-bible/internal/http"
	"github.com/wesinator/and-bible/internal/scheduler"
	"github.com/wesinator/and-bible/internal/sync"
	"github.com/wesinator/and-bible/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

// PatchStore implementations
var _ http.PatchStore = (*patches.Repository)(nil)

// DeviceStore implementations
var _ http.DeviceStore = (*devices.Repository)(nil)
var _ auth.DeviceStore = (*devices.Repository)(nil)

// Content store implementations
var _ http.BookmarkStore = (*bookmarks.Repository)(nil)
var _ http.ReadingPlanStore = (*readingplans.Repository)(nil)
var _ http.WorkspaceStore = (*workspaces.Repository)(nil)

// =============================================================================
// Settings
// =============================================================================

// The settings repository backs the device identity, the auth secrets and
// the scheduler overrides.
var _ sync.IdentityStore = (*settings.Repository)(nil)
var _ auth.SettingsStore = (*settings.Repository)(nil)
var _ scheduler.SettingsStore = (*settings.Repository)(nil)

// =============================================================================
// Background Work
// =============================================================================

// PatchRecorder implementations
var _ tasks.PatchRecorder = (*patches.Repository)(nil)
var _ scheduler.PatchRecorder = (*patches.Repository)(nil)

// PatchPruner implementations
var _ tasks.PatchPruner = (*patches.Repository)(nil)
