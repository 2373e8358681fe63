package http

import (
	"github.com/wesinator/and-bible/internal/auth"
	"github.com/wesinator/and-bible/internal/config"
	"github.com/wesinator/and-bible/internal/database"
	"github.com/wesinator/and-bible/internal/demo"
	"github.com/wesinator/and-bible/internal/sync"
	"github.com/wesinator/and-bible/internal/tasks"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router. This replaces the long parameter list
// in NewRouter for better maintainability.
type RouterConfig struct {
	// Sync engines keyed by category name
	Engines map[string]*sync.Engine

	// Identity of the hub itself in the sync mesh
	HubDeviceID string

	// Hub bookkeeping database (health checks)
	Hub *database.Hub

	// Stores
	PatchStore       PatchStore
	DeviceStore      DeviceStore
	BookmarkStore    BookmarkStore
	ReadingPlanStore ReadingPlanStore
	WorkspaceStore   WorkspaceStore

	// Directory holding exported and uploaded patch files
	PatchesDir string

	// UI paths
	TemplatesPath string
	StaticPath    string

	// Application info
	Version string

	// Task queue client (optional; uploads apply inline without it)
	TaskClient *tasks.Client

	// Authentication
	AuthService    *auth.Service
	AuthMiddleware *auth.Middleware
	SessionManager *auth.SessionManager
	AuthConfig     config.Auth
	CSRFSecret     []byte
	SecureCookies  bool

	// Demo mode middleware (optional; blocks writes when enabled)
	DemoMiddleware *demo.Middleware
}
