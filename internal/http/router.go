package http

import (
	"html/template"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"github.com/wesinator/and-bible/internal/auth"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())

	// Apply CSRF protection if auth is enabled
	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, cfg.AuthService))
	}

	// Apply session middleware if enabled
	// Session runs after CSRF so session context isn't overwritten by CSRF's request replacement
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	// Apply auth middleware if enabled
	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	} else {
		// No auth - every request passes through unauthenticated
		router.Use(func(c *gin.Context) {
			c.Set(auth.ContextKeyAuthType, auth.AuthTypeNone)
			c.Next()
		})
	}

	// Inject auth data for templates
	router.Use(AuthContextMiddleware(cfg.AuthConfig.Mode))

	// Apply demo mode middleware if enabled
	if cfg.DemoMiddleware != nil && cfg.DemoMiddleware.IsEnabled() {
		router.Use(cfg.DemoMiddleware.InjectContext())
		router.Use(cfg.DemoMiddleware.Handler())
	}

	// Define custom template functions
	funcMap := template.FuncMap{
		"comma": func(n int64) string {
			return humanize.Comma(n)
		},
	}

	// Load HTML templates with custom functions. An API-only deployment can
	// run without templates; the UI routes are skipped below in that case.
	if cfg.TemplatesPath != "" {
		tmpl := template.Must(template.New("").Funcs(funcMap).ParseGlob(cfg.TemplatesPath + "/*.html"))
		router.SetHTMLTemplate(tmpl)
	}

	// Serve static files
	if cfg.StaticPath != "" {
		router.Static("/static", cfg.StaticPath)
	}

	// Register auth routes if auth service is available
	if cfg.AuthService != nil && cfg.AuthService.IsAuthEnabled() {
		authController, err := auth.NewAuthController(cfg.AuthService, cfg.SessionManager, cfg.TemplatesPath, cfg.AuthConfig)
		if err == nil {
			authController.RegisterRoutes(router)
		}
	}

	// Create controllers with appropriate interfaces
	health := NewHealthController(cfg.Hub, cfg.Engines, cfg.Version)
	patchesController := NewPatchesController(cfg.Engines, cfg.PatchStore, cfg.TaskClient, cfg.PatchesDir, cfg.HubDeviceID)
	statusController := NewStatusController(cfg.Engines, cfg.PatchStore, cfg.DeviceStore, cfg.HubDeviceID)
	contentController := NewContentController(cfg.BookmarkStore, cfg.ReadingPlanStore, cfg.WorkspaceStore)
	uiController := NewUIController(cfg.Engines, cfg.PatchStore, cfg.DeviceStore,
		cfg.BookmarkStore, cfg.ReadingPlanStore, cfg.WorkspaceStore)

	// Health endpoint
	router.GET("/health", health.Status)

	// Patch exchange endpoints
	router.POST("/api/v1/patches/:category", patchesController.Upload)
	router.GET("/api/v1/patches/:category", patchesController.List)
	router.GET("/api/v1/patches/:category/download/:name", patchesController.Download)
	router.POST("/api/v1/export/:category", patchesController.Export)

	// Hub status endpoint
	if cfg.PatchStore != nil && cfg.DeviceStore != nil {
		router.GET("/api/v1/status", statusController.Status)
	}

	// Device registry endpoints
	if cfg.DeviceStore != nil {
		devicesController := NewDevicesController(cfg.DeviceStore)
		router.POST("/api/v1/devices", devicesController.Register)
		router.GET("/api/v1/devices", devicesController.List)
		router.GET("/api/v1/devices/me", devicesController.Me)
		router.DELETE("/api/v1/devices/:id", devicesController.Delete)
	}

	// Read-only category content endpoints
	if cfg.BookmarkStore != nil {
		router.GET("/api/v1/labels", contentController.ListLabels)
		router.GET("/api/v1/bookmarks", contentController.ListBookmarks)
	}
	if cfg.ReadingPlanStore != nil {
		router.GET("/api/v1/readingplans", contentController.ListReadingPlans)
	}
	if cfg.WorkspaceStore != nil {
		router.GET("/api/v1/workspaces", contentController.ListWorkspaces)
	}

	// Task management endpoints
	if cfg.TaskClient != nil {
		tasksController := NewTasksController(cfg.TaskClient, cfg.PatchesDir)
		router.GET("/api/v1/tasks/types", tasksController.ListTaskTypes)
		router.GET("/api/v1/tasks/:id", tasksController.GetTaskStatus)
		router.POST("/api/v1/tasks/:type/run", tasksController.RunTask)
	}

	// UI routes need templates to render
	if cfg.TemplatesPath != "" {
		router.GET("/", uiController.Dashboard)
		if cfg.DeviceStore != nil {
			router.GET("/devices", uiController.DevicesPage)
			router.POST("/devices", uiController.CreateDevice)
			router.POST("/devices/:id/delete", uiController.DeleteDevice)
		}
	}

	return router
}
