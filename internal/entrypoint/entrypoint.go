package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wesinator/and-bible/internal/auth"
	"github.com/wesinator/and-bible/internal/config"
	"github.com/wesinator/and-bible/internal/database"
	"github.com/wesinator/and-bible/internal/database/bookmarks"
	"github.com/wesinator/and-bible/internal/database/devices"
	"github.com/wesinator/and-bible/internal/database/patches"
	"github.com/wesinator/and-bible/internal/database/readingplans"
	"github.com/wesinator/and-bible/internal/database/settings"
	"github.com/wesinator/and-bible/internal/database/workspaces"
	"github.com/wesinator/and-bible/internal/demo"
	http_controllers "github.com/wesinator/and-bible/internal/http"
	"github.com/wesinator/and-bible/internal/scheduler"
	"github.com/wesinator/and-bible/internal/sync"
	"github.com/wesinator/and-bible/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	// Check the patches directory is writable by touching and removing an
	// empty file. Failing here is better than failing on the first export.
	probe := filepath.Join(cfg.Sync.PatchesDir, ".write-check")
	if _, err := os.Create(probe); err != nil {
		log.Fatalf("Patches directory %s is not writable: %v", cfg.Sync.PatchesDir, err)
		return
	}
	if err := os.Remove(probe); err != nil {
		log.Printf("Could not remove probe file from patches directory %s: %v", cfg.Sync.PatchesDir, err)
	}

	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		// service connections
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	// Wait for interrupt signal to gracefully shutdown the server with
	// a timeout of 1 second.
	quit := make(chan os.Signal, 1)
	// kill (no param) default send syscanll.SIGTERM
	// kill -2 is syscall.SIGINT
	// kill -9 is syscall. SIGKILL but can"t be catch, so don't need add it
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first (e.g., to stop the scheduler and task queue)
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting AndBible sync hub v%s", version)

	// Initialize demo mode middleware
	var demoMiddleware *demo.Middleware
	if cfg.Demo.Enabled {
		log.Printf("Demo mode enabled - write operations will be blocked")
		demoMiddleware = demo.NewMiddleware(true)
	}

	if err := os.MkdirAll(cfg.Database.DataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data directory %s: %v", cfg.Database.DataDir, err)
	}
	if err := os.MkdirAll(cfg.Sync.PatchesDir, 0o755); err != nil {
		log.Fatalf("Failed to create patches directory %s: %v", cfg.Sync.PatchesDir, err)
	}

	// Hub database: devices, patch inventory and settings
	hub, err := database.OpenHub(cfg.Database.HubPath())
	if err != nil {
		log.Fatalf("Failed to initialize hub database: %v", err)
	}
	defer func() {
		if err := hub.Close(); err != nil {
			log.Printf("Error closing hub database: %v", err)
		}
	}()

	settingsRepo := settings.NewRepository(hub.DB)
	deviceRepo := devices.NewRepository(hub.DB)
	patchRepo := patches.NewRepository(hub.DB)

	// The hub is itself a device in the mesh; its identity survives restarts.
	deviceID, err := sync.EnsureDeviceID(settingsRepo)
	if err != nil {
		log.Fatalf("Failed to establish device identity: %v", err)
	}
	log.Printf("Hub device %q has id %s", cfg.Sync.DeviceName, deviceID)

	// One database and one engine per synchronized category
	engines := make(map[string]*sync.Engine, len(sync.Categories()))

	var bookmarkRepo *bookmarks.Repository
	var planRepo *readingplans.Repository
	var workspaceRepo *workspaces.Repository

	for _, def := range sync.Categories() {
		categoryDB, err := database.Open(cfg.Database.CategoryPath(string(def.Category)), def, deviceID)
		if err != nil {
			log.Fatalf("Failed to initialize %s database: %v", def.Category, err)
		}
		defer func(db *database.Database) {
			if err := db.Close(); err != nil {
				log.Printf("Error closing %s database: %v", db.Def.Category, err)
			}
		}(categoryDB)

		engine, err := sync.NewEngine(categoryDB.DB, def, deviceID, cfg.Sync.PatchesDir)
		if err != nil {
			log.Fatalf("Failed to initialize %s sync engine: %v", def.Category, err)
		}
		engines[string(def.Category)] = engine

		switch def.Category {
		case sync.CategoryBookmarks:
			bookmarkRepo = bookmarks.NewRepository(categoryDB.DB)
		case sync.CategoryReadingPlans:
			planRepo = readingplans.NewRepository(categoryDB.DB)
		case sync.CategoryWorkspaces:
			workspaceRepo = workspaces.NewRepository(categoryDB.DB)
		}
	}

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:           cfg.Tasks.Workers,
			MaxRetries:        cfg.Tasks.MaxRetries,
			RetryDelay:        cfg.Tasks.RetryDelay,
			TaskTimeout:       cfg.Tasks.TaskTimeout,
			ReleaseAfter:      cfg.Tasks.ReleaseAfter,
			CleanupInterval:   cfg.Tasks.CleanupInterval,
			RetentionDuration: cfg.Tasks.RetentionDuration,
		}

		taskClient, err = tasks.NewClient(cfg.Database.TasksPath(), taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		// Register task queues
		taskClient.Register(
			tasks.NewApplyPatchQueue(engines),
			tasks.NewExportPatchQueue(engines, patchRepo),
			tasks.NewCleanupPatchesQueue(patchRepo, cfg.Sync.PatchesDir, cfg.Sync.RetentionDays),
		)

		// Start task workers in background
		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	}

	// Initialize authentication if enabled
	var authService *auth.Service
	var authMiddleware *auth.Middleware
	var sessionManager *auth.SessionManager
	var csrfSecret []byte

	if cfg.Auth.Mode == config.AuthModeLocal {
		log.Printf("Authentication mode: local")

		authService = auth.NewService(settingsRepo, deviceRepo, cfg.Auth)

		if err := authService.EnsureAdminPassword(); err != nil {
			log.Fatalf("Failed to store bootstrap admin password: %v", err)
		}

		// Get underlying SQL DB for session store
		sqlDB, err := hub.DB.DB()
		if err != nil {
			log.Fatalf("Failed to get SQL DB for sessions: %v", err)
		}

		sessionManager, err = auth.NewSessionManager(sqlDB, cfg.Auth)
		if err != nil {
			log.Fatalf("Failed to initialize session manager: %v", err)
		}

		authMiddleware = auth.NewMiddleware(authService, sessionManager, cfg.Auth)

		// The signing secret doubles as the CSRF key; it is generated once
		// and persisted in settings so tokens survive restarts.
		csrfSecret, err = authService.SessionSecret()
		if err != nil {
			log.Fatalf("Failed to load session secret: %v", err)
		}

		hasPassword, _ := authService.HasAdminPassword()
		if !hasPassword {
			log.Printf("No admin password set. Visit /setup to create one.")
		}
	} else {
		log.Printf("Authentication mode: none (no authentication required)")
	}

	// Auto-export scheduler turns local edits into patch files on a timer
	autoExport := scheduler.NewAutoExportScheduler(engines, patchRepo, settingsRepo, cfg.AutoExport)
	if err := autoExport.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start auto-export scheduler: %v", err)
	}

	// Build router configuration with all dependencies
	routerCfg := http_controllers.RouterConfig{
		Engines:          engines,
		HubDeviceID:      deviceID,
		Hub:              hub,
		PatchStore:       patchRepo,
		DeviceStore:      deviceRepo,
		BookmarkStore:    bookmarkRepo,
		ReadingPlanStore: planRepo,
		WorkspaceStore:   workspaceRepo,
		PatchesDir:       cfg.Sync.PatchesDir,
		TemplatesPath:    cfg.UI.TemplatesPath,
		StaticPath:       cfg.UI.StaticPath,
		Version:          version,
		TaskClient:       taskClient,
		AuthService:      authService,
		AuthMiddleware:   authMiddleware,
		SessionManager:   sessionManager,
		AuthConfig:       cfg.Auth,
		CSRFSecret:       csrfSecret,
		SecureCookies:    cfg.Auth.SecureCookies,
		DemoMiddleware:   demoMiddleware,
	}

	router := http_controllers.NewRouter(routerCfg)

	// Shutdown callback for graceful cleanup
	onShutdown := func(ctx context.Context) {
		autoExport.Stop()
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
