package config

import (
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type AuthMode string

const (
	AuthModeNone  AuthMode = "none"  // No authentication required (default)
	AuthModeLocal AuthMode = "local" // Admin password + sessions, device tokens for the API
)

type (
	Config struct {
		HTTP
		Global
		Database
		Sync
		AutoExport
		Tasks
		Auth
		UI
		Demo
	}

	HTTP struct {
		Port int32
		Host string
	}

	Global struct {
		ShutdownTimeoutInSeconds int
	}

	Database struct {
		DataDir string // Directory holding the hub and category database files
	}

	Sync struct {
		PatchesDir    string // Directory for exported and uploaded patch files
		DeviceName    string // Human-readable name the hub registers itself under
		RetentionDays int    // Days to keep patch files before pruning (0 = keep forever)
	}

	AutoExport struct {
		Enabled  bool
		Schedule string // Cron format: "*/15 * * * *" = every 15 minutes
	}

	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}

	Auth struct {
		Mode            AuthMode
		AdminPassword   string // Bootstrap admin password; hashed into settings on first run
		SessionLifetime time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}

	UI struct {
		TemplatesPath string
		StaticPath    string
	}

	Demo struct {
		Enabled bool // Read-only showcase mode; every mutating request is rejected
	}
)

// HubPath returns the path of the hub bookkeeping database.
func (d Database) HubPath() string {
	return filepath.Join(d.DataDir, "hub.db")
}

// CategoryPath returns the path of a category database file.
func (d Database) CategoryPath(category string) string {
	return filepath.Join(d.DataDir, category+".db")
}

// TasksPath returns the path of the background task queue database.
func (d Database) TasksPath() string {
	return filepath.Join(d.DataDir, "tasks.db")
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("data_dir", DefaultDataDir)
	v.SetDefault("patches_dir", DefaultPatchesDir)
	v.SetDefault("device_name", "hub")
	v.SetDefault("patch_retention_days", 30)
	v.SetDefault("templates_path", "./templates")
	v.SetDefault("static_path", "./static")

	// Auto-export defaults
	v.SetDefault("auto_export_enabled", true)
	v.SetDefault("auto_export_schedule", "*/15 * * * *") // Every 15 minutes

	// Auth defaults
	v.SetDefault("auth_mode", "none")
	v.SetDefault("auth_admin_password", "")
	v.SetDefault("auth_session_lifetime", "24h")  // 24 hours
	v.SetDefault("auth_bcrypt_cost", 12)          // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)     // HTTPS-only cookies
	v.SetDefault("auth_max_login_attempts", 5)    // Max failed attempts
	v.SetDefault("auth_rate_limit_window", "15m") // Window for counting attempts
	v.SetDefault("auth_lockout_duration", "30m")  // Lockout duration

	// Demo mode defaults
	v.SetDefault("demo_enabled", false)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			DataDir: v.GetString("DATA_DIR"),
		},
		Sync: Sync{
			PatchesDir:    v.GetString("PATCHES_DIR"),
			DeviceName:    v.GetString("DEVICE_NAME"),
			RetentionDays: v.GetInt("PATCH_RETENTION_DAYS"),
		},
		AutoExport: AutoExport{
			Enabled:  v.GetBool("AUTO_EXPORT_ENABLED"),
			Schedule: v.GetString("AUTO_EXPORT_SCHEDULE"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Auth: Auth{
			Mode:             AuthMode(v.GetString("AUTH_MODE")),
			AdminPassword:    v.GetString("AUTH_ADMIN_PASSWORD"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		UI: UI{
			TemplatesPath: v.GetString("TEMPLATES_PATH"),
			StaticPath:    v.GetString("STATIC_PATH"),
		},
		Demo: Demo{
			Enabled: v.GetBool("DEMO_ENABLED"),
		},
	}
}
