// Package auth protects the hub's admin UI and patch API.
//
// It supports two authentication modes:
//   - "none": No authentication required (default), for hubs on trusted networks
//   - "local": Admin password with session cookies for the web UI and
//     device Bearer tokens for the patch API
//
// # Configuration
//
// Set AUTH_MODE environment variable to select the mode:
//
//	AUTH_MODE=none   # Default, no auth required
//	AUTH_MODE=local  # Requires admin password and registered devices
//
// For local mode, additional configuration:
//
//	AUTH_ADMIN_PASSWORD=<bootstrap pw>  # Hashed into settings on first run
//	AUTH_SESSION_LIFETIME=24h           # Session duration
//	AUTH_BCRYPT_COST=12                 # bcrypt cost factor
//	AUTH_SECURE_COOKIES=true            # HTTPS-only cookies
//
// # Usage
//
// Initialize authentication in entrypoint:
//
//	authService := auth.NewService(settingsRepo, devicesRepo, cfg.Auth)
//	authMiddleware := auth.NewMiddleware(authService, sessionManager, cfg.Auth)
//	router.Use(authMiddleware.Handler())
//
// Extract the calling device in API handlers:
//
//	deviceID := auth.GetDeviceID(c)  // "" in "none" mode or for admin sessions
package auth
