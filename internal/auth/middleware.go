package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wesinator/and-bible/internal/config"
	"github.com/wesinator/and-bible/internal/entities"
)

// Context keys for auth data
const (
	ContextKeyDeviceID   = "auth_device_id"
	ContextKeyDeviceName = "auth_device_name"
	ContextKeyAuthType   = "auth_type" // "session", "bearer", or "none"
)

// AuthType indicates how the request was authenticated
type AuthType string

const (
	AuthTypeNone    AuthType = "none"
	AuthTypeSession AuthType = "session"
	AuthTypeBearer  AuthType = "bearer"
)

// Middleware handles authentication for HTTP requests.
type Middleware struct {
	service        *Service
	sessionManager *SessionManager
	config         config.Auth
	publicPaths    map[string]bool
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(service *Service, sessionManager *SessionManager, cfg config.Auth) *Middleware {
	publicPaths := map[string]bool{
		"/health":      true,
		"/login":       true,
		"/setup":       true,
		"/static":      true, // Static files prefix
		"/favicon.ico": true,
	}

	return &Middleware{
		service:        service,
		sessionManager: sessionManager,
		config:         cfg,
		publicPaths:    publicPaths,
	}
}

// Handler returns a Gin middleware handler that authenticates requests.
func (m *Middleware) Handler() gin.HandlerFunc {
	// If auth is disabled, every request passes through
	if m.config.Mode == config.AuthModeNone {
		return m.noAuthHandler()
	}

	return m.authHandler()
}

// noAuthHandler marks all requests as unauthenticated-but-allowed when
// auth is disabled.
func (m *Middleware) noAuthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKeyAuthType, AuthTypeNone)
		c.Next()
	}
}

// authHandler handles authentication when auth is enabled.
func (m *Middleware) authHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check if path is public
		if m.isPublicPath(c.Request.URL.Path) {
			c.Set(ContextKeyAuthType, AuthTypeNone)
			c.Next()
			return
		}

		// Try Bearer token first (for devices uploading/downloading patches)
		if device := m.tryBearerAuth(c); device != nil {
			m.setDeviceContext(c, device)
			c.Next()
			return
		}

		// Try session auth (for the admin web UI)
		if m.trySessionAuth(c) {
			c.Set(ContextKeyAuthType, AuthTypeSession)
			c.Next()
			return
		}

		// Not authenticated - check if this is an API request
		if m.isAPIRequest(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}

		// Web request - redirect to login
		c.Redirect(http.StatusFound, "/login?next="+c.Request.URL.Path)
		c.Abort()
	}
}

// tryBearerAuth attempts to authenticate using a device Bearer token.
func (m *Middleware) tryBearerAuth(c *gin.Context) *entities.Device {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil
	}

	// Extract token from "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil
	}

	device, err := m.service.ValidateToken(parts[1])
	if err != nil {
		return nil
	}

	return device
}

// trySessionAuth attempts to authenticate using the admin session cookie.
func (m *Middleware) trySessionAuth(c *gin.Context) bool {
	if m.sessionManager == nil {
		return false
	}
	return m.sessionManager.IsAuthenticated(c.Request)
}

// setDeviceContext stores device information in the Gin context.
func (m *Middleware) setDeviceContext(c *gin.Context, device *entities.Device) {
	c.Set(ContextKeyDeviceID, device.ID)
	c.Set(ContextKeyDeviceName, device.Name)
	c.Set(ContextKeyAuthType, AuthTypeBearer)
}

// isPublicPath checks if a path should be accessible without authentication.
func (m *Middleware) isPublicPath(path string) bool {
	// Exact match
	if m.publicPaths[path] {
		return true
	}

	// Prefix match for static files
	if strings.HasPrefix(path, "/static/") {
		return true
	}

	return false
}

// isAPIRequest determines if this is an API request vs web browser request.
func (m *Middleware) isAPIRequest(c *gin.Context) bool {
	// Check for API path prefix
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}

	// Check Accept header
	accept := c.GetHeader("Accept")
	if strings.Contains(accept, "application/json") {
		return true
	}

	// Check for Bearer token attempt (even if invalid)
	if c.GetHeader("Authorization") != "" {
		return true
	}

	return false
}

// RequireAuth returns a middleware that requires authentication.
// Use this for routes that must be protected even if they're not in the default list.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.config.Mode == config.AuthModeLocal && GetAuthType(c) == AuthTypeNone {
			if m.isAPIRequest(c) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "authentication required",
				})
			} else {
				c.Redirect(http.StatusFound, "/login?next="+c.Request.URL.Path)
				c.Abort()
			}
			return
		}
		c.Next()
	}
}

// Helper functions to extract auth data from Gin context

// GetDeviceID retrieves the authenticated device's id from the context.
// Returns "" for admin sessions and when auth is disabled.
func GetDeviceID(c *gin.Context) string {
	if id, exists := c.Get(ContextKeyDeviceID); exists {
		if deviceID, ok := id.(string); ok {
			return deviceID
		}
	}
	return ""
}

// GetDeviceName retrieves the authenticated device's name from the context.
func GetDeviceName(c *gin.Context) string {
	if name, exists := c.Get(ContextKeyDeviceName); exists {
		if deviceName, ok := name.(string); ok {
			return deviceName
		}
	}
	return ""
}

// GetAuthType retrieves the authentication method used.
func GetAuthType(c *gin.Context) AuthType {
	if t, exists := c.Get(ContextKeyAuthType); exists {
		if authType, ok := t.(AuthType); ok {
			return authType
		}
	}
	return AuthTypeNone
}

// IsAuthenticated returns true if the request passed authentication, either
// through a session or device token, or because auth is disabled.
func IsAuthenticated(c *gin.Context) bool {
	_, exists := c.Get(ContextKeyAuthType)
	return exists
}
