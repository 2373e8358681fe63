package auth

import (
	"errors"
	"html/template"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/wesinator/and-bible/internal/config"
)

// setupMutex serializes setup requests to prevent race conditions.
var setupMutex sync.Mutex

// isLocalPath validates that a redirect path is local to prevent open redirect attacks.
// Returns true if the path is safe for redirect (local path only).
func isLocalPath(path string) bool {
	if path == "" {
		return false
	}

	// Must start with /
	if !strings.HasPrefix(path, "/") {
		return false
	}

	// Reject protocol-relative URLs (//evil.com)
	if strings.HasPrefix(path, "//") {
		return false
	}

	// Reject URLs with schemes
	if strings.Contains(path, "://") {
		return false
	}

	// Reject paths with backslashes (potential bypass attempts)
	if strings.Contains(path, "\\") {
		return false
	}

	return true
}

// sanitizeRedirectPath returns a safe redirect path, defaulting to "/" if invalid.
func sanitizeRedirectPath(path string) string {
	if isLocalPath(path) {
		return path
	}
	return "/"
}

// AuthController handles admin login, logout and first-run setup.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	templates      *template.Template
	config         config.Auth
	rateLimiter    *RateLimiter
}

// NewAuthController creates a new authentication controller.
func NewAuthController(service *Service, sessionManager *SessionManager, templatesPath string, cfg config.Auth) (*AuthController, error) {
	// Parse auth templates
	pattern := filepath.Join(templatesPath, "auth", "*.html")
	tmpl, err := template.ParseGlob(pattern)
	if err != nil {
		// Templates might not exist yet, create controller without them
		tmpl = nil
	}

	// Initialize rate limiter with configuration
	rateLimiter := NewRateLimiter(RateLimitConfig{
		MaxAttempts:     cfg.MaxLoginAttempts,
		WindowDuration:  cfg.RateLimitWindow,
		LockoutDuration: cfg.LockoutDuration,
	})

	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		templates:      tmpl,
		config:         cfg,
		rateLimiter:    rateLimiter,
	}, nil
}

// RegisterRoutes registers authentication routes on the router.
func (ac *AuthController) RegisterRoutes(router *gin.Engine) {
	router.GET("/login", ac.LoginPage)
	router.POST("/login", ac.Login)
	router.POST("/logout", ac.Logout)
	router.GET("/logout", ac.Logout) // Support GET for simple logout links
	router.GET("/setup", ac.SetupPage)
	router.POST("/setup", ac.Setup)
}

// Stop cleans up resources (rate limiter background goroutine).
func (ac *AuthController) Stop() {
	if ac.rateLimiter != nil {
		ac.rateLimiter.Stop()
	}
}

// LoginPage renders the login form.
func (ac *AuthController) LoginPage(c *gin.Context) {
	// If already authenticated, redirect to home
	if ac.sessionManager != nil && ac.sessionManager.IsAuthenticated(c.Request) {
		c.Redirect(http.StatusFound, "/")
		return
	}

	// Sanitize redirect path to prevent open redirect attacks
	next := sanitizeRedirectPath(c.Query("next"))

	// Check if setup is needed
	configured, _ := ac.service.HasAdminPassword()
	if !configured {
		c.Redirect(http.StatusFound, "/setup")
		return
	}

	ac.renderTemplate(c, "login.html", gin.H{
		"Title":     "Login",
		"Next":      next,
		"CSRFToken": GetCSRFToken(c),
		"Error":     c.Query("error"),
	})
}

// Login handles the login form submission.
func (ac *AuthController) Login(c *gin.Context) {
	password := c.PostForm("password")
	// Sanitize redirect path to prevent open redirect attacks
	next := sanitizeRedirectPath(c.PostForm("next"))
	clientIP := c.ClientIP()

	// Check rate limiting before attempting authentication
	if ac.rateLimiter != nil {
		allowed, retryAfter := ac.rateLimiter.Allow(clientIP)
		if !allowed {
			c.Header("Retry-After", retryAfter.String())
			ac.renderTemplate(c, "login.html", gin.H{
				"Title":      "Login",
				"Next":       next,
				"CSRFToken":  GetCSRFToken(c),
				"Error":      "Too many login attempts. Please try again later.",
				"RetryAfter": retryAfter.String(),
			})
			return
		}
	}

	// Verify the admin password
	if err := ac.service.Authenticate(password); err != nil {
		// Record failed attempt for rate limiting
		if ac.rateLimiter != nil {
			ac.rateLimiter.RecordFailure(clientIP)
		}

		errorMsg := "Invalid password"
		if errors.Is(err, ErrNotConfigured) {
			c.Redirect(http.StatusFound, "/setup")
			return
		}

		ac.renderTemplate(c, "login.html", gin.H{
			"Title":     "Login",
			"Next":      next,
			"CSRFToken": GetCSRFToken(c),
			"Error":     errorMsg,
		})
		return
	}

	// Record successful login (clears rate limit tracking)
	if ac.rateLimiter != nil {
		ac.rateLimiter.RecordSuccess(clientIP)
	}

	// Create session
	if ac.sessionManager != nil {
		if err := ac.sessionManager.CreateAdminSession(c.Request); err != nil {
			ac.renderTemplate(c, "login.html", gin.H{
				"Title":     "Login",
				"Next":      next,
				"CSRFToken": GetCSRFToken(c),
				"Error":     "Failed to create session",
			})
			return
		}
	}

	c.Redirect(http.StatusFound, next)
}

// Logout destroys the session and redirects to login.
func (ac *AuthController) Logout(c *gin.Context) {
	if ac.sessionManager != nil {
		_ = ac.sessionManager.DestroySession(c.Request)
	}
	c.Redirect(http.StatusFound, "/login")
}

// SetupPage renders the initial admin password form.
func (ac *AuthController) SetupPage(c *gin.Context) {
	// Only show setup if no password is configured
	configured, err := ac.service.HasAdminPassword()
	if err != nil {
		ac.renderTemplate(c, "setup.html", gin.H{
			"Title":     "Initial Setup",
			"CSRFToken": GetCSRFToken(c),
			"Error":     "Database error. Please try again.",
		})
		return
	}
	if configured {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	// Check for error query parameter (e.g., from CSRF failure redirect)
	errorMsg := c.Query("error")

	ac.renderTemplate(c, "setup.html", gin.H{
		"Title":     "Initial Setup",
		"CSRFToken": GetCSRFToken(c),
		"Error":     errorMsg,
	})
}

// Setup handles the initial admin password creation.
// Uses a mutex to prevent race conditions where concurrent requests both pass the configured check.
func (ac *AuthController) Setup(c *gin.Context) {
	// Serialize setup requests to prevent race conditions
	setupMutex.Lock()
	defer setupMutex.Unlock()

	// Only allow setup if no password exists (check while holding mutex)
	configured, err := ac.service.HasAdminPassword()
	if err != nil {
		ac.renderTemplate(c, "setup.html", gin.H{
			"Title":     "Initial Setup",
			"CSRFToken": GetCSRFToken(c),
			"Error":     "Database error. Please try again.",
		})
		return
	}
	if configured {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	password := c.PostForm("password")
	confirmPassword := c.PostForm("confirm_password")

	// Validate passwords match
	if password != confirmPassword {
		ac.renderTemplate(c, "setup.html", gin.H{
			"Title":     "Initial Setup",
			"CSRFToken": GetCSRFToken(c),
			"Error":     "Passwords do not match",
		})
		return
	}

	if err := ac.service.SetAdminPassword(password); err != nil {
		errorMsg := "Failed to set password"
		switch {
		case errors.Is(err, ErrPasswordTooShort):
			errorMsg = "Password must be at least 12 characters"
		case errors.Is(err, ErrPasswordTooLong):
			errorMsg = "Password exceeds maximum length of 72 characters"
		}

		ac.renderTemplate(c, "setup.html", gin.H{
			"Title":     "Initial Setup",
			"CSRFToken": GetCSRFToken(c),
			"Error":     errorMsg,
		})
		return
	}

	// Create session for the freshly configured admin
	if ac.sessionManager != nil {
		_ = ac.sessionManager.CreateAdminSession(c.Request)
	}

	c.Redirect(http.StatusFound, "/")
}

// renderTemplate renders an auth template or falls back to JSON.
func (ac *AuthController) renderTemplate(c *gin.Context, name string, data gin.H) {
	if ac.templates == nil {
		c.JSON(http.StatusOK, data)
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := ac.templates.ExecuteTemplate(c.Writer, name, data); err != nil {
		c.String(http.StatusInternalServerError, "Template error: %v", err)
	}
}
