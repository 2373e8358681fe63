package http

import (
	"github.com/gin-gonic/gin"

	"github.com/wesinator/and-bible/internal/auth"
	"github.com/wesinator/and-bible/internal/config"
)

// AuthTemplateData holds authentication info for templates.
type AuthTemplateData struct {
	Enabled   bool   // Whether auth is enabled (AuthModeLocal)
	LoggedIn  bool   // Whether an admin session is active
	CSRFToken string // CSRF token for forms (empty when auth disabled)
}

// AuthContextMiddleware injects authentication data into Gin context for templates.
// Templates can access auth data via .Auth in the template data.
func AuthContextMiddleware(authMode config.AuthMode) gin.HandlerFunc {
	authEnabled := authMode == config.AuthModeLocal

	return func(c *gin.Context) {
		authData := AuthTemplateData{
			Enabled:   authEnabled,
			LoggedIn:  false,
			CSRFToken: auth.GetCSRFToken(c),
		}

		if authEnabled && auth.GetAuthType(c) == auth.AuthTypeSession {
			authData.LoggedIn = true
		}

		c.Set("auth_template_data", authData)
		c.Next()
	}
}

// GetAuthTemplateData retrieves auth data from context for use in templates.
func GetAuthTemplateData(c *gin.Context) AuthTemplateData {
	if data, exists := c.Get("auth_template_data"); exists {
		if authData, ok := data.(AuthTemplateData); ok {
			return authData
		}
	}
	return AuthTemplateData{}
}
