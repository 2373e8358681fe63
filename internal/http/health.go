package http

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wesinator/and-bible/internal/database"
	"github.com/wesinator/and-bible/internal/sync"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

type HealthController struct {
	hub     *database.Hub
	engines map[string]*sync.Engine
	version string
}

func NewHealthController(hub *database.Hub, engines map[string]*sync.Engine, version string) *HealthController {
	return &HealthController{
		hub:     hub,
		engines: engines,
		version: version,
	}
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	// Check hub database connectivity
	if h.hub != nil {
		sqlDB, err := h.hub.DB.DB()
		if err != nil {
			checks["hub"] = "error: " + err.Error()
			status = "unhealthy"
		} else if err := sqlDB.Ping(); err != nil {
			checks["hub"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["hub"] = "ok"
		}
	} else {
		checks["hub"] = "not configured"
	}

	// Check each category database through its engine
	for _, name := range sortedEngineNames(h.engines) {
		if _, err := h.engines[name].Watermark(); err != nil {
			checks[name] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks[name] = "ok"
		}
	}

	health := HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}

// sortedEngineNames keeps check and status output in a stable order.
func sortedEngineNames(engines map[string]*sync.Engine) []string {
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
