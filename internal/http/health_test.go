package http

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesinator/and-bible/internal/database"
	"github.com/wesinator/and-bible/internal/sync"
)

func setupTestHub(t *testing.T) (*database.Hub, func()) {
	t.Helper()
	hubPath := "./test_http_hub_" + t.Name() + ".db"
	hub, err := database.OpenHub(hubPath)
	require.NoError(t, err)

	cleanup := func() {
		hub.Close()
		os.Remove(hubPath)
	}
	return hub, cleanup
}

func TestHealthController_Healthy(t *testing.T) {
	hub, cleanupHub := setupTestHub(t)
	defer cleanupHub()
	device, cleanupDevice := setupSyncDevice(t, "hub-device")
	defer cleanupDevice()

	router := gin.New()
	hc := NewHealthController(hub, map[string]*sync.Engine{"bookmarks": device.engine}, "1.2.3")
	router.GET("/health", hc.Status)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status": "healthy"`)
	assert.Contains(t, w.Body.String(), `"hub": "ok"`)
	assert.Contains(t, w.Body.String(), `"bookmarks": "ok"`)
	assert.Contains(t, w.Body.String(), "1.2.3")
}

func TestHealthController_UnhealthyWhenHubClosed(t *testing.T) {
	hub, cleanupHub := setupTestHub(t)
	defer cleanupHub()

	sqlDB, err := hub.DB.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	router := gin.New()
	hc := NewHealthController(hub, nil, "")
	router.GET("/health", hc.Status)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status": "unhealthy"`)
}

func TestHealthController_NoHubConfigured(t *testing.T) {
	router := gin.New()
	hc := NewHealthController(nil, nil, "")
	router.GET("/health", hc.Status)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"hub": "not configured"`)
}
