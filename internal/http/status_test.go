package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesinator/and-bible/internal/entities"
	"github.com/wesinator/and-bible/internal/sync"
)

func TestStatusController_Status(t *testing.T) {
	hub, cleanupHub := setupSyncDevice(t, "hub-device")
	defer cleanupHub()
	patchStore, deviceRepo, cleanupStores := setupHubStores(t)
	defer cleanupStores()

	require.NoError(t, hub.db.Create(&entities.Label{ID: "lbl-1", Name: "Favourites"}).Error)
	_, err := patchStore.Record("bookmarks", "bookmarks-100-aabbccdd.abp.gz", "dev-1", 2048, 5)
	require.NoError(t, err)
	device, err := deviceRepo.Register("Pixel 7")
	require.NoError(t, err)

	router := gin.New()
	sc := NewStatusController(map[string]*sync.Engine{"bookmarks": hub.engine}, patchStore, deviceRepo, "hub-device")
	router.GET("/api/v1/status", sc.Status)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/status", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var status StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))

	assert.Equal(t, "hub-device", status.DeviceID)
	require.Len(t, status.Categories, 1)
	assert.Equal(t, "bookmarks", status.Categories[0].Category)
	assert.EqualValues(t, 1, status.Categories[0].Pending)
	assert.EqualValues(t, 0, status.Categories[0].Watermark)
	assert.EqualValues(t, 1, status.Categories[0].Patches)

	require.Len(t, status.Devices, 1)
	assert.Equal(t, device.ID, status.Devices[0].ID)
	assert.Empty(t, status.Devices[0].Token)
}

func TestStatusController_WatermarkAdvancesAfterExport(t *testing.T) {
	hub, cleanupHub := setupSyncDevice(t, "hub-device")
	defer cleanupHub()
	patchStore, deviceRepo, cleanupStores := setupHubStores(t)
	defer cleanupStores()

	require.NoError(t, hub.db.Create(&entities.Label{ID: "lbl-1", Name: "Favourites"}).Error)

	engines := map[string]*sync.Engine{"bookmarks": hub.engine}
	router := newPatchesRouter(engines, patchStore, hub.patchDir, "hub-device")
	sc := NewStatusController(engines, patchStore, deviceRepo, "hub-device")
	router.GET("/api/v1/status", sc.Status)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/export/bookmarks", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/v1/status", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var status StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	require.Len(t, status.Categories, 1)
	assert.EqualValues(t, 0, status.Categories[0].Pending)
	assert.Positive(t, status.Categories[0].Watermark)
	assert.EqualValues(t, 1, status.Categories[0].Patches)
}

func TestStatusController_EmptyHub(t *testing.T) {
	patchStore, deviceRepo, cleanupStores := setupHubStores(t)
	defer cleanupStores()

	router := gin.New()
	sc := NewStatusController(map[string]*sync.Engine{}, patchStore, deviceRepo, "hub-device")
	router.GET("/api/v1/status", sc.Status)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/status", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"categories":[]`)
	assert.Contains(t, w.Body.String(), `"devices":[]`)
}
