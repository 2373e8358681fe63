package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wesinator/and-bible/internal/entities"
	"github.com/wesinator/and-bible/internal/sync"
)

// StatusController reports the hub's sync state in one shot: per-category
// progress plus the device inventory.
type StatusController struct {
	engines     map[string]*sync.Engine
	patchStore  PatchStore
	deviceStore DeviceStore
	hubDeviceID string
}

// NewStatusController creates a new StatusController.
func NewStatusController(engines map[string]*sync.Engine, patchStore PatchStore, deviceStore DeviceStore, hubDeviceID string) *StatusController {
	return &StatusController{
		engines:     engines,
		patchStore:  patchStore,
		deviceStore: deviceStore,
		hubDeviceID: hubDeviceID,
	}
}

// CategoryStatus is one category's sync state.
type CategoryStatus struct {
	Category  string `json:"category"`
	Pending   int64  `json:"pending"`   // change log entries not yet exported
	Watermark int64  `json:"watermark"` // epoch millis of the newest exported entry
	Patches   int64  `json:"patches"`   // patch files in the inventory
}

// StatusResponse is the full hub status.
type StatusResponse struct {
	DeviceID   string            `json:"device_id"`
	Categories []CategoryStatus  `json:"categories"`
	Devices    []entities.Device `json:"devices"`
}

// Status handles GET /api/v1/status
func (sc *StatusController) Status(c *gin.Context) {
	patchCounts, err := sc.patchStore.CountByCategory()
	if err != nil {
		respondInternalError(c, err, "patch counts")
		return
	}

	categories := make([]CategoryStatus, 0, len(sc.engines))
	for _, name := range sortedEngineNames(sc.engines) {
		engine := sc.engines[name]
		pending, err := engine.CountPending()
		if err != nil {
			respondInternalError(c, err, "pending count")
			return
		}
		watermark, err := engine.Watermark()
		if err != nil {
			respondInternalError(c, err, "watermark")
			return
		}
		categories = append(categories, CategoryStatus{
			Category:  name,
			Pending:   pending,
			Watermark: watermark,
			Patches:   patchCounts[name],
		})
	}

	devices, err := sc.deviceStore.List()
	if err != nil {
		respondInternalError(c, err, "device list")
		return
	}
	if devices == nil {
		devices = []entities.Device{}
	}

	c.JSON(http.StatusOK, StatusResponse{
		DeviceID:   sc.hubDeviceID,
		Categories: categories,
		Devices:    devices,
	})
}
