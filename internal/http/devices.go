package http

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/wesinator/and-bible/internal/auth"
)

// DevicesController handles the hub's device registry.
type DevicesController struct {
	store DeviceStore
}

// NewDevicesController creates a new DevicesController.
func NewDevicesController(store DeviceStore) *DevicesController {
	return &DevicesController{store: store}
}

// RegisterDeviceRequest is the request body for registering a device.
type RegisterDeviceRequest struct {
	Name string `json:"name" form:"name"`
}

// RegisteredDeviceResponse carries the freshly issued token. This is the
// only place the token ever leaves the hub; the Device entity itself never
// serializes it.
type RegisteredDeviceResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}

// Register handles POST /api/v1/devices
// Registers a new device and returns its access token once.
func (dc *DevicesController) Register(c *gin.Context) {
	var req RegisterDeviceRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		respondBadRequest(c, "device name is required")
		return
	}

	device, err := dc.store.Register(name)
	if err != nil {
		respondInternalError(c, err, "device registration")
		return
	}

	respondCreated(c, RegisteredDeviceResponse{
		ID:        device.ID,
		Name:      device.Name,
		Token:     device.Token,
		CreatedAt: device.CreatedAt,
	})
}

// List handles GET /api/v1/devices
// Returns all registered devices. Tokens are never included.
func (dc *DevicesController) List(c *gin.Context) {
	devices, err := dc.store.List()
	if err != nil {
		respondInternalError(c, err, "device list")
		return
	}
	c.JSON(200, gin.H{"devices": devices})
}

// Me handles GET /api/v1/devices/me
// Returns the device the request authenticated as.
func (dc *DevicesController) Me(c *gin.Context) {
	deviceID := auth.GetDeviceID(c)
	if deviceID == "" {
		respondNotFound(c, "device context")
		return
	}

	device, err := dc.store.GetByID(deviceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "device")
			return
		}
		respondInternalError(c, err, "device lookup")
		return
	}
	c.JSON(200, device)
}

// Delete handles DELETE /api/v1/devices/:id
// Removes a device and revokes its token.
func (dc *DevicesController) Delete(c *gin.Context) {
	id := c.Param("id")

	if _, err := dc.store.GetByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "device")
			return
		}
		respondInternalError(c, err, "device lookup")
		return
	}

	if err := dc.store.Delete(id); err != nil {
		respondInternalError(c, err, "device delete")
		return
	}
	respondSuccess(c, "device removed")
}
