package http

import (
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"github.com/wesinator/and-bible/internal/demo"
	"github.com/wesinator/and-bible/internal/sync"
)

// UIController renders the admin pages: a dashboard over the sync state
// and a device management page.
type UIController struct {
	engines      map[string]*sync.Engine
	patchStore   PatchStore
	deviceStore  DeviceStore
	bookmarks    BookmarkStore
	readingPlans ReadingPlanStore
	workspaces   WorkspaceStore
}

// NewUIController creates a new UIController.
func NewUIController(engines map[string]*sync.Engine, patchStore PatchStore, deviceStore DeviceStore,
	bookmarks BookmarkStore, readingPlans ReadingPlanStore, workspaces WorkspaceStore) *UIController {
	return &UIController{
		engines:      engines,
		patchStore:   patchStore,
		deviceStore:  deviceStore,
		bookmarks:    bookmarks,
		readingPlans: readingPlans,
		workspaces:   workspaces,
	}
}

// categoryView is one dashboard row per synchronized category.
type categoryView struct {
	Name        string
	Description string
	Pending     int64
	Watermark   string
	Patches     int64
}

// patchView is one dashboard row per recent patch file.
type patchView struct {
	FileName string
	Category string
	Size     string
	Entries  int64
	Age      string
}

// deviceView is one row on the devices page.
type deviceView struct {
	ID       string
	Name     string
	Created  string
	LastSeen string
}

// formatWatermark renders an epoch-millis watermark for humans.
func formatWatermark(wm int64) string {
	if wm == 0 {
		return "never"
	}
	return time.UnixMilli(wm).Format("2006-01-02 15:04:05")
}

// Dashboard handles GET /
func (u *UIController) Dashboard(c *gin.Context) {
	categories := make([]categoryView, 0, len(u.engines))
	for _, name := range sortedEngineNames(u.engines) {
		engine := u.engines[name]
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
		categories = append(categories, categoryView{
			Name:        name,
			Description: engine.Def().Description,
			Pending:     pending,
			Watermark:   formatWatermark(watermark),
		})
	}

	if u.patchStore != nil {
		counts, err := u.patchStore.CountByCategory()
		if err != nil {
			respondInternalError(c, err, "patch counts")
			return
		}
		for i := range categories {
			categories[i].Patches = counts[categories[i].Name]
		}
	}

	var recent []patchView
	if u.patchStore != nil {
		records, err := u.patchStore.ListAll()
		if err != nil {
			respondInternalError(c, err, "patch list")
			return
		}
		if len(records) > 10 {
			records = records[:10]
		}
		for _, r := range records {
			recent = append(recent, patchView{
				FileName: r.FileName,
				Category: r.Category,
				Size:     humanize.Bytes(uint64(r.SizeBytes)),
				Entries:  r.EntryCount,
				Age:      humanize.Time(r.CreatedAt),
			})
		}
	}

	var deviceCount int
	if u.deviceStore != nil {
		devices, err := u.deviceStore.List()
		if err != nil {
			respondInternalError(c, err, "device list")
			return
		}
		deviceCount = len(devices)
	}

	var bookmarkCount int64
	if u.bookmarks != nil {
		n, err := u.bookmarks.CountBookmarks()
		if err != nil {
			respondInternalError(c, err, "bookmark count")
			return
		}
		bookmarkCount = n
	}

	var planCount, workspaceCount int
	if u.readingPlans != nil {
		plans, err := u.readingPlans.ListPlans()
		if err != nil {
			respondInternalError(c, err, "reading plan list")
			return
		}
		planCount = len(plans)
	}
	if u.workspaces != nil {
		workspaces, err := u.workspaces.ListWorkspaces()
		if err != nil {
			respondInternalError(c, err, "workspace list")
			return
		}
		workspaceCount = len(workspaces)
	}

	c.HTML(http.StatusOK, "dashboard.html", gin.H{
		"Title":          "Sync Hub",
		"Auth":           GetAuthTemplateData(c),
		"DemoMode":       c.GetBool(demo.ContextKeyDemoMode),
		"Categories":     categories,
		"RecentPatches":  recent,
		"DeviceCount":    deviceCount,
		"BookmarkCount":  bookmarkCount,
		"PlanCount":      planCount,
		"WorkspaceCount": workspaceCount,
	})
}

// DevicesPage handles GET /devices
func (u *UIController) DevicesPage(c *gin.Context) {
	u.renderDevicesPage(c, nil, "")
}

// CreateDevice handles POST /devices
// Registers a device from the admin form and shows its token once.
func (u *UIController) CreateDevice(c *gin.Context) {
	name := c.PostForm("name")
	if name == "" {
		u.renderDevicesPage(c, nil, "Device name is required")
		return
	}

	device, err := u.deviceStore.Register(name)
	if err != nil {
		respondInternalError(c, err, "device registration")
		return
	}
	u.renderDevicesPage(c, device, "")
}

// DeleteDevice handles POST /devices/:id/delete
func (u *UIController) DeleteDevice(c *gin.Context) {
	if err := u.deviceStore.Delete(c.Param("id")); err != nil {
		respondInternalError(c, err, "device delete")
		return
	}
	c.Redirect(http.StatusFound, "/devices")
}

func (u *UIController) renderDevicesPage(c *gin.Context, newDevice any, errorMsg string) {
	devices, err := u.deviceStore.List()
	if err != nil {
		respondInternalError(c, err, "device list")
		return
	}

	views := make([]deviceView, 0, len(devices))
	for _, d := range devices {
		view := deviceView{
			ID:       d.ID,
			Name:     d.Name,
			Created:  humanize.Time(d.CreatedAt),
			LastSeen: "never",
		}
		if d.LastSeenAt != nil {
			view.LastSeen = humanize.Time(*d.LastSeenAt)
		}
		views = append(views, view)
	}

	c.HTML(http.StatusOK, "devices.html", gin.H{
		"Title":     "Devices",
		"Auth":      GetAuthTemplateData(c),
		"DemoMode":  c.GetBool(demo.ContextKeyDemoMode),
		"Devices":   views,
		"NewDevice": newDevice,
		"Error":     errorMsg,
	})
}
