package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wesinator/and-bible/internal/entities"
	"github.com/wesinator/and-bible/internal/utils"
)

// ContentController exposes read-only views over the synchronized
// category databases. All writes go through patch imports; these
// endpoints exist so admins and devices can inspect what the hub
// currently holds.
type ContentController struct {
	bookmarks    BookmarkStore
	readingPlans ReadingPlanStore
	workspaces   WorkspaceStore
}

// NewContentController creates a new ContentController.
func NewContentController(bookmarks BookmarkStore, readingPlans ReadingPlanStore, workspaces WorkspaceStore) *ContentController {
	return &ContentController{
		bookmarks:    bookmarks,
		readingPlans: readingPlans,
		workspaces:   workspaces,
	}
}

// labelResponse augments a label with its color in CSS-usable form.
// The reader apps store colors as signed 32-bit ARGB integers.
type labelResponse struct {
	entities.Label
	HexColor string `json:"hex_color"`
}

// ListLabels handles GET /api/v1/labels
func (cc *ContentController) ListLabels(c *gin.Context) {
	labels, err := cc.bookmarks.ListLabels()
	if err != nil {
		respondInternalError(c, err, "label list")
		return
	}
	out := make([]labelResponse, 0, len(labels))
	for _, l := range labels {
		out = append(out, labelResponse{Label: l, HexColor: utils.ColorToHexARGB(l.Color)})
	}
	c.JSON(http.StatusOK, gin.H{"labels": out})
}

// ListBookmarks handles GET /api/v1/bookmarks
func (cc *ContentController) ListBookmarks(c *gin.Context) {
	bookmarks, err := cc.bookmarks.ListBookmarks()
	if err != nil {
		respondInternalError(c, err, "bookmark list")
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmarks": bookmarks})
}

// ListReadingPlans handles GET /api/v1/readingplans
func (cc *ContentController) ListReadingPlans(c *gin.Context) {
	plans, err := cc.readingPlans.ListPlans()
	if err != nil {
		respondInternalError(c, err, "reading plan list")
		return
	}
	c.JSON(http.StatusOK, gin.H{"reading_plans": plans})
}

// ListWorkspaces handles GET /api/v1/workspaces
func (cc *ContentController) ListWorkspaces(c *gin.Context) {
	workspaces, err := cc.workspaces.ListWorkspaces()
	if err != nil {
		respondInternalError(c, err, "workspace list")
		return
	}
	c.JSON(http.StatusOK, gin.H{"workspaces": workspaces})
}
