package http

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/wesinator/and-bible/internal/auth"
	"github.com/wesinator/and-bible/internal/entities"
	"github.com/wesinator/and-bible/internal/sync"
	"github.com/wesinator/and-bible/internal/tasks"
)

// PatchesController handles patch exchange: devices upload their exported
// patches here and poll for patches they have not applied yet.
type PatchesController struct {
	engines     map[string]*sync.Engine
	store       PatchStore
	taskClient  *tasks.Client
	patchesDir  string
	hubDeviceID string
}

// NewPatchesController creates a new PatchesController.
func NewPatchesController(engines map[string]*sync.Engine, store PatchStore, taskClient *tasks.Client, patchesDir, hubDeviceID string) *PatchesController {
	return &PatchesController{
		engines:     engines,
		store:       store,
		taskClient:  taskClient,
		patchesDir:  patchesDir,
		hubDeviceID: hubDeviceID,
	}
}

// maxPatchFileSize caps uploaded patch files. Patches carry deltas since
// the last export, so even a bulk first sync stays far under this.
var maxPatchFileSize int64 = 64 * 1024 * 1024 // 64 MB

// validPatchFileName checks an uploaded file name: a plain base name in the
// category's namespace with the patch extension, nothing path-shaped.
func validPatchFileName(name, category string) bool {
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return false
	}
	if !strings.HasPrefix(name, category+"-") {
		return false
	}
	return strings.HasSuffix(name, ".abp.gz") || strings.HasSuffix(name, ".abp")
}

// Upload handles POST /api/v1/patches/:category
// Accepts a multipart upload under the "patch" field, verifies it against
// the local schema and queues the merge. The file is rejected with 422
// when it comes from a different schema generation.
func (pc *PatchesController) Upload(c *gin.Context) {
	def, ok := parseCategoryParam(c)
	if !ok {
		return
	}
	engine, ok := pc.engines[string(def.Category)]
	if !ok {
		respondError(c, http.StatusServiceUnavailable, "category not available on this hub")
		return
	}

	file, err := c.FormFile("patch")
	if err != nil {
		respondBadRequest(c, "missing patch file upload")
		return
	}

	fileName := filepath.Base(file.Filename)
	if !validPatchFileName(fileName, string(def.Category)) {
		respondBadRequest(c, "invalid patch file name: "+file.Filename)
		return
	}

	if file.Size > maxPatchFileSize {
		respondError(c, http.StatusRequestEntityTooLarge, "patch file too large")
		return
	}

	if _, err := pc.store.GetByFileName(fileName); err == nil {
		respondError(c, http.StatusConflict, "patch already uploaded: "+fileName)
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		respondInternalError(c, err, "patch lookup")
		return
	}

	dst := filepath.Join(pc.patchesDir, fileName)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		respondInternalError(c, err, "patch upload save")
		return
	}

	entries, err := engine.CheckPatch(c.Request.Context(), dst)
	if err != nil {
		os.Remove(dst)
		if errors.Is(err, sync.ErrSchemaMismatch) {
			respondError(c, http.StatusUnprocessableEntity, err.Error())
			return
		}
		respondBadRequest(c, "not a readable patch file: "+err.Error())
		return
	}

	record, err := pc.store.Record(string(def.Category), fileName, auth.GetDeviceID(c), file.Size, entries)
	if err != nil {
		os.Remove(dst)
		respondInternalError(c, err, "patch record")
		return
	}

	// Merge asynchronously through the task queue when one is running, so
	// uploads return fast and retries survive restarts. Without a queue the
	// merge happens inline.
	if pc.taskClient != nil {
		ids, err := pc.taskClient.Add(tasks.ApplyPatchTask{
			Category: string(def.Category),
			Path:     dst,
		}).Save()
		if err != nil {
			respondInternalError(c, err, "patch apply enqueue")
			return
		}
		respondAccepted(c, "patch accepted", gin.H{
			"file_name": record.FileName,
			"entries":   entries,
			"task_id":   ids[0],
		})
		return
	}

	stats, err := engine.ApplyPatch(c.Request.Context(), dst)
	if err != nil {
		respondInternalError(c, err, "patch apply")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"file_name":  record.FileName,
		"entries":    stats.Entries,
		"violations": stats.Violations,
	})
}

// List handles GET /api/v1/patches/:category
// Returns the category's patch inventory, newest first. With ?since=<RFC3339>
// only patches recorded after that time are returned, oldest first, so a
// polling device can apply them in order.
func (pc *PatchesController) List(c *gin.Context) {
	def, ok := parseCategoryParam(c)
	if !ok {
		return
	}

	var (
		records []entities.PatchRecord
		err     error
	)
	if since := c.Query("since"); since != "" {
		after, perr := time.Parse(time.RFC3339, since)
		if perr != nil {
			respondBadRequest(c, "invalid since parameter, expected RFC3339 timestamp")
			return
		}
		records, err = pc.store.ListNewerThan(string(def.Category), after)
	} else {
		records, err = pc.store.List(string(def.Category))
	}
	if err != nil {
		respondInternalError(c, err, "patch list")
		return
	}

	if records == nil {
		records = []entities.PatchRecord{}
	}
	c.JSON(http.StatusOK, gin.H{
		"category": string(def.Category),
		"patches":  records,
	})
}

// Download handles GET /api/v1/patches/:category/download/:name
// Streams a stored patch file to the requesting device.
func (pc *PatchesController) Download(c *gin.Context) {
	def, ok := parseCategoryParam(c)
	if !ok {
		return
	}

	fileName := filepath.Base(c.Param("name"))
	record, err := pc.store.GetByFileName(fileName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "patch")
			return
		}
		respondInternalError(c, err, "patch lookup")
		return
	}
	if record.Category != string(def.Category) {
		respondNotFound(c, "patch")
		return
	}

	path := filepath.Join(pc.patchesDir, fileName)
	if _, err := os.Stat(path); err != nil {
		respondNotFound(c, "patch file")
		return
	}

	c.FileAttachment(path, fileName)
}

// Export handles POST /api/v1/export/:category
// Forces an export of the category's pending changes. Responds 204 when
// there is nothing to export, 201 with the new inventory record otherwise.
func (pc *PatchesController) Export(c *gin.Context) {
	def, ok := parseCategoryParam(c)
	if !ok {
		return
	}
	engine, ok := pc.engines[string(def.Category)]
	if !ok {
		respondError(c, http.StatusServiceUnavailable, "category not available on this hub")
		return
	}

	patch, err := engine.CreatePatch(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "patch export")
		return
	}
	if patch == nil {
		c.Status(http.StatusNoContent)
		return
	}

	record, err := pc.store.Record(string(def.Category), patch.FileName, pc.hubDeviceID, patch.SizeBytes, patch.EntryCount)
	if err != nil {
		respondInternalError(c, err, "patch record")
		return
	}
	respondCreated(c, record)
}
