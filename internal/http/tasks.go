package http

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/wesinator/and-bible/internal/tasks"
)

// TasksController handles task queue management endpoints.
type TasksController struct {
	client     *tasks.Client
	patchesDir string
}

// NewTasksController creates a new TasksController.
func NewTasksController(client *tasks.Client, patchesDir string) *TasksController {
	return &TasksController{client: client, patchesDir: patchesDir}
}

// TaskTypeInfo describes an available task type.
type TaskTypeInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Queue       string `json:"queue"`
}

// ListTaskTypes handles GET /api/v1/tasks/types
// Returns the list of available task types that can be triggered.
func (tc *TasksController) ListTaskTypes(c *gin.Context) {
	types := []TaskTypeInfo{
		{
			Type:        "export_patch",
			Description: "Export a category's pending changes into a patch file",
			Queue:       "export_patch",
		},
		{
			Type:        "apply_patch",
			Description: "Merge a stored patch file into its category database",
			Queue:       "apply_patch",
		},
		{
			Type:        "cleanup_patches",
			Description: "Prune patch files past the retention window",
			Queue:       "cleanup_patches",
		},
	}

	c.JSON(http.StatusOK, gin.H{
		"task_types": types,
	})
}

// GetTaskStatus handles GET /api/v1/tasks/:id
// Returns the status of a specific task.
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")
	if taskID == "" {
		respondBadRequest(c, "task ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.client.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": taskStatusToString(status),
	})
}

// RunTaskRequest is the request body for running a task.
type RunTaskRequest struct {
	// Category is required for export_patch and apply_patch
	Category string `json:"category,omitempty" form:"category"`
	// FileName is required for apply_patch
	FileName string `json:"file_name,omitempty" form:"file_name"`
}

// RunTask handles POST /api/v1/tasks/:type/run
// Manually triggers a task of the specified type.
func (tc *TasksController) RunTask(c *gin.Context) {
	taskType := c.Param("type")

	var req RunTaskRequest
	if c.ContentType() == "application/x-www-form-urlencoded" || c.ContentType() == "multipart/form-data" {
		_ = c.ShouldBind(&req)
	} else if c.Request.ContentLength > 0 {
		_ = c.ShouldBindJSON(&req)
	}

	var task backlite.Task
	switch taskType {
	case "export_patch":
		if req.Category == "" {
			respondBadRequest(c, "category is required for export_patch task")
			return
		}
		task = tasks.ExportPatchTask{Category: req.Category}

	case "apply_patch":
		if req.Category == "" || req.FileName == "" {
			respondBadRequest(c, "category and file_name are required for apply_patch task")
			return
		}
		task = tasks.ApplyPatchTask{
			Category: req.Category,
			Path:     filepath.Join(tc.patchesDir, filepath.Base(req.FileName)),
		}

	case "cleanup_patches":
		task = tasks.CleanupPatchesTask{}

	default:
		respondBadRequest(c, fmt.Sprintf("unknown task type: %s", taskType))
		return
	}

	ids, err := tc.client.Add(task).Save()
	if err != nil {
		respondInternalError(c, err, "task enqueue")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"task_id": ids[0],
		"type":    taskType,
		"message": "task enqueued",
	})
}

func taskStatusToString(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
