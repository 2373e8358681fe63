package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/wesinator/and-bible/internal/entities"
	"github.com/wesinator/and-bible/internal/sync"
)

// PatchRecorder stores inventory entries for patch files that landed on disk.
type PatchRecorder interface {
	Record(category, fileName, deviceID string, sizeBytes, entryCount int64) (*entities.PatchRecord, error)
}

// ExportPatchTask exports the pending changes of one category into a new
// patch file and records it in the hub inventory.
type ExportPatchTask struct {
	Category string `json:"category"`
}

// Config returns the queue configuration for patch export tasks.
func (t ExportPatchTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "export_patch",
		MaxAttempts: 2,
		Backoff:     time.Minute,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ExportPatchProcessor creates a processor function for ExportPatchTask.
// An export with nothing pending is a successful no-op.
func ExportPatchProcessor(engines map[string]*sync.Engine, recorder PatchRecorder) backlite.QueueProcessor[ExportPatchTask] {
	return func(ctx context.Context, task ExportPatchTask) error {
		engine, ok := engines[task.Category]
		if !ok {
			return fmt.Errorf("unknown category: %s", task.Category)
		}

		patch, err := engine.CreatePatch(ctx)
		if err != nil {
			return fmt.Errorf("export %s: %w", task.Category, err)
		}
		if patch == nil {
			log.Printf("[TASK] Export %s: no changes", task.Category)
			return nil
		}

		if recorder != nil {
			_, err = recorder.Record(string(patch.Category), patch.FileName, engine.DeviceID(),
				patch.SizeBytes, patch.EntryCount)
			if err != nil {
				return fmt.Errorf("record %s: %w", patch.FileName, err)
			}
		}

		return nil
	}
}

// NewExportPatchQueue creates a backlite queue for patch export tasks.
func NewExportPatchQueue(engines map[string]*sync.Engine, recorder PatchRecorder) backlite.Queue {
	return backlite.NewQueue(ExportPatchProcessor(engines, recorder))
}
