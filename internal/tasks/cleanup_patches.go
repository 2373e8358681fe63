package tasks

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/wesinator/and-bible/internal/entities"
)

// PatchPruner removes expired patch records, returning them so the caller
// can unlink the files.
type PatchPruner interface {
	DeleteOlderThan(cutoff time.Time) ([]entities.PatchRecord, error)
}

// CleanupPatchesTask removes patch files older than the retention window.
// Every device is expected to have fetched them long before; anything that
// old would be re-derived from a fresh export anyway.
type CleanupPatchesTask struct{}

// Config returns the queue configuration for patch cleanup tasks.
func (t CleanupPatchesTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_patches",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CleanupPatchesProcessor creates a processor function for CleanupPatchesTask.
func CleanupPatchesProcessor(pruner PatchPruner, patchesDir string, retentionDays int) backlite.QueueProcessor[CleanupPatchesTask] {
	return func(ctx context.Context, task CleanupPatchesTask) error {
		if pruner == nil {
			return fmt.Errorf("patch pruner not configured")
		}

		cutoff := time.Now().AddDate(0, 0, -retentionDays)
		records, err := pruner.DeleteOlderThan(cutoff)
		if err != nil {
			return fmt.Errorf("cleanup patches: %w", err)
		}

		removed := 0
		for _, record := range records {
			path := filepath.Join(patchesDir, record.FileName)
			if err := os.Remove(path); err != nil {
				if !os.IsNotExist(err) {
					log.Printf("[TASK] Failed to remove %s: %v", record.FileName, err)
				}
				continue
			}
			removed++
		}

		log.Printf("[TASK] Pruned %d patch record(s), removed %d file(s)", len(records), removed)
		return nil
	}
}

// NewCleanupPatchesQueue creates a backlite queue for patch cleanup tasks.
func NewCleanupPatchesQueue(pruner PatchPruner, patchesDir string, retentionDays int) backlite.Queue {
	return backlite.NewQueue(CleanupPatchesProcessor(pruner, patchesDir, retentionDays))
}
