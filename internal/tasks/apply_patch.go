package tasks

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/wesinator/and-bible/internal/sync"
)

// ApplyPatchTask merges one stored patch file into its category database.
// Uploads enqueue this instead of merging inline, so a burst of devices
// pushing at once is serialized through the queue rather than piling up on
// the engine mutex inside request handlers.
type ApplyPatchTask struct {
	Category string `json:"category"`
	Path     string `json:"path"`
}

// Config returns the queue configuration for patch apply tasks.
func (t ApplyPatchTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "apply_patch",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ApplyPatchProcessor creates a processor function for ApplyPatchTask. The
// engines map resolves the category named by the task; merge semantics, FK
// repair and idempotence all live in the engine.
func ApplyPatchProcessor(engines map[string]*sync.Engine) backlite.QueueProcessor[ApplyPatchTask] {
	return func(ctx context.Context, task ApplyPatchTask) error {
		engine, ok := engines[task.Category]
		if !ok {
			return fmt.Errorf("unknown category: %s", task.Category)
		}

		stats, err := engine.ApplyPatch(ctx, task.Path)
		if err != nil {
			return fmt.Errorf("apply %s: %w", filepath.Base(task.Path), err)
		}

		if stats.Violations > 0 {
			log.Printf("[TASK] Applied %s: %d entries, %d row(s) dropped by repair",
				filepath.Base(task.Path), stats.Entries, stats.Violations)
		} else {
			log.Printf("[TASK] Applied %s: %d entries", filepath.Base(task.Path), stats.Entries)
		}

		return nil
	}
}

// NewApplyPatchQueue creates a backlite queue for patch apply tasks.
func NewApplyPatchQueue(engines map[string]*sync.Engine) backlite.Queue {
	return backlite.NewQueue(ApplyPatchProcessor(engines))
}
