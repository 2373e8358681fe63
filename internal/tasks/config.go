package tasks

import "time"

// Config sizes the background queue that applies uploaded patches and runs
// scheduled exports and cleanups.
type Config struct {
	// Workers is how many tasks may run concurrently. Patch merges for the
	// same category still serialize on the engine mutex.
	Workers int

	// MaxRetries caps retry attempts for a failed task.
	MaxRetries int

	// RetryDelay is the backoff between attempts.
	RetryDelay time.Duration

	// TaskTimeout bounds a single task execution. A patch merge is one
	// SQLite transaction, so hitting the timeout rolls it back cleanly.
	TaskTimeout time.Duration

	// ReleaseAfter returns a claimed-but-stalled task to the queue.
	ReleaseAfter time.Duration

	// CleanupInterval is how often finished tasks are swept from the
	// queue database.
	CleanupInterval time.Duration

	// RetentionDuration is how long finished tasks stay visible for the
	// status endpoints.
	RetentionDuration time.Duration
}

// DefaultConfig returns the queue sizing used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Workers:           2,
		MaxRetries:        3,
		RetryDelay:        1 * time.Minute,
		TaskTimeout:       5 * time.Minute,
		ReleaseAfter:      15 * time.Minute,
		CleanupInterval:   1 * time.Hour,
		RetentionDuration: 24 * time.Hour,
	}
}
