package scheduler

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wesinator/and-bible/internal/config"
	"github.com/wesinator/and-bible/internal/entities"
	hubsync "github.com/wesinator/and-bible/internal/sync"
)

// PatchRecorder stores inventory entries for exported patches.
type PatchRecorder interface {
	Record(category, fileName, deviceID string, sizeBytes, entryCount int64) (*entities.PatchRecord, error)
}

// SettingsStore reads runtime overrides and records the last export time.
type SettingsStore interface {
	GetValue(key string) (string, error)
	Set(key, value string) error
}

// cronParser accepts standard five-field schedules.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// AutoExportScheduler periodically exports every category's pending
// changes into patch files, so devices polling the hub always find its
// latest state without anyone pressing a button.
type AutoExportScheduler struct {
	engines  map[string]*hubsync.Engine
	recorder PatchRecorder
	settings SettingsStore
	config   config.AutoExport

	cron        *cron.Cron
	entryID     cron.EntryID
	mu          sync.RWMutex
	isRunning   bool
	isExporting bool
	cancelFunc  context.CancelFunc
}

// NewAutoExportScheduler creates a new scheduler instance.
func NewAutoExportScheduler(engines map[string]*hubsync.Engine, recorder PatchRecorder, settings SettingsStore, cfg config.AutoExport) *AutoExportScheduler {
	return &AutoExportScheduler{
		engines:  engines,
		recorder: recorder,
		settings: settings,
		config:   cfg,
		cron:     cron.New(cron.WithParser(cronParser)),
	}
}

// enabled resolves the on/off switch: a value stored in settings wins over
// the static configuration.
func (s *AutoExportScheduler) enabled() bool {
	if s.settings != nil {
		if v, err := s.settings.GetValue(entities.SettingKeyAutoExportEnabled); err == nil && v != "" {
			if enabled, err := strconv.ParseBool(v); err == nil {
				return enabled
			}
		}
	}
	return s.config.Enabled
}

// schedule resolves the cron schedule the same way.
func (s *AutoExportScheduler) schedule() string {
	if s.settings != nil {
		if v, err := s.settings.GetValue(entities.SettingKeyAutoExportSchedule); err == nil && v != "" {
			return v
		}
	}
	return s.config.Schedule
}

// Start begins the scheduler if auto-export is enabled.
func (s *AutoExportScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.enabled() {
		log.Printf("Auto-export scheduler: disabled")
		return nil
	}

	schedule := s.schedule()
	if _, err := cronParser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", schedule, err)
	}

	entryID, err := s.cron.AddFunc(schedule, func() {
		s.runExport()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule export job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Auto-export scheduler: started with schedule '%s'", schedule)

	// Monitor for context cancellation
	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running export.
func (s *AutoExportScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Auto-export scheduler: stopped")
}

// RunNow triggers an immediate export of all categories.
func (s *AutoExportScheduler) RunNow() error {
	go s.runExport()
	return nil
}

// IsRunning returns whether the scheduler is active.
func (s *AutoExportScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// IsExporting returns whether an export is currently in progress.
func (s *AutoExportScheduler) IsExporting() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isExporting
}

// GetNextRunTime returns when the next export will occur.
func (s *AutoExportScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// runExport walks every category and exports whatever is pending.
func (s *AutoExportScheduler) runExport() {
	s.mu.Lock()
	if s.isExporting {
		s.mu.Unlock()
		log.Printf("Auto-export: skipped (already exporting)")
		return
	}
	s.isExporting = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isExporting = false
		s.mu.Unlock()
	}()

	if !s.enabled() {
		log.Printf("Auto-export: skipped (disabled)")
		return
	}

	startTime := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	names := make([]string, 0, len(s.engines))
	for name := range s.engines {
		names = append(names, name)
	}
	sort.Strings(names)

	var exported, entries int64
	for _, name := range names {
		engine := s.engines[name]

		patch, err := engine.CreatePatch(ctx)
		if err != nil {
			log.Printf("Auto-export: failed to export %s: %v", name, err)
			continue
		}
		if patch == nil {
			continue
		}

		if s.recorder != nil {
			if _, err := s.recorder.Record(name, patch.FileName, engine.DeviceID(), patch.SizeBytes, patch.EntryCount); err != nil {
				log.Printf("Auto-export: failed to record %s: %v", patch.FileName, err)
			}
		}
		exported++
		entries += patch.EntryCount
	}

	if exported == 0 {
		log.Printf("Auto-export: no pending changes")
		return
	}

	if s.settings != nil {
		if err := s.settings.Set(entities.SettingKeyAutoExportLastAt, time.Now().UTC().Format(time.RFC3339)); err != nil {
			log.Printf("Auto-export: failed to record last export time: %v", err)
		}
	}

	log.Printf("Auto-export: exported %d patch file(s) carrying %d entries in %v",
		exported, entries, time.Since(startTime).Round(time.Millisecond))
}
