package sync

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/wesinator/and-bible/internal/patchio"
)

// Patch describes one exported patch file.
type Patch struct {
	Category      Category
	FileName      string
	Path          string
	FromWatermark int64
	ToWatermark   int64
	EntryCount    int64
	SizeBytes     int64
}

// PatchFileName builds the canonical patch file name,
// <category>-<watermark>-<device prefix>.abp.gz.
func PatchFileName(c Category, toWatermark int64, deviceID string) string {
	prefix := deviceID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("%s-%d-%s.abp.gz", c, toWatermark, prefix)
}

// patchLogSchema is the wire contract: the one table every patch must
// carry. Entity tables are cloned from the local schema instead.
const patchLogSchema = `CREATE TABLE patch.change_log (
	table_name TEXT NOT NULL,
	entity_id1 TEXT NOT NULL,
	entity_id2 TEXT NOT NULL DEFAULT '',
	event_type TEXT NOT NULL,
	last_updated INTEGER NOT NULL,
	device_id TEXT NOT NULL,
	PRIMARY KEY (table_name, entity_id1, entity_id2)
)`

// CreatePatch exports every change newer than the watermark into a new
// compressed patch file under the engine's patch directory. It returns
// nil when the log holds nothing new.
//
// The patch is itself a SQLite database: a constraint-free copy of each
// entity table holding only the rows named by exported UPSERT entries,
// plus the matching slice of the change log. The watermark advances to
// the newest exported timestamp only after the file is safely on disk; a
// crash mid-export at worst re-exports entries the importer already
// treats idempotently.
func (e *Engine) CreatePatch(ctx context.Context) (*Patch, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	watermark, err := e.Watermark()
	if err != nil {
		return nil, fmt.Errorf("failed to read watermark: %w", err)
	}
	pending, err := e.logs.CountNewerThan(watermark)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending changes: %w", err)
	}
	if pending == 0 {
		return nil, nil
	}

	if err := os.MkdirAll(e.patchDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create patch directory: %w", err)
	}

	conn, err := e.sqlDB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to pin connection: %w", err)
	}
	defer conn.Close()

	workPath := filepath.Join(e.patchDir, fmt.Sprintf(".%s-%d.work", e.def.Category, time.Now().UnixNano()))
	defer os.Remove(workPath)

	toWatermark, entries, err := e.exportInto(ctx, conn, workPath, watermark)
	if err != nil {
		return nil, err
	}

	fileName := PatchFileName(e.def.Category, toWatermark, e.deviceID)
	finalPath := filepath.Join(e.patchDir, fileName)
	size, err := patchio.Compress(workPath, finalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to compress patch: %w", err)
	}

	if err := e.config.SetLong(ConfigKeyLastPatchWritten, toWatermark); err != nil {
		return nil, fmt.Errorf("failed to advance watermark: %w", err)
	}

	log.Printf("Exported %d %s change(s) into %s", entries, e.def.Category, fileName)
	return &Patch{
		Category:      e.def.Category,
		FileName:      fileName,
		Path:          finalPath,
		FromWatermark: watermark,
		ToWatermark:   toWatermark,
		EntryCount:    entries,
		SizeBytes:     size,
	}, nil
}

// exportInto attaches a fresh patch database at path and copies the delta
// into it. ATTACH cannot run inside a transaction, so the attach/detach
// pair brackets one. Returns the newest exported timestamp and the number
// of exported log entries.
func (e *Engine) exportInto(ctx context.Context, conn *sql.Conn, path string, watermark int64) (toWatermark int64, entries int64, err error) {
	if _, err = conn.ExecContext(ctx, "ATTACH DATABASE ? AS patch", path); err != nil {
		return 0, 0, fmt.Errorf("failed to attach patch database: %w", err)
	}
	defer func() {
		if _, derr := conn.ExecContext(ctx, "DETACH DATABASE patch"); derr != nil && err == nil {
			err = fmt.Errorf("failed to detach patch database: %w", derr)
		}
	}()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin export transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, patchLogSchema); err != nil {
		return 0, 0, fmt.Errorf("failed to create patch change log: %w", err)
	}

	for _, t := range e.def.Tables {
		if err = e.exportTable(ctx, tx, t, watermark); err != nil {
			return 0, 0, err
		}
	}

	row := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(last_updated), 0), COUNT(*) FROM patch.change_log")
	if err = row.Scan(&toWatermark, &entries); err != nil {
		return 0, 0, fmt.Errorf("failed to summarize patch: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit export: %w", err)
	}
	return toWatermark, entries, nil
}

// exportTable copies the rows named by fresh UPSERT entries plus the
// table's fresh slice of the change log. The entity clone is created with
// CREATE TABLE ... AS SELECT, which strips constraints and indexes: patch
// files carry data, not schema rules.
func (e *Engine) exportTable(ctx context.Context, tx *sql.Tx, t TableDef, watermark int64) error {
	cols, err := tableColumns(ctx, tx, "main", t.Name)
	if err != nil {
		return err
	}

	tableIdent := quoteIdent(t.Name)
	tableLit := quoteLiteral(t.Name)
	colList := joinColumns(cols)

	create := fmt.Sprintf("CREATE TABLE patch.%s AS SELECT %s FROM main.%s WHERE 0",
		tableIdent, colList, tableIdent)
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to clone %s into patch: %w", t.Name, err)
	}

	var keyMatch string
	if t.Composite() {
		keyMatch = fmt.Sprintf(
			"(%s, %s) IN (SELECT entity_id1, entity_id2 FROM main.change_log WHERE table_name = %s AND event_type = 'UPSERT' AND last_updated > ?)",
			quoteIdent(t.KeyColumn), quoteIdent(t.KeyColumn2), tableLit)
	} else {
		keyMatch = fmt.Sprintf(
			"%s IN (SELECT entity_id1 FROM main.change_log WHERE table_name = %s AND event_type = 'UPSERT' AND last_updated > ?)",
			quoteIdent(t.KeyColumn), tableLit)
	}
	copyRows := fmt.Sprintf("INSERT INTO patch.%s (%s) SELECT %s FROM main.%s WHERE %s",
		tableIdent, colList, colList, tableIdent, keyMatch)
	if _, err := tx.ExecContext(ctx, copyRows, watermark); err != nil {
		return fmt.Errorf("failed to copy %s rows: %w", t.Name, err)
	}

	copyLog := fmt.Sprintf(
		"INSERT INTO patch.change_log (table_name, entity_id1, entity_id2, event_type, last_updated, device_id) "+
			"SELECT table_name, entity_id1, entity_id2, event_type, last_updated, device_id "+
			"FROM main.change_log WHERE table_name = %s AND last_updated > ?", tableLit)
	if _, err := tx.ExecContext(ctx, copyLog, watermark); err != nil {
		return fmt.Errorf("failed to copy %s log entries: %w", t.Name, err)
	}
	return nil
}
