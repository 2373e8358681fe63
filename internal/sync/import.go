package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wesinator/and-bible/internal/patchio"
)

// ErrSchemaMismatch is returned when a patch was produced by a different
// schema generation than the local database. Nothing from such a patch is
// applied.
var ErrSchemaMismatch = errors.New("patch schema does not match local database")

// patchLogColumns is the exact column set every patch change log must have.
var patchLogColumns = []string{"table_name", "entity_id1", "entity_id2", "event_type", "last_updated", "device_id"}

// ApplyStats summarizes one applied patch.
type ApplyStats struct {
	// Entries is the number of change log entries the patch carried.
	Entries int64
	// Violations is the number of rows dropped by referential repair.
	Violations int
}

// ApplyPatch merges one patch file, gzip-compressed or raw SQLite, into
// the category database.
//
// Per table, parents before children, the merge runs four passes:
//
//  1. whole-row last-write-wins upserts for rows whose patch log entry is
//     not older than the local one
//  2. referential repair: rows left referencing a missing parent are
//     dropped and reported
//  3. deletions, under the same timestamp rule
//  4. change log reconciliation, adopting the winning entries
//
// Capture triggers stay dropped while the merge transaction runs, so
// imported rows keep the origin device's log entries instead of being
// re-logged as local edits. Foreign key enforcement is off for the
// session during the merge; a final check reports anything the repair
// pass could not account for.
func (e *Engine) ApplyPatch(ctx context.Context, path string) (*ApplyStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applyPatch(ctx, path)
}

// ApplyPatches merges several patch files in the given order, stopping at
// the first failure. The returned stats cover the files that did apply.
func (e *Engine) ApplyPatches(ctx context.Context, paths []string) (*ApplyStats, error) {
	total := &ApplyStats{}
	for _, path := range paths {
		stats, err := e.ApplyPatch(ctx, path)
		if err != nil {
			return total, fmt.Errorf("failed to apply %s: %w", filepath.Base(path), err)
		}
		total.Entries += stats.Entries
		total.Violations += stats.Violations
	}
	return total, nil
}

// CheckPatch opens a patch file and verifies it against the local schema
// without applying anything. It returns the number of change log entries
// the patch carries, so callers can vet an upload before queueing the
// merge. Mismatches report ErrSchemaMismatch just like ApplyPatch would.
func (e *Engine) CheckPatch(ctx context.Context, path string) (entries int64, err error) {
	dbPath, cleanup, err := patchio.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open patch: %w", err)
	}
	defer cleanup()

	conn, err := e.sqlDB.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to pin connection: %w", err)
	}
	defer conn.Close()

	if _, err = conn.ExecContext(ctx, "ATTACH DATABASE ? AS patch", dbPath); err != nil {
		return 0, fmt.Errorf("failed to attach patch: %w", err)
	}
	defer func() {
		if _, derr := conn.ExecContext(ctx, "DETACH DATABASE patch"); derr != nil && err == nil {
			err = fmt.Errorf("failed to detach patch: %w", derr)
		}
	}()

	if err = e.checkPatchSchema(ctx, conn); err != nil {
		return 0, err
	}

	row := conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM patch.change_log")
	if err = row.Scan(&entries); err != nil {
		return 0, fmt.Errorf("failed to count patch entries: %w", err)
	}
	return entries, nil
}

func (e *Engine) applyPatch(ctx context.Context, path string) (stats *ApplyStats, err error) {
	dbPath, cleanup, err := patchio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open patch: %w", err)
	}
	defer cleanup()

	conn, err := e.sqlDB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to pin connection: %w", err)
	}
	defer conn.Close()

	if _, err = conn.ExecContext(ctx, "ATTACH DATABASE ? AS patch", dbPath); err != nil {
		return nil, fmt.Errorf("failed to attach patch: %w", err)
	}
	defer func() {
		if _, derr := conn.ExecContext(ctx, "DETACH DATABASE patch"); derr != nil && err == nil {
			err = fmt.Errorf("failed to detach patch: %w", derr)
		}
	}()

	if err = e.checkPatchSchema(ctx, conn); err != nil {
		return nil, err
	}

	// Enforcement is per connection and cannot change inside a
	// transaction, so it is flipped before the merge begins and restored
	// before the connection goes back to the pool.
	if _, err = conn.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return nil, fmt.Errorf("failed to disable foreign keys: %w", err)
	}
	defer func() {
		if _, ferr := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); ferr != nil {
			log.Printf("Failed to restore foreign key enforcement: %v", ferr)
		}
	}()

	stats = &ApplyStats{}
	if err = e.merge(ctx, conn, stats); err != nil {
		return nil, err
	}

	remaining, err := checkForeignKeys(ctx, conn)
	if err != nil {
		return nil, err
	}
	for _, v := range remaining {
		log.Printf("Foreign key violation remains after import: %s rowid=%d references %s", v.Table, v.RowID, v.Referenced)
	}

	log.Printf("Applied patch %s: %d entries, %d repaired row(s)", filepath.Base(path), stats.Entries, stats.Violations)
	return stats, nil
}

// checkPatchSchema verifies the patch speaks the expected wire format: a
// change log with exactly the known columns, and a clone of every table in
// the registry. A patch from a different schema generation is rejected
// before any write happens.
func (e *Engine) checkPatchSchema(ctx context.Context, conn *sql.Conn) error {
	cols, err := tableColumns(ctx, conn, "patch", "change_log")
	if err != nil {
		return err
	}
	if !sameColumns(cols, patchLogColumns) {
		return fmt.Errorf("%w: change_log has columns [%s]", ErrSchemaMismatch, strings.Join(cols, ", "))
	}

	for _, t := range e.def.Tables {
		patchCols, err := tableColumns(ctx, conn, "patch", t.Name)
		if err != nil {
			return err
		}
		if len(patchCols) == 0 {
			return fmt.Errorf("%w: table %s is missing", ErrSchemaMismatch, t.Name)
		}
		localCols, err := tableColumns(ctx, conn, "main", t.Name)
		if err != nil {
			return err
		}
		if !sameColumns(patchCols, localCols) {
			return fmt.Errorf("%w: table %s has columns [%s], expected [%s]",
				ErrSchemaMismatch, t.Name, strings.Join(patchCols, ", "), strings.Join(localCols, ", "))
		}
	}
	return nil
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// merge runs the whole patch application in one transaction: triggers off,
// four passes per table in registry order, triggers back on, commit.
func (e *Engine) merge(ctx context.Context, conn *sql.Conn, stats *ApplyStats) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin merge transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM patch.change_log")
	if err := row.Scan(&stats.Entries); err != nil {
		return fmt.Errorf("failed to count patch entries: %w", err)
	}

	// Imported rows must carry their origin's log entries, so local
	// capture stays out of the way until the merge is committed.
	for _, stmt := range dropTriggerStatements(e.def) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to drop capture triggers: %w", err)
		}
	}

	for _, t := range e.def.Tables {
		if err := e.mergeTable(ctx, tx, t, stats); err != nil {
			return err
		}
	}

	for _, stmt := range createTriggerStatements(e.def, e.deviceID) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to restore capture triggers: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit merge: %w", err)
	}
	return nil
}

// newerLocalEntry is the guard shared by every merge pass: the patch entry
// named pe loses whenever the local log holds a strictly newer entry for
// the same key. Ties go to the patch, which makes re-applying a patch the
// device has already seen a no-op.
const newerLocalEntry = "EXISTS (SELECT 1 FROM main.change_log le" +
	" WHERE le.table_name = pe.table_name AND le.entity_id1 = pe.entity_id1" +
	" AND le.entity_id2 = pe.entity_id2 AND le.last_updated > pe.last_updated)"

// mergeTable runs the four merge passes for one table.
func (e *Engine) mergeTable(ctx context.Context, tx *sql.Tx, t TableDef, stats *ApplyStats) error {
	cols, err := tableColumns(ctx, tx, "main", t.Name)
	if err != nil {
		return err
	}

	tableIdent := quoteIdent(t.Name)
	tableLit := quoteLiteral(t.Name)
	colList := joinColumns(cols)

	prefixed := make([]string, len(cols))
	for i, c := range cols {
		prefixed[i] = "p." + quoteIdent(c)
	}
	srcList := strings.Join(prefixed, ", ")

	var entryMatch string
	if t.Composite() {
		entryMatch = fmt.Sprintf("pe.entity_id1 = p.%s AND pe.entity_id2 = p.%s",
			quoteIdent(t.KeyColumn), quoteIdent(t.KeyColumn2))
	} else {
		entryMatch = fmt.Sprintf("pe.entity_id1 = p.%s", quoteIdent(t.KeyColumn))
	}

	upsert := fmt.Sprintf(
		"INSERT OR REPLACE INTO main.%s (%s) SELECT %s FROM patch.%s p"+
			" JOIN patch.change_log pe ON pe.table_name = %s AND pe.event_type = 'UPSERT' AND %s"+
			" WHERE NOT %s",
		tableIdent, colList, srcList, tableIdent, tableLit, entryMatch, newerLocalEntry)
	if _, err := tx.ExecContext(ctx, upsert); err != nil {
		return fmt.Errorf("failed to merge %s rows: %w", t.Name, err)
	}

	if err := e.repairTable(ctx, tx, t.Name, stats); err != nil {
		return err
	}

	var deleteMatch string
	if t.Composite() {
		deleteMatch = fmt.Sprintf(
			"(%s, %s) IN (SELECT pe.entity_id1, pe.entity_id2 FROM patch.change_log pe"+
				" WHERE pe.table_name = %s AND pe.event_type = 'DELETE' AND NOT %s)",
			quoteIdent(t.KeyColumn), quoteIdent(t.KeyColumn2), tableLit, newerLocalEntry)
	} else {
		deleteMatch = fmt.Sprintf(
			"%s IN (SELECT pe.entity_id1 FROM patch.change_log pe"+
				" WHERE pe.table_name = %s AND pe.event_type = 'DELETE' AND NOT %s)",
			quoteIdent(t.KeyColumn), tableLit, newerLocalEntry)
	}
	del := fmt.Sprintf("DELETE FROM main.%s WHERE %s", tableIdent, deleteMatch)
	if _, err := tx.ExecContext(ctx, del); err != nil {
		return fmt.Errorf("failed to apply %s deletions: %w", t.Name, err)
	}

	reconcile := fmt.Sprintf(
		"INSERT OR REPLACE INTO main.change_log (table_name, entity_id1, entity_id2, event_type, last_updated, device_id)"+
			" SELECT pe.table_name, pe.entity_id1, pe.entity_id2, pe.event_type, pe.last_updated, pe.device_id"+
			" FROM patch.change_log pe WHERE pe.table_name = %s AND NOT %s",
		tableLit, newerLocalEntry)
	if _, err := tx.ExecContext(ctx, reconcile); err != nil {
		return fmt.Errorf("failed to reconcile %s log entries: %w", t.Name, err)
	}
	return nil
}

// repairTable drops rows the merge left pointing at missing parents.
// Deletions of a parent orphan its children on the importing side too;
// walking tables parents-first lets each table's pass catch the fallout of
// the passes before it.
func (e *Engine) repairTable(ctx context.Context, tx *sql.Tx, table string, stats *ApplyStats) error {
	query := "SELECT * FROM pragma_foreign_key_check(" + quoteLiteral(table) + ")"
	found, err := scanViolations(tx.QueryContext(ctx, query))
	if err != nil {
		return fmt.Errorf("failed to check %s foreign keys: %w", table, err)
	}
	if len(found) == 0 {
		return nil
	}

	del := fmt.Sprintf("DELETE FROM main.%s WHERE rowid IN (SELECT \"rowid\" FROM pragma_foreign_key_check(%s))",
		quoteIdent(table), quoteLiteral(table))
	if _, err := tx.ExecContext(ctx, del); err != nil {
		return fmt.Errorf("failed to repair %s: %w", table, err)
	}

	for _, v := range found {
		stats.Violations++
		e.reportViolation(v)
	}
	return nil
}

// checkForeignKeys scans the whole database for foreign key violations.
func checkForeignKeys(ctx context.Context, conn *sql.Conn) ([]Violation, error) {
	found, err := scanViolations(conn.QueryContext(ctx, "PRAGMA main.foreign_key_check"))
	if err != nil {
		return nil, fmt.Errorf("failed to run foreign key check: %w", err)
	}
	return found, nil
}

// scanViolations reads the four-column result of a foreign_key_check:
// child table, rowid, parent table, foreign key index.
func scanViolations(rows *sql.Rows, queryErr error) ([]Violation, error) {
	if queryErr != nil {
		return nil, queryErr
	}
	defer rows.Close()

	var found []Violation
	for rows.Next() {
		var (
			child, parent string
			rowID         sql.NullInt64
			fkIndex       int
		)
		if err := rows.Scan(&child, &rowID, &parent, &fkIndex); err != nil {
			return nil, err
		}
		found = append(found, Violation{Table: child, RowID: rowID.Int64, Referenced: parent})
	}
	return found, rows.Err()
}
