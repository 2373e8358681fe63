package sync

import (
	"fmt"

	"gorm.io/gorm"
)

// sqlNowMillis computes epoch milliseconds inside SQLite. strftime('%f')
// yields seconds with a three-digit fraction, so the substring from
// position 4 is the millisecond part.
const sqlNowMillis = "(CAST(strftime('%s','now') AS INTEGER) * 1000 + CAST(substr(strftime('%f','now'), 4) AS INTEGER))"

// InstallCapture migrates the change log tables and recreates the capture
// triggers for every synchronized table of the category. The device id is
// baked into the trigger bodies as the origin of locally made changes.
// Triggers are dropped and recreated so a changed definition takes effect
// on the next open.
func InstallCapture(db *gorm.DB, def CategoryDef, deviceID string) error {
	if err := db.AutoMigrate(&LogEntry{}, &SyncConfig{}); err != nil {
		return fmt.Errorf("failed to migrate change log: %w", err)
	}
	stmts := append(dropTriggerStatements(def), createTriggerStatements(def, deviceID)...)
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to install capture triggers: %w", err)
		}
	}
	return nil
}

// createTriggerStatements returns the CREATE TRIGGER statements for all
// tables of a category: one each for insert, update and delete.
func createTriggerStatements(def CategoryDef, deviceID string) []string {
	var stmts []string
	for _, t := range def.Tables {
		stmts = append(stmts,
			captureTrigger(t, "ai", "INSERT", "NEW", EventUpsert, deviceID),
			captureTrigger(t, "au", "UPDATE", "NEW", EventUpsert, deviceID),
			captureTrigger(t, "ad", "DELETE", "OLD", EventDelete, deviceID),
		)
	}
	return stmts
}

// dropTriggerStatements returns the DROP TRIGGER statements for all tables
// of a category.
func dropTriggerStatements(def CategoryDef) []string {
	var stmts []string
	for _, t := range def.Tables {
		for _, suffix := range []string{"ai", "au", "ad"} {
			stmts = append(stmts, fmt.Sprintf("DROP TRIGGER IF EXISTS %s", quoteIdent(triggerName(t.Name, suffix))))
		}
	}
	return stmts
}

func triggerName(table, suffix string) string {
	return fmt.Sprintf("sync_%s_%s", table, suffix)
}

// captureTrigger builds one AFTER trigger. The timestamp takes the larger
// of the wall clock and the previous entry's timestamp plus one, so
// rewriting the same key always moves its timestamp forward even when the
// clock stands still or runs backwards.
func captureTrigger(t TableDef, suffix, operation, rowRef string, event EventType, deviceID string) string {
	id1 := fmt.Sprintf("%s.%s", rowRef, quoteIdent(t.KeyColumn))
	id2 := "''"
	if t.Composite() {
		id2 = fmt.Sprintf("%s.%s", rowRef, quoteIdent(t.KeyColumn2))
	}
	tableLit := quoteLiteral(t.Name)

	return fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %s AFTER %s ON %s BEGIN
    INSERT OR REPLACE INTO change_log (table_name, entity_id1, entity_id2, event_type, last_updated, device_id)
    VALUES (%s, %s, %s, %s,
        MAX(%s, COALESCE((SELECT last_updated + 1 FROM change_log WHERE table_name = %s AND entity_id1 = %s AND entity_id2 = %s), 0)),
        %s);
END`,
		quoteIdent(triggerName(t.Name, suffix)), operation, quoteIdent(t.Name),
		tableLit, id1, id2, quoteLiteral(string(event)),
		sqlNowMillis, tableLit, id1, id2,
		quoteLiteral(deviceID))
}
