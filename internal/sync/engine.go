package sync

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	stdsync "sync"
	"time"

	"gorm.io/gorm"
)

// Violation describes a row dropped by the referential repair pass: after
// a merge the row referenced a parent that no longer exists.
type Violation struct {
	Table      string
	RowID      int64
	Referenced string
}

// Engine drives patch export and import for one category database. A
// mutex serializes export and import; everything else goes through the
// regular connection pool.
type Engine struct {
	db       *gorm.DB
	sqlDB    *sql.DB
	def      CategoryDef
	deviceID string
	patchDir string

	logs   *LogRepository
	config *ConfigRepository

	mu stdsync.Mutex

	onViolation func(Violation)
}

// NewEngine creates a sync engine for one category database. Patches are
// written into patchDir.
func NewEngine(db *gorm.DB, def CategoryDef, deviceID, patchDir string) (*Engine, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap sql database: %w", err)
	}
	return &Engine{
		db:       db,
		sqlDB:    sqlDB,
		def:      def,
		deviceID: deviceID,
		patchDir: patchDir,
		logs:     NewLogRepository(db),
		config:   NewConfigRepository(db),
	}, nil
}

// OnViolation registers a callback for rows removed by referential repair.
// Without one, violations go to the log.
func (e *Engine) OnViolation(fn func(Violation)) {
	e.onViolation = fn
}

func (e *Engine) reportViolation(v Violation) {
	if e.onViolation != nil {
		e.onViolation(v)
		return
	}
	log.Printf("Sync repair dropped %s rowid=%d referencing missing %s", v.Table, v.RowID, v.Referenced)
}

// Category returns the category this engine synchronizes.
func (e *Engine) Category() Category {
	return e.def.Category
}

// Def returns the table registry of the category.
func (e *Engine) Def() CategoryDef {
	return e.def
}

// DeviceID returns the identity baked into this engine's capture triggers.
func (e *Engine) DeviceID() string {
	return e.deviceID
}

// Logs returns the change log repository of the category database.
func (e *Engine) Logs() *LogRepository {
	return e.logs
}

// Watermark returns the newest change log timestamp already exported.
func (e *Engine) Watermark() (int64, error) {
	return e.config.GetLong(ConfigKeyLastPatchWritten, 0)
}

// CountPending returns the number of change log entries not yet exported.
func (e *Engine) CountPending() (int64, error) {
	watermark, err := e.Watermark()
	if err != nil {
		return 0, err
	}
	return e.logs.CountNewerThan(watermark)
}

// NowMillis returns the current wall clock in epoch milliseconds, the
// timestamp unit used throughout the change log.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// tableColumns returns the column names of schema.table in declaration
// order. An unknown table yields an empty slice, not an error.
func tableColumns(ctx context.Context, q querier, schema, table string) ([]string, error) {
	query := fmt.Sprintf("PRAGMA %s.table_info(%s)", quoteIdent(schema), quoteIdent(table))
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, colType    string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to read columns of %s.%s: %w", schema, table, err)
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

// joinColumns quotes and joins column names for interpolation into SQL.
func joinColumns(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
