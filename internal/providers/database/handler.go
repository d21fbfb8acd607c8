package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/GriffinCanCode/capgate/internal/shared/types"
)

// ServiceName is the name the handler is registered under
const ServiceName = "postgres"

const (
	DriverPgx    = "pgx"
	DriverSQLite = "sqlite"
)

// Config configures the connection pool
type Config struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	// MaxRows caps the rows returned by one query; extra rows are dropped
	// and the result is marked truncated.
	MaxRows int
}

// Handler serves SQL operations over one pool
type Handler struct {
	db      *sql.DB
	driver  string
	maxRows int
	logger  *zap.Logger
}

// StatementArgs is the argument shape of query and execute
type StatementArgs struct {
	SQL    string `json:"sql" jsonschema:"description=SQL statement"`
	Params []any  `json:"params,omitempty" jsonschema:"description=Positional statement parameters"`
}

// TableArgs is the argument shape of describeTable
type TableArgs struct {
	Table  string `json:"table" jsonschema:"description=Table name"`
	Schema string `json:"schema,omitempty" jsonschema:"description=Schema; defaults to public (pgx) or main (sqlite)"`
}

// SchemaArgs is the argument shape of listTables
type SchemaArgs struct {
	Schema string `json:"schema,omitempty"`
}

// Open connects to the database and verifies the connection
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Handler, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres: DSN is not configured")
	}
	driver, err := driverName(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return New(db, driver, cfg.MaxRows, logger), nil
}

// New wraps an open pool
func New(db *sql.DB, driver string, maxRows int, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRows <= 0 {
		maxRows = 1000
	}
	return &Handler{
		db:      db,
		driver:  driver,
		maxRows: maxRows,
		logger:  logger.With(zap.String("service", ServiceName)),
	}
}

func driverName(name string) (string, error) {
	switch strings.ToLower(name) {
	case "", DriverPgx, "postgres", "postgresql":
		return DriverPgx, nil
	case DriverSQLite, "sqlite3":
		return DriverSQLite, nil
	}
	return "", fmt.Errorf("postgres: unsupported driver %q", name)
}

// Capabilities lists the supported operations
func (h *Handler) Capabilities() []types.Capability {
	return []types.Capability{
		types.NewCapability[StatementArgs]("query", "Run a read-only SQL statement and return rows"),
		types.NewCapability[StatementArgs]("execute", "Run a SQL statement that modifies data"),
		types.NewCapability[SchemaArgs]("listTables", "List the tables of a schema"),
		types.NewCapability[TableArgs]("describeTable", "Describe the columns of a table"),
		types.Op("test", "Check database connectivity"),
	}
}

// ValidateParams checks arguments before any statement reaches the pool
func (h *Handler) ValidateParams(params types.Params) error {
	switch params.Operation {
	case "query":
		if err := params.Require("sql"); err != nil {
			return err
		}
		if !readOnly(params.String("sql")) {
			return types.NewError(types.CodeInvalidParams,
				"query only accepts read-only statements; use execute",
				map[string]any{"operation": params.Operation})
		}
	case "execute":
		return params.Require("sql")
	case "describeTable":
		return params.Require("table")
	}
	return nil
}

// Execute runs one operation
func (h *Handler) Execute(ctx context.Context, params types.Params) (*types.Result, error) {
	switch params.Operation {
	case "query":
		return h.query(ctx, params)
	case "execute":
		return h.execute(ctx, params)
	case "listTables":
		return h.listTables(ctx, params)
	case "describeTable":
		return h.describeTable(ctx, params)
	case "test":
		return h.test(ctx)
	default:
		return nil, types.Errorf(types.CodeOperationNotSupported, "unknown operation: %s", params.Operation)
	}
}

// Health pings the pool
func (h *Handler) Health(ctx context.Context) error {
	return h.db.PingContext(ctx)
}

// Shutdown closes the pool
func (h *Handler) Shutdown(context.Context) error {
	return h.db.Close()
}

func (h *Handler) query(ctx context.Context, params types.Params) (*types.Result, error) {
	rows, err := h.db.QueryContext(ctx, params.String("sql"), sqlArgs(params.Slice("params"))...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	columns, records, truncated, err := scanRows(rows, h.maxRows)
	if err != nil {
		return nil, classify(err)
	}
	return types.Success(map[string]any{
		"columns":   columns,
		"rows":      records,
		"rowCount":  len(records),
		"truncated": truncated,
	}), nil
}

func (h *Handler) execute(ctx context.Context, params types.Params) (*types.Result, error) {
	res, err := h.db.ExecContext(ctx, params.String("sql"), sqlArgs(params.Slice("params"))...)
	if err != nil {
		return nil, classify(err)
	}

	data := map[string]any{}
	if n, err := res.RowsAffected(); err == nil {
		data["rowsAffected"] = n
	}
	if id, err := res.LastInsertId(); err == nil && id > 0 {
		data["lastInsertId"] = id
	}
	h.logger.Info("Statement executed", zap.Any("rowsAffected", data["rowsAffected"]))
	return types.Success(data), nil
}

func (h *Handler) listTables(ctx context.Context, params types.Params) (*types.Result, error) {
	schema := h.schema(params)

	var (
		rows *sql.Rows
		err  error
	)
	if h.driver == DriverSQLite {
		rows, err = h.db.QueryContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	} else {
		rows, err = h.db.QueryContext(ctx,
			`SELECT table_name FROM information_schema.tables WHERE table_schema = $1 ORDER BY table_name`, schema)
	}
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return types.Success(map[string]any{"schema": schema, "tables": tables, "count": len(tables)}), nil
}

// Column describes one table column
type Column struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Nullable bool    `json:"nullable"`
	Default  *string `json:"default,omitempty"`
}

func (h *Handler) describeTable(ctx context.Context, params types.Params) (*types.Result, error) {
	table := params.String("table")
	schema := h.schema(params)

	var columns []Column
	var err error
	if h.driver == DriverSQLite {
		columns, err = h.sqliteColumns(ctx, table)
	} else {
		columns, err = h.pgColumns(ctx, schema, table)
	}
	if err != nil {
		return nil, classify(err)
	}
	if len(columns) == 0 {
		return nil, types.NewError(types.CodeInvalidParams,
			fmt.Sprintf("table %q not found", table),
			map[string]any{"table": table, "schema": schema})
	}
	return types.Success(map[string]any{"table": table, "schema": schema, "columns": columns}), nil
}

func (h *Handler) pgColumns(ctx context.Context, schema, table string) ([]Column, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable = 'YES', column_default
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Column
	for rows.Next() {
		var (
			c   Column
			def sql.NullString
		)
		if err := rows.Scan(&c.Name, &c.Type, &c.Nullable, &def); err != nil {
			return nil, err
		}
		if def.Valid {
			c.Default = &def.String
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (h *Handler) sqliteColumns(ctx context.Context, table string) ([]Column, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT name, type, "notnull", dflt_value FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Column
	for rows.Next() {
		var (
			c       Column
			notNull int
			def     sql.NullString
		)
		if err := rows.Scan(&c.Name, &c.Type, &notNull, &def); err != nil {
			return nil, err
		}
		c.Nullable = notNull == 0
		if def.Valid {
			c.Default = &def.String
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (h *Handler) test(ctx context.Context) (*types.Result, error) {
	start := time.Now()
	var one int
	if err := h.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return nil, err
	}
	return types.Success(map[string]any{
		"connected": true,
		"driver":    h.driver,
		"latencyMs": time.Since(start).Milliseconds(),
		"pool":      h.db.Stats().OpenConnections,
	}), nil
}

func (h *Handler) schema(params types.Params) string {
	if s := params.String("schema"); s != "" {
		return s
	}
	if params.Database != "" {
		return params.Database
	}
	if h.driver == DriverSQLite {
		return "main"
	}
	return "public"
}

func scanRows(rows *sql.Rows, limit int) ([]string, []map[string]any, bool, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, false, err
	}

	records := []map[string]any{}
	truncated := false
	for rows.Next() {
		if len(records) == limit {
			truncated = true
			break
		}
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, false, err
		}

		record := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				record[col] = string(b)
				continue
			}
			record[col] = values[i]
		}
		records = append(records, record)
	}
	return columns, records, truncated, rows.Err()
}

var readOnlyPrefixes = []string{"select", "with", "show", "explain", "values"}

func readOnly(stmt string) bool {
	s := strings.ToLower(strings.TrimSpace(stmt))
	for _, p := range readOnlyPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// classify turns statement errors the caller can fix into INVALID_PARAMS.
// Everything else stays a plain error.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 {
		switch pgErr.Code[:2] {
		case "22", "23", "42":
			return types.NewError(types.CodeInvalidParams, pgErr.Message,
				map[string]any{"sqlState": pgErr.Code, "detail": pgErr.Detail})
		}
		return err
	}

	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3lib.SQLITE_ERROR, sqlite3lib.SQLITE_CONSTRAINT, sqlite3lib.SQLITE_MISMATCH, sqlite3lib.SQLITE_RANGE:
			return types.NewError(types.CodeInvalidParams, sqliteErr.Error(),
				map[string]any{"sqliteCode": sqliteErr.Code()})
		}
	}
	return err
}

// sqlArgs binds decoded JSON numbers as int64 or float64. Integers outside
// int64 stay text so the database can cast them without losing digits.
func sqlArgs(in []any) []any {
	out := make([]any, len(in))
	for i, v := range in {
		n, ok := v.(json.Number)
		if !ok {
			out[i] = v
			continue
		}
		switch {
		case !strings.ContainsAny(n.String(), ".eE"):
			if iv, err := n.Int64(); err == nil {
				out[i] = iv
			} else {
				out[i] = n.String()
			}
		default:
			if fv, err := n.Float64(); err == nil {
				out[i] = fv
			} else {
				out[i] = n.String()
			}
		}
	}
	return out
}
