package executor

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"              // Postgres driver
	_ "github.com/marcboeker/go-duckdb" // DuckDB driver

	"github.com/tablescout/tablescout/internal/config"
	"github.com/tablescout/tablescout/internal/errors"
)

// Executor is the relational execution collaborator: it runs one validated
// statement and returns the rows. Pair it with read-only credentials as
// defense-in-depth beneath the SQL validator.
type Executor interface {
	Execute(ctx context.Context, statement string) ([]map[string]interface{}, int, error)
}

// SQLExecutor executes statements against a database/sql connection pool.
type SQLExecutor struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// Open connects to the engine named in the configuration
func Open(cfg config.DatabaseConfig) (*SQLExecutor, error) {
	if cfg.Driver == "duckdb" {
		// DuckDB opens a local file; make sure its directory exists.
		if dir := filepath.Dir(cfg.DSN); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, errors.Wrapf(err, errors.ErrTypeExecution,
					"failed to create database directory %s", dir)
			}
		}
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeExecution, "failed to open %s database", cfg.Driver)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	if lifetime, err := time.ParseDuration(cfg.ConnMaxLifetime); err == nil {
		db.SetConnMaxLifetime(lifetime)
	}

	timeout, err := time.ParseDuration(cfg.QueryTimeout)
	if err != nil {
		timeout = 30 * time.Second
	}

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeExecution, "failed to ping database")
	}

	return &SQLExecutor{db: db, queryTimeout: timeout}, nil
}

// NewWithDB wraps an existing connection, primarily for tests
func NewWithDB(db *sql.DB, queryTimeout time.Duration) *SQLExecutor {
	if queryTimeout <= 0 {
		queryTimeout = 30 * time.Second
	}

	return &SQLExecutor{db: db, queryTimeout: queryTimeout}
}

// Execute runs the statement and materializes every row as a column-name to
// value mapping. The row count equals len(rows).
func (e *SQLExecutor) Execute(ctx context.Context, statement string) ([]map[string]interface{}, int, error) {
	ctx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	rows, err := e.db.QueryContext(ctx, statement)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrTypeExecution, "query failed")
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrTypeExecution, "failed to read column names")
	}

	var results []map[string]interface{}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))

		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrTypeExecution, "failed to scan row")
		}

		row := make(map[string]interface{}, len(columns))
		for i, column := range columns {
			row[column] = normalizeValue(values[i])
		}

		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrTypeExecution, "row iteration failed")
	}

	return results, len(results), nil
}

// Close releases the connection pool
func (e *SQLExecutor) Close() error {
	if e.db == nil {
		return nil
	}

	return e.db.Close()
}

// Ping verifies the connection is alive
func (e *SQLExecutor) Ping(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

// normalizeValue makes driver-specific values JSON-friendly
func normalizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return value
	}
}
