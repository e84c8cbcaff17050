// Package db provides the SQLite-backed results store for testrig. Test
// runs, execution records, steps, and custom metrics are persisted here;
// every mutation happens inside a short-lived transactional session.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

// DB is a handle to the results database.
type DB struct {
	sql  *sql.DB
	path string
}

// Open connects to the results database. Supported connection strings:
//   - sqlite://path/to/results.db
//   - sqlite:./results.db
//   - path/to/results.db
//   - :memory:
func Open(connStr string) (*DB, error) {
	path, err := parseConnectionString(connStr)
	if err != nil {
		return nil, err
	}

	dsn := path
	if !strings.Contains(dsn, "?") {
		// Shared cache keeps in-memory databases alive across connections;
		// the busy timeout covers concurrent worker processes on one file.
		// Transactions take the write lock up front: concurrent deferred
		// transactions deadlock on the read-to-write upgrade and get BUSY
		// immediately instead of waiting out the timeout.
		if dsn == ":memory:" {
			dsn = "file::memory:?cache=shared&_busy_timeout=5000&_txlock=immediate"
		} else {
			dsn += "?_busy_timeout=5000&_txlock=immediate"
		}
	}

	handle, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := handle.PingContext(ctx); err != nil {
		_ = handle.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &DB{sql: handle, path: path}, nil
}

// Path returns the database file path as parsed from the connection string.
func (d *DB) Path() string {
	return d.path
}

// Close closes the underlying connection pool.
func (d *DB) Close() error {
	if d.sql != nil {
		return d.sql.Close()
	}
	return nil
}

// parseConnectionString strips the sqlite prefix variants and returns the
// file path.
func parseConnectionString(connStr string) (string, error) {
	connStr = strings.TrimSpace(connStr)
	if connStr == "" {
		return "", fmt.Errorf("empty connection string")
	}

	if strings.HasPrefix(connStr, "sqlite://") {
		return strings.TrimPrefix(connStr, "sqlite://"), nil
	}
	if strings.HasPrefix(connStr, "sqlite:") {
		return strings.TrimPrefix(connStr, "sqlite:"), nil
	}
	if strings.Contains(connStr, "://") {
		return "", fmt.Errorf("unsupported connection string: %s", connStr)
	}
	return connStr, nil
}
