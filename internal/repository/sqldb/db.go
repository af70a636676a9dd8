// Package sqldb stores runs and image records in SQLite or PostgreSQL through sqlx.
package sqldb

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// DB wraps the database connection with serialized writes.
type DB struct {
	conn   *sqlx.DB
	driver string
	mu     sync.RWMutex
}

// New opens the database and applies the schema.
func New(driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite:
		if dir := filepath.Dir(dsn); dir != "." && dsn != ":memory:" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dsn += "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
		conn.SetConnMaxLifetime(0)
	}

	db := &DB{conn: conn, driver: driver}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// migrate creates the necessary tables if they don't exist.
func (db *DB) migrate() error {
	schema := sqliteSchema
	if db.driver == DriverPostgres {
		schema = postgresSchema
	}
	_, err := db.conn.Exec(schema)
	return err
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying connection for use by repositories.
func (db *DB) Conn() *sqlx.DB {
	return db.conn
}

// Driver returns the driver name.
func (db *DB) Driver() string {
	return db.driver
}

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		directory TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		processed INTEGER DEFAULT 0,
		skipped INTEGER DEFAULT 0,
		with_fire INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		path TEXT NOT NULL,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		place TEXT DEFAULT '',
		source TEXT NOT NULL,
		probability REAL DEFAULT 0,
		fire BOOLEAN DEFAULT 0,
		processed_at DATETIME NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS detections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		record_id INTEGER NOT NULL,
		label TEXT NOT NULL,
		x INTEGER DEFAULT 0,
		y INTEGER DEFAULT 0,
		width INTEGER DEFAULT 0,
		height INTEGER DEFAULT 0,
		confidence REAL DEFAULT 0,
		FOREIGN KEY (record_id) REFERENCES records(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_records_run_id ON records(run_id);
	CREATE INDEX IF NOT EXISTS idx_detections_record_id ON detections(record_id);
	`

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS runs (
		id BIGSERIAL PRIMARY KEY,
		directory TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		processed INTEGER DEFAULT 0,
		skipped INTEGER DEFAULT 0,
		with_fire INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS records (
		id BIGSERIAL PRIMARY KEY,
		run_id BIGINT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		path TEXT NOT NULL,
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		place TEXT DEFAULT '',
		source TEXT NOT NULL,
		probability DOUBLE PRECISION DEFAULT 0,
		fire BOOLEAN DEFAULT FALSE,
		processed_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS detections (
		id BIGSERIAL PRIMARY KEY,
		record_id BIGINT NOT NULL REFERENCES records(id) ON DELETE CASCADE,
		label TEXT NOT NULL,
		x INTEGER DEFAULT 0,
		y INTEGER DEFAULT 0,
		width INTEGER DEFAULT 0,
		height INTEGER DEFAULT 0,
		confidence DOUBLE PRECISION DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_records_run_id ON records(run_id);
	CREATE INDEX IF NOT EXISTS idx_detections_record_id ON detections(record_id);
	`

// Lock acquires a write lock.
func (db *DB) Lock() {
	db.mu.Lock()
}

// Unlock releases the write lock.
func (db *DB) Unlock() {
	db.mu.Unlock()
}

// RLock acquires a read lock.
func (db *DB) RLock() {
	db.mu.RLock()
}

// RUnlock releases the read lock.
func (db *DB) RUnlock() {
	db.mu.RUnlock()
}
