package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// DB wraps the SQLite connection pools.
// Writes go through a single connection so SQLite never sees concurrent
// writers; reads use a separate pool.
type DB struct {
	writer *sql.DB
	reader *sql.DB
	path   string
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=30000",
	"PRAGMA foreign_keys=ON",
	"PRAGMA synchronous=NORMAL",
}

// New opens the database at dbPath and initializes the schema.
func New(ctx context.Context, dbPath string) (*DB, error) {
	if dbPath != MemoryPath {
		dir := filepath.Dir(dbPath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	writer, err := open(ctx, dbPath, 1)
	if err != nil {
		return nil, err
	}

	// Every connection to :memory: is a separate database, so the reader
	// has to share the writer's single connection.
	reader := writer
	if dbPath != MemoryPath {
		reader, err = open(ctx, dbPath, 10)
		if err != nil {
			_ = writer.Close()
			return nil, err
		}
	}

	db := &DB{
		writer: writer,
		reader: reader,
		path:   dbPath,
	}

	if err := InitSchema(ctx, writer); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

func open(ctx context.Context, dbPath string, maxOpen int) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(maxOpen)
	conn.SetMaxIdleConns(min(maxOpen, 5))
	if dbPath == MemoryPath {
		// Closing the last connection drops the database.
		conn.SetConnMaxLifetime(0)
	} else {
		conn.SetConnMaxLifetime(time.Hour)
	}

	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return conn, nil
}

// Close closes both connection pools.
func (db *DB) Close() error {
	var err error
	if db.reader != nil && db.reader != db.writer {
		err = db.reader.Close()
	}
	if db.writer != nil {
		if werr := db.writer.Close(); werr != nil {
			err = werr
		}
	}
	return err
}

// Ping verifies both pools are reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.writer.PingContext(ctx); err != nil {
		return fmt.Errorf("ping writer: %w", err)
	}
	if err := db.reader.PingContext(ctx); err != nil {
		return fmt.Errorf("ping reader: %w", err)
	}
	return nil
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// withTx runs fn inside a write transaction, rolling back on error.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// NewTestDB creates an in-memory database for testing.
func NewTestDB() (*DB, error) {
	return New(context.Background(), MemoryPath)
}
