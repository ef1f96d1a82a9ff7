// Package database opens the relational store: PostgreSQL when a URL is configured,
// otherwise SQLite in the data directory (lite mode).
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Driver identifies the backend in use.
type Driver string

const (
	Postgres Driver = "postgres"
	SQLite   Driver = "sqlite"
)

// Options controls how the pool is opened.
type Options struct {
	// URL is a PostgreSQL connection string. Empty selects lite mode.
	URL string
	// DataDir holds eventdesk.db in lite mode.
	DataDir string
	// MaxOpenConns applies to PostgreSQL only. Lite mode always uses one connection.
	MaxOpenConns int
}

// DB is an opened pool and the driver behind it.
type DB struct {
	*sql.DB
	Driver Driver
	// Path is the SQLite file in lite mode.
	Path string
}

// Open connects and pings the database.
func Open(ctx context.Context, opts Options) (*DB, error) {
	if opts.URL == "" {
		return openLite(ctx, opts.DataDir)
	}

	db, err := sql.Open("postgres", opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}
	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 20
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen / 2)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("DB ping failed: %w", err)
	}
	log.Println("[eventdesk] postgres: connected")
	return &DB{DB: db, Driver: Postgres}, nil
}

func openLite(ctx context.Context, dataDir string) (*DB, error) {
	if dataDir == "" {
		dataDir = "data"
	}
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	path := filepath.Join(dataDir, "eventdesk.db")
	log.Printf("[eventdesk] lite mode: using sqlite at %s", path)

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// SQLite allows one writer; a single connection keeps transactions from tripping SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite ping failed: %w", err)
	}
	return &DB{DB: db, Driver: SQLite, Path: path}, nil
}
