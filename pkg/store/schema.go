package store

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is valid for both PostgreSQL and SQLite. (group, order_index) is indexed but
// not unique: a sequential reorder passes through states where two rows share an index.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS speakers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		title TEXT NOT NULL,
		photo TEXT NOT NULL DEFAULT '',
		twitter TEXT,
		linkedin TEXT,
		order_index INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		deleted_at TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_speakers_order ON speakers (order_index) WHERE deleted_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS partners (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		logo TEXT,
		link TEXT,
		type TEXT NOT NULL,
		order_index INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		deleted_at TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_partners_type_order ON partners (type, order_index) WHERE deleted_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS teams (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		title TEXT NOT NULL,
		photo TEXT,
		twitter TEXT,
		linkedin TEXT,
		telegram TEXT,
		order_index INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		deleted_at TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_teams_order ON teams (order_index) WHERE deleted_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS faqs (
		id TEXT PRIMARY KEY,
		question_text TEXT NOT NULL,
		answer_text TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS about_images (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		image_url TEXT NOT NULL,
		order_index INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_about_images_slot ON about_images (order_index)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		roles TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS revoked_tokens (
		jti TEXT PRIMARY KEY,
		expires_at TIMESTAMP NOT NULL
	)`,
}

// Migrate creates every table and index that does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
