package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS bookmarks (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id    TEXT NOT NULL,
		url         TEXT NOT NULL,
		title       TEXT NOT NULL,
		description TEXT NOT NULL,
		image       TEXT,
		created_at  TIMESTAMP NOT NULL,
		updated_at  TIMESTAMP NOT NULL,
		UNIQUE (owner_id, url)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookmarks_owner_created
		ON bookmarks (owner_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS tags (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		name       TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bookmark_tags (
		bookmark_id INTEGER NOT NULL REFERENCES bookmarks (id) ON DELETE CASCADE,
		tag_id      INTEGER NOT NULL REFERENCES tags (id) ON DELETE CASCADE,
		PRIMARY KEY (bookmark_id, tag_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookmark_tags_tag ON bookmark_tags (tag_id)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS bookmarks (
		id          BIGSERIAL PRIMARY KEY,
		owner_id    TEXT NOT NULL,
		url         TEXT NOT NULL,
		title       TEXT NOT NULL,
		description TEXT NOT NULL,
		image       TEXT,
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL,
		UNIQUE (owner_id, url)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookmarks_owner_created
		ON bookmarks (owner_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS tags (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bookmark_tags (
		bookmark_id BIGINT NOT NULL REFERENCES bookmarks (id) ON DELETE CASCADE,
		tag_id      BIGINT NOT NULL REFERENCES tags (id) ON DELETE CASCADE,
		PRIMARY KEY (bookmark_id, tag_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookmark_tags_tag ON bookmark_tags (tag_id)`,
}

// Migrate creates the tables and indexes if they don't exist yet. It is
// safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := sqliteSchema
	if s.driver == DriverPostgres {
		stmts = postgresSchema
	}

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
		}
		return nil
	})
}
