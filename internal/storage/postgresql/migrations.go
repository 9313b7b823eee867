package postgresql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

type migration struct {
	version int
	name    string
	up      string
}

// migrations run in order, each inside its own transaction. Never edit an
// applied entry; append a new one.
var migrations = []migration{
	{
		version: 1,
		name:    "create_categories",
		up: `
			CREATE TABLE IF NOT EXISTS categories (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				title VARCHAR(255) NOT NULL,
				slug VARCHAR(255) UNIQUE NOT NULL,
				seo_title VARCHAR(70),
				seo_description VARCHAR(160),
				seo_keywords VARCHAR(160)
			);
		`,
	},
	{
		version: 2,
		name:    "create_posts",
		up: `
			CREATE TABLE IF NOT EXISTS posts (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				title VARCHAR(255) NOT NULL,
				slug VARCHAR(255) UNIQUE NOT NULL,
				content TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				publication_date DATE NOT NULL DEFAULT CURRENT_DATE,
				is_visible BOOLEAN NOT NULL DEFAULT TRUE,
				seo_title VARCHAR(70),
				seo_description VARCHAR(160),
				seo_keywords VARCHAR(160)
			);

			CREATE INDEX IF NOT EXISTS idx_posts_listing
			ON posts (publication_date DESC, created_at DESC, slug);

			CREATE INDEX IF NOT EXISTS idx_posts_public
			ON posts (publication_date DESC)
			WHERE is_visible;
		`,
	},
	{
		version: 3,
		name:    "create_post_categories",
		up: `
			CREATE TABLE IF NOT EXISTS post_categories (
				post_id UUID NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
				category_id UUID NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
				PRIMARY KEY (post_id, category_id)
			);

			CREATE INDEX IF NOT EXISTS idx_post_categories_category
			ON post_categories (category_id);
		`,
	},
	{
		version: 4,
		name:    "create_post_images",
		up: `
			CREATE TABLE IF NOT EXISTS post_images (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				seq BIGSERIAL UNIQUE,
				post_id UUID NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
				title VARCHAR(255) NOT NULL,
				role VARCHAR(20),
				storage_path VARCHAR(255) NOT NULL UNIQUE
			);

			CREATE INDEX IF NOT EXISTS idx_post_images_post_role
			ON post_images (post_id, role, seq DESC);
		`,
	},
}

// Migrate applies every migration newer than the recorded schema version.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	const op = "storage.postgresql.Migrate"

	_, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("%s: create schema_migrations: %w", op, err)
	}

	var current int
	err = db.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current)
	if err != nil {
		return fmt.Errorf("%s: read schema version: %w", op, err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		if err := applyMigration(ctx, db, m); err != nil {
			return fmt.Errorf("%s: migration %d (%s): %w", op, m.version, m.name, err)
		}
	}

	return nil
}

func applyMigration(ctx context.Context, db *pgxpool.Pool, m migration) error {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, m.up); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`,
		m.version, m.name,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
