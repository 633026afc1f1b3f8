package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaFS embed.FS

// Open opens the sqlite database at path, enables foreign-key
// enforcement, and applies the schema idempotently.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("db path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// One long-lived connection; the Store serializes access anyway, and
	// a single connection keeps :memory: databases coherent.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := applySchema(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := seedCategories(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func applySchema(ctx context.Context, db *sql.DB) error {
	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	if _, err := db.ExecContext(ctx, string(schemaSQL)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	return nil
}

// seedCategories inserts the default category set on first run.
func seedCategories(ctx context.Context, db *sql.DB) error {
	defaults := []struct {
		name, description, color string
	}{
		{"Work", "Work-related tasks", "#0078D4"},
		{"Personal", "Personal tasks", "#107C10"},
		{"Shopping", "Shopping lists", "#FF8C00"},
		{"Health", "Health and fitness", "#E74856"},
		{"Education", "Learning and study", "#5C2D91"},
	}

	for _, c := range defaults {
		if _, err := db.ExecContext(ctx, `
			INSERT INTO categories (name, description, color, created_at)
			VALUES (?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(name) DO NOTHING
		`, c.name, c.description, c.color); err != nil {
			return fmt.Errorf("seed category %s: %w", c.name, err)
		}
	}

	return nil
}
