package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements creates the tables the engine reads and writes. Catalog
// tables are owned by the listings team; they are created here only so a
// fresh environment can boot.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS areas (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		name_ar TEXT NOT NULL DEFAULT '',
		sort_order INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		name_ar TEXT NOT NULL DEFAULT '',
		area_id TEXT REFERENCES areas(id),
		sort_order INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS unit_types (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		name_ar TEXT NOT NULL DEFAULT '',
		sort_order INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS units (
		id TEXT PRIMARY KEY,
		project_id TEXT REFERENCES projects(id),
		area_id TEXT REFERENCES areas(id),
		unit_type_id TEXT REFERENCES unit_types(id),
		price NUMERIC NOT NULL,
		size_sqm NUMERIC,
		bedrooms INT,
		available BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS customers (
		id UUID PRIMARY KEY,
		phone TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL,
		email TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS leads (
		id UUID PRIMARY KEY,
		idempotency_key TEXT UNIQUE NOT NULL,
		customer_id UUID REFERENCES customers(id),
		session_key TEXT NOT NULL,
		area_id TEXT NOT NULL,
		project_id TEXT,
		unit_type_id TEXT,
		requirements JSONB NOT NULL,
		status TEXT NOT NULL DEFAULT 'new',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id UUID PRIMARY KEY,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		action TEXT NOT NULL,
		metadata JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS conversation_turns (
		id UUID PRIMARY KEY,
		session_key TEXT NOT NULL,
		role TEXT NOT NULL,
		message TEXT NOT NULL,
		intent TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS conversation_turns_session_idx ON conversation_turns (session_key, created_at DESC)`,
}

// Migrate applies the schema idempotently.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
