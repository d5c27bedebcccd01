package repository

import (
	"strings"

	"entgo.io/ent/dialect"
)

var tables = []string{"products", "pets", "scans", "label_jobs"}

// schema returns the DDL for d. Column types are written for SQLite and
// rewritten for Postgres.
func schema(d string) []string {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			barcode TEXT UNIQUE,
			name TEXT NOT NULL,
			brand TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			species TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL,
			quality_score REAL NOT NULL DEFAULT 0,
			nutrition TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS products_name_idx ON products (name)`,
		`CREATE TABLE IF NOT EXISTS pets (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			species TEXT NOT NULL,
			breed TEXT,
			sensitivities TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS scans (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			product_id TEXT REFERENCES products (id) ON DELETE SET NULL,
			pet_id TEXT REFERENCES pets (id) ON DELETE SET NULL,
			barcode TEXT NOT NULL DEFAULT '',
			method TEXT NOT NULL,
			final_state TEXT NOT NULL,
			failure_reason TEXT NOT NULL DEFAULT '',
			confidence REAL NOT NULL DEFAULT 0,
			quality_score REAL NOT NULL DEFAULT 0,
			severity TEXT NOT NULL DEFAULT '',
			assessment TEXT,
			processing_ms INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS scans_created_at_idx ON scans (created_at)`,
		`CREATE TABLE IF NOT EXISTS label_jobs (
			id TEXT PRIMARY KEY,
			source_path TEXT NOT NULL,
			format TEXT NOT NULL,
			status TEXT NOT NULL,
			method TEXT NOT NULL DEFAULT '',
			confidence REAL NOT NULL DEFAULT 0,
			product_id TEXT REFERENCES products (id) ON DELETE SET NULL,
			error_message TEXT,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP
		)`,
	}
	if d != dialect.Postgres {
		return stmts
	}
	r := strings.NewReplacer(
		"TIMESTAMP", "TIMESTAMPTZ",
		"REAL", "DOUBLE PRECISION",
		"INTEGER", "BIGINT",
		"nutrition TEXT", "nutrition JSONB",
		"sensitivities TEXT", "sensitivities JSONB",
		"assessment TEXT", "assessment JSONB",
	)
	out := make([]string, len(stmts))
	for i, s := range stmts {
		out[i] = r.Replace(s)
	}
	return out
}
