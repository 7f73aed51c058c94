package storage

import (
	"database/sql"
	"fmt"
)

// InitSchema creates all required tables and indexes.
// This is idempotent - safe to call multiple times.
func InitSchema(db *sql.DB) error {
	ddlStatements := []string{
		// mask_fields: one masking rule per field name. A NULL index means unset.
		`CREATE TABLE IF NOT EXISTS mask_fields (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			field_name TEXT NOT NULL UNIQUE,
			mask_char TEXT NOT NULL DEFAULT '',
			mask_start_index INTEGER,
			mask_end_index INTEGER,
			mask_all INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_mask_fields_name ON mask_fields(field_name)`,
	}

	for _, stmt := range ddlStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute DDL: %w", err)
		}
	}

	return nil
}
