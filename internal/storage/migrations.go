package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS projects (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL,
					client TEXT,
					materiality_threshold REAL NOT NULL DEFAULT 0,
					materiality_percentage REAL NOT NULL DEFAULT 0,
					total_documents INTEGER DEFAULT 0,
					processed_documents INTEGER DEFAULT 0,
					total_adjustments INTEGER DEFAULT 0,
					reviewed_adjustments INTEGER DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS documents (
					id TEXT PRIMARY KEY,
					project_id INTEGER NOT NULL,
					filename TEXT NOT NULL,
					type TEXT NOT NULL,
					status TEXT NOT NULL DEFAULT 'pending',
					classification_confidence INTEGER DEFAULT 0,
					extracted_data TEXT,
					error_message TEXT,
					processing_time INTEGER DEFAULT 0,
					uploaded_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					processed_at DATETIME,
					FOREIGN KEY (project_id) REFERENCES projects(id)
				)`,
				`CREATE INDEX idx_documents_project ON documents(project_id)`,
				`CREATE INDEX idx_documents_status ON documents(status)`,

				`CREATE TABLE IF NOT EXISTS adjustments (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					project_id INTEGER NOT NULL,
					document_id TEXT NOT NULL,
					category TEXT NOT NULL,
					title TEXT NOT NULL,
					description TEXT,
					reasoning TEXT,
					narrative TEXT,
					rule_applied TEXT,
					amount REAL NOT NULL DEFAULT 0,
					confidence REAL NOT NULL DEFAULT 0,
					is_material INTEGER NOT NULL DEFAULT 0,
					materiality_reason TEXT,
					debit_account TEXT,
					credit_account TEXT,
					accounts_affected TEXT,
					status TEXT NOT NULL DEFAULT 'pending',
					reviewer_notes TEXT,
					processed_at DATETIME,
					reviewed_at DATETIME,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (project_id) REFERENCES projects(id),
					FOREIGN KEY (document_id) REFERENCES documents(id)
				)`,
				`CREATE INDEX idx_adjustments_project ON adjustments(project_id)`,
				`CREATE INDEX idx_adjustments_document ON adjustments(document_id)`,
				`CREATE INDEX idx_adjustments_status ON adjustments(status)`,
				`CREATE INDEX idx_adjustments_category ON adjustments(category)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add processing metadata to adjustments",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`ALTER TABLE adjustments ADD COLUMN model_used TEXT`,
				`ALTER TABLE adjustments ADD COLUMN processing_time INTEGER DEFAULT 0`,
			}
			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Add structured account impact detail",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`ALTER TABLE adjustments ADD COLUMN account_impact TEXT`)
			return err
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
