package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/quillaudit/quill/internal/common"
	"github.com/quillaudit/quill/internal/model"
)

// CreateProject persists a new project and returns its assigned ID.
func (s *SQLiteStorage) CreateProject(ctx context.Context, project *model.Project) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateProject(project); err != nil {
		return 0, err
	}

	now := time.Now()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (
			name, client, materiality_threshold, materiality_percentage,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`,
		project.Name,
		project.Client,
		project.MaterialityThreshold,
		project.MaterialityPercentage,
		now,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create project: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get project ID: %w", err)
	}

	project.ID = id
	project.CreatedAt = now
	project.UpdatedAt = now
	return id, nil
}

// GetProjectByID retrieves a single project.
func (s *SQLiteStorage) GetProjectByID(ctx context.Context, id int64) (*model.Project, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var p model.Project
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(client, ''),
			materiality_threshold, materiality_percentage,
			total_documents, processed_documents,
			total_adjustments, reviewed_adjustments,
			created_at, updated_at
		FROM projects WHERE id = ?
	`, id).Scan(
		&p.ID, &p.Name, &p.Client,
		&p.MaterialityThreshold, &p.MaterialityPercentage,
		&p.TotalDocuments, &p.ProcessedDocuments,
		&p.TotalAdjustments, &p.ReviewedAdjustments,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return &p, nil
}

// ListProjects returns all projects, most recently created first.
func (s *SQLiteStorage) ListProjects(ctx context.Context) ([]model.Project, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(client, ''),
			materiality_threshold, materiality_percentage,
			total_documents, processed_documents,
			total_adjustments, reviewed_adjustments,
			created_at, updated_at
		FROM projects ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []model.Project
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Client,
			&p.MaterialityThreshold, &p.MaterialityPercentage,
			&p.TotalDocuments, &p.ProcessedDocuments,
			&p.TotalAdjustments, &p.ReviewedAdjustments,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}

	return projects, rows.Err()
}

// UpdateProjectMetrics recomputes the project's denormalized document and
// adjustment counters from the current table contents.
func (s *SQLiteStorage) UpdateProjectMetrics(ctx context.Context, projectID int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE projects SET
			total_documents = (
				SELECT COUNT(*) FROM documents WHERE project_id = projects.id
			),
			processed_documents = (
				SELECT COUNT(*) FROM documents
				WHERE project_id = projects.id AND status = 'completed'
			),
			total_adjustments = (
				SELECT COUNT(*) FROM adjustments WHERE project_id = projects.id
			),
			reviewed_adjustments = (
				SELECT COUNT(*) FROM adjustments
				WHERE project_id = projects.id AND status != 'pending'
			),
			updated_at = ?
		WHERE id = ?
	`, time.Now(), projectID)
	if err != nil {
		return fmt.Errorf("failed to update project metrics: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("project %d: %w", projectID, common.ErrNotFound)
	}

	return nil
}
