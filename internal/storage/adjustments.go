package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/quillaudit/quill/internal/common"
	"github.com/quillaudit/quill/internal/model"
	"github.com/quillaudit/quill/internal/service"
)

const adjustmentColumns = `id, project_id, document_id, category, title,
	COALESCE(description, ''), COALESCE(reasoning, ''), COALESCE(narrative, ''),
	COALESCE(rule_applied, ''), amount, confidence, is_material,
	COALESCE(materiality_reason, ''), COALESCE(debit_account, ''),
	COALESCE(credit_account, ''), COALESCE(accounts_affected, ''),
	COALESCE(account_impact, ''), status, COALESCE(reviewer_notes, ''),
	COALESCE(model_used, ''), processing_time, processed_at, reviewed_at, created_at`

// SaveAdjustments persists a batch of adjustments in one transaction.
// An empty batch is a no-op.
func (s *SQLiteStorage) SaveAdjustments(ctx context.Context, adjustments []model.Adjustment) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAdjustments(adjustments); err != nil {
		return err
	}
	if len(adjustments) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO adjustments (
			project_id, document_id, category, title, description,
			reasoning, narrative, rule_applied, amount, confidence,
			is_material, materiality_reason, debit_account, credit_account,
			accounts_affected, account_impact, status, reviewer_notes,
			model_used, processing_time, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range adjustments {
		adj := &adjustments[i]

		accounts, marshalErr := json.Marshal(adj.AccountsAffected)
		if marshalErr != nil {
			return fmt.Errorf("failed to serialize accounts affected: %w", marshalErr)
		}
		impact, marshalErr := json.Marshal(adj.AccountImpact)
		if marshalErr != nil {
			return fmt.Errorf("failed to serialize account impact: %w", marshalErr)
		}

		result, execErr := stmt.ExecContext(ctx,
			adj.ProjectID,
			adj.DocumentID,
			string(adj.Category),
			adj.Title,
			adj.Description,
			adj.Reasoning,
			adj.Narrative,
			adj.RuleApplied,
			adj.Amount,
			adj.Confidence,
			adj.IsMaterial,
			adj.MaterialityReason,
			adj.DebitAccount,
			adj.CreditAccount,
			string(accounts),
			string(impact),
			string(adj.Status),
			adj.ReviewerNotes,
			adj.ModelUsed,
			adj.ProcessingTime,
			adj.ProcessedAt,
		)
		if execErr != nil {
			return fmt.Errorf("failed to save adjustment %q: %w", adj.Title, execErr)
		}

		id, idErr := result.LastInsertId()
		if idErr != nil {
			return fmt.Errorf("failed to get adjustment ID: %w", idErr)
		}
		adj.ID = id
	}

	return tx.Commit()
}

// GetAdjustmentByID retrieves a single adjustment.
func (s *SQLiteStorage) GetAdjustmentByID(ctx context.Context, id int64) (*model.Adjustment, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+adjustmentColumns+` FROM adjustments WHERE id = ?`, id)

	adj, err := scanAdjustment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("adjustment %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get adjustment: %w", err)
	}

	return adj, nil
}

// GetAdjustments returns adjustments matching the filter, in insertion order.
func (s *SQLiteStorage) GetAdjustments(ctx context.Context, filter service.AdjustmentFilter) ([]model.Adjustment, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		conditions []string
		args       []any
	)
	if filter.ProjectID != nil {
		conditions = append(conditions, "project_id = ?")
		args = append(args, *filter.ProjectID)
	}
	if filter.DocumentID != nil {
		conditions = append(conditions, "document_id = ?")
		args = append(args, *filter.DocumentID)
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.Category != nil {
		conditions = append(conditions, "category = ?")
		args = append(args, string(*filter.Category))
	}

	query := `SELECT ` + adjustmentColumns + ` FROM adjustments`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query adjustments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var adjustments []model.Adjustment
	for rows.Next() {
		adj, scanErr := scanAdjustment(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan adjustment: %w", scanErr)
		}
		adjustments = append(adjustments, *adj)
	}

	return adjustments, rows.Err()
}

// ReviewAdjustment records an analyst's decision on one adjustment.
func (s *SQLiteStorage) ReviewAdjustment(ctx context.Context, id int64, status model.ReviewStatus, notes string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateReviewStatus(status); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE adjustments SET status = ?, reviewer_notes = ?, reviewed_at = ?
		WHERE id = ?
	`, string(status), notes, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to review adjustment: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("adjustment %d: %w", id, common.ErrNotFound)
	}

	return nil
}

// AutoApproveHighConfidence accepts every pending adjustment in the project
// at or above the confidence threshold and returns how many were approved.
func (s *SQLiteStorage) AutoApproveHighConfidence(ctx context.Context, projectID int64, confidenceThreshold float64) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE adjustments SET
			status = ?, reviewer_notes = 'Auto-approved: high confidence', reviewed_at = ?
		WHERE project_id = ? AND status = ? AND confidence >= ?
	`,
		string(model.StatusAccepted),
		time.Now(),
		projectID,
		string(model.StatusPending),
		confidenceThreshold,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to auto-approve adjustments: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check update result: %w", err)
	}

	return int(affected), nil
}

// GetAdjustmentSummary aggregates review metrics for one project.
func (s *SQLiteStorage) GetAdjustmentSummary(ctx context.Context, projectID int64) (*service.AdjustmentSummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	summary := &service.AdjustmentSummary{
		ByCategory:   make(map[model.Category]service.CategoryBreakdown),
		CalculatedAt: time.Now(),
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'accepted' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'rejected' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_material THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'accepted' THEN amount ELSE 0 END), 0),
			COALESCE(AVG(confidence), 0)
		FROM adjustments WHERE project_id = ?
	`, projectID).Scan(
		&summary.TotalAdjustments,
		&summary.AcceptedAdjustments,
		&summary.RejectedAdjustments,
		&summary.PendingAdjustments,
		&summary.MaterialAdjustments,
		&summary.AcceptedAmount,
		&summary.AverageConfidence,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate adjustments: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COUNT(*), COALESCE(SUM(amount), 0)
		FROM adjustments WHERE project_id = ?
		GROUP BY category
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate by category: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			category  string
			breakdown service.CategoryBreakdown
		)
		if err := rows.Scan(&category, &breakdown.Count, &breakdown.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan category breakdown: %w", err)
		}
		summary.ByCategory[model.Category(category)] = breakdown
	}

	return summary, rows.Err()
}

func scanAdjustment(row rowScanner) (*model.Adjustment, error) {
	var (
		adj         model.Adjustment
		category    string
		status      string
		accounts    string
		impact      string
		processedAt sql.NullTime
		reviewedAt  sql.NullTime
	)

	if err := row.Scan(
		&adj.ID, &adj.ProjectID, &adj.DocumentID, &category, &adj.Title,
		&adj.Description, &adj.Reasoning, &adj.Narrative,
		&adj.RuleApplied, &adj.Amount, &adj.Confidence, &adj.IsMaterial,
		&adj.MaterialityReason, &adj.DebitAccount,
		&adj.CreditAccount, &accounts,
		&impact, &status, &adj.ReviewerNotes,
		&adj.ModelUsed, &adj.ProcessingTime,
		&processedAt, &reviewedAt, &adj.CreatedAt,
	); err != nil {
		return nil, err
	}

	adj.Category = model.Category(category)
	adj.Status = model.ReviewStatus(status)
	if processedAt.Valid {
		adj.ProcessedAt = processedAt.Time
	}
	if reviewedAt.Valid {
		adj.ReviewedAt = &reviewedAt.Time
	}
	if accounts != "" && accounts != "null" {
		if err := json.Unmarshal([]byte(accounts), &adj.AccountsAffected); err != nil {
			return nil, fmt.Errorf("failed to parse accounts affected: %w", err)
		}
	}
	if impact != "" && impact != "null" {
		if err := json.Unmarshal([]byte(impact), &adj.AccountImpact); err != nil {
			return nil, fmt.Errorf("failed to parse account impact: %w", err)
		}
	}

	return &adj, nil
}
