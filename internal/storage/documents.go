package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quillaudit/quill/internal/common"
	"github.com/quillaudit/quill/internal/model"
)

// SaveDocument persists a document, assigning an ID if it has none.
// Saving an existing ID replaces the stored record.
func (s *SQLiteStorage) SaveDocument(ctx context.Context, doc *model.Document) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateDocument(doc); err != nil {
		return err
	}

	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now()
	}
	if doc.Status == "" {
		doc.Status = model.DocStatusPending
	}

	extracted, err := json.Marshal(doc.ExtractedData)
	if err != nil {
		return fmt.Errorf("failed to serialize extracted data: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (
			id, project_id, filename, type, status,
			classification_confidence, extracted_data, error_message,
			processing_time, uploaded_at, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			type = excluded.type,
			status = excluded.status,
			classification_confidence = excluded.classification_confidence,
			extracted_data = excluded.extracted_data,
			error_message = excluded.error_message,
			processing_time = excluded.processing_time,
			processed_at = excluded.processed_at
	`,
		doc.ID,
		doc.ProjectID,
		doc.Filename,
		string(doc.Type),
		string(doc.Status),
		doc.ClassificationConfidence,
		string(extracted),
		doc.ErrorMessage,
		doc.ProcessingTime,
		doc.UploadedAt,
		doc.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}

	return nil
}

// GetDocumentByID retrieves a single document with its extracted payload.
func (s *SQLiteStorage) GetDocumentByID(ctx context.Context, id string) (*model.Document, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, filename, type, status,
			classification_confidence, COALESCE(extracted_data, ''),
			COALESCE(error_message, ''), processing_time,
			uploaded_at, processed_at
		FROM documents WHERE id = ?
	`, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return doc, nil
}

// GetDocumentsByStatus returns all documents in the given processing state,
// oldest upload first so batch runs drain the queue in order.
func (s *SQLiteStorage) GetDocumentsByStatus(ctx context.Context, status model.DocumentStatus) ([]model.Document, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, filename, type, status,
			classification_confidence, COALESCE(extracted_data, ''),
			COALESCE(error_message, ''), processing_time,
			uploaded_at, processed_at
		FROM documents WHERE status = ? ORDER BY uploaded_at ASC
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []model.Document
	for rows.Next() {
		doc, scanErr := scanDocument(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan document: %w", scanErr)
		}
		docs = append(docs, *doc)
	}

	return docs, rows.Err()
}

// UpdateDocumentStatus moves a document to a new processing state. The error
// message is stored verbatim; pass empty to clear it.
func (s *SQLiteStorage) UpdateDocumentStatus(ctx context.Context, id string, status model.DocumentStatus, errMsg string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE documents SET status = ?, error_message = ? WHERE id = ?
	`, string(status), errMsg, id)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("document %s: %w", id, common.ErrNotFound)
	}

	return nil
}

// MarkDocumentProcessed completes a document: status, processing duration,
// and the processed timestamp in one update.
func (s *SQLiteStorage) MarkDocumentProcessed(ctx context.Context, id string, processingTime int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE documents SET
			status = ?, processing_time = ?, processed_at = ?, error_message = ''
		WHERE id = ?
	`, string(model.DocStatusCompleted), processingTime, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark document processed: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("document %s: %w", id, common.ErrNotFound)
	}

	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var (
		doc         model.Document
		docType     string
		status      string
		extracted   string
		processedAt sql.NullTime
	)

	if err := row.Scan(
		&doc.ID, &doc.ProjectID, &doc.Filename, &docType, &status,
		&doc.ClassificationConfidence, &extracted,
		&doc.ErrorMessage, &doc.ProcessingTime,
		&doc.UploadedAt, &processedAt,
	); err != nil {
		return nil, err
	}

	doc.Type = model.DocumentType(docType)
	doc.Status = model.DocumentStatus(status)
	if processedAt.Valid {
		doc.ProcessedAt = &processedAt.Time
	}
	if extracted != "" && extracted != "null" {
		if err := json.Unmarshal([]byte(extracted), &doc.ExtractedData); err != nil {
			return nil, fmt.Errorf("failed to parse extracted data: %w", err)
		}
	}

	return &doc, nil
}
