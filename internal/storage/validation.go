package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/quillaudit/quill/internal/model"
)

// Validation errors.
var (
	ErrNilContext        = errors.New("context cannot be nil")
	ErrEmptyString       = errors.New("string parameter cannot be empty")
	ErrNilParameter      = errors.New("parameter cannot be nil")
	ErrInvalidProject    = errors.New("invalid project")
	ErrInvalidDocument   = errors.New("invalid document")
	ErrInvalidAdjustment = errors.New("invalid adjustment")
	ErrInvalidStatus     = errors.New("invalid review status")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateProject validates a project before persistence.
func validateProject(project *model.Project) error {
	if project == nil {
		return fmt.Errorf("%w: project", ErrNilParameter)
	}
	if strings.TrimSpace(project.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidProject)
	}
	if project.MaterialityThreshold < 0 {
		return fmt.Errorf("%w: negative materiality threshold", ErrInvalidProject)
	}
	if project.MaterialityPercentage < 0 || project.MaterialityPercentage > 1 {
		return fmt.Errorf("%w: materiality percentage must be between 0 and 1", ErrInvalidProject)
	}
	return nil
}

// validateDocument validates a document before persistence.
func validateDocument(doc *model.Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document", ErrNilParameter)
	}
	if doc.ProjectID == 0 {
		return fmt.Errorf("%w: missing project ID", ErrInvalidDocument)
	}
	if strings.TrimSpace(doc.Filename) == "" {
		return fmt.Errorf("%w: missing filename", ErrInvalidDocument)
	}
	if doc.Type == "" {
		return fmt.Errorf("%w: missing type", ErrInvalidDocument)
	}
	return nil
}

// validateAdjustments validates a batch of adjustments before persistence.
func validateAdjustments(adjustments []model.Adjustment) error {
	if adjustments == nil {
		return fmt.Errorf("%w: adjustments", ErrNilParameter)
	}
	for i := range adjustments {
		if err := validateAdjustment(&adjustments[i]); err != nil {
			return fmt.Errorf("adjustment at index %d: %w", i, err)
		}
	}
	return nil
}

// validateAdjustment validates a single adjustment.
func validateAdjustment(adj *model.Adjustment) error {
	if adj == nil {
		return fmt.Errorf("%w: adjustment", ErrNilParameter)
	}
	if adj.ProjectID == 0 {
		return fmt.Errorf("%w: missing project ID", ErrInvalidAdjustment)
	}
	if adj.DocumentID == "" {
		return fmt.Errorf("%w: missing document ID", ErrInvalidAdjustment)
	}
	if strings.TrimSpace(adj.Title) == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidAdjustment)
	}
	if !adj.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidAdjustment, adj.Category)
	}
	return nil
}

// validateReviewStatus ensures a status is one a reviewer may assign.
func validateReviewStatus(status model.ReviewStatus) error {
	switch status {
	case model.StatusAccepted, model.StatusRejected, model.StatusModified, model.StatusPending:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
}
