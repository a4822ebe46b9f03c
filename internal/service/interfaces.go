// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/quillaudit/quill/internal/model"
)

// AdjustmentFilter defines filtering options for adjustment queries.
type AdjustmentFilter struct {
	ProjectID  *int64
	DocumentID *string
	Status     *model.ReviewStatus
	Category   *model.Category
	Limit      int
	Offset     int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Project operations
	CreateProject(ctx context.Context, project *model.Project) (int64, error)
	GetProjectByID(ctx context.Context, id int64) (*model.Project, error)
	ListProjects(ctx context.Context) ([]model.Project, error)
	UpdateProjectMetrics(ctx context.Context, projectID int64) error

	// Document operations
	SaveDocument(ctx context.Context, doc *model.Document) error
	GetDocumentByID(ctx context.Context, id string) (*model.Document, error)
	GetDocumentsByStatus(ctx context.Context, status model.DocumentStatus) ([]model.Document, error)
	UpdateDocumentStatus(ctx context.Context, id string, status model.DocumentStatus, errMsg string) error
	MarkDocumentProcessed(ctx context.Context, id string, processingTime int64) error

	// Adjustment operations
	SaveAdjustments(ctx context.Context, adjustments []model.Adjustment) error
	GetAdjustmentByID(ctx context.Context, id int64) (*model.Adjustment, error)
	GetAdjustments(ctx context.Context, filter AdjustmentFilter) ([]model.Adjustment, error)
	ReviewAdjustment(ctx context.Context, id int64, status model.ReviewStatus, notes string) error
	AutoApproveHighConfidence(ctx context.Context, projectID int64, confidenceThreshold float64) (int, error)
	GetAdjustmentSummary(ctx context.Context, projectID int64) (*AdjustmentSummary, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// CategoryBreakdown aggregates adjustments for one category.
type CategoryBreakdown struct {
	Count  int
	Amount float64
}

// AdjustmentSummary contains aggregate review metrics for a project.
type AdjustmentSummary struct {
	ByCategory          map[model.Category]CategoryBreakdown
	CalculatedAt        time.Time
	TotalAdjustments    int
	AcceptedAdjustments int
	RejectedAdjustments int
	PendingAdjustments  int
	MaterialAdjustments int
	AcceptedAmount      float64
	AverageConfidence   float64
}

// CompletionStats shows the results of a processing run.
type CompletionStats struct {
	Duration           time.Duration
	DocumentsProcessed int
	DocumentsFailed    int
	AdjustmentsCreated int
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
