// Package engine orchestrates batch document processing: it drains pending
// documents, runs each through the adjustment pipeline, and persists the
// results.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/quillaudit/quill/internal/common"
	"github.com/quillaudit/quill/internal/model"
	"github.com/quillaudit/quill/internal/service"
)

// ProcessingEngine runs pending documents through the adjustment pipeline.
type ProcessingEngine struct {
	storage  service.Storage
	pipeline Runner
	progress func(completed, total int)
	logger   *slog.Logger
	model    string
	cfg      Config
}

// Config holds configuration options for the processing engine.
type Config struct {
	// Concurrency bounds how many documents process at once.
	Concurrency int

	// SoftTimeout logs a warning when a document takes this long.
	SoftTimeout time.Duration

	// HardTimeout cancels a document's processing outright.
	HardTimeout time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency: 3,
		SoftTimeout: 2 * time.Minute,
		HardTimeout: 10 * time.Minute,
	}
}

// New creates a processing engine with the default configuration.
func New(storage service.Storage, pipeline Runner, modelName string, logger *slog.Logger) *ProcessingEngine {
	return NewWithConfig(storage, pipeline, modelName, logger, DefaultConfig())
}

// NewWithConfig creates a processing engine with custom configuration.
func NewWithConfig(storage service.Storage, pipeline Runner, modelName string, logger *slog.Logger, cfg Config) *ProcessingEngine {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.HardTimeout <= 0 {
		cfg.HardTimeout = DefaultConfig().HardTimeout
	}
	return &ProcessingEngine{
		storage:  storage,
		pipeline: pipeline,
		model:    modelName,
		logger:   logger,
		cfg:      cfg,
	}
}

// SetProgressFunc registers a callback invoked after each document finishes,
// successfully or not. Used by the CLI to drive a progress bar.
func (e *ProcessingEngine) SetProgressFunc(fn func(completed, total int)) {
	e.progress = fn
}

// ProcessPending drains all pending documents through the pipeline with
// bounded concurrency and returns aggregate statistics. Per-document failures
// are recorded on the document and do not abort the batch.
func (e *ProcessingEngine) ProcessPending(ctx context.Context) (*service.CompletionStats, error) {
	docs, err := e.storage.GetDocumentsByStatus(ctx, model.DocStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending documents: %w", err)
	}

	e.logger.Info("starting document processing",
		"pending", len(docs),
		"concurrency", e.cfg.Concurrency)

	stats := &service.CompletionStats{}
	if len(docs) == 0 {
		return stats, nil
	}

	start := time.Now()

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		completed int
	)
	sem := make(chan struct{}, e.cfg.Concurrency)

	for i := range docs {
		doc := docs[i]
		wg.Add(1)
		sem <- struct{}{}

		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			created, procErr := e.processOne(ctx, &doc)

			mu.Lock()
			completed++
			done := completed
			if procErr != nil {
				stats.DocumentsFailed++
			} else {
				stats.DocumentsProcessed++
				stats.AdjustmentsCreated += created
			}
			mu.Unlock()

			if e.progress != nil {
				e.progress(done, len(docs))
			}
		}()
	}

	wg.Wait()
	stats.Duration = time.Since(start)

	e.logger.Info("document processing complete",
		"processed", stats.DocumentsProcessed,
		"failed", stats.DocumentsFailed,
		"adjustments", stats.AdjustmentsCreated,
		"duration", stats.Duration)

	return stats, nil
}

// ProcessDocument runs a single document through the pipeline regardless of
// its current status. Used by the reprocess flow.
func (e *ProcessingEngine) ProcessDocument(ctx context.Context, documentID string) error {
	doc, err := e.storage.GetDocumentByID(ctx, documentID)
	if err != nil {
		return err
	}

	if _, err := e.processOne(ctx, doc); err != nil {
		return err
	}
	return nil
}

// processOne handles the full lifecycle of one document: status transitions,
// the pipeline run under timeout, and persistence of the results. The
// returned error is also recorded on the document.
func (e *ProcessingEngine) processOne(ctx context.Context, doc *model.Document) (int, error) {
	if err := e.storage.UpdateDocumentStatus(ctx, doc.ID, model.DocStatusProcessing, ""); err != nil {
		return 0, err
	}

	adjustments, err := e.analyze(ctx, doc)
	if err != nil {
		e.logger.Error("document processing failed",
			"document_id", doc.ID,
			"filename", doc.Filename,
			"error", err)
		if statusErr := e.storage.UpdateDocumentStatus(ctx, doc.ID, model.DocStatusError, err.Error()); statusErr != nil {
			e.logger.Error("failed to record document error", "document_id", doc.ID, "error", statusErr)
		}
		return 0, err
	}

	if refreshErr := e.storage.UpdateProjectMetrics(ctx, doc.ProjectID); refreshErr != nil {
		e.logger.Warn("failed to refresh project metrics",
			"project_id", doc.ProjectID,
			"error", refreshErr)
	}

	return len(adjustments), nil
}

// analyze runs the pipeline for one document and persists the adjustments.
func (e *ProcessingEngine) analyze(ctx context.Context, doc *model.Document) ([]model.Adjustment, error) {
	if len(doc.ExtractedData) == 0 {
		return nil, fmt.Errorf("document %s: %w", doc.ID, common.ErrNoExtractedData)
	}

	project, err := e.storage.GetProjectByID(ctx, doc.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project settings: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, e.cfg.HardTimeout)
	defer cancel()

	if e.cfg.SoftTimeout > 0 {
		timer := time.AfterFunc(e.cfg.SoftTimeout, func() {
			e.logger.Warn("document processing is slow",
				"document_id", doc.ID,
				"filename", doc.Filename,
				"soft_timeout", e.cfg.SoftTimeout)
		})
		defer timer.Stop()
	}

	start := time.Now()
	var adjustments []model.Adjustment
	if doc.LedgerType() {
		adjustments = e.pipeline.Run(runCtx, doc.ExtractedData, doc.Type,
			project.MaterialityThreshold, project.MaterialityPercentage)
	} else {
		e.logger.Info("skipping adjustment analysis for non-ledger document",
			"document_id", doc.ID,
			"type", doc.Type)
	}

	elapsed := time.Since(start).Milliseconds()
	for i := range adjustments {
		adjustments[i].ProjectID = doc.ProjectID
		adjustments[i].DocumentID = doc.ID
		adjustments[i].ModelUsed = e.model
		adjustments[i].ProcessingTime = elapsed
	}

	if len(adjustments) > 0 {
		if err := e.storage.SaveAdjustments(ctx, adjustments); err != nil {
			return nil, fmt.Errorf("failed to save adjustments: %w", err)
		}
	}

	if err := e.storage.MarkDocumentProcessed(ctx, doc.ID, elapsed); err != nil {
		return nil, fmt.Errorf("failed to mark document processed: %w", err)
	}

	return adjustments, nil
}
