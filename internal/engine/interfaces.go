package engine

import (
	"context"

	"github.com/quillaudit/quill/internal/model"
)

// Runner executes the adjustment pipeline over one document payload.
// Implementations never return an error: failures surface as synthetic
// error records in the result list.
type Runner interface {
	Run(ctx context.Context, payload map[string]any, docType model.DocumentType, materialityThreshold, materialityPercentage float64) []model.Adjustment
}
