package pipeline

import "github.com/quillaudit/quill/internal/model"

// candidate is one raw proposed adjustment as parsed from the model's
// response. Usually a map[string]any; non-object elements are kept so the
// enricher can drop them individually without aborting the batch.
type candidate any

// runState is the transient state for one pipeline run. Each run owns its
// own instance; nothing is shared across concurrent runs.
type runState struct {
	payload    map[string]any
	docType    model.DocumentType
	candidates []candidate
	results    []model.Adjustment
	cursor     int
	threshold  float64
	percentage float64
}
