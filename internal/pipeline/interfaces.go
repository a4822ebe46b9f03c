package pipeline

import (
	"context"

	"github.com/quillaudit/quill/internal/llm"
)

// TextClient is the pipeline's view of the external text-generation
// capability. *llm.Generator satisfies it; tests substitute a mock.
type TextClient interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}
