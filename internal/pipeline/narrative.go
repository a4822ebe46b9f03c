package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/quillaudit/quill/internal/llm"
	"github.com/quillaudit/quill/internal/model"
)

const narrativeSystemPrompt = "You are a financial reporting expert."

// narrate asks the model for a concise professional explanation of the
// adjustment. Any failure falls back to a deterministic template so every
// adjustment carries a non-empty narrative.
func (p *Pipeline) narrate(ctx context.Context, adj *model.Adjustment) {
	content, err := p.client.Complete(ctx, llm.Request{
		System: narrativeSystemPrompt,
		User:   buildNarrativePrompt(adj),
	})
	if err != nil {
		p.logger.Warn("narrative generation failed, using fallback",
			slog.String("title", adj.Title),
			slog.String("error", err.Error()))
		adj.Narrative = fallbackNarrative(adj)
		return
	}

	narrative := strings.TrimSpace(content)
	if narrative == "" {
		adj.Narrative = fallbackNarrative(adj)
		return
	}
	adj.Narrative = narrative
}

func buildNarrativePrompt(adj *model.Adjustment) string {
	var b strings.Builder
	b.WriteString("Write a professional narrative for this Quality of Earnings adjustment:\n\n")
	fmt.Fprintf(&b, "Category: %s\n", adj.Category)
	fmt.Fprintf(&b, "Title: %s\n", adj.Title)
	fmt.Fprintf(&b, "Description: %s\n", adj.Description)
	fmt.Fprintf(&b, "Amount: %s\n", formatAmount(adj.Amount))
	fmt.Fprintf(&b, "Reasoning: %s\n\n", adj.Reasoning)
	b.WriteString("The narrative should be 2-3 sentences, professional, and explain ")
	b.WriteString("the adjustment's impact on earnings quality. Respond with the narrative text only.")
	return b.String()
}

func fallbackNarrative(adj *model.Adjustment) string {
	return fmt.Sprintf("Standard adjustment for %s. Amount: %s", adj.Title, formatAmount(adj.Amount))
}
