package pipeline

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/quillaudit/quill/internal/model"
)

// enrich converts a raw candidate into a structured adjustment. Candidates
// that are not JSON objects are dropped; everything else is normalized with
// defaults so a sloppy model response still yields a usable record.
func (p *Pipeline) enrich(cand candidate) (*model.Adjustment, bool) {
	fields, ok := cand.(map[string]any)
	if !ok {
		return nil, false
	}

	rawCategory := stringField(fields, "category", "other")
	category := p.mapCategory(rawCategory)

	adj := &model.Adjustment{
		Title:            stringField(fields, "title", "Unknown Adjustment"),
		Description:      stringField(fields, "description", ""),
		Reasoning:        stringField(fields, "reasoning", ""),
		Category:         category,
		Amount:           floatField(fields, "estimated_amount", 0),
		Confidence:       clamp(floatField(fields, "confidence", 0.5), 0, 1),
		RuleApplied:      "AI_RULE_" + strings.ToUpper(rawCategory),
		AccountsAffected: stringSliceField(fields, "accounts_affected"),
		AccountImpact:    map[string]float64{},
		Status:           model.StatusPending,
	}

	if pair, ok := p.cfg.AccountMap[category]; ok {
		adj.DebitAccount = pair.Debit
		adj.CreditAccount = pair.Credit
	}

	return adj, true
}

// mapCategory resolves a model-supplied category string against the known
// taxonomy, case-insensitively. Unknown values fall through to Other rather
// than failing the item.
func (p *Pipeline) mapCategory(raw string) model.Category {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return model.CategoryOther
	}

	candidate := model.Category(normalized)
	if candidate.Valid() {
		return candidate
	}

	if mapped, ok := p.cfg.CategoryAliases[normalized]; ok {
		return mapped
	}

	return model.CategoryOther
}

func stringField(fields map[string]any, key, fallback string) string {
	if v, ok := fields[key]; ok {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return fallback
}

func floatField(fields map[string]any, key string, fallback float64) float64 {
	v, ok := fields[key]
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
	case string:
		cleaned := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(n))
		if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
			return f
		}
	}
	return fallback
}

func stringSliceField(fields map[string]any, key string) []string {
	v, ok := fields[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
