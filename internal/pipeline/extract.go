package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/quillaudit/quill/internal/llm"
	"github.com/quillaudit/quill/internal/model"
)

const identifySystemPrompt = "You are a financial analysis expert."

// categoryGuidance pairs every category with the hint shown to the model
// during identification. Order matches the enumeration.
var categoryGuidance = []struct {
	category model.Category
	hint     string
}{
	{model.CategoryRevenueRecognition, "timing differences, cut-off issues"},
	{model.CategoryExpenseAccrual, "unrecorded expenses, timing differences"},
	{model.CategoryDepreciation, "method changes, useful life adjustments"},
	{model.CategoryInventoryValuation, "obsolete inventory, valuation method changes"},
	{model.CategoryBadDebt, "collectibility issues, reserve adequacy"},
	{model.CategoryPrepaidExpenses, "amortization timing, classification"},
	{model.CategoryAccruedLiabilities, "vacation accruals, bonus accruals"},
	{model.CategoryPayrollAccrual, "timing differences, accrued wages"},
	{model.CategoryRentAdjustment, "lease accounting, prepaid rent"},
	{model.CategoryInsuranceAdjustment, "prepaid insurance, claims reserves"},
	{model.CategoryTaxAdjustment, "tax provision, deferred taxes"},
	{model.CategoryIntercompanyElimination, "related party transactions"},
	{model.CategoryReclassification, "balance sheet, income statement"},
	{model.CategoryWriteOff, "bad debt, inventory, assets"},
	{model.CategoryBonusAccrual, "management bonuses, performance-based"},
	{model.CategoryCommissionAccrual, "sales commissions, timing"},
	{model.CategoryProfessionalFees, "legal, accounting, consulting"},
	{model.CategoryLitigationReserve, "legal contingencies"},
	{model.CategoryWarrantyReserve, "product warranties"},
	{model.CategoryStockCompensation, "equity compensation"},
	{model.CategoryGoodwillImpairment, "impairment testing"},
	{model.CategoryAssetImpairment, "fixed assets, intangibles"},
	{model.CategoryLeaseAdjustment, "lease accounting under ASC 842"},
	{model.CategoryPensionAdjustment, "pension obligations"},
	{model.CategoryForeignExchange, "currency translation"},
	{model.CategoryRestructuring, "restructuring costs"},
	{model.CategoryAcquisitionAdjustment, "purchase price allocation"},
	{model.CategoryOther, "miscellaneous adjustments"},
}

// identify runs the batch identification call and populates st.candidates.
// A capability-level error fails the whole run; the caller degrades it to a
// single synthetic error record.
func (p *Pipeline) identify(ctx context.Context, st *runState) error {
	prompt, err := buildIdentifyPrompt(st.docType, st.payload)
	if err != nil {
		return fmt.Errorf("failed to build identification prompt: %w", err)
	}

	response, err := p.client.Complete(ctx, llm.Request{
		System: identifySystemPrompt,
		User:   prompt,
	})
	if err != nil {
		return fmt.Errorf("identification call failed: %w", err)
	}

	st.candidates = parseCandidates(response)
	return nil
}

// buildIdentifyPrompt constructs the identification instruction: the full
// category taxonomy, the desired output shape, and the serialized payload.
func buildIdentifyPrompt(docType model.DocumentType, payload map[string]any) (string, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize document data: %w", err)
	}

	var taxonomy strings.Builder
	for i, entry := range categoryGuidance {
		fmt.Fprintf(&taxonomy, "%d. %s - %s\n", i+1, entry.category, entry.hint)
	}

	return fmt.Sprintf(`You are an expert financial analyst specializing in Quality of Earnings analysis.

Analyze the following financial document data and identify potential adjustments.

Document Type: %s
Document Data:
%s

Based on this data, identify potential adjustments across these categories:
%s
For each potential adjustment, provide:
- category: the category identifier from above
- title: brief descriptive title
- description: detailed explanation
- estimated_amount: numerical estimate (use 0 if unknown)
- confidence: 0.0 to 1.0 confidence level
- accounts_affected: list of account names/numbers
- reasoning: why this adjustment is needed

Return a JSON array of adjustment objects. Be thorough but only include adjustments that are actually supported by the data.`,
		docType, string(data), taxonomy.String()), nil
}

// parseCandidates parses the model's response into raw candidates. It tries
// a JSON array first, then a single object, and finally falls back to one
// synthetic parse-failure candidate so the orchestrator always has something
// to loop over and the failure stays visible downstream.
func parseCandidates(content string) []candidate {
	content = llm.CleanMarkdownWrapper(content)

	var items []any
	if err := json.Unmarshal([]byte(content), &items); err == nil {
		candidates := make([]candidate, len(items))
		for i, item := range items {
			candidates[i] = item
		}
		return candidates
	}

	var single map[string]any
	if err := json.Unmarshal([]byte(content), &single); err == nil {
		return []candidate{single}
	}

	return []candidate{parseFailureCandidate()}
}

// parseFailureCandidate is the flagged synthetic candidate produced when the
// response could not be parsed at all.
func parseFailureCandidate() map[string]any {
	return map[string]any{
		"title":             "Parsing Error",
		"description":       "Could not parse AI response",
		"category":          "other",
		"estimated_amount":  0,
		"confidence":        0.1,
		"accounts_affected": []any{},
		"reasoning":         "Response parsing failed",
	}
}
