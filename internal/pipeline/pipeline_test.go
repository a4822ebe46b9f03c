package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillaudit/quill/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPayload() map[string]any {
	return map[string]any{
		"accounts": []any{
			map[string]any{"name": "Equipment", "balance": 150000.0},
		},
	}
}

func TestRunSingleCandidate(t *testing.T) {
	identifyResponse := `[{
		"category": "depreciation",
		"title": "Understated depreciation on equipment",
		"description": "Equipment depreciated over 10 years instead of 7",
		"estimated_amount": 5000,
		"confidence": 0.92,
		"accounts_affected": ["1500", "1510"],
		"reasoning": "Useful life assumption is inconsistent with asset class"
	}]`
	client := NewMockTextClient(identifyResponse, "Depreciation expense is understated due to an extended useful life assumption.")
	p := New(client, testLogger())

	results := p.Run(context.Background(), testPayload(), model.DocTypeGeneralLedger, 1000, 0.05)

	require.Len(t, results, 1)
	adj := results[0]
	assert.Equal(t, model.CategoryDepreciation, adj.Category)
	assert.Equal(t, "Understated depreciation on equipment", adj.Title)
	assert.Equal(t, "AI_RULE_DEPRECIATION", adj.RuleApplied)
	assert.Equal(t, "Depreciation Expense", adj.DebitAccount)
	assert.Equal(t, "Accumulated Depreciation", adj.CreditAccount)
	assert.Equal(t, []string{"1500", "1510"}, adj.AccountsAffected)
	assert.InDelta(t, 5000.0, adj.Amount, 0.001)
	assert.InDelta(t, 0.92, adj.Confidence, 0.001)
	assert.True(t, adj.IsMaterial)
	assert.Equal(t, "Exceeds materiality threshold of $1,000.00", adj.MaterialityReason)
	assert.Equal(t, "Depreciation expense is understated due to an extended useful life assumption.", adj.Narrative)
	assert.Equal(t, model.StatusPending, adj.Status)
	assert.False(t, adj.ProcessedAt.IsZero())
}

func TestRunUnparsableResponse(t *testing.T) {
	client := NewMockTextClient("I found several issues worth discussing.", "narrative")
	p := New(client, testLogger())

	results := p.Run(context.Background(), testPayload(), model.DocTypeProfitLoss, 1000, 0.05)

	require.Len(t, results, 1)
	adj := results[0]
	assert.Equal(t, "Parsing Error", adj.Title)
	assert.Equal(t, model.CategoryOther, adj.Category)
	assert.InDelta(t, 0.1, adj.Confidence, 0.001)
	assert.Equal(t, "AI_RULE_OTHER", adj.RuleApplied)
	assert.False(t, adj.IsMaterial)
}

func TestRunEmptyArray(t *testing.T) {
	client := NewMockTextClient("[]")
	p := New(client, testLogger())

	results := p.Run(context.Background(), testPayload(), model.DocTypeBalanceSheet, 1000, 0.05)

	assert.Empty(t, results)
	assert.Equal(t, 1, client.CallCount(), "no narrative calls should happen with no candidates")
}

func TestRunIdentificationFailure(t *testing.T) {
	client := NewFailingTextClient(errors.New("connection refused"))
	p := New(client, testLogger())

	results := p.Run(context.Background(), testPayload(), model.DocTypeGeneralLedger, 1000, 0.05)

	require.Len(t, results, 1)
	adj := results[0]
	assert.Equal(t, "ERROR_RULE", adj.RuleApplied)
	assert.Equal(t, "Workflow Error", adj.Title)
	assert.Equal(t, "Error occurred during processing", adj.Narrative)
	assert.Equal(t, "Error in processing", adj.MaterialityReason)
	assert.Contains(t, adj.Description, "connection refused")
	assert.False(t, adj.IsMaterial)
	assert.Zero(t, adj.Confidence)
}

func TestRunPreservesCandidateOrder(t *testing.T) {
	identifyResponse := `[
		{"category": "revenue_recognition", "title": "First", "estimated_amount": 100, "confidence": 0.9},
		{"category": "expense_accrual", "title": "Second", "estimated_amount": 200, "confidence": 0.8},
		{"category": "bad_debt", "title": "Third", "estimated_amount": 300, "confidence": 0.7}
	]`
	client := NewMockTextClient(identifyResponse, "narrative")
	p := New(client, testLogger())

	results := p.Run(context.Background(), testPayload(), model.DocTypeGeneralLedger, 1000, 0.05)

	require.Len(t, results, 3)
	assert.Equal(t, "First", results[0].Title)
	assert.Equal(t, "Second", results[1].Title)
	assert.Equal(t, "Third", results[2].Title)
}

func TestRunDropsNonObjectCandidates(t *testing.T) {
	identifyResponse := `[
		{"category": "depreciation", "title": "Keep me", "estimated_amount": 50, "confidence": 0.9},
		"just a string",
		{"category": "bad_debt", "title": "Keep me too", "estimated_amount": 75, "confidence": 0.8}
	]`
	client := NewMockTextClient(identifyResponse, "narrative")
	p := New(client, testLogger())

	results := p.Run(context.Background(), testPayload(), model.DocTypeGeneralLedger, 1000, 0.05)

	require.Len(t, results, 2)
	assert.Equal(t, "Keep me", results[0].Title)
	assert.Equal(t, "Keep me too", results[1].Title)
}

func TestRunSingleObjectResponse(t *testing.T) {
	identifyResponse := `{"category": "tax_adjustment", "title": "Deferred tax", "estimated_amount": 2500, "confidence": 0.85}`
	client := NewMockTextClient(identifyResponse, "narrative")
	p := New(client, testLogger())

	results := p.Run(context.Background(), testPayload(), model.DocTypeGeneralLedger, 1000, 0.05)

	require.Len(t, results, 1)
	assert.Equal(t, model.CategoryTaxAdjustment, results[0].Category)
	assert.Equal(t, "Deferred tax", results[0].Title)
}

func TestRunNarrativeFallback(t *testing.T) {
	identifyResponse := `[{"category": "depreciation", "title": "Equipment life", "estimated_amount": 5000, "confidence": 0.9}]`
	client := NewMockTextClient(identifyResponse, "")
	p := New(client, testLogger())

	results := p.Run(context.Background(), testPayload(), model.DocTypeGeneralLedger, 1000, 0.05)

	require.Len(t, results, 1)
	assert.Equal(t, "Standard adjustment for Equipment life. Amount: $5,000.00", results[0].Narrative)
}

func TestRunNeverReturnsNilOnPanic(t *testing.T) {
	p := New(nil, testLogger()) // nil client panics inside identify

	results := p.Run(context.Background(), testPayload(), model.DocTypeGeneralLedger, 1000, 0.05)

	require.Len(t, results, 1)
	assert.Equal(t, "ERROR_RULE", results[0].RuleApplied)
}
