package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillaudit/quill/internal/common"
	"github.com/quillaudit/quill/internal/model"
	"github.com/quillaudit/quill/internal/service"
)

func newTestAdjustment(projectID int64, documentID, title string, amount, confidence float64) model.Adjustment {
	return model.Adjustment{
		ProjectID:         projectID,
		DocumentID:        documentID,
		Category:          model.CategoryDepreciation,
		Title:             title,
		Description:       "Useful life correction",
		Reasoning:         "Asset class requires 7-year schedule",
		Narrative:         "Depreciation expense is understated.",
		RuleApplied:       "AI_RULE_DEPRECIATION",
		Amount:            amount,
		Confidence:        confidence,
		IsMaterial:        amount >= 1000,
		MaterialityReason: "Exceeds materiality threshold of $1,000.00",
		DebitAccount:      "Depreciation Expense",
		CreditAccount:     "Accumulated Depreciation",
		AccountsAffected:  []string{"1500", "1510"},
		AccountImpact:     map[string]float64{},
		Status:            model.StatusPending,
		ModelUsed:         "test-model",
		ProcessedAt:       time.Now().UTC(),
	}
}

func seedAdjustments(t *testing.T, store *SQLiteStorage) (int64, string, []model.Adjustment) {
	t.Helper()

	projectID := newTestProject(t, store)
	doc := newTestDocument(t, store, projectID)

	adjustments := []model.Adjustment{
		newTestAdjustment(projectID, doc.ID, "High confidence", 5000, 0.95),
		newTestAdjustment(projectID, doc.ID, "Medium confidence", 800, 0.7),
		newTestAdjustment(projectID, doc.ID, "Low confidence", 200, 0.3),
	}
	adjustments[1].Category = model.CategoryExpenseAccrual
	adjustments[1].IsMaterial = false
	adjustments[1].MaterialityReason = "Below materiality threshold"
	adjustments[2].Category = model.CategoryOther
	adjustments[2].IsMaterial = false
	adjustments[2].MaterialityReason = "Below materiality threshold"

	require.NoError(t, store.SaveAdjustments(context.Background(), adjustments))
	return projectID, doc.ID, adjustments
}

func TestSaveAndGetAdjustments(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	projectID, docID, saved := seedAdjustments(t, store)
	for _, adj := range saved {
		assert.Positive(t, adj.ID, "save assigns IDs")
	}

	loaded, err := store.GetAdjustmentByID(ctx, saved[0].ID)
	require.NoError(t, err)
	assert.Equal(t, projectID, loaded.ProjectID)
	assert.Equal(t, docID, loaded.DocumentID)
	assert.Equal(t, "High confidence", loaded.Title)
	assert.Equal(t, "AI_RULE_DEPRECIATION", loaded.RuleApplied)
	assert.Equal(t, []string{"1500", "1510"}, loaded.AccountsAffected)
	assert.Equal(t, model.CategoryDepreciation, loaded.Category)
	assert.True(t, loaded.IsMaterial)
	assert.Equal(t, "test-model", loaded.ModelUsed)
	assert.False(t, loaded.ProcessedAt.IsZero())
}

func TestGetAdjustmentsFiltering(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	projectID, docID, _ := seedAdjustments(t, store)

	all, err := store.GetAdjustments(ctx, service.AdjustmentFilter{ProjectID: &projectID})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "High confidence", all[0].Title, "insertion order preserved")

	category := model.CategoryExpenseAccrual
	byCategory, err := store.GetAdjustments(ctx, service.AdjustmentFilter{
		ProjectID: &projectID,
		Category:  &category,
	})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "Medium confidence", byCategory[0].Title)

	byDoc, err := store.GetAdjustments(ctx, service.AdjustmentFilter{DocumentID: &docID})
	require.NoError(t, err)
	assert.Len(t, byDoc, 3)

	limited, err := store.GetAdjustments(ctx, service.AdjustmentFilter{
		ProjectID: &projectID,
		Limit:     2,
		Offset:    1,
	})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "Medium confidence", limited[0].Title)
}

func TestReviewAdjustment(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	_, _, saved := seedAdjustments(t, store)

	require.NoError(t, store.ReviewAdjustment(ctx, saved[0].ID, model.StatusAccepted, "confirmed against GL"))

	loaded, err := store.GetAdjustmentByID(ctx, saved[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, loaded.Status)
	assert.Equal(t, "confirmed against GL", loaded.ReviewerNotes)
	require.NotNil(t, loaded.ReviewedAt)
	assert.WithinDuration(t, time.Now(), *loaded.ReviewedAt, 5*time.Second)
}

func TestReviewAdjustmentRejectsUnknownStatus(t *testing.T) {
	store := newTestStorage(t)

	err := store.ReviewAdjustment(context.Background(), 1, model.ReviewStatus("approved-ish"), "")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestReviewAdjustmentNotFound(t *testing.T) {
	store := newTestStorage(t)

	err := store.ReviewAdjustment(context.Background(), 9999, model.StatusAccepted, "")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestAutoApproveHighConfidence(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	projectID, _, saved := seedAdjustments(t, store)

	approved, err := store.AutoApproveHighConfidence(ctx, projectID, 0.9)
	require.NoError(t, err)
	assert.Equal(t, 1, approved)

	loaded, err := store.GetAdjustmentByID(ctx, saved[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, loaded.Status)

	still, err := store.GetAdjustmentByID(ctx, saved[1].ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, still.Status)

	// A second run finds nothing pending above the bar.
	approved, err = store.AutoApproveHighConfidence(ctx, projectID, 0.9)
	require.NoError(t, err)
	assert.Zero(t, approved)
}

func TestGetAdjustmentSummary(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	projectID, _, saved := seedAdjustments(t, store)
	require.NoError(t, store.ReviewAdjustment(ctx, saved[0].ID, model.StatusAccepted, ""))
	require.NoError(t, store.ReviewAdjustment(ctx, saved[2].ID, model.StatusRejected, "not supported by data"))

	summary, err := store.GetAdjustmentSummary(ctx, projectID)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalAdjustments)
	assert.Equal(t, 1, summary.AcceptedAdjustments)
	assert.Equal(t, 1, summary.RejectedAdjustments)
	assert.Equal(t, 1, summary.PendingAdjustments)
	assert.Equal(t, 1, summary.MaterialAdjustments)
	assert.InDelta(t, 5000.0, summary.AcceptedAmount, 0.001)
	assert.InDelta(t, (0.95+0.7+0.3)/3, summary.AverageConfidence, 0.001)

	require.Contains(t, summary.ByCategory, model.CategoryDepreciation)
	assert.Equal(t, 1, summary.ByCategory[model.CategoryDepreciation].Count)
	assert.InDelta(t, 5000.0, summary.ByCategory[model.CategoryDepreciation].Amount, 0.001)
	assert.Len(t, summary.ByCategory, 3)
}

func TestSaveAdjustmentsValidation(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	err := store.SaveAdjustments(ctx, nil)
	assert.Error(t, err)

	err = store.SaveAdjustments(ctx, []model.Adjustment{{Title: "no project"}})
	assert.ErrorIs(t, err, ErrInvalidAdjustment)
}
