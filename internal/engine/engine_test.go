package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillaudit/quill/internal/model"
	"github.com/quillaudit/quill/internal/pipeline"
	"github.com/quillaudit/quill/internal/service"
	"github.com/quillaudit/quill/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStorage(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestProject(t *testing.T, store *storage.SQLiteStorage) int64 {
	t.Helper()

	id, err := store.CreateProject(context.Background(), &model.Project{
		Name:                  "Engine Test",
		MaterialityThreshold:  1000,
		MaterialityPercentage: 0.05,
	})
	require.NoError(t, err)
	return id
}

func newPendingDocument(t *testing.T, store *storage.SQLiteStorage, projectID int64, docType model.DocumentType, payload map[string]any) *model.Document {
	t.Helper()

	doc := &model.Document{
		ProjectID:     projectID,
		Filename:      "ledger.xlsx",
		Type:          docType,
		ExtractedData: payload,
	}
	require.NoError(t, store.SaveDocument(context.Background(), doc))
	return doc
}

func ledgerPayload() map[string]any {
	return map[string]any{
		"Sheet1": []any{map[string]any{"account": "1500", "balance": 150000.0}},
	}
}

const identifyResponse = `[{
	"category": "depreciation",
	"title": "Understated depreciation",
	"estimated_amount": 5000,
	"confidence": 0.92
}]`

func newTestEngine(store *storage.SQLiteStorage, client pipeline.TextClient) *ProcessingEngine {
	p := pipeline.New(client, testLogger())
	return New(store, p, "test-model", testLogger())
}

func TestProcessPendingHappyPath(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	projectID := newTestProject(t, store)
	doc := newPendingDocument(t, store, projectID, model.DocTypeGeneralLedger, ledgerPayload())

	eng := newTestEngine(store, pipeline.NewMockTextClient(identifyResponse, "A clear narrative."))

	stats, err := eng.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DocumentsProcessed)
	assert.Zero(t, stats.DocumentsFailed)
	assert.Equal(t, 1, stats.AdjustmentsCreated)

	loaded, err := store.GetDocumentByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocStatusCompleted, loaded.Status)

	adjustments, err := store.GetAdjustments(ctx, service.AdjustmentFilter{DocumentID: &doc.ID})
	require.NoError(t, err)
	require.Len(t, adjustments, 1)
	assert.Equal(t, projectID, adjustments[0].ProjectID)
	assert.Equal(t, doc.ID, adjustments[0].DocumentID)
	assert.Equal(t, "test-model", adjustments[0].ModelUsed)

	project, err := store.GetProjectByID(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, 1, project.ProcessedDocuments)
	assert.Equal(t, 1, project.TotalAdjustments)
}

func TestProcessPendingNoDocuments(t *testing.T) {
	store := newTestStorage(t)
	eng := newTestEngine(store, pipeline.NewMockTextClient("[]"))

	stats, err := eng.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.DocumentsProcessed)
	assert.Zero(t, stats.DocumentsFailed)
}

func TestProcessPendingMissingExtractedData(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	projectID := newTestProject(t, store)
	doc := newPendingDocument(t, store, projectID, model.DocTypeGeneralLedger, nil)

	eng := newTestEngine(store, pipeline.NewMockTextClient("[]"))

	stats, err := eng.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DocumentsFailed)
	assert.Zero(t, stats.DocumentsProcessed)

	loaded, err := store.GetDocumentByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocStatusError, loaded.Status)
	assert.Contains(t, loaded.ErrorMessage, "no extracted data")
}

func TestProcessPendingSkipsAnalysisForNonLedger(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	projectID := newTestProject(t, store)
	doc := newPendingDocument(t, store, projectID, model.DocTypePayroll, ledgerPayload())

	client := pipeline.NewMockTextClient(identifyResponse)
	eng := newTestEngine(store, client)

	stats, err := eng.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DocumentsProcessed)
	assert.Zero(t, stats.AdjustmentsCreated)
	assert.Zero(t, client.CallCount(), "payroll documents never reach the pipeline")

	loaded, err := store.GetDocumentByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocStatusCompleted, loaded.Status)
}

func TestProcessPendingFailureDoesNotAbortBatch(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	projectID := newTestProject(t, store)
	newPendingDocument(t, store, projectID, model.DocTypeGeneralLedger, nil)
	good := newPendingDocument(t, store, projectID, model.DocTypeGeneralLedger, ledgerPayload())

	eng := newTestEngine(store, pipeline.NewMockTextClient(identifyResponse, "narrative"))
	eng.cfg.Concurrency = 1

	stats, err := eng.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DocumentsProcessed)
	assert.Equal(t, 1, stats.DocumentsFailed)

	loaded, err := store.GetDocumentByID(ctx, good.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocStatusCompleted, loaded.Status)
}

func TestProcessPendingCapabilityFailureStoresErrorRecord(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	projectID := newTestProject(t, store)
	doc := newPendingDocument(t, store, projectID, model.DocTypeGeneralLedger, ledgerPayload())

	eng := newTestEngine(store, pipeline.NewFailingTextClient(errors.New("provider down")))

	stats, err := eng.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DocumentsProcessed, "pipeline degrades to an error record, not a document failure")

	adjustments, err := store.GetAdjustments(ctx, service.AdjustmentFilter{DocumentID: &doc.ID})
	require.NoError(t, err)
	require.Len(t, adjustments, 1)
	assert.Equal(t, "ERROR_RULE", adjustments[0].RuleApplied)
}

func TestProcessDocumentReprocess(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	projectID := newTestProject(t, store)
	doc := newPendingDocument(t, store, projectID, model.DocTypeGeneralLedger, ledgerPayload())
	require.NoError(t, store.UpdateDocumentStatus(ctx, doc.ID, model.DocStatusError, "previous failure"))

	eng := newTestEngine(store, pipeline.NewMockTextClient(identifyResponse, "narrative"))

	require.NoError(t, eng.ProcessDocument(ctx, doc.ID))

	loaded, err := store.GetDocumentByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocStatusCompleted, loaded.Status)
	assert.Empty(t, loaded.ErrorMessage)
}

func TestProgressCallback(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	projectID := newTestProject(t, store)
	newPendingDocument(t, store, projectID, model.DocTypeGeneralLedger, ledgerPayload())
	newPendingDocument(t, store, projectID, model.DocTypeGeneralLedger, ledgerPayload())

	eng := newTestEngine(store, pipeline.NewMockTextClient(identifyResponse, "narrative"))

	var (
		mu    sync.Mutex
		calls []int
	)
	eng.SetProgressFunc(func(completed, total int) {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, completed)
		assert.Equal(t, 2, total)
	})

	_, err := eng.ProcessPending(ctx)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, calls, 2)
}
