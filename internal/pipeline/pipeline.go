// Package pipeline implements the adjustment identification-and-refinement
// pipeline: one batch identification call followed by per-candidate
// enrichment, narrative generation, materiality assessment, and finalization.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/quillaudit/quill/internal/model"
)

// AccountPair names the default debit and credit accounts for a category.
type AccountPair struct {
	Debit  string
	Credit string
}

// Config holds the pipeline's lookup tables and constants. The tables are
// injected so tests and future engagements can override them without
// touching pipeline code.
type Config struct {
	// CategoryAliases maps extra lowercase category spellings onto the
	// closed enumeration, on top of the enumeration's own values.
	CategoryAliases map[string]model.Category

	// AccountMap is intentionally partial: only categories with an obvious
	// default posting get an entry. Everything else surfaces null accounts
	// for manual assignment during review.
	AccountMap map[model.Category]AccountPair

	// BaseAmount is the nominal earnings figure the percentage materiality
	// test runs against. An approximation: a true percentage-of-earnings
	// test needs a real denominator from the engagement.
	BaseAmount float64
}

// DefaultBaseAmount is the nominal reference value for percentage
// materiality when no engagement-specific figure is configured.
const DefaultBaseAmount = 1_000_000

// DefaultConfig returns the standard lookup tables.
func DefaultConfig() Config {
	return Config{
		CategoryAliases: map[string]model.Category{
			"revenue recognition": model.CategoryRevenueRecognition,
			"expense accruals":    model.CategoryExpenseAccrual,
			"expense accrual":     model.CategoryExpenseAccrual,
			"inventory":           model.CategoryInventoryValuation,
			"bad debts":           model.CategoryBadDebt,
			"writeoff":            model.CategoryWriteOff,
			"write-off":           model.CategoryWriteOff,
		},
		AccountMap: map[model.Category]AccountPair{
			model.CategoryRevenueRecognition: {Debit: "Accounts Receivable", Credit: "Revenue"},
			model.CategoryExpenseAccrual:     {Debit: "Expense", Credit: "Accrued Liabilities"},
			model.CategoryDepreciation:       {Debit: "Depreciation Expense", Credit: "Accumulated Depreciation"},
			model.CategoryBadDebt:            {Debit: "Bad Debt Expense", Credit: "Allowance for Doubtful Accounts"},
		},
		BaseAmount: DefaultBaseAmount,
	}
}

// Pipeline drives candidates through the five enrichment stages in order.
// A Pipeline is safe for concurrent Run calls: each run owns its own state.
type Pipeline struct {
	client TextClient
	logger *slog.Logger
	cfg    Config
}

// New creates a pipeline with the default configuration.
func New(client TextClient, logger *slog.Logger) *Pipeline {
	return NewWithConfig(client, logger, DefaultConfig())
}

// NewWithConfig creates a pipeline with custom lookup tables.
func NewWithConfig(client TextClient, logger *slog.Logger, cfg Config) *Pipeline {
	if cfg.BaseAmount <= 0 {
		cfg.BaseAmount = DefaultBaseAmount
	}
	return &Pipeline{
		client: client,
		logger: logger,
		cfg:    cfg,
	}
}

// Run executes the full pipeline over one document payload and returns the
// finalized adjustments in candidate order. Run never returns an error and
// never panics: extraction-level failures and unanticipated panics both
// degrade to a single synthetic error record so callers always receive a
// well-formed list.
func (p *Pipeline) Run(ctx context.Context, payload map[string]any, docType model.DocumentType, materialityThreshold, materialityPercentage float64) (results []model.Adjustment) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pipeline run panicked", "panic", r)
			results = []model.Adjustment{errorRecord(fmt.Sprintf("%v", r))}
		}
	}()

	st := &runState{
		payload:    payload,
		docType:    docType,
		threshold:  materialityThreshold,
		percentage: materialityPercentage,
	}

	if err := p.identify(ctx, st); err != nil {
		p.logger.Error("adjustment identification failed", "error", err, "document_type", docType)
		return []model.Adjustment{errorRecord(err.Error())}
	}

	p.logger.Info("identified candidate adjustments",
		"document_type", docType,
		"count", len(st.candidates))

	for st.cursor < len(st.candidates) {
		p.processNext(ctx, st)
	}

	return st.results
}

// processNext runs one candidate through enrichment, narrative, materiality,
// and finalization. A failure here is contained to the current item: the
// candidate is dropped and the loop moves on.
func (p *Pipeline) processNext(ctx context.Context, st *runState) {
	idx := st.cursor
	cand := st.candidates[idx]
	st.cursor++

	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("candidate processing failed, dropping item",
				"index", idx,
				"panic", r)
		}
	}()

	adj, ok := p.enrich(cand)
	if !ok {
		p.logger.Warn("candidate is not a structured object, dropping item", "index", idx)
		return
	}

	p.narrate(ctx, adj)
	p.assess(adj, st.threshold, st.percentage)
	p.finalize(st, adj)
}

// finalize stamps the processing timestamp and appends the item to results.
// Called exactly once per surviving candidate; records in results are never
// mutated afterward.
func (p *Pipeline) finalize(st *runState, adj *model.Adjustment) {
	adj.ProcessedAt = time.Now().UTC()
	st.results = append(st.results, *adj)
}

// errorRecord builds the synthetic adjustment returned when the whole run
// fails. Callers detect it by RuleApplied == "ERROR_RULE".
func errorRecord(msg string) model.Adjustment {
	return model.Adjustment{
		Title:             "Workflow Error",
		Description:       fmt.Sprintf("Error running adjustment pipeline: %s", msg),
		Category:          model.CategoryOther,
		Amount:            0,
		Confidence:        0,
		Narrative:         "Error occurred during processing",
		IsMaterial:        false,
		MaterialityReason: "Error in processing",
		RuleApplied:       "ERROR_RULE",
		Status:            model.StatusPending,
		AccountImpact:     map[string]float64{},
		ProcessedAt:       time.Now().UTC(),
	}
}

var amountPrinter = message.NewPrinter(language.English)

// formatAmount renders a currency amount with thousands separators, e.g.
// $5,000.00.
func formatAmount(v float64) string {
	return amountPrinter.Sprintf("$%.2f", v)
}
