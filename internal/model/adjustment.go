// Package model defines the core domain models used throughout the application.
package model

import "time"

// ReviewStatus indicates where an adjustment sits in the analyst review flow.
type ReviewStatus string

// Review status constants.
const (
	StatusPending  ReviewStatus = "pending"
	StatusAccepted ReviewStatus = "accepted"
	StatusRejected ReviewStatus = "rejected"
	StatusModified ReviewStatus = "modified"
)

// Adjustment is a proposed correction to reported financial figures. The
// pipeline produces one per accepted candidate with the identification,
// narrative, and materiality fields populated; the processing engine fills in
// the persistence metadata before saving.
type Adjustment struct {
	ProcessedAt   time.Time
	ReviewedAt    *time.Time
	CreatedAt     time.Time
	Title         string
	Description   string
	Reasoning     string
	Narrative     string
	RuleApplied   string
	DebitAccount  string
	CreditAccount string
	DocumentID    string

	// Materiality assessment
	MaterialityReason string
	ReviewerNotes     string
	ModelUsed         string

	// Optional structured account detail, empty by default. Review-stage
	// tooling fills this in for categories without a default mapping.
	AccountImpact map[string]float64

	AccountsAffected []string

	ID        int64
	ProjectID int64

	// Processing duration in milliseconds, recorded by the engine.
	ProcessingTime int64

	Amount     float64
	Confidence float64
	Category   Category
	Status     ReviewStatus
	IsMaterial bool
}

// AbsoluteAmount returns the magnitude of the adjustment, ignoring the
// debit/credit sign convention.
func (a *Adjustment) AbsoluteAmount() float64 {
	if a.Amount < 0 {
		return -a.Amount
	}
	return a.Amount
}

// HighConfidence reports whether the model's confidence meets the given
// threshold. Used by the auto-approval flow.
func (a *Adjustment) HighConfidence(threshold float64) bool {
	return a.Confidence >= threshold
}

// Pending reports whether the adjustment is still awaiting review.
func (a *Adjustment) Pending() bool {
	return a.Status == StatusPending
}
