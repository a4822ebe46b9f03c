package model

import "time"

// Project groups documents and adjustments for one engagement and carries the
// materiality settings the pipeline assesses against.
type Project struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	Name      string
	Client    string

	ID int64

	// Absolute materiality threshold in currency units.
	MaterialityThreshold float64
	// Fractional materiality threshold applied against a base earnings figure.
	MaterialityPercentage float64

	// Denormalized metrics, refreshed by the processing engine.
	TotalDocuments      int
	ProcessedDocuments  int
	TotalAdjustments    int
	ReviewedAdjustments int
}
