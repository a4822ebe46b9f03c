package pipeline

import (
	"fmt"
	"math"

	"github.com/quillaudit/quill/internal/model"
)

// assess flags an adjustment as material when its absolute amount meets
// either the fixed dollar threshold or the percentage-of-base test. Both
// thresholds are inclusive.
func (p *Pipeline) assess(adj *model.Adjustment, threshold, percentage float64) {
	abs := math.Abs(adj.Amount)
	percentageFloor := percentage * p.cfg.BaseAmount

	switch {
	case abs >= threshold:
		adj.IsMaterial = true
		adj.MaterialityReason = fmt.Sprintf("Exceeds materiality threshold of %s", formatAmount(threshold))
	case abs >= percentageFloor:
		adj.IsMaterial = true
		adj.MaterialityReason = fmt.Sprintf("Exceeds %.2f%% of base amount", percentage*100)
	default:
		adj.IsMaterial = false
		adj.MaterialityReason = "Below materiality threshold"
	}
}
