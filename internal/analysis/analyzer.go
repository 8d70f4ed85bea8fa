// Package analysis defines the boundary between the batch processing core
// and the external analysis service that enriches sample features.
package analysis

import (
	"context"

	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/domain"
)

// ItemFeatures is the input for one item in a batched analysis call:
// the work item identity plus its locally extracted features.
type ItemFeatures struct {
	Item     domain.WorkItem
	Features domain.SampleFeatures
}

// ItemResult pairs a work item fingerprint with the analysis payload the
// service produced for it.
type ItemResult struct {
	Fingerprint string
	Analysis    domain.SampleAnalysis
}

// Analyzer is the interface consumed by the batch processor. One call
// covers an entire group of items; no streaming or partial responses are
// assumed.
//
// Implementations must classify failures with the errors in this package
// so callers can tell transient conditions apart from permanent ones.
type Analyzer interface {
	// AnalyzeBatch analyzes every item in a single external call and
	// returns one result per input item, in no guaranteed order.
	AnalyzeBatch(ctx context.Context, items []ItemFeatures) ([]ItemResult, error)
}
