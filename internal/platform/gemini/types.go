package gemini

import (
	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/domain"
)

// domainAnalysis converts a parsed response entry into the domain payload
// persisted in the work cache.
func domainAnalysis(entry responseItem) domain.SampleAnalysis {
	return domain.SampleAnalysis{
		Vibe:        entry.Vibe,
		Genre:       entry.Genre,
		Era:         entry.Era,
		Instruments: entry.Instruments,
		Confidence:  entry.Confidence,
		Notes:       entry.Notes,
	}
}
