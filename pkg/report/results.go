package report

import (
	"context"
	"fmt"
	"time"

	"github.com/ethpandaops/testnetoor/pkg/archive"
	"github.com/ethpandaops/testnetoor/pkg/store"
)

// Outcome is the operator's verdict on a comparison.
type Outcome struct {
	Passed    bool
	StartedAt time.Time
	EndedAt   *time.Time
}

// Finalized is what recording results produced.
type Finalized struct {
	Report   string
	Location string
}

// Finalize renders the report as of now, records it with the outcome and
// archives the text. The results stay recorded when archiving fails.
func Finalize(
	ctx context.Context,
	st store.Store,
	archiver archive.Archiver,
	comparisonID string,
	outcome Outcome,
) (*Finalized, error) {
	if outcome.EndedAt != nil && outcome.EndedAt.Before(outcome.StartedAt) {
		return nil, fmt.Errorf("results end %s is before start %s",
			outcome.EndedAt.Format(time.RFC3339), outcome.StartedAt.Format(time.RFC3339))
	}

	c, text, err := Generate(ctx, st, comparisonID)
	if err != nil {
		return nil, err
	}

	if c.ResultsRecorded() {
		return nil, fmt.Errorf("comparison %s: %w", comparisonID, store.ErrResultsRecorded)
	}

	if err := st.RecordComparisonResults(ctx, comparisonID, store.ComparisonResults{
		Passed:    outcome.Passed,
		StartedAt: outcome.StartedAt,
		EndedAt:   outcome.EndedAt,
		Report:    text,
	}); err != nil {
		return nil, err
	}

	out := &Finalized{Report: text}

	if archiver == nil || !archiver.Enabled() {
		return out, nil
	}

	out.Location, err = archiver.ArchiveReport(ctx, comparisonID, text)
	if err != nil {
		return out, fmt.Errorf("archiving report: %w", err)
	}

	return out, nil
}
