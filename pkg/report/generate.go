package report

import (
	"context"
	"fmt"

	"github.com/ethpandaops/testnetoor/pkg/store"
)

// Compose joins the comparison report with the smoke test section.
func Compose(c *store.Comparison, results map[uint]*store.SmokeTestResult) string {
	return BuildReport(c) + "\n" + BuildSmokeTestSection(c, results)
}

// Generate loads a comparison and the latest smoke test results of its
// deployments and renders the full report.
func Generate(ctx context.Context, st store.Store, comparisonID string) (*store.Comparison, string, error) {
	c, err := st.GetComparison(ctx, comparisonID)
	if err != nil {
		return nil, "", fmt.Errorf("loading comparison %s: %w", comparisonID, err)
	}

	results, err := st.LatestSmokeTestResults(ctx, c.DeploymentIDs())
	if err != nil {
		return nil, "", fmt.Errorf("loading smoke test results: %w", err)
	}

	return c, Compose(c, results), nil
}
