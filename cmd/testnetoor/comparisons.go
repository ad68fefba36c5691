package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/testnetoor/pkg/report"
	"github.com/ethpandaops/testnetoor/pkg/store"
)

// Accepted timestamp layouts for --started-at and --ended-at.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

var (
	comparisonRef         uint
	comparisonTests       []string
	comparisonDescription string

	resultsPassed    bool
	resultsFailed    bool
	resultsStartedAt string
	resultsEndedAt   string
)

var comparisonsCmd = &cobra.Command{
	Use:   "comparisons",
	Short: "Compare deployments and report on them",
}

var comparisonsNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a comparison of test deployments against a reference",
	Args:  cobra.NoArgs,
	RunE:  runNewComparison,
}

var comparisonsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List comparisons",
	Args:  cobra.NoArgs,
	RunE:  runListComparisons,
}

var comparisonsShowCmd = &cobra.Command{
	Use:   "show <comparison-id>",
	Short: "Show a comparison",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowComparison,
}

var comparisonsReportCmd = &cobra.Command{
	Use:   "report <comparison-id>",
	Short: "Print the comparison report",
	Args:  cobra.ExactArgs(1),
	RunE:  runComparisonReport,
}

var comparisonsThreadCmd = &cobra.Command{
	Use:   "thread <comparison-id> <link>",
	Short: "Set the discussion thread of a comparison",
	Args:  cobra.ExactArgs(2),
	RunE:  runComparisonThread,
}

var comparisonsResultsCmd = &cobra.Command{
	Use:   "results <comparison-id>",
	Short: "Record the outcome of a comparison",
	Args:  cobra.ExactArgs(1),
	RunE:  runComparisonResults,
}

var comparisonsPostCmd = &cobra.Command{
	Use:   "post <comparison-id>",
	Short: "Post the comparison report to Slack",
	Args:  cobra.ExactArgs(1),
	RunE:  runPostComparison,
}

func init() {
	rootCmd.AddCommand(comparisonsCmd)
	comparisonsCmd.AddCommand(
		comparisonsNewCmd,
		comparisonsListCmd,
		comparisonsShowCmd,
		comparisonsReportCmd,
		comparisonsThreadCmd,
		comparisonsResultsCmd,
		comparisonsPostCmd,
	)

	comparisonsNewCmd.Flags().UintVar(&comparisonRef, "ref", 0, "reference deployment id")
	comparisonsNewCmd.Flags().StringArrayVar(&comparisonTests, "test", nil,
		"test deployment as id or id:label (can be repeated)")
	comparisonsNewCmd.Flags().StringVar(&comparisonDescription, "description", "",
		"what the comparison is about")
	_ = comparisonsNewCmd.MarkFlagRequired("ref")
	_ = comparisonsNewCmd.MarkFlagRequired("test")

	comparisonsResultsCmd.Flags().BoolVar(&resultsPassed, "passed", false, "the test deployments passed")
	comparisonsResultsCmd.Flags().BoolVar(&resultsFailed, "failed", false, "the test deployments failed")
	comparisonsResultsCmd.Flags().StringVar(&resultsStartedAt, "started-at", "",
		"when the comparison started (RFC3339 or YYYY-MM-DD HH:MM)")
	comparisonsResultsCmd.Flags().StringVar(&resultsEndedAt, "ended-at", "",
		"when the comparison ended")
	comparisonsResultsCmd.MarkFlagsMutuallyExclusive("passed", "failed")
	comparisonsResultsCmd.MarkFlagsOneRequired("passed", "failed")
	_ = comparisonsResultsCmd.MarkFlagRequired("started-at")
}

// parseTests turns id[:label] entries into comparison tests. Unlabelled
// tests are lettered in order.
func parseTests(entries []string) ([]store.ComparisonTest, error) {
	tests := make([]store.ComparisonTest, 0, len(entries))

	for i, entry := range entries {
		rawID, label, _ := strings.Cut(entry, ":")

		id, err := parseDeploymentID(rawID)
		if err != nil {
			return nil, err
		}

		if label == "" {
			label = string(rune('A' + i%26))
		}

		if label == report.ReferenceLabel {
			return nil, fmt.Errorf("label %q is reserved for the reference deployment", label)
		}

		tests = append(tests, store.ComparisonTest{DeploymentID: id, Label: label})
	}

	return tests, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

func runNewComparison(cmd *cobra.Command, _ []string) error {
	tests, err := parseTests(comparisonTests)
	if err != nil {
		return err
	}

	if lo.ContainsBy(tests, func(t store.ComparisonTest) bool { return t.DeploymentID == comparisonRef }) {
		return errors.New("the reference deployment cannot also be a test deployment")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return withStore(cmd.Context(), cfg, func(st store.Store) error {
		ids := lo.Map(tests, func(t store.ComparisonTest, _ int) uint { return t.DeploymentID })

		for _, id := range append([]uint{comparisonRef}, ids...) {
			if _, err := st.GetDeployment(cmd.Context(), id); err != nil {
				return notFound("deployment", id, err)
			}
		}

		c := &store.Comparison{
			ReferenceDeploymentID: comparisonRef,
			Tests:                 tests,
			Description:           comparisonDescription,
		}

		if err := st.CreateComparison(cmd.Context(), c); err != nil {
			return err
		}

		log.WithField("comparison", c.ID).Info("Comparison created")
		fmt.Fprintln(os.Stdout, c.ID)

		return nil
	})
}

func runListComparisons(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return withStore(cmd.Context(), cfg, func(st store.Store) error {
		comparisons, err := st.ListComparisons(cmd.Context())
		if err != nil {
			return err
		}

		rows := lo.Map(comparisons, func(c store.Comparison, _ int) []string {
			return []string{
				c.ID,
				c.Description,
				strconv.Itoa(len(c.Tests)),
				comparisonStatus(&c),
				humanize.Time(c.CreatedAt),
			}
		})

		printTable([]string{"ID", "Description", "Tests", "Status", "Created"}, rows)

		return nil
	})
}

func runShowComparison(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return withStore(cmd.Context(), cfg, func(st store.Store) error {
		c, err := st.GetComparison(cmd.Context(), args[0])
		if err != nil {
			return notFound("comparison", args[0], err)
		}

		fmt.Fprintf(os.Stdout, "Comparison %s (%s)\n", c.ID, comparisonStatus(c))

		if c.Description != "" {
			fmt.Fprintln(os.Stdout, c.Description)
		}

		if c.ThreadLink != nil {
			fmt.Fprintf(os.Stdout, "Thread: %s\n", *c.ThreadLink)
		}

		rows := [][]string{comparisonRow(report.ReferenceLabel, c.ReferenceDeploymentID, c.ReferenceDeployment)}
		for _, test := range c.Tests {
			rows = append(rows, comparisonRow(test.Label, test.DeploymentID, test.Deployment))
		}

		printTable([]string{"Label", "Deployment", "Environment", "Source"}, rows)

		return nil
	})
}

func comparisonRow(label string, id uint, d *store.Deployment) []string {
	if d == nil {
		return []string{label, fmt.Sprintf("deployment #%d", id), "-", "-"}
	}

	return []string{label, report.DeploymentName(d), d.EnvironmentType, deploymentSource(d)}
}

func comparisonStatus(c *store.Comparison) string {
	switch {
	case !c.ResultsRecorded():
		return "open"
	case *c.Passed:
		return "passed"
	default:
		return "failed"
	}
}

// comparisonReport returns the published report once results are
// recorded, and the current rendering before that.
func comparisonReport(ctx context.Context, st store.Store, id string) (string, error) {
	c, text, err := report.Generate(ctx, st, id)
	if err != nil {
		return "", notFound("comparison", id, err)
	}

	if c.Report != nil && *c.Report != "" {
		return *c.Report, nil
	}

	return text, nil
}

func runComparisonReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return withStore(cmd.Context(), cfg, func(st store.Store) error {
		text, err := comparisonReport(cmd.Context(), st, args[0])
		if err != nil {
			return err
		}

		fmt.Fprint(os.Stdout, text)

		return nil
	})
}

func runComparisonThread(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return withStore(cmd.Context(), cfg, func(st store.Store) error {
		if err := st.SetComparisonThreadLink(cmd.Context(), args[0], args[1]); err != nil {
			return notFound("comparison", args[0], err)
		}

		log.WithField("comparison", args[0]).Info("Thread link updated")

		return nil
	})
}

func runComparisonResults(cmd *cobra.Command, args []string) error {
	started, err := parseTimestamp(resultsStartedAt)
	if err != nil {
		return fmt.Errorf("parsing --started-at: %w", err)
	}

	outcome := report.Outcome{Passed: resultsPassed, StartedAt: started}

	if resultsEndedAt != "" {
		ended, err := parseTimestamp(resultsEndedAt)
		if err != nil {
			return fmt.Errorf("parsing --ended-at: %w", err)
		}

		outcome.EndedAt = &ended
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return withStore(cmd.Context(), cfg, func(st store.Store) error {
		out, err := report.Finalize(cmd.Context(), st, newArchiver(cfg), args[0], outcome)
		if err != nil {
			return notFound("comparison", args[0], err)
		}

		entry := log.WithField("comparison", args[0])
		if out.Location != "" {
			entry = entry.WithField("archive", out.Location)
		}

		entry.Info("Comparison results recorded")

		return nil
	})
}

func runPostComparison(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return withStore(cmd.Context(), cfg, func(st store.Store) error {
		text, err := comparisonReport(cmd.Context(), st, args[0])
		if err != nil {
			return err
		}

		if err := newWebhook(cfg).Post(cmd.Context(), text); err != nil {
			return err
		}

		log.WithField("comparison", args[0]).Info("Report posted to Slack")

		return nil
	})
}
