package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ethpandaops/testnetoor/pkg/linear"
	"github.com/ethpandaops/testnetoor/pkg/release"
)

var (
	releasePRs     []int
	releaseRaw     bool
	releaseTeam    string
	releaseVersion string
)

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Release notes and release coordination",
}

var releaseNotesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Build release notes from merged pull requests",
	Args:  cobra.NoArgs,
	RunE:  runReleaseNotes,
}

var releaseProjectCmd = &cobra.Command{
	Use:   "project",
	Short: "Create the Linear project and checklist for a release",
	Args:  cobra.NoArgs,
	RunE:  runReleaseProject,
}

func init() {
	rootCmd.AddCommand(releaseCmd)
	releaseCmd.AddCommand(releaseNotesCmd, releaseProjectCmd)

	for _, cmd := range []*cobra.Command{releaseNotesCmd, releaseProjectCmd} {
		cmd.Flags().IntSliceVar(&releasePRs, "pr", nil,
			"pull request number (comma-separated or repeated flag)")
	}

	_ = releaseNotesCmd.MarkFlagRequired("pr")
	releaseNotesCmd.Flags().BoolVar(&releaseRaw, "raw", false,
		"print Markdown even when writing to a terminal")

	releaseProjectCmd.Flags().StringVar(&releaseTeam, "team", "engineering", "Linear team name or key")
	releaseProjectCmd.Flags().StringVar(&releaseVersion, "version", "", "release version")
	_ = releaseProjectCmd.MarkFlagRequired("version")
}

func collectNotes(ctx context.Context, prs []int) (string, error) {
	if len(prs) == 0 {
		return "", nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}

	collected, err := release.Collect(ctx, newReleaseClient(cfg), prs)
	if err != nil {
		return "", err
	}

	return release.BuildNotes(collected), nil
}

func runReleaseNotes(cmd *cobra.Command, _ []string) error {
	notes, err := collectNotes(cmd.Context(), releasePRs)
	if err != nil {
		return err
	}

	if releaseRaw || !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprint(os.Stdout, notes)

		return nil
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return fmt.Errorf("creating markdown renderer: %w", err)
	}

	rendered, err := renderer.Render(notes)
	if err != nil {
		return fmt.Errorf("rendering release notes: %w", err)
	}

	fmt.Fprint(os.Stdout, rendered)

	return nil
}

func runReleaseProject(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	apiKey, err := cfg.Linear.APIKey(releaseTeam)
	if err != nil {
		return err
	}

	notes, err := collectNotes(cmd.Context(), releasePRs)
	if err != nil {
		return err
	}

	logger := commandLogger("release")
	client := linear.NewClient(logger, linear.Options{URL: cfg.Linear.APIURL, APIKey: apiKey})

	project, err := release.NewCoordinator(logger, client).
		CreateReleaseProject(cmd.Context(), releaseTeam, releaseVersion, notes)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"project": project.Project.URL,
		"issue":   project.Issue.Identifier,
		"tasks":   len(project.SubIssues),
	}).Info("Release project created")

	return nil
}
