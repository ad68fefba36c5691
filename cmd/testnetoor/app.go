package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/testnetoor/pkg/archive"
	"github.com/ethpandaops/testnetoor/pkg/config"
	"github.com/ethpandaops/testnetoor/pkg/github"
	"github.com/ethpandaops/testnetoor/pkg/slack"
	"github.com/ethpandaops/testnetoor/pkg/store"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// loadConfig reads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// withStore opens the store for the duration of fn.
func withStore(ctx context.Context, cfg *config.Config, fn func(store.Store) error) error {
	st := store.NewStore(log, &cfg.Database)
	if err := st.Start(ctx); err != nil {
		return fmt.Errorf("starting store: %w", err)
	}

	defer func() {
		if err := st.Stop(); err != nil {
			log.WithError(err).Warn("Failed to close store")
		}
	}()

	return fn(st)
}

// newWorkflowClient creates the client for the workflows repository.
func newWorkflowClient(cfg *config.Config) (*github.Client, config.DispatchTiming, error) {
	timing, err := cfg.GitHub.Dispatch.Timing()
	if err != nil {
		return nil, timing, err
	}

	if cfg.GitHub.Token == "" {
		return nil, timing, fmt.Errorf("a GitHub token is required (set WORKFLOW_RUNNER_PAT)")
	}

	return github.NewClient(log, github.Options{
		BaseURL:      cfg.GitHub.APIURL,
		Owner:        cfg.GitHub.Owner,
		Repo:         cfg.GitHub.Repo,
		Token:        cfg.GitHub.Token,
		InitialDelay: timing.InitialDelay,
		PollInterval: timing.PollInterval,
		PollAttempts: timing.PollAttempts,
		ClockSkew:    timing.ClockSkew,
	}), timing, nil
}

// newReleaseClient creates the client for the repository releases are cut
// from.
func newReleaseClient(cfg *config.Config) *github.Client {
	return github.NewClient(log, github.Options{
		BaseURL: cfg.GitHub.APIURL,
		Owner:   cfg.Release.Owner,
		Repo:    cfg.Release.Repo,
		Token:   cfg.Release.Token,
	})
}

func newWebhook(cfg *config.Config) *slack.Webhook {
	return slack.NewWebhook(log, cfg.Slack.WebhookURL, nil)
}

func newArchiver(cfg *config.Config) archive.Archiver {
	return archive.New(log, cfg.Archive)
}

// renderTable renders rows under headers for the terminal.
func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}

			return cellStyle
		})

	return t.String()
}

func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(os.Stdout, "Nothing recorded yet.")

		return
	}

	fmt.Fprintln(os.Stdout, renderTable(headers, rows))
}

// notFound turns a store lookup miss into "<entity> <id> not found". Other
// errors already carry the store's context and pass through unchanged.
func notFound(entity string, id any, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s %v not found", entity, id)
	}

	return err
}

// parseAssignments parses repeated key=value flags.
func parseAssignments(entries []string) (map[string]string, error) {
	out := make(map[string]string, len(entries))

	for _, entry := range entries {
		k, v, ok := strings.Cut(entry, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid assignment %q: must be key=value", entry)
		}

		out[strings.TrimSpace(k)] = v
	}

	return out, nil
}

func commandLogger(name string) logrus.FieldLogger {
	return log.WithField("command", name)
}
