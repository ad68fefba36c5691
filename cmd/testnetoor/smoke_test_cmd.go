package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"

	"github.com/ethpandaops/testnetoor/pkg/prompt"
	"github.com/ethpandaops/testnetoor/pkg/smoketest"
	"github.com/ethpandaops/testnetoor/pkg/store"
)

var smokeTestAnswersFile string

var smokeTestCmd = &cobra.Command{
	Use:   "smoke-test <deployment-id>",
	Short: "Answer the smoke test questionnaire for a deployment",
	Long: `Asks each smoke test question in turn and records the answers against the
deployment. Answers can be pre-filled from a YAML file mapping question to
Yes, No or N/A; only unanswered questions are asked.`,
	Args: cobra.ExactArgs(1),
	RunE: runSmokeTest,
}

func init() {
	rootCmd.AddCommand(smokeTestCmd)
	smokeTestCmd.Flags().StringVar(&smokeTestAnswersFile, "answers-file", "",
		"YAML file with pre-filled answers")
}

func loadAnswers(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading answers file: %w", err)
	}

	var answers map[string]string
	if err := yaml.Unmarshal(data, &answers); err != nil {
		return nil, fmt.Errorf("parsing answers file: %w", err)
	}

	return answers, nil
}

func runSmokeTest(cmd *cobra.Command, args []string) error {
	id, err := parseDeploymentID(args[0])
	if err != nil {
		return err
	}

	prefilled, err := loadAnswers(smokeTestAnswersFile)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return withStore(cmd.Context(), cfg, func(st store.Store) error {
		d, err := st.GetDeployment(cmd.Context(), id)
		if err != nil {
			return notFound("deployment", id, err)
		}

		fmt.Fprintf(os.Stderr, "Smoke test for %s\n", d.Name)

		answers, err := smoketest.Ask(cmd.Context(), prompt.NewTerminal(), prefilled)
		if err != nil {
			return err
		}

		stored := make(datatypes.JSONMap, len(answers))
		for q, a := range answers {
			stored[q] = a
		}

		result := &store.SmokeTestResult{DeploymentID: d.ID, Answers: stored}
		if err := st.CreateSmokeTestResult(cmd.Context(), result); err != nil {
			return notFound("deployment", id, err)
		}

		log.WithField("deployment", d.Name).Info("Smoke test results recorded")

		return nil
	})
}
