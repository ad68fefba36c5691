package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/testnetoor/pkg/dispatch"
	"github.com/ethpandaops/testnetoor/pkg/prompt"
	"github.com/ethpandaops/testnetoor/pkg/recorder"
	"github.com/ethpandaops/testnetoor/pkg/store"
	"github.com/ethpandaops/testnetoor/pkg/workflow"
)

type workflowFlags struct {
	configFile  string
	networkName string
	sets        []string
	branch      string
	force       bool
	wait        bool
}

func init() {
	registry := workflow.DefaultRegistry()

	rootCmd.AddGroup(&cobra.Group{ID: "workflows", Title: "Workflows:"})

	for _, kind := range registry.Kinds() {
		def, err := registry.Lookup(kind)
		if err != nil {
			panic(err)
		}

		rootCmd.AddCommand(newWorkflowCmd(def))
	}
}

func newWorkflowCmd(def workflow.Definition) *cobra.Command {
	flags := &workflowFlags{}

	cmd := &cobra.Command{
		Use:     string(def.Kind),
		Short:   "Dispatch the " + def.Title + " workflow",
		GroupID: "workflows",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorkflow(cmd.Context(), def, flags)
		},
	}

	cmd.Flags().StringVar(&flags.configFile, "config-file", "",
		"YAML file with the workflow inputs")
	cmd.Flags().StringVar(&flags.networkName, "network-name", "",
		"network name (overrides the config file)")
	cmd.Flags().StringArrayVar(&flags.sets, "set", nil,
		"set an input as key=value (can be repeated)")
	cmd.Flags().StringVar(&flags.branch, "branch", "",
		"branch of the workflows repository to dispatch on")
	cmd.Flags().BoolVar(&flags.force, "force", false,
		"dispatch without asking for confirmation")
	cmd.Flags().BoolVar(&flags.wait, "wait", false,
		"wait for the workflow run to complete")

	return cmd
}

// workflowValues merges the config file, --set and --network-name, in
// increasing precedence.
func workflowValues(flags *workflowFlags) (workflow.Values, error) {
	values := workflow.Values{}

	if flags.configFile != "" {
		loaded, err := workflow.LoadValues(flags.configFile)
		if err != nil {
			return nil, err
		}

		values = loaded
	}

	sets, err := parseAssignments(flags.sets)
	if err != nil {
		return nil, err
	}

	overrides := make(workflow.Values, len(sets)+1)
	for k, v := range sets {
		overrides[k] = v
	}

	if flags.networkName != "" {
		overrides["network-name"] = flags.networkName
	}

	return values.With(overrides), nil
}

func runWorkflow(ctx context.Context, def workflow.Definition, flags *workflowFlags) error {
	values, err := workflowValues(flags)
	if err != nil {
		return err
	}

	// Build once before touching config or network so input errors surface
	// first.
	if _, err := def.Build(values); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, timing, err := newWorkflowClient(cfg)
	if err != nil {
		return err
	}

	var prompter prompt.Prompter = prompt.NewTerminal()
	if flags.force {
		prompter = &prompt.Static{Answer: true}
	}

	return withStore(ctx, cfg, func(st store.Store) error {
		svc := dispatch.New(log, dispatch.Options{
			WorkflowIDs:       cfg.GitHub.Workflows,
			DefaultBranch:     cfg.GitHub.DefaultBranch,
			CompletionTimeout: timing.CompletionTimeout,
			Out:               os.Stdout,
		}, client, recorder.New(log, st), prompter)

		result, err := svc.Dispatch(ctx, dispatch.Request{
			Kind:   def.Kind,
			Values: values,
			Branch: flags.branch,
			Force:  flags.force,
			Wait:   flags.wait,
		})
		if errors.Is(err, dispatch.ErrAborted) {
			log.Info("Dispatch aborted")

			return nil
		}

		if result != nil {
			printDispatchResult(result)
		}

		return err
	})
}

func printDispatchResult(result *dispatch.Result) {
	fields := logrus.Fields{
		"run_id":  result.Run.RunID,
		"network": result.Run.NetworkName,
	}

	if result.Deployment != nil {
		fields["deployment_id"] = result.Deployment.ID
	}

	log.WithFields(fields).Info("Workflow run recorded")

	if result.Completed != nil {
		fmt.Fprintf(os.Stdout, "Run %d %s (%s, started %s)\n",
			result.Completed.ID, result.Completed.Conclusion,
			result.Completed.HTMLURL, humanize.Time(result.Completed.CreatedAt))
	}
}
