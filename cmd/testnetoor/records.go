package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/testnetoor/pkg/report"
	"github.com/ethpandaops/testnetoor/pkg/store"
)

var (
	runsNetwork  string
	runsWorkflow string
	runsLimit    int

	deploymentsName  string
	deploymentsLimit int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded workflow runs",
	Args:  cobra.NoArgs,
	RunE:  runListRuns,
}

var deploymentsCmd = &cobra.Command{
	Use:   "deployments",
	Short: "Inspect recorded deployments",
}

var deploymentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded deployments",
	Args:  cobra.NoArgs,
	RunE:  runListDeployments,
}

var deploymentsShowCmd = &cobra.Command{
	Use:   "show <deployment-id>",
	Short: "Show the details of a deployment",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowDeployment,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().StringVar(&runsNetwork, "network", "", "only runs against this network")
	runsCmd.Flags().StringVar(&runsWorkflow, "workflow", "", "only runs of this workflow title")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum number of runs to list (0 for all)")

	rootCmd.AddCommand(deploymentsCmd)
	deploymentsCmd.AddCommand(deploymentsListCmd, deploymentsShowCmd)
	deploymentsListCmd.Flags().StringVar(&deploymentsName, "name", "", "only deployments with this name")
	deploymentsListCmd.Flags().IntVar(&deploymentsLimit, "limit", 20,
		"maximum number of deployments to list (0 for all)")
}

func runListRuns(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return withStore(cmd.Context(), cfg, func(st store.Store) error {
		runs, err := st.ListRuns(cmd.Context(), store.RunFilter{
			NetworkName:  runsNetwork,
			WorkflowName: runsWorkflow,
			Limit:        runsLimit,
		})
		if err != nil {
			return err
		}

		rows := make([][]string, 0, len(runs))
		for _, run := range runs {
			rows = append(rows, []string{
				strconv.FormatInt(run.RunID, 10),
				run.WorkflowName,
				run.NetworkName,
				run.BranchName,
				humanize.Time(run.TriggeredAt),
			})
		}

		printTable([]string{"Run ID", "Workflow", "Network", "Branch", "Triggered"}, rows)

		return nil
	})
}

func runListDeployments(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return withStore(cmd.Context(), cfg, func(st store.Store) error {
		deployments, err := st.ListDeployments(cmd.Context(), store.DeploymentFilter{
			Name:  deploymentsName,
			Limit: deploymentsLimit,
		})
		if err != nil {
			return err
		}

		rows := make([][]string, 0, len(deployments))
		for i := range deployments {
			d := &deployments[i]
			rows = append(rows, []string{
				strconv.FormatUint(uint64(d.ID), 10),
				d.Name,
				string(d.Kind),
				d.EnvironmentType,
				deploymentSource(d),
				humanize.Time(d.CreatedAt),
			})
		}

		printTable([]string{"ID", "Name", "Kind", "Environment", "Source", "Created"}, rows)

		return nil
	})
}

func runShowDeployment(cmd *cobra.Command, args []string) error {
	id, err := parseDeploymentID(args[0])
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

		fmt.Fprintf(os.Stdout, "*%s*\n", report.DeploymentName(d))

		if run := d.WorkflowRun; run != nil {
			fmt.Fprintf(os.Stdout, "Run %d of %s on %s, %s\n",
				run.RunID, run.WorkflowName, run.BranchName, humanize.Time(run.TriggeredAt))
			printInputs(run.InputStrings())
		}

		fmt.Fprint(os.Stdout, report.DeploymentBlock(d))

		return nil
	})
}

func printInputs(inputs map[string]string) {
	keys := make([]string, 0, len(inputs))
	for k := range inputs {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, inputs[k]})
	}

	printTable([]string{"Input", "Value"}, rows)
}

func deploymentSource(d *store.Deployment) string {
	switch {
	case d.HasBranch():
		return fmt.Sprintf("%s/%s", lo.FromPtr(d.RepoOwner), lo.FromPtr(d.Branch))
	case d.HasVersions():
		return "antnode " + lo.FromPtr(d.AntnodeVersion)
	default:
		return "-"
	}
}

func parseDeploymentID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid deployment id %q", s)
	}

	return uint(id), nil
}
