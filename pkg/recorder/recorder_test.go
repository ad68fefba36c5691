package recorder_test

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/testnetoor/pkg/config"
	"github.com/ethpandaops/testnetoor/pkg/recorder"
	"github.com/ethpandaops/testnetoor/pkg/store"
	"github.com/ethpandaops/testnetoor/pkg/workflow"
)

func setupRecorder(t *testing.T) (*recorder.Recorder, store.Store) {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	s := store.NewStore(log, &config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteDatabaseConfig{Path: ":memory:"},
	})
	require.NoError(t, s.Start(context.Background()))

	t.Cleanup(func() { _ = s.Stop() })

	return recorder.New(log, s), s
}

func dispatchFor(t *testing.T, kind workflow.Kind, values workflow.Values, runID int64) recorder.Dispatch {
	t.Helper()

	def, err := workflow.DefaultRegistry().Lookup(kind)
	require.NoError(t, err)

	inputs, err := def.Build(values)
	require.NoError(t, err)

	return recorder.Dispatch{
		Definition:  def,
		Branch:      "main",
		Values:      values,
		Inputs:      inputs,
		RunID:       runID,
		TriggeredAt: time.Date(2024, 10, 1, 14, 0, 0, 0, time.FixedZone("BST", 3600)),
	}
}

func TestRecord_NetworkDeployment(t *testing.T) {
	r, s := setupRecorder(t)
	ctx := context.Background()

	run, d, err := r.Record(ctx, dispatchFor(t, workflow.KindLaunchNetwork,
		workflow.Values{"network-name": "DEV-01"}, 1001))
	require.NoError(t, err)
	require.NotNil(t, d)

	assert.Equal(t, "DEV-01", run.NetworkName)
	assert.Equal(t, "Launch Network", run.WorkflowName)
	assert.Equal(t, time.UTC, run.TriggeredAt.Location())

	got, err := s.GetDeployment(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "DEV-01", got.Name)
	assert.Equal(t, "development", got.EnvironmentType)
	require.NotNil(t, got.PeerCacheNodeCount)
	assert.Equal(t, 5, *got.PeerCacheNodeCount)
	require.NotNil(t, got.GenericNodeCount)
	assert.Equal(t, 25, *got.GenericNodeCount)
	assert.Equal(t, run.ID, got.WorkflowRunID)
	assert.Contains(t, got.WorkflowRun.InputStrings(), "deploy-args")
}

func TestRecord_NoDeploymentForOperations(t *testing.T) {
	r, s := setupRecorder(t)
	ctx := context.Background()

	_, d, err := r.Record(ctx, dispatchFor(t, workflow.KindStopNodes,
		workflow.Values{"network-name": "DEV-01"}, 1002))
	require.NoError(t, err)
	assert.Nil(t, d)

	deployments, err := s.ListDeployments(ctx, store.DeploymentFilter{})
	require.NoError(t, err)
	assert.Empty(t, deployments)

	runs, err := s.ListRuns(ctx, store.RunFilter{NetworkName: "DEV-01"})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestBuildDeployment(t *testing.T) {
	t.Run("legacy keys and versions", func(t *testing.T) {
		d, err := recorder.BuildDeployment(workflow.DeploymentNetwork, workflow.Values{
			"network-name":             "STG-01",
			"environment-type":         "staging",
			"autonomi-version":         "0.1.0",
			"safenode-version":         "0.110.0",
			"safenode-manager-version": "0.10.0",
			"private-node-count":       12,
			"evm-network-type":         "arbitrum-one",
			"max-log-files":            20,
		})
		require.NoError(t, err)

		assert.Equal(t, workflow.DeploymentNetwork, d.Kind)
		require.NotNil(t, d.AntVersion)
		assert.Equal(t, "0.1.0", *d.AntVersion)
		assert.Nil(t, d.Branch)
		require.NotNil(t, d.SymmetricPrivateNodeCount)
		assert.Equal(t, 12, *d.SymmetricPrivateNodeCount)
		require.NotNil(t, d.EvmNetworkType)
		assert.Equal(t, "arbitrum-one", *d.EvmNetworkType)
		require.NotNil(t, d.MaxLogFiles)
		assert.Equal(t, 20, *d.MaxLogFiles)
		assert.Nil(t, d.MaxArchivedLogFiles)
	})

	t.Run("client deployment", func(t *testing.T) {
		d, err := recorder.BuildDeployment(workflow.DeploymentClient, workflow.Values{
			"network-name": "DEV-01",
			"branch":       "feat",
			"repo-owner":   "maidsafe",
		})
		require.NoError(t, err)

		assert.Equal(t, workflow.DeploymentClient, d.Kind)
		assert.Nil(t, d.GenericNodeCount)
		require.NotNil(t, d.UploaderVMCount)
		assert.Equal(t, 1, *d.UploaderVMCount)
		require.NotNil(t, d.Branch)
		assert.Equal(t, "feat", *d.Branch)
	})

	t.Run("mixed source", func(t *testing.T) {
		_, err := recorder.BuildDeployment(workflow.DeploymentNetwork, workflow.Values{
			"network-name": "DEV-01",
			"ant-version":  "0.1.0",
			"branch":       "feat",
			"repo-owner":   "maidsafe",
		})
		require.Error(t, err)
	})
}
