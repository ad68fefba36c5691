package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/ethpandaops/testnetoor/pkg/config"
	"github.com/ethpandaops/testnetoor/pkg/store"
	"github.com/ethpandaops/testnetoor/pkg/workflow"
)

func setupTestStore(t *testing.T) store.Store {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteDatabaseConfig{Path: ":memory:"},
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	s := store.NewStore(log, cfg)
	require.NoError(t, s.Start(context.Background()))

	t.Cleanup(func() { _ = s.Stop() })

	return s
}

func ptr[T any](v T) *T {
	return &v
}

func newRun(runID int64, network string) *store.WorkflowRun {
	return &store.WorkflowRun{
		WorkflowName: "Launch Network",
		BranchName:   "main",
		NetworkName:  network,
		TriggeredAt:  time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC),
		Inputs:       datatypes.JSONMap{"network-name": network},
		RunID:        runID,
	}
}

func newDeployment(network string) *store.Deployment {
	return &store.Deployment{
		Kind:               workflow.DeploymentNetwork,
		Name:               network,
		EnvironmentType:    "development",
		PeerCacheNodeCount: ptr(5),
		PeerCacheVMCount:   ptr(3),
		GenericNodeCount:   ptr(25),
		GenericVMCount:     ptr(10),
	}
}

func recordDeployment(t *testing.T, s store.Store, runID int64, network string) *store.Deployment {
	t.Helper()

	d := newDeployment(network)
	require.NoError(t, s.RecordRun(context.Background(), newRun(runID, network), d))

	return d
}

func TestStore_RecordRunWithDeployment(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	run := newRun(100, "DEV-01")
	d := newDeployment("DEV-01")

	require.NoError(t, s.RecordRun(ctx, run, d))
	assert.NotZero(t, run.ID)
	assert.Equal(t, run.ID, d.WorkflowRunID)

	got, err := s.GetDeployment(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "DEV-01", got.Name)
	assert.Equal(t, workflow.DeploymentNetwork, got.Kind)
	require.NotNil(t, got.WorkflowRun)
	assert.Equal(t, int64(100), got.WorkflowRun.RunID)
	assert.Equal(t, map[string]string{"network-name": "DEV-01"}, got.WorkflowRun.InputStrings())

	fetched, err := s.GetRun(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "Launch Network", fetched.WorkflowName)
}

func TestStore_RecordRunIsAtomic(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	recordDeployment(t, s, 1, "DEV-01")

	// A duplicate run id fails the run insert; nothing is written.
	err := s.RecordRun(ctx, newRun(1, "DEV-02"), newDeployment("DEV-02"))
	require.Error(t, err)

	deployments, err := s.ListDeployments(ctx, store.DeploymentFilter{})
	require.NoError(t, err)
	assert.Len(t, deployments, 1)

	runs, err := s.ListRuns(ctx, store.RunFilter{})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestStore_RecordRunRejectsMixedSource(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	d := newDeployment("DEV-01")
	d.AntVersion = ptr("0.1.0")
	d.AntnodeVersion = ptr("0.110.0")
	d.AntctlVersion = ptr("0.10.0")
	d.Branch = ptr("main")
	d.RepoOwner = ptr("maidsafe")

	err := s.RecordRun(ctx, newRun(7, "DEV-01"), d)
	require.ErrorIs(t, err, store.ErrInvalidSource)

	runs, err := s.ListRuns(ctx, store.RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestStore_RunWithoutDeployment(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	run := newRun(5, "DEV-01")
	run.WorkflowName = "Stop Nodes"
	require.NoError(t, s.RecordRun(ctx, run, nil))

	require.NoError(t, s.RecordRun(ctx, newRun(6, "DEV-02"), nil))

	runs, err := s.ListRuns(ctx, store.RunFilter{NetworkName: "DEV-01"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "Stop Nodes", runs[0].WorkflowName)

	runs, err = s.ListRuns(ctx, store.RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestStore_NotFound(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.GetDeployment(ctx, 42)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.GetRun(ctx, 42)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.GetComparison(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = s.SetComparisonThreadLink(ctx, "missing", "https://slack/thread")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_ComparisonLifecycle(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	ref := recordDeployment(t, s, 1, "REF-01")
	testA := recordDeployment(t, s, 2, "TEST-01")
	testB := recordDeployment(t, s, 3, "TEST-02")

	c := &store.Comparison{
		ReferenceDeploymentID: ref.ID,
		Description:           "antnode 0.111 vs 0.110",
		Tests: []store.ComparisonTest{
			{DeploymentID: testB.ID, Label: "B"},
			{DeploymentID: testA.ID, Label: "A"},
		},
	}
	require.NoError(t, s.CreateComparison(ctx, c))
	require.Len(t, c.ID, 36)

	got, err := s.GetComparison(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ReferenceDeployment)
	assert.Equal(t, "REF-01", got.ReferenceDeployment.Name)
	require.Len(t, got.Tests, 2)
	assert.Equal(t, "B", got.Tests[0].Label)
	assert.Equal(t, "TEST-02", got.Tests[0].Deployment.Name)
	assert.Equal(t, []uint{ref.ID, testB.ID, testA.ID}, got.DeploymentIDs())
	assert.False(t, got.ResultsRecorded())

	require.NoError(t, s.SetComparisonThreadLink(ctx, c.ID, "https://slack/thread"))

	started := time.Date(2024, 10, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordComparisonResults(ctx, c.ID, store.ComparisonResults{
		Passed:    true,
		StartedAt: started,
		Report:    "report",
	}))

	got, err = s.GetComparison(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ThreadLink)
	assert.Equal(t, "https://slack/thread", *got.ThreadLink)
	require.NotNil(t, got.Passed)
	assert.True(t, *got.Passed)
	require.NotNil(t, got.ResultsStartedAt)
	assert.True(t, started.Equal(*got.ResultsStartedAt))
	assert.Nil(t, got.ResultsEndedAt)

	err = s.RecordComparisonResults(ctx, c.ID, store.ComparisonResults{StartedAt: started})
	assert.ErrorIs(t, err, store.ErrResultsRecorded)

	// The thread link may still change after results.
	require.NoError(t, s.SetComparisonThreadLink(ctx, c.ID, "https://slack/other"))

	list, err := s.ListComparisons(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestStore_CreateComparisonUnknownDeployment(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	ref := recordDeployment(t, s, 1, "REF-01")

	err := s.CreateComparison(ctx, &store.Comparison{
		ReferenceDeploymentID: ref.ID,
		Tests:                 []store.ComparisonTest{{DeploymentID: 99, Label: "A"}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestStore_LatestSmokeTestResults(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	a := recordDeployment(t, s, 1, "DEV-01")
	b := recordDeployment(t, s, 2, "DEV-02")

	first := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.CreateSmokeTestResult(ctx, &store.SmokeTestResult{
		DeploymentID: a.ID,
		Answers:      datatypes.JSONMap{"Are all nodes running?": "No"},
		CreatedAt:    first,
	}))
	require.NoError(t, s.CreateSmokeTestResult(ctx, &store.SmokeTestResult{
		DeploymentID: a.ID,
		Answers:      datatypes.JSONMap{"Are all nodes running?": "Yes"},
		CreatedAt:    first.Add(time.Hour),
	}))

	latest, err := s.LatestSmokeTestResults(ctx, []uint{a.ID, b.ID})
	require.NoError(t, err)
	require.Contains(t, latest, a.ID)
	assert.NotContains(t, latest, b.ID)
	assert.Equal(t, "Yes", latest[a.ID].AnswerStrings()["Are all nodes running?"])

	err = s.CreateSmokeTestResult(ctx, &store.SmokeTestResult{DeploymentID: 99})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeployment_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(d *store.Deployment)
		wantErr bool
	}{
		{name: "neither", mutate: func(*store.Deployment) {}},
		{
			name: "versions",
			mutate: func(d *store.Deployment) {
				d.AntVersion, d.AntnodeVersion, d.AntctlVersion = ptr("a"), ptr("b"), ptr("c")
			},
		},
		{
			name: "branch",
			mutate: func(d *store.Deployment) {
				d.Branch, d.RepoOwner = ptr("main"), ptr("maidsafe")
			},
		},
		{
			name:    "partial versions",
			mutate:  func(d *store.Deployment) { d.AntVersion = ptr("a") },
			wantErr: true,
		},
		{
			name:    "branch without owner",
			mutate:  func(d *store.Deployment) { d.Branch = ptr("main") },
			wantErr: true,
		},
		{
			name: "both",
			mutate: func(d *store.Deployment) {
				d.AntVersion, d.AntnodeVersion, d.AntctlVersion = ptr("a"), ptr("b"), ptr("c")
				d.Branch, d.RepoOwner = ptr("main"), ptr("maidsafe")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDeployment("DEV-01")
			tt.mutate(d)

			err := d.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, store.ErrInvalidSource)

				return
			}

			assert.NoError(t, err)
		})
	}
}
