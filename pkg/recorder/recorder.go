// Package recorder turns a successful dispatch into stored run and
// deployment rows.
package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/ethpandaops/testnetoor/pkg/store"
	"github.com/ethpandaops/testnetoor/pkg/workflow"
)

// Dispatch describes a workflow that was triggered and resolved to a run.
type Dispatch struct {
	Definition  workflow.Definition
	Branch      string
	Values      workflow.Values
	Inputs      *workflow.Inputs
	RunID       int64
	TriggeredAt time.Time
}

// Recorder writes dispatches to the store.
type Recorder struct {
	log   logrus.FieldLogger
	store store.Store
}

// New creates a Recorder.
func New(log logrus.FieldLogger, st store.Store) *Recorder {
	return &Recorder{
		log:   log.WithField("component", "recorder"),
		store: st,
	}
}

// Record stores the run and, for deployment producing workflows, the
// deployment snapshot. Both are written in one transaction.
func (r *Recorder) Record(ctx context.Context, d Dispatch) (*store.WorkflowRun, *store.Deployment, error) {
	var (
		deployment *store.Deployment
		err        error
	)

	if d.Definition.ProducesDeployment() {
		deployment, err = BuildDeployment(d.Definition.Deployment, d.Values)
		if err != nil {
			return nil, nil, fmt.Errorf("building deployment: %w", err)
		}
	}

	run := &store.WorkflowRun{
		WorkflowName: d.Definition.Title,
		BranchName:   d.Branch,
		TriggeredAt:  d.TriggeredAt.UTC(),
		Inputs:       datatypes.JSONMap{},
		RunID:        d.RunID,
	}

	if d.Inputs != nil {
		for k, v := range d.Inputs.Map() {
			run.Inputs[k] = v
		}

		run.NetworkName, _ = d.Inputs.Get("network-name")
	}

	if err := r.store.RecordRun(ctx, run, deployment); err != nil {
		return nil, nil, fmt.Errorf("recording run: %w", err)
	}

	log := r.log.WithFields(logrus.Fields{
		"workflow": d.Definition.Kind,
		"run_id":   d.RunID,
		"network":  run.NetworkName,
	})

	if deployment != nil {
		log = log.WithField("deployment_id", deployment.ID)
	}

	log.Info("Recorded workflow run")

	return run, deployment, nil
}

// BuildDeployment resolves values against the tier defaults and maps them
// onto a deployment snapshot.
func BuildDeployment(kind workflow.DeploymentKind, values workflow.Values) (*store.Deployment, error) {
	cfg, err := workflow.ResolveDeployment(kind, values)
	if err != nil {
		return nil, err
	}

	d := &store.Deployment{
		Kind:            kind,
		Name:            cfg.NetworkName,
		EnvironmentType: string(cfg.EnvironmentType),

		AntVersion:     optional(cfg.AntVersion),
		AntnodeVersion: optional(cfg.AntnodeVersion),
		AntctlVersion:  optional(cfg.AntctlVersion),
		Branch:         optional(cfg.Branch),
		RepoOwner:      optional(cfg.RepoOwner),

		PeerCacheNodeCount:        cfg.PeerCacheNodeCount,
		GenericNodeCount:          cfg.GenericNodeCount,
		FullConePrivateNodeCount:  cfg.FullConePrivateNodeCount,
		SymmetricPrivateNodeCount: cfg.SymmetricPrivateNodeCount,

		PeerCacheVMCount:        cfg.PeerCacheVMCount,
		GenericVMCount:          cfg.GenericVMCount,
		FullConePrivateVMCount:  cfg.FullConePrivateVMCount,
		SymmetricPrivateVMCount: cfg.SymmetricPrivateVMCount,
		UploaderVMCount:         cfg.UploaderVMCount,

		PeerCacheVMSize:        optional(cfg.PeerCacheVMSize),
		GenericVMSize:          optional(cfg.GenericVMSize),
		FullConePrivateVMSize:  optional(cfg.FullConePrivateVMSize),
		SymmetricPrivateVMSize: optional(cfg.SymmetricPrivateVMSize),
		UploaderVMSize:         optional(cfg.UploaderVMSize),

		UploadersCount: cfg.UploadersCount,

		EvmNetworkType:         optional(cfg.EVMNetworkType),
		RewardsAddress:         optional(cfg.RewardsAddress),
		EvmDataPaymentsAddress: optional(cfg.EVMDataPaymentsAddress),
		EvmPaymentTokenAddress: optional(cfg.EVMPaymentTokenAddress),
		EvmRPCURL:              optional(cfg.EVMRPCURL),

		MaxLogFiles:         cfg.MaxLogFiles,
		MaxArchivedLogFiles: cfg.MaxArchivedLogFiles,
		RelatedPR:           cfg.RelatedPR,
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}

	return d, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
