package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ethpandaops/testnetoor/pkg/workflow"
)

// WorkflowRun is one dispatched workflow. Rows are never updated.
type WorkflowRun struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	WorkflowName string            `gorm:"not null;index" json:"workflow_name"`
	BranchName   string            `gorm:"not null" json:"branch_name"`
	NetworkName  string            `gorm:"not null;index" json:"network_name"`
	TriggeredAt  time.Time         `gorm:"not null" json:"triggered_at"`
	Inputs       datatypes.JSONMap `json:"inputs"`
	RunID        int64             `gorm:"uniqueIndex;not null" json:"run_id"`
	CreatedAt    time.Time         `json:"created_at"`
}

// InputStrings returns the recorded inputs as strings.
func (r *WorkflowRun) InputStrings() map[string]string {
	out := make(map[string]string, len(r.Inputs))
	for k, v := range r.Inputs {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}

	return out
}

// Deployment is the denormalised snapshot of what a deployment producing
// workflow provisioned. Kind tells network and client deployments apart;
// client deployments leave the node and VM columns empty.
type Deployment struct {
	ID            uint                    `gorm:"primaryKey" json:"id"`
	Kind          workflow.DeploymentKind `gorm:"not null" json:"kind"`
	WorkflowRunID uint                    `gorm:"uniqueIndex;not null" json:"workflow_run_id"`
	WorkflowRun   *WorkflowRun            `gorm:"constraint:OnDelete:CASCADE" json:"workflow_run,omitempty"`

	Name            string `gorm:"not null;index" json:"name"`
	EnvironmentType string `gorm:"not null" json:"environment_type"`

	AntVersion     *string `json:"ant_version,omitempty"`
	AntnodeVersion *string `json:"antnode_version,omitempty"`
	AntctlVersion  *string `json:"antctl_version,omitempty"`
	Branch         *string `json:"branch,omitempty"`
	RepoOwner      *string `json:"repo_owner,omitempty"`

	PeerCacheNodeCount        *int `json:"peer_cache_node_count,omitempty"`
	GenericNodeCount          *int `json:"generic_node_count,omitempty"`
	FullConePrivateNodeCount  *int `json:"full_cone_private_node_count,omitempty"`
	SymmetricPrivateNodeCount *int `json:"symmetric_private_node_count,omitempty"`

	PeerCacheVMCount        *int `json:"peer_cache_vm_count,omitempty"`
	GenericVMCount          *int `json:"generic_vm_count,omitempty"`
	FullConePrivateVMCount  *int `json:"full_cone_private_vm_count,omitempty"`
	SymmetricPrivateVMCount *int `json:"symmetric_private_vm_count,omitempty"`
	UploaderVMCount         *int `json:"uploader_vm_count,omitempty"`

	PeerCacheVMSize        *string `json:"peer_cache_vm_size,omitempty"`
	GenericVMSize          *string `json:"generic_vm_size,omitempty"`
	FullConePrivateVMSize  *string `json:"full_cone_private_vm_size,omitempty"`
	SymmetricPrivateVMSize *string `json:"symmetric_private_vm_size,omitempty"`
	UploaderVMSize         *string `json:"uploader_vm_size,omitempty"`

	UploadersCount *int `json:"uploaders_count,omitempty"`

	EvmNetworkType         *string `json:"evm_network_type,omitempty"`
	RewardsAddress         *string `json:"rewards_address,omitempty"`
	EvmDataPaymentsAddress *string `json:"evm_data_payments_address,omitempty"`
	EvmPaymentTokenAddress *string `json:"evm_payment_token_address,omitempty"`
	EvmRPCURL              *string `gorm:"column:evm_rpc_url" json:"evm_rpc_url,omitempty"`

	MaxLogFiles         *int `json:"max_log_files,omitempty"`
	MaxArchivedLogFiles *int `json:"max_archived_log_files,omitempty"`
	RelatedPR           *int `json:"related_pr,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ErrInvalidSource is returned when a deployment mixes pinned versions with
// a branch build, or pins only part of the version triple.
var ErrInvalidSource = errors.New("deployment must pin all binary versions or a branch and repository owner, not both")

// HasVersions reports whether any binary version is pinned.
func (d *Deployment) HasVersions() bool {
	return d.AntVersion != nil || d.AntnodeVersion != nil || d.AntctlVersion != nil
}

// HasBranch reports whether the deployment was built from a branch.
func (d *Deployment) HasBranch() bool {
	return d.Branch != nil || d.RepoOwner != nil
}

// Validate checks the binary source invariant.
func (d *Deployment) Validate() error {
	versions := d.AntVersion != nil && d.AntnodeVersion != nil && d.AntctlVersion != nil
	branch := d.Branch != nil && d.RepoOwner != nil

	switch {
	case d.HasVersions() && d.HasBranch():
		return ErrInvalidSource
	case d.HasVersions() && !versions:
		return ErrInvalidSource
	case d.HasBranch() && !branch:
		return ErrInvalidSource
	}

	return nil
}

// BeforeSave enforces Validate on every write.
func (d *Deployment) BeforeSave(*gorm.DB) error {
	return d.Validate()
}

// Comparison groups a reference deployment with one or more test
// deployments. Results are recorded once.
type Comparison struct {
	ID                    string           `gorm:"primaryKey;size:36" json:"id"`
	ReferenceDeploymentID uint             `gorm:"not null;index" json:"reference_deployment_id"`
	ReferenceDeployment   *Deployment      `json:"reference_deployment,omitempty"`
	Tests                 []ComparisonTest `gorm:"constraint:OnDelete:CASCADE" json:"tests"`
	Description           string           `json:"description,omitempty"`
	ThreadLink            *string          `json:"thread_link,omitempty"`
	CreatedAt             time.Time        `json:"created_at"`

	Passed           *bool      `json:"passed,omitempty"`
	ResultsStartedAt *time.Time `json:"results_started_at,omitempty"`
	ResultsEndedAt   *time.Time `json:"results_ended_at,omitempty"`
	Report           *string    `json:"report,omitempty"`
}

// BeforeCreate assigns a UUID when none is set.
func (c *Comparison) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	return nil
}

// ResultsRecorded reports whether the comparison reached its terminal state.
func (c *Comparison) ResultsRecorded() bool {
	return c.Passed != nil
}

// DeploymentIDs returns the reference followed by each test deployment in
// position order.
func (c *Comparison) DeploymentIDs() []uint {
	ids := make([]uint, 0, len(c.Tests)+1)
	ids = append(ids, c.ReferenceDeploymentID)

	for _, test := range c.Tests {
		ids = append(ids, test.DeploymentID)
	}

	return ids
}

// ComparisonTest is one test deployment within a comparison.
type ComparisonTest struct {
	ID           uint        `gorm:"primaryKey" json:"-"`
	ComparisonID string      `gorm:"size:36;not null;index" json:"-"`
	DeploymentID uint        `gorm:"not null" json:"deployment_id"`
	Deployment   *Deployment `json:"deployment,omitempty"`
	Label        string      `gorm:"not null" json:"label"`
	Position     int         `gorm:"not null" json:"position"`
}

// ComparisonResults is the terminal outcome of a comparison.
type ComparisonResults struct {
	Passed    bool
	StartedAt time.Time
	EndedAt   *time.Time
	Report    string
}

// SmokeTestResult holds the questionnaire answers for one deployment.
type SmokeTestResult struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	DeploymentID uint              `gorm:"not null;index" json:"deployment_id"`
	Deployment   *Deployment       `json:"-"`
	Answers      datatypes.JSONMap `json:"answers"`
	CreatedAt    time.Time         `json:"created_at"`
}

// AnswerStrings returns the answers as strings.
func (r *SmokeTestResult) AnswerStrings() map[string]string {
	out := make(map[string]string, len(r.Answers))
	for k, v := range r.Answers {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}

	return out
}
