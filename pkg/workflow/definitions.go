// Package workflow validates operator configuration for each testnet
// workflow and serialises it into the flat input map GitHub Actions
// workflow_dispatch accepts.
package workflow

import (
	"fmt"
)

// Kind names one dispatchable workflow.
type Kind string

// Workflow kinds.
const (
	KindStopNodes        Kind = "stop-nodes"
	KindStartNodes       Kind = "start-nodes"
	KindLaunchNetwork    Kind = "launch-network"
	KindBootstrapNetwork Kind = "bootstrap-network"
	KindLaunchClients    Kind = "launch-clients"
	KindUpgradeNetwork   Kind = "upgrade-network"
	KindUpgradeAntctl    Kind = "upgrade-antctl"
	KindUpgradeUploaders Kind = "upgrade-uploaders"
	KindDestroyNetwork   Kind = "destroy-network"
	KindDepositFunds     Kind = "deposit-funds"
	KindDrainFunds       Kind = "drain-funds"
	KindUpscaleNetwork   Kind = "upscale-network"
	KindResetToNNodes    Kind = "reset-to-n-nodes"
	KindUpdatePeer       Kind = "update-peer"
	KindKillDroplets     Kind = "kill-droplets"
	KindStartTelegraf    Kind = "start-telegraf"
	KindStopTelegraf     Kind = "stop-telegraf"
	KindNetworkStatus    Kind = "network-status"
)

// DeploymentKind tells which deployment snapshot a workflow produces.
type DeploymentKind string

// Deployment kinds. DeploymentNone marks workflows that operate on an
// existing network.
const (
	DeploymentNone    DeploymentKind = ""
	DeploymentNetwork DeploymentKind = "network"
	DeploymentClient  DeploymentKind = "client"
)

// Definition describes one workflow kind.
type Definition struct {
	Kind       Kind
	Title      string
	Required   []string
	Deployment DeploymentKind

	build func(v Values, in *Inputs) error
}

// ProducesDeployment reports whether a successful dispatch records a
// deployment snapshot.
func (d Definition) ProducesDeployment() bool {
	return d.Deployment != DeploymentNone
}

// Registry is an immutable set of workflow definitions.
type Registry struct {
	order       []Kind
	definitions map[Kind]Definition
}

// NewRegistry creates a registry from definitions. Later duplicates replace
// earlier ones.
func NewRegistry(defs ...Definition) *Registry {
	r := &Registry{definitions: make(map[Kind]Definition, len(defs))}

	for _, def := range defs {
		if _, exists := r.definitions[def.Kind]; !exists {
			r.order = append(r.order, def.Kind)
		}

		r.definitions[def.Kind] = def
	}

	return r
}

// DefaultRegistry returns the registry of every known workflow.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Definition{
			Kind:     KindStopNodes,
			Title:    "Stop Nodes",
			Required: []string{"network-name"},
			build:    buildStopNodes,
		},
		Definition{
			Kind:     KindStartNodes,
			Title:    "Start Nodes",
			Required: []string{"network-name"},
			build:    buildStartNodes,
		},
		Definition{
			Kind:       KindLaunchNetwork,
			Title:      "Launch Network",
			Required:   []string{"network-name"},
			Deployment: DeploymentNetwork,
			build:      buildDeployment(DeploymentNetwork),
		},
		Definition{
			Kind:       KindBootstrapNetwork,
			Title:      "Bootstrap Network",
			Required:   []string{"network-name", "peer"},
			Deployment: DeploymentNetwork,
			build:      buildDeployment(DeploymentNetwork),
		},
		Definition{
			Kind:       KindLaunchClients,
			Title:      "Launch Clients",
			Required:   []string{"network-name"},
			Deployment: DeploymentClient,
			build:      buildDeployment(DeploymentClient),
		},
		Definition{
			Kind:     KindUpgradeNetwork,
			Title:    "Upgrade Network",
			Required: []string{"network-name", "version"},
			build:    buildUpgradeNetwork,
		},
		Definition{
			Kind:     KindUpgradeAntctl,
			Title:    "Upgrade Antctl",
			Required: []string{"network-name", "version"},
			build:    buildUpgradeAntctl,
		},
		Definition{
			Kind:     KindUpgradeUploaders,
			Title:    "Upgrade Uploaders",
			Required: []string{"network-name", "version"},
			build:    buildUpgradeUploaders,
		},
		Definition{
			Kind:     KindDestroyNetwork,
			Title:    "Destroy Network",
			Required: []string{"network-name"},
			build:    func(Values, *Inputs) error { return nil },
		},
		Definition{
			Kind:     KindDepositFunds,
			Title:    "Deposit Funds",
			Required: []string{"network-name", "provider"},
			build:    buildDepositFunds,
		},
		Definition{
			Kind:     KindDrainFunds,
			Title:    "Drain Funds",
			Required: []string{"network-name", "provider"},
			build:    buildDrainFunds,
		},
		Definition{
			Kind:     KindUpscaleNetwork,
			Title:    "Upscale Network",
			Required: []string{"network-name"},
			build:    buildUpscaleNetwork,
		},
		Definition{
			Kind:     KindResetToNNodes,
			Title:    "Reset to N Nodes",
			Required: []string{"network-name", "node-count", "evm-network-type"},
			build:    buildResetToNNodes,
		},
		Definition{
			Kind:     KindUpdatePeer,
			Title:    "Update Peer",
			Required: []string{"network-name", "peer"},
			build:    buildUpdatePeer,
		},
		Definition{
			Kind:     KindKillDroplets,
			Title:    "Kill Droplets",
			Required: []string{"network-name", "droplet-names"},
			build:    buildKillDroplets,
		},
		Definition{
			Kind:     KindStartTelegraf,
			Title:    "Start Telegraf",
			Required: []string{"network-name"},
			build:    buildTelegraf,
		},
		Definition{
			Kind:     KindStopTelegraf,
			Title:    "Stop Telegraf",
			Required: []string{"network-name"},
			build:    buildTelegraf,
		},
		Definition{
			Kind:     KindNetworkStatus,
			Title:    "Network Status",
			Required: []string{"network-name"},
			build:    buildNetworkStatus,
		},
	)
}

// Kinds returns the registered kinds in registration order.
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, len(r.order))
	copy(kinds, r.order)

	return kinds
}

// Lookup returns the definition of kind.
func (r *Registry) Lookup(kind Kind) (Definition, error) {
	def, ok := r.definitions[kind]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	return def, nil
}

// Build validates values for kind and serialises them into dispatch inputs.
// Required keys are checked first, in declaration order.
func (r *Registry) Build(kind Kind, values Values) (*Inputs, error) {
	def, err := r.Lookup(kind)
	if err != nil {
		return nil, err
	}

	return def.Build(values)
}

// Build validates values and serialises them into dispatch inputs.
func (d Definition) Build(values Values) (*Inputs, error) {
	v := values.Canonical().compact()

	if err := v.require(d.Kind, d.Required...); err != nil {
		return nil, err
	}

	var common CommonOptions
	if err := decode(v, &common); err != nil {
		return nil, err
	}

	deployArgs, err := common.testnetDeployArgs()
	if err != nil {
		return nil, err
	}

	in := NewInputs()
	in.Set("network-name", common.NetworkName)

	if d.build != nil {
		if err := d.build(v, in); err != nil {
			return nil, err
		}
	}

	in.setString("testnet-deploy-args", deployArgs)

	return in, nil
}
