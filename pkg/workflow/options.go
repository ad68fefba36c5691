package workflow

import (
	"strings"
)

// NodeType restricts a node operation to one class of node.
type NodeType string

// Node types accepted by the node-targeting workflows.
const (
	NodeTypeBootstrap NodeType = "bootstrap"
	NodeTypeGenesis   NodeType = "genesis"
	NodeTypeGeneric   NodeType = "generic"
	NodeTypePrivate   NodeType = "private"
)

// ParseNodeType validates a node type.
func ParseNodeType(s string) (NodeType, error) {
	switch t := NodeType(strings.TrimSpace(s)); t {
	case NodeTypeBootstrap, NodeTypeGenesis, NodeTypeGeneric, NodeTypePrivate:
		return t, nil
	default:
		return "", &InvalidValueError{
			Field:  "node-type",
			Value:  s,
			Reason: "must be one of bootstrap, genesis, generic, private",
		}
	}
}

// Provider is the cloud provider a network's funding wallet belongs to.
type Provider string

// Supported providers.
const (
	ProviderDigitalOcean Provider = "digital-ocean"
	ProviderAWS          Provider = "aws"
)

// ParseProvider validates a provider name.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.TrimSpace(s)); p {
	case ProviderDigitalOcean, ProviderAWS:
		return p, nil
	default:
		return "", &InvalidValueError{
			Field:  "provider",
			Value:  s,
			Reason: "must be one of digital-ocean, aws",
		}
	}
}

// EVMNetworkType selects the payment network nodes are paid on.
type EVMNetworkType string

// Supported EVM network types.
const (
	EVMArbitrumOne     EVMNetworkType = "arbitrum-one"
	EVMArbitrumSepolia EVMNetworkType = "arbitrum-sepolia"
	EVMCustom          EVMNetworkType = "custom"
)

// ParseEVMNetworkType validates an EVM network type.
func ParseEVMNetworkType(s string) (EVMNetworkType, error) {
	switch n := EVMNetworkType(strings.TrimSpace(s)); n {
	case EVMArbitrumOne, EVMArbitrumSepolia, EVMCustom:
		return n, nil
	default:
		return "", &InvalidValueError{
			Field:  "evm-network-type",
			Value:  s,
			Reason: "must be one of arbitrum-one, arbitrum-sepolia, custom",
		}
	}
}

// CommonOptions are accepted by every workflow kind.
type CommonOptions struct {
	NetworkName            string `mapstructure:"network-name"`
	TestnetDeployVersion   string `mapstructure:"testnet-deploy-version"`
	TestnetDeployBranch    string `mapstructure:"testnet-deploy-branch"`
	TestnetDeployRepoOwner string `mapstructure:"testnet-deploy-repo-owner"`
}

// TargetOptions narrow which hosts and nodes an operation touches.
type TargetOptions struct {
	AnsibleForks    *int     `mapstructure:"ansible-forks"`
	CustomInventory []string `mapstructure:"custom-inventory"`
	NodeType        string   `mapstructure:"node-type"`
}

// BinaryOptions select where the node binaries of a deployment come from.
type BinaryOptions struct {
	AntVersion     string `mapstructure:"ant-version"`
	AntnodeVersion string `mapstructure:"antnode-version"`
	AntctlVersion  string `mapstructure:"antctl-version"`
	Branch         string `mapstructure:"branch"`
	RepoOwner      string `mapstructure:"repo-owner"`
}

// EVMOptions configure the payment network of a deployment.
type EVMOptions struct {
	EVMNetworkType         string `mapstructure:"evm-network-type"`
	EVMDataPaymentsAddress string `mapstructure:"evm-data-payments-address"`
	EVMPaymentTokenAddress string `mapstructure:"evm-payment-token-address"`
	EVMRPCURL              string `mapstructure:"evm-rpc-url"`
	RewardsAddress         string `mapstructure:"rewards-address"`
}

// selectSource resolves a pinned version against a branch and repository
// owner pair. The two are mutually exclusive and branch/owner come together.
func selectSource(versionField, version, branchField, branch, ownerField, owner string) (argList, error) {
	if version != "" && (branch != "" || owner != "") {
		return nil, &InvalidCombinationError{
			Fields: []string{versionField, branchField, ownerField},
			Reason: "a version cannot be combined with a branch or repository owner",
		}
	}

	if (branch != "") != (owner != "") {
		return nil, &InvalidCombinationError{
			Fields: []string{branchField, ownerField},
			Reason: "a branch and a repository owner must be specified together",
		}
	}

	var args argList

	if version != "" {
		args.add("version", version)
	} else {
		args.add("branch", branch)
		args.add("repo-owner", owner)
	}

	return args, nil
}

// testnetDeployArgs resolves the testnet-deploy source selection.
func (o CommonOptions) testnetDeployArgs() (string, error) {
	args, err := selectSource(
		"testnet-deploy-version", o.TestnetDeployVersion,
		"testnet-deploy-branch", o.TestnetDeployBranch,
		"testnet-deploy-repo-owner", o.TestnetDeployRepoOwner,
	)
	if err != nil {
		return "", err
	}

	return args.String(), nil
}

// TestnetDeployArgs resolves the testnet-deploy source selection of values
// into its single argument string, or "" when no source is selected.
func TestnetDeployArgs(values Values) (string, error) {
	var opts CommonOptions
	if err := decode(values.Canonical().compact(), &opts); err != nil {
		return "", err
	}

	return opts.testnetDeployArgs()
}

// args resolves the binary source selection. Versions are a triple: either
// all three are pinned or none is.
func (o BinaryOptions) args() (argList, error) {
	versions := []string{o.AntVersion, o.AntnodeVersion, o.AntctlVersion}
	pinned := 0

	for _, v := range versions {
		if v != "" {
			pinned++
		}
	}

	fields := []string{"ant-version", "antnode-version", "antctl-version"}

	if pinned > 0 && pinned < len(versions) {
		return nil, &InvalidCombinationError{
			Fields: fields,
			Reason: "all three binary versions must be specified together",
		}
	}

	if pinned > 0 && (o.Branch != "" || o.RepoOwner != "") {
		return nil, &InvalidCombinationError{
			Fields: append(fields, "branch", "repo-owner"),
			Reason: "binary versions cannot be combined with a branch or repository owner",
		}
	}

	if (o.Branch != "") != (o.RepoOwner != "") {
		return nil, &InvalidCombinationError{
			Fields: []string{"branch", "repo-owner"},
			Reason: "a branch and a repository owner must be specified together",
		}
	}

	var args argList

	args.add("ant-version", o.AntVersion)
	args.add("antnode-version", o.AntnodeVersion)
	args.add("antctl-version", o.AntctlVersion)
	args.add("branch", o.Branch)
	args.add("repo-owner", o.RepoOwner)

	return args, nil
}

// args validates the EVM settings. A custom network needs all of its
// endpoints spelled out.
func (o EVMOptions) args() (argList, error) {
	var args argList

	if o.EVMNetworkType != "" {
		networkType, err := ParseEVMNetworkType(o.EVMNetworkType)
		if err != nil {
			return nil, err
		}

		if networkType == EVMCustom &&
			(o.EVMDataPaymentsAddress == "" || o.EVMPaymentTokenAddress == "" || o.EVMRPCURL == "") {
			return nil, &InvalidCombinationError{
				Fields: []string{
					"evm-network-type", "evm-data-payments-address",
					"evm-payment-token-address", "evm-rpc-url",
				},
				Reason: "a custom EVM network requires the payments address, token address and RPC URL",
			}
		}

		args.add("evm-network-type", string(networkType))
	}

	args.add("evm-data-payments-address", o.EVMDataPaymentsAddress)
	args.add("evm-payment-token-address", o.EVMPaymentTokenAddress)
	args.add("evm-rpc-url", o.EVMRPCURL)
	args.add("rewards-address", o.RewardsAddress)

	return args, nil
}

// apply validates target options and emits them.
func (o TargetOptions) apply(in *Inputs) error {
	in.setInt("ansible-forks", o.AnsibleForks)
	in.setList("custom-inventory", o.CustomInventory)

	if o.NodeType != "" {
		nodeType, err := ParseNodeType(o.NodeType)
		if err != nil {
			return err
		}

		in.Set("node-type", string(nodeType))
	}

	return nil
}
