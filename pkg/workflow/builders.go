package workflow

import (
	"strconv"
)

type stopNodesOptions struct {
	TargetOptions `mapstructure:",squash"`
	Delay         *int     `mapstructure:"delay"`
	Interval      *int     `mapstructure:"interval"`
	ServiceNames  []string `mapstructure:"service-names"`
}

func buildStopNodes(v Values, in *Inputs) error {
	var opts stopNodesOptions
	if err := decode(v, &opts); err != nil {
		return err
	}

	if err := opts.apply(in); err != nil {
		return err
	}

	in.setInt("delay", opts.Delay)
	in.setInt("interval", opts.Interval)
	in.setList("service-names", opts.ServiceNames)

	return nil
}

type startNodesOptions struct {
	TargetOptions `mapstructure:",squash"`
	Interval      *int `mapstructure:"interval"`
}

func buildStartNodes(v Values, in *Inputs) error {
	var opts startNodesOptions
	if err := decode(v, &opts); err != nil {
		return err
	}

	if err := opts.apply(in); err != nil {
		return err
	}

	in.setInt("interval", opts.Interval)

	return nil
}

type upgradeNetworkOptions struct {
	TargetOptions `mapstructure:",squash"`
	Version       string `mapstructure:"version"`
	Delay         *int   `mapstructure:"delay"`
	Interval      *int   `mapstructure:"interval"`
	Force         *bool  `mapstructure:"force"`
}

func buildUpgradeNetwork(v Values, in *Inputs) error {
	var opts upgradeNetworkOptions
	if err := decode(v, &opts); err != nil {
		return err
	}

	in.Set("version", opts.Version)

	if err := opts.apply(in); err != nil {
		return err
	}

	in.setInt("delay", opts.Delay)
	in.setInt("interval", opts.Interval)
	in.setBool("force", opts.Force)

	return nil
}

type upgradeAntctlOptions struct {
	Version         string   `mapstructure:"version"`
	CustomInventory []string `mapstructure:"custom-inventory"`
	NodeType        string   `mapstructure:"node-type"`
}

func buildUpgradeAntctl(v Values, in *Inputs) error {
	var opts upgradeAntctlOptions
	if err := decode(v, &opts); err != nil {
		return err
	}

	in.Set("version", opts.Version)

	target := TargetOptions{CustomInventory: opts.CustomInventory, NodeType: opts.NodeType}

	return target.apply(in)
}

func buildUpgradeUploaders(v Values, in *Inputs) error {
	version, _ := v.String("version")
	in.Set("version", version)

	return nil
}

type depositFundsOptions struct {
	Provider         string `mapstructure:"provider"`
	GasToTransfer    string `mapstructure:"gas-to-transfer"`
	TokensToTransfer string `mapstructure:"tokens-to-transfer"`
}

func buildDepositFunds(v Values, in *Inputs) error {
	var opts depositFundsOptions
	if err := decode(v, &opts); err != nil {
		return err
	}

	provider, err := ParseProvider(opts.Provider)
	if err != nil {
		return err
	}

	in.Set("provider", string(provider))
	in.setString("gas-to-transfer", opts.GasToTransfer)
	in.setString("tokens-to-transfer", opts.TokensToTransfer)

	return nil
}

type drainFundsOptions struct {
	Provider  string `mapstructure:"provider"`
	ToAddress string `mapstructure:"to-address"`
}

func buildDrainFunds(v Values, in *Inputs) error {
	var opts drainFundsOptions
	if err := decode(v, &opts); err != nil {
		return err
	}

	provider, err := ParseProvider(opts.Provider)
	if err != nil {
		return err
	}

	in.Set("provider", string(provider))
	in.setString("to-address", opts.ToAddress)

	return nil
}

type upscaleOptions struct {
	DesiredPeerCacheNodeCount        *int   `mapstructure:"desired-peer-cache-node-count"`
	DesiredGenericNodeCount          *int   `mapstructure:"desired-generic-node-count"`
	DesiredFullConePrivateNodeCount  *int   `mapstructure:"desired-full-cone-private-node-count"`
	DesiredSymmetricPrivateNodeCount *int   `mapstructure:"desired-symmetric-private-node-count"`
	DesiredPeerCacheVMCount          *int   `mapstructure:"desired-peer-cache-vm-count"`
	DesiredGenericVMCount            *int   `mapstructure:"desired-generic-vm-count"`
	DesiredFullConePrivateVMCount    *int   `mapstructure:"desired-full-cone-private-vm-count"`
	DesiredSymmetricPrivateVMCount   *int   `mapstructure:"desired-symmetric-private-vm-count"`
	DesiredUploaderVMCount           *int   `mapstructure:"desired-uploader-vm-count"`
	DesiredUploadersCount            *int   `mapstructure:"desired-uploaders-count"`
	AntVersion                       string `mapstructure:"ant-version"`
	AntnodeVersion                   string `mapstructure:"antnode-version"`
	Interval                         *int   `mapstructure:"interval"`
	InfraOnly                        *bool  `mapstructure:"infra-only"`
	Plan                             *bool  `mapstructure:"plan"`
}

func buildUpscaleNetwork(v Values, in *Inputs) error {
	var opts upscaleOptions
	if err := decode(v, &opts); err != nil {
		return err
	}

	desired := []struct {
		flag  string
		value *int
	}{
		{"desired-peer-cache-node-count", opts.DesiredPeerCacheNodeCount},
		{"desired-generic-node-count", opts.DesiredGenericNodeCount},
		{"desired-full-cone-private-node-count", opts.DesiredFullConePrivateNodeCount},
		{"desired-symmetric-private-node-count", opts.DesiredSymmetricPrivateNodeCount},
		{"desired-peer-cache-vm-count", opts.DesiredPeerCacheVMCount},
		{"desired-generic-vm-count", opts.DesiredGenericVMCount},
		{"desired-full-cone-private-vm-count", opts.DesiredFullConePrivateVMCount},
		{"desired-symmetric-private-vm-count", opts.DesiredSymmetricPrivateVMCount},
		{"desired-uploader-vm-count", opts.DesiredUploaderVMCount},
		{"desired-uploaders-count", opts.DesiredUploadersCount},
	}

	var args argList

	for _, d := range desired {
		if d.value != nil && *d.value < 0 {
			return &InvalidValueError{
				Field:  d.flag,
				Value:  strconv.Itoa(*d.value),
				Reason: "must not be negative",
			}
		}

		args.addInt(d.flag, d.value)
	}

	if len(args) == 0 {
		return &InvalidCombinationError{
			Fields: []string{"desired-*"},
			Reason: "at least one desired node, VM or uploader count is required",
		}
	}

	args.add("ant-version", opts.AntVersion)
	args.add("antnode-version", opts.AntnodeVersion)
	args.addInt("interval", opts.Interval)
	args.addSwitch("infra-only", opts.InfraOnly)
	args.addSwitch("plan", opts.Plan)

	in.Set("upscale-args", args.String())

	return nil
}

type resetToNNodesOptions struct {
	TargetOptions  `mapstructure:",squash"`
	NodeCount      int    `mapstructure:"node-count"`
	EVMNetworkType string `mapstructure:"evm-network-type"`
	Version        string `mapstructure:"version"`
	StartInterval  *int   `mapstructure:"start-interval"`
	StopInterval   *int   `mapstructure:"stop-interval"`
}

func buildResetToNNodes(v Values, in *Inputs) error {
	var opts resetToNNodesOptions
	if err := decode(v, &opts); err != nil {
		return err
	}

	if opts.NodeCount <= 0 {
		return &InvalidValueError{
			Field:  "node-count",
			Value:  strconv.Itoa(opts.NodeCount),
			Reason: "must be positive",
		}
	}

	networkType, err := ParseEVMNetworkType(opts.EVMNetworkType)
	if err != nil {
		return err
	}

	in.Set("node-count", strconv.Itoa(opts.NodeCount))
	in.Set("evm-network-type", string(networkType))

	if err := opts.apply(in); err != nil {
		return err
	}

	in.setString("version", opts.Version)
	in.setInt("start-interval", opts.StartInterval)
	in.setInt("stop-interval", opts.StopInterval)

	return nil
}

type updatePeerOptions struct {
	Peer            string   `mapstructure:"peer"`
	CustomInventory []string `mapstructure:"custom-inventory"`
	NodeType        string   `mapstructure:"node-type"`
}

func buildUpdatePeer(v Values, in *Inputs) error {
	var opts updatePeerOptions
	if err := decode(v, &opts); err != nil {
		return err
	}

	in.Set("peer", opts.Peer)

	target := TargetOptions{CustomInventory: opts.CustomInventory, NodeType: opts.NodeType}

	return target.apply(in)
}

type killDropletsOptions struct {
	DropletNames []string `mapstructure:"droplet-names"`
}

func buildKillDroplets(v Values, in *Inputs) error {
	var opts killDropletsOptions
	if err := decode(v, &opts); err != nil {
		return err
	}

	names := joinList(opts.DropletNames)
	if names == "" {
		return &MissingFieldError{Kind: KindKillDroplets, Field: "droplet-names"}
	}

	in.Set("droplet-names", names)

	return nil
}

func buildTelegraf(v Values, in *Inputs) error {
	var opts TargetOptions
	if err := decode(v, &opts); err != nil {
		return err
	}

	return opts.apply(in)
}

type networkStatusOptions struct {
	AnsibleForks *int `mapstructure:"ansible-forks"`
}

func buildNetworkStatus(v Values, in *Inputs) error {
	var opts networkStatusOptions
	if err := decode(v, &opts); err != nil {
		return err
	}

	in.setInt("ansible-forks", opts.AnsibleForks)

	return nil
}
