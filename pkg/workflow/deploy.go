package workflow

import (
	"github.com/ethpandaops/testnetoor/pkg/environment"
)

// DeployConfig is the fully resolved configuration of a deployment
// producing workflow: user values merged over the tier defaults.
// Node counts and VM settings are nil for client deployments.
type DeployConfig struct {
	CommonOptions `mapstructure:",squash"`
	BinaryOptions `mapstructure:",squash"`
	EVMOptions    `mapstructure:",squash"`

	Kind            DeploymentKind   `mapstructure:"-"`
	EnvironmentType environment.Tier `mapstructure:"-"`

	PeerCacheNodeCount        *int `mapstructure:"peer-cache-node-count"`
	GenericNodeCount          *int `mapstructure:"generic-node-count"`
	FullConePrivateNodeCount  *int `mapstructure:"full-cone-private-node-count"`
	SymmetricPrivateNodeCount *int `mapstructure:"symmetric-private-node-count"`
	UploadersCount            *int `mapstructure:"uploaders-count"`

	PeerCacheVMCount        *int `mapstructure:"peer-cache-vm-count"`
	GenericVMCount          *int `mapstructure:"generic-vm-count"`
	FullConePrivateVMCount  *int `mapstructure:"full-cone-private-vm-count"`
	SymmetricPrivateVMCount *int `mapstructure:"symmetric-private-vm-count"`
	UploaderVMCount         *int `mapstructure:"uploader-vm-count"`

	PeerCacheVMSize        string `mapstructure:"peer-cache-vm-size"`
	GenericVMSize          string `mapstructure:"generic-vm-size"`
	FullConePrivateVMSize  string `mapstructure:"full-cone-private-vm-size"`
	SymmetricPrivateVMSize string `mapstructure:"symmetric-private-vm-size"`
	UploaderVMSize         string `mapstructure:"uploader-vm-size"`

	MaxLogFiles         *int   `mapstructure:"max-log-files"`
	MaxArchivedLogFiles *int   `mapstructure:"max-archived-log-files"`
	RelatedPR           *int   `mapstructure:"related-pr"`
	Peer                string `mapstructure:"peer"`
	NetworkContactsURL  string `mapstructure:"network-contacts-url"`
}

// ResolveDeployment canonicalises values, fills in the tier defaults for
// the deployment kind and validates the result. A missing
// environment-type means development.
func ResolveDeployment(kind DeploymentKind, values Values) (*DeployConfig, error) {
	v := values.Canonical().compact()

	tierName, ok := v.String("environment-type")
	if !ok {
		tierName = string(environment.Development)
	}

	tier, err := environment.ParseTier(tierName)
	if err != nil {
		return nil, &InvalidValueError{
			Field:  "environment-type",
			Value:  tierName,
			Reason: "must be one of development, staging, production",
		}
	}

	var resolved map[string]any

	switch kind {
	case DeploymentNetwork:
		resolved, err = environment.Resolve(tier, v)
	case DeploymentClient:
		resolved, err = environment.ResolveUploaders(tier, v)
	default:
		return nil, &InvalidValueError{
			Field:  "deployment-kind",
			Value:  string(kind),
			Reason: "workflow does not produce a deployment",
		}
	}

	if err != nil {
		return nil, err
	}

	cfg := &DeployConfig{Kind: kind, EnvironmentType: tier}
	if err := decode(resolved, cfg); err != nil {
		return nil, err
	}

	if kind == DeploymentClient {
		cfg.clearNodeSettings()
	}

	if _, err := cfg.Args(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// clearNodeSettings drops node and VM settings a client deployment does not
// provision, even when the user supplied them.
func (c *DeployConfig) clearNodeSettings() {
	c.PeerCacheNodeCount = nil
	c.GenericNodeCount = nil
	c.FullConePrivateNodeCount = nil
	c.SymmetricPrivateNodeCount = nil
	c.PeerCacheVMCount = nil
	c.GenericVMCount = nil
	c.FullConePrivateVMCount = nil
	c.SymmetricPrivateVMCount = nil
	c.PeerCacheVMSize = ""
	c.GenericVMSize = ""
	c.FullConePrivateVMSize = ""
	c.SymmetricPrivateVMSize = ""
}

// Args renders the deploy-args input.
func (c *DeployConfig) Args() (string, error) {
	args, err := c.BinaryOptions.args()
	if err != nil {
		return "", err
	}

	if c.Kind == DeploymentNetwork {
		args.addInt("peer-cache-node-count", c.PeerCacheNodeCount)
		args.addInt("generic-node-count", c.GenericNodeCount)
		args.addInt("full-cone-private-node-count", c.FullConePrivateNodeCount)
		args.addInt("symmetric-private-node-count", c.SymmetricPrivateNodeCount)
		args.addInt("peer-cache-vm-count", c.PeerCacheVMCount)
		args.addInt("generic-vm-count", c.GenericVMCount)
		args.addInt("full-cone-private-vm-count", c.FullConePrivateVMCount)
		args.addInt("symmetric-private-vm-count", c.SymmetricPrivateVMCount)
		args.add("peer-cache-vm-size", c.PeerCacheVMSize)
		args.add("generic-vm-size", c.GenericVMSize)
		args.add("full-cone-private-vm-size", c.FullConePrivateVMSize)
		args.add("symmetric-private-vm-size", c.SymmetricPrivateVMSize)
	}

	args.addInt("uploaders-count", c.UploadersCount)
	args.addInt("uploader-vm-count", c.UploaderVMCount)
	args.add("uploader-vm-size", c.UploaderVMSize)

	evm, err := c.EVMOptions.args()
	if err != nil {
		return "", err
	}

	args = append(args, evm...)

	args.addInt("max-log-files", c.MaxLogFiles)
	args.addInt("max-archived-log-files", c.MaxArchivedLogFiles)
	args.add("peer", c.Peer)
	args.add("network-contacts-url", c.NetworkContactsURL)

	return args.String(), nil
}

func buildDeployment(kind DeploymentKind) func(Values, *Inputs) error {
	return func(v Values, in *Inputs) error {
		cfg, err := ResolveDeployment(kind, v)
		if err != nil {
			return err
		}

		args, err := cfg.Args()
		if err != nil {
			return err
		}

		in.Set("environment-type", string(cfg.EnvironmentType))
		in.Set("deploy-args", args)

		in.setInt("related-pr", cfg.RelatedPR)

		return nil
	}
}
