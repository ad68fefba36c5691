package workflow

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRegistry_KindsAreComplete(t *testing.T) {
	r := DefaultRegistry()

	kinds := r.Kinds()
	assert.Len(t, kinds, 18)

	for _, kind := range kinds {
		def, err := r.Lookup(kind)
		require.NoError(t, err)
		assert.Equal(t, kind, def.Kind)
		assert.NotEmpty(t, def.Title)
		assert.Contains(t, def.Required, "network-name")
	}

	_, err := r.Lookup(Kind("nope"))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestRegistry_DeploymentKinds(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		kind Kind
		want DeploymentKind
	}{
		{kind: KindLaunchNetwork, want: DeploymentNetwork},
		{kind: KindBootstrapNetwork, want: DeploymentNetwork},
		{kind: KindLaunchClients, want: DeploymentClient},
		{kind: KindStopNodes, want: DeploymentNone},
		{kind: KindUpscaleNetwork, want: DeploymentNone},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			def, err := r.Lookup(tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.want, def.Deployment)
			assert.Equal(t, tt.want != DeploymentNone, def.ProducesDeployment())
		})
	}
}

func TestBuild_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		kind    Kind
		values  Values
		missing string
	}{
		{kind: KindStopNodes, values: Values{}, missing: "network-name"},
		{kind: KindStartNodes, values: Values{"network-name": "  "}, missing: "network-name"},
		{kind: KindLaunchNetwork, values: Values{}, missing: "network-name"},
		{kind: KindBootstrapNetwork, values: Values{"network-name": "DEV-01"}, missing: "peer"},
		{kind: KindUpgradeNetwork, values: Values{"network-name": "DEV-01"}, missing: "version"},
		{kind: KindUpgradeAntctl, values: Values{"network-name": "DEV-01"}, missing: "version"},
		{kind: KindUpgradeUploaders, values: Values{"network-name": "DEV-01"}, missing: "version"},
		{kind: KindDestroyNetwork, values: Values{}, missing: "network-name"},
		{kind: KindDepositFunds, values: Values{"network-name": "DEV-01"}, missing: "provider"},
		{kind: KindDrainFunds, values: Values{"network-name": "DEV-01"}, missing: "provider"},
		{kind: KindResetToNNodes, values: Values{"network-name": "DEV-01"}, missing: "node-count"},
		{
			kind:    KindResetToNNodes,
			values:  Values{"network-name": "DEV-01", "node-count": 10},
			missing: "evm-network-type",
		},
		{kind: KindUpdatePeer, values: Values{"network-name": "DEV-01"}, missing: "peer"},
		{kind: KindKillDroplets, values: Values{"network-name": "DEV-01"}, missing: "droplet-names"},
		{
			kind:    KindKillDroplets,
			values:  Values{"network-name": "DEV-01", "droplet-names": []any{}},
			missing: "droplet-names",
		},
		{kind: KindNetworkStatus, values: Values{}, missing: "network-name"},
	}

	r := DefaultRegistry()

	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+tt.missing, func(t *testing.T) {
			_, err := r.Build(tt.kind, tt.values)
			require.Error(t, err)

			var missing *MissingFieldError
			require.True(t, errors.As(err, &missing), "got %T: %v", err, err)
			assert.Equal(t, tt.missing, missing.Field)
			assert.Equal(t, tt.kind, missing.Kind)
		})
	}
}

func TestTestnetDeployArgs(t *testing.T) {
	tests := []struct {
		name    string
		values  Values
		want    string
		wantErr bool
	}{
		{name: "nothing", values: Values{}, want: ""},
		{
			name:   "version",
			values: Values{"testnet-deploy-version": "1.2.3"},
			want:   "--version 1.2.3",
		},
		{
			name: "branch and owner",
			values: Values{
				"testnet-deploy-branch":     "feat",
				"testnet-deploy-repo-owner": "jacderida",
			},
			want: "--branch feat --repo-owner jacderida",
		},
		{
			name: "version with branch",
			values: Values{
				"testnet-deploy-version": "1.2.3",
				"testnet-deploy-branch":  "foo",
			},
			wantErr: true,
		},
		{
			name: "version with owner",
			values: Values{
				"testnet-deploy-version":    "1.2.3",
				"testnet-deploy-repo-owner": "maidsafe",
			},
			wantErr: true,
		},
		{
			name:    "branch without owner",
			values:  Values{"testnet-deploy-branch": "foo"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TestnetDeployArgs(tt.values)
			if tt.wantErr {
				var combination *InvalidCombinationError
				require.True(t, errors.As(err, &combination), "got %v", err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuild_TestnetDeploySourceConflictStopsBuild(t *testing.T) {
	_, err := DefaultRegistry().Build(KindDestroyNetwork, Values{
		"network-name":           "DEV-01",
		"testnet-deploy-version": "1.2.3",
		"testnet-deploy-branch":  "foo",
	})

	var combination *InvalidCombinationError
	require.True(t, errors.As(err, &combination))
	assert.Contains(t, combination.Fields, "testnet-deploy-version")
}

func TestBuild_StopNodes(t *testing.T) {
	in, err := DefaultRegistry().Build(KindStopNodes, Values{
		"network-name":           "DEV-01",
		"ansible-forks":          "10",
		"custom-inventory":       []any{"dev-01-node-1", " dev-01-node-2 "},
		"delay":                  5,
		"node-type":              "generic",
		"service-names":          "antnode1, antnode2",
		"testnet-deploy-version": "0.5.0",
	})
	require.NoError(t, err)

	want := map[string]string{
		"network-name":        "DEV-01",
		"ansible-forks":       "10",
		"custom-inventory":    "dev-01-node-1,dev-01-node-2",
		"node-type":           "generic",
		"delay":               "5",
		"service-names":       "antnode1,antnode2",
		"testnet-deploy-args": "--version 0.5.0",
	}

	if diff := cmp.Diff(want, in.Map()); diff != "" {
		t.Errorf("inputs mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "network-name", in.Keys()[0])
	assert.Equal(t, "testnet-deploy-args", in.Keys()[in.Len()-1])
}

func TestBuild_InvalidNodeType(t *testing.T) {
	_, err := DefaultRegistry().Build(KindStartNodes, Values{
		"network-name": "DEV-01",
		"node-type":    "validator",
	})

	var invalid *InvalidValueError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "node-type", invalid.Field)
}

func TestBuild_UpgradeNetworkForce(t *testing.T) {
	in, err := DefaultRegistry().Build(KindUpgradeNetwork, Values{
		"network-name": "DEV-01",
		"version":      "0.3.1",
		"force":        true,
		"interval":     200,
	})
	require.NoError(t, err)

	want := map[string]string{
		"network-name": "DEV-01",
		"version":      "0.3.1",
		"interval":     "200",
		"force":        "true",
	}

	if diff := cmp.Diff(want, in.Map()); diff != "" {
		t.Errorf("inputs mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_FundsProvider(t *testing.T) {
	r := DefaultRegistry()

	in, err := r.Build(KindDepositFunds, Values{
		"network-name":       "DEV-01",
		"provider":           "digital-ocean",
		"tokens-to-transfer": "100",
	})
	require.NoError(t, err)

	v, ok := in.Get("provider")
	require.True(t, ok)
	assert.Equal(t, "digital-ocean", v)

	_, err = r.Build(KindDrainFunds, Values{"network-name": "DEV-01", "provider": "gcp"})

	var invalid *InvalidValueError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "provider", invalid.Field)
}

func TestBuild_UpscaleNetwork(t *testing.T) {
	r := DefaultRegistry()

	in, err := r.Build(KindUpscaleNetwork, Values{
		"network-name":               "DEV-01",
		"desired-generic-node-count": 30,
		"desired-generic-vm-count":   12,
		"antnode-version":            "0.112.0",
		"plan":                       true,
		"infra-only":                 false,
	})
	require.NoError(t, err)

	args, ok := in.Get("upscale-args")
	require.True(t, ok)
	assert.Equal(t,
		"--desired-generic-node-count 30 --desired-generic-vm-count 12 --antnode-version 0.112.0 --plan",
		args)

	_, err = r.Build(KindUpscaleNetwork, Values{"network-name": "DEV-01", "plan": true})

	var combination *InvalidCombinationError
	require.True(t, errors.As(err, &combination))
}

func TestBuild_ResetToNNodes(t *testing.T) {
	r := DefaultRegistry()

	in, err := r.Build(KindResetToNNodes, Values{
		"network-name":     "DEV-01",
		"node-count":       "20",
		"evm-network-type": "arbitrum-sepolia",
		"start-interval":   1000,
	})
	require.NoError(t, err)

	want := map[string]string{
		"network-name":     "DEV-01",
		"node-count":       "20",
		"evm-network-type": "arbitrum-sepolia",
		"start-interval":   "1000",
	}

	if diff := cmp.Diff(want, in.Map()); diff != "" {
		t.Errorf("inputs mismatch (-want +got):\n%s", diff)
	}

	_, err = r.Build(KindResetToNNodes, Values{
		"network-name":     "DEV-01",
		"node-count":       20,
		"evm-network-type": "mainnet",
	})

	var invalid *InvalidValueError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "evm-network-type", invalid.Field)
}

func TestBuild_KillDroplets(t *testing.T) {
	in, err := DefaultRegistry().Build(KindKillDroplets, Values{
		"network-name":  "DEV-01",
		"droplet-names": []any{"DEV-01-node-1", "DEV-01-node-2"},
	})
	require.NoError(t, err)

	names, ok := in.Get("droplet-names")
	require.True(t, ok)
	assert.Equal(t, "DEV-01-node-1,DEV-01-node-2", names)
}

func TestBuild_LaunchNetworkDevelopmentDefaults(t *testing.T) {
	in, err := DefaultRegistry().Build(KindLaunchNetwork, Values{"network-name": "DEV-01"})
	require.NoError(t, err)

	want := map[string]string{
		"network-name":     "DEV-01",
		"environment-type": "development",
		"deploy-args": "--peer-cache-node-count 5 --generic-node-count 25 " +
			"--full-cone-private-node-count 25 --symmetric-private-node-count 25 " +
			"--peer-cache-vm-count 3 --generic-vm-count 10 " +
			"--full-cone-private-vm-count 1 --symmetric-private-vm-count 1 " +
			"--peer-cache-vm-size s-2vcpu-4gb --generic-vm-size s-2vcpu-4gb " +
			"--full-cone-private-vm-size s-2vcpu-4gb --symmetric-private-vm-size s-2vcpu-4gb " +
			"--uploaders-count 1 --uploader-vm-count 1 --uploader-vm-size s-2vcpu-4gb",
	}

	if diff := cmp.Diff(want, in.Map()); diff != "" {
		t.Errorf("inputs mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveDeployment(t *testing.T) {
	t.Run("legacy aliases and overrides", func(t *testing.T) {
		cfg, err := ResolveDeployment(DeploymentNetwork, Values{
			"network-name":         "STG-02",
			"environment-type":     "staging",
			"bootstrap-node-count": 3,
			"autonomi-version":     "0.1.0",
			"safenode-version":     "0.110.0",
			"antctl-version":       "0.10.0",
			"related-pr":           "1234",
		})
		require.NoError(t, err)

		assert.Equal(t, "STG-02", cfg.NetworkName)
		assert.EqualValues(t, "staging", cfg.EnvironmentType)
		require.NotNil(t, cfg.PeerCacheNodeCount)
		assert.Equal(t, 3, *cfg.PeerCacheNodeCount)
		require.NotNil(t, cfg.GenericVMCount)
		assert.Equal(t, 39, *cfg.GenericVMCount)
		assert.Equal(t, "0.1.0", cfg.AntVersion)
		assert.Equal(t, "0.110.0", cfg.AntnodeVersion)
		require.NotNil(t, cfg.RelatedPR)
		assert.Equal(t, 1234, *cfg.RelatedPR)
	})

	t.Run("client deployments carry no node settings", func(t *testing.T) {
		cfg, err := ResolveDeployment(DeploymentClient, Values{
			"network-name":       "DEV-01",
			"generic-node-count": 40,
		})
		require.NoError(t, err)

		assert.Nil(t, cfg.GenericNodeCount)
		assert.Nil(t, cfg.PeerCacheVMCount)
		require.NotNil(t, cfg.UploadersCount)
		assert.Equal(t, 1, *cfg.UploadersCount)
		assert.Equal(t, "s-2vcpu-4gb", cfg.UploaderVMSize)
	})

	t.Run("unknown environment type", func(t *testing.T) {
		_, err := ResolveDeployment(DeploymentNetwork, Values{"environment-type": "qa"})

		var invalid *InvalidValueError
		require.True(t, errors.As(err, &invalid))
		assert.Equal(t, "environment-type", invalid.Field)
	})
}

func TestResolveDeployment_BinarySource(t *testing.T) {
	tests := []struct {
		name   string
		values Values
		fields []string
	}{
		{
			name:   "partial version triple",
			values: Values{"ant-version": "0.1.0", "antnode-version": "0.110.0"},
			fields: []string{"ant-version", "antnode-version", "antctl-version"},
		},
		{
			name: "versions with branch",
			values: Values{
				"ant-version":     "0.1.0",
				"antnode-version": "0.110.0",
				"antctl-version":  "0.10.0",
				"branch":          "main",
				"repo-owner":      "maidsafe",
			},
		},
		{
			name:   "branch without owner",
			values: Values{"branch": "main"},
			fields: []string{"branch", "repo-owner"},
		},
		{
			name: "custom evm without endpoints",
			values: Values{
				"evm-network-type": "custom",
				"evm-rpc-url":      "http://localhost:8545",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveDeployment(DeploymentNetwork, tt.values)

			var combination *InvalidCombinationError
			require.True(t, errors.As(err, &combination), "got %v", err)

			if tt.fields != nil {
				assert.Equal(t, tt.fields, combination.Fields)
			}
		})
	}
}

func TestDeployConfig_ArgsBranchAndEVM(t *testing.T) {
	cfg, err := ResolveDeployment(DeploymentClient, Values{
		"network-name":              "DEV-01",
		"branch":                    "feat-x",
		"repo-owner":                "maidsafe",
		"evm-network-type":          "custom",
		"evm-data-payments-address": "0xdata",
		"evm-payment-token-address": "0xtoken",
		"evm-rpc-url":               "http://rpc",
		"peer":                      "/ip4/10.0.0.1/udp/1/quic-v1",
	})
	require.NoError(t, err)

	args, err := cfg.Args()
	require.NoError(t, err)
	assert.Equal(t,
		"--branch feat-x --repo-owner maidsafe "+
			"--uploaders-count 1 --uploader-vm-count 1 --uploader-vm-size s-2vcpu-4gb "+
			"--evm-network-type custom --evm-data-payments-address 0xdata "+
			"--evm-payment-token-address 0xtoken --evm-rpc-url http://rpc "+
			"--peer /ip4/10.0.0.1/udp/1/quic-v1",
		args)
}

func TestValues_Canonical(t *testing.T) {
	v := Values{
		"bootstrap-node-count":  3,
		"peer-cache-node-count": 7,
		"private-vm-size":       "s-1vcpu-1gb",
		"safenode-version":      "",
	}

	got := v.Canonical()

	assert.Equal(t, Values{
		"peer-cache-node-count":     7,
		"symmetric-private-vm-size": "s-1vcpu-1gb",
	}, got)
	assert.Len(t, LegacyAliases(), 9)
}

func TestLoadValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "launch.yml")

	require.NoError(t, os.WriteFile(path, []byte(`network-name: DEV-01
environment-type: development
generic-node-count: 30
custom-inventory:
  - a
  - b
`), 0o600))

	v, err := LoadValues(path)
	require.NoError(t, err)

	assert.Equal(t, "DEV-01", v["network-name"])
	assert.Equal(t, 30, v["generic-node-count"])
	assert.True(t, v.Has("custom-inventory"))

	_, err = LoadValues(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("network-name: [unclosed"), 0o600))
	_, err = LoadValues(path)
	assert.Error(t, err)
}
