// Package environment holds the per-tier deployment defaults and merges them
// into partial workflow configuration.
package environment

import (
	"errors"
	"fmt"
	"strings"
)

// Tier is an environment class a network is deployed as.
type Tier string

// Known tiers.
const (
	Development Tier = "development"
	Staging     Tier = "staging"
	Production  Tier = "production"
)

// ErrUnknownTier is returned for tier names outside the known set.
var ErrUnknownTier = errors.New("unknown environment type")

// Tiers lists the known tiers in ascending size.
func Tiers() []Tier {
	return []Tier{Development, Staging, Production}
}

// ParseTier validates a tier name.
func ParseTier(name string) (Tier, error) {
	switch t := Tier(strings.ToLower(strings.TrimSpace(name))); t {
	case Development, Staging, Production:
		return t, nil
	default:
		return "", fmt.Errorf("%w %q (expected one of development, staging, production)",
			ErrUnknownTier, name)
	}
}

// Canonical configuration keys the defaults table fills.
const (
	KeyPeerCacheNodeCount        = "peer-cache-node-count"
	KeyGenericNodeCount          = "generic-node-count"
	KeyFullConePrivateNodeCount  = "full-cone-private-node-count"
	KeySymmetricPrivateNodeCount = "symmetric-private-node-count"
	KeyUploadersCount            = "uploaders-count"
	KeyPeerCacheVMCount          = "peer-cache-vm-count"
	KeyGenericVMCount            = "generic-vm-count"
	KeyFullConePrivateVMCount    = "full-cone-private-vm-count"
	KeySymmetricPrivateVMCount   = "symmetric-private-vm-count"
	KeyUploaderVMCount           = "uploader-vm-count"
	KeyPeerCacheVMSize           = "peer-cache-vm-size"
	KeyGenericVMSize             = "generic-vm-size"
	KeyFullConePrivateVMSize     = "full-cone-private-vm-size"
	KeySymmetricPrivateVMSize    = "symmetric-private-vm-size"
	KeyUploaderVMSize            = "uploader-vm-size"
)

// Defaults is the fixed set of node, VM and uploader defaults for a tier.
type Defaults struct {
	PeerCacheNodeCount        int
	GenericNodeCount          int
	FullConePrivateNodeCount  int
	SymmetricPrivateNodeCount int
	UploadersCount            int

	PeerCacheVMCount        int
	GenericVMCount          int
	FullConePrivateVMCount  int
	SymmetricPrivateVMCount int
	UploaderVMCount         int

	PeerCacheVMSize        string
	GenericVMSize          string
	FullConePrivateVMSize  string
	SymmetricPrivateVMSize string
	UploaderVMSize         string
}

var tierDefaults = map[Tier]Defaults{
	Development: {
		PeerCacheNodeCount:        5,
		GenericNodeCount:          25,
		FullConePrivateNodeCount:  25,
		SymmetricPrivateNodeCount: 25,
		UploadersCount:            1,
		PeerCacheVMCount:          3,
		GenericVMCount:            10,
		FullConePrivateVMCount:    1,
		SymmetricPrivateVMCount:   1,
		UploaderVMCount:           1,
		PeerCacheVMSize:           "s-2vcpu-4gb",
		GenericVMSize:             "s-2vcpu-4gb",
		FullConePrivateVMSize:     "s-2vcpu-4gb",
		SymmetricPrivateVMSize:    "s-2vcpu-4gb",
		UploaderVMSize:            "s-2vcpu-4gb",
	},
	Staging: {
		PeerCacheNodeCount:        5,
		GenericNodeCount:          25,
		FullConePrivateNodeCount:  25,
		SymmetricPrivateNodeCount: 25,
		UploadersCount:            1,
		PeerCacheVMCount:          3,
		GenericVMCount:            39,
		FullConePrivateVMCount:    3,
		SymmetricPrivateVMCount:   3,
		UploaderVMCount:           2,
		PeerCacheVMSize:           "s-2vcpu-4gb",
		GenericVMSize:             "s-4vcpu-8gb",
		FullConePrivateVMSize:     "s-4vcpu-8gb",
		SymmetricPrivateVMSize:    "s-4vcpu-8gb",
		UploaderVMSize:            "s-2vcpu-4gb",
	},
	Production: {
		PeerCacheNodeCount:        5,
		GenericNodeCount:          25,
		FullConePrivateNodeCount:  25,
		SymmetricPrivateNodeCount: 25,
		UploadersCount:            2,
		PeerCacheVMCount:          5,
		GenericVMCount:            80,
		FullConePrivateVMCount:    10,
		SymmetricPrivateVMCount:   10,
		UploaderVMCount:           4,
		PeerCacheVMSize:           "s-4vcpu-8gb",
		GenericVMSize:             "s-8vcpu-16gb",
		FullConePrivateVMSize:     "s-8vcpu-16gb",
		SymmetricPrivateVMSize:    "s-8vcpu-16gb",
		UploaderVMSize:            "s-4vcpu-8gb",
	},
}

// DefaultsFor returns the defaults table of a tier.
func DefaultsFor(tier Tier) (Defaults, error) {
	d, ok := tierDefaults[tier]
	if !ok {
		return Defaults{}, fmt.Errorf("%w %q", ErrUnknownTier, tier)
	}

	return d, nil
}

// Values flattens the table onto the canonical configuration keys.
func (d Defaults) Values() map[string]any {
	return map[string]any{
		KeyPeerCacheNodeCount:        d.PeerCacheNodeCount,
		KeyGenericNodeCount:          d.GenericNodeCount,
		KeyFullConePrivateNodeCount:  d.FullConePrivateNodeCount,
		KeySymmetricPrivateNodeCount: d.SymmetricPrivateNodeCount,
		KeyUploadersCount:            d.UploadersCount,
		KeyPeerCacheVMCount:          d.PeerCacheVMCount,
		KeyGenericVMCount:            d.GenericVMCount,
		KeyFullConePrivateVMCount:    d.FullConePrivateVMCount,
		KeySymmetricPrivateVMCount:   d.SymmetricPrivateVMCount,
		KeyUploaderVMCount:           d.UploaderVMCount,
		KeyPeerCacheVMSize:           d.PeerCacheVMSize,
		KeyGenericVMSize:             d.GenericVMSize,
		KeyFullConePrivateVMSize:     d.FullConePrivateVMSize,
		KeySymmetricPrivateVMSize:    d.SymmetricPrivateVMSize,
		KeyUploaderVMSize:            d.UploaderVMSize,
	}
}

// UploaderValues is the subset of Values client deployments use.
func (d Defaults) UploaderValues() map[string]any {
	return map[string]any{
		KeyUploadersCount:  d.UploadersCount,
		KeyUploaderVMCount: d.UploaderVMCount,
		KeyUploaderVMSize:  d.UploaderVMSize,
	}
}

// Resolve merges partial over the tier's defaults. Keys present in partial
// win; partial is not modified.
func Resolve(tier Tier, partial map[string]any) (map[string]any, error) {
	d, err := DefaultsFor(tier)
	if err != nil {
		return nil, err
	}

	return merge(d.Values(), partial), nil
}

// ResolveUploaders is Resolve restricted to the uploader defaults.
func ResolveUploaders(tier Tier, partial map[string]any) (map[string]any, error) {
	d, err := DefaultsFor(tier)
	if err != nil {
		return nil, err
	}

	return merge(d.UploaderValues(), partial), nil
}

func merge(defaults, partial map[string]any) map[string]any {
	resolved := make(map[string]any, len(defaults)+len(partial))
	for k, v := range defaults {
		resolved[k] = v
	}

	for k, v := range partial {
		if v == nil {
			continue
		}

		resolved[k] = v
	}

	return resolved
}
