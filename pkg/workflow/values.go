package workflow

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Values is the user supplied configuration for one workflow invocation,
// keyed by the kebab-case option names the workflows use.
type Values map[string]any

// legacyAliases maps pre-rename option names to their canonical names.
var legacyAliases = map[string]string{
	"autonomi-version":         "ant-version",
	"safenode-version":         "antnode-version",
	"safenode-manager-version": "antctl-version",
	"bootstrap-node-count":     "peer-cache-node-count",
	"bootstrap-node-vm-count":  "peer-cache-vm-count",
	"bootstrap-vm-size":        "peer-cache-vm-size",
	"private-node-count":       "symmetric-private-node-count",
	"private-node-vm-count":    "symmetric-private-vm-count",
	"private-vm-size":          "symmetric-private-vm-size",
}

// LegacyAliases returns a copy of the alias table.
func LegacyAliases() map[string]string {
	aliases := make(map[string]string, len(legacyAliases))
	for k, v := range legacyAliases {
		aliases[k] = v
	}

	return aliases
}

// LoadValues reads a YAML workflow configuration file.
func LoadValues(path string) (Values, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workflow config file: %w", err)
	}

	var values Values
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parsing workflow config file: %w", err)
	}

	if values == nil {
		values = Values{}
	}

	return values, nil
}

// With returns a copy of v with overrides applied on top.
func (v Values) With(overrides Values) Values {
	merged := make(Values, len(v)+len(overrides))
	for k, val := range v {
		merged[k] = val
	}

	for k, val := range overrides {
		merged[k] = val
	}

	return merged
}

// Has reports whether key is present with a non-empty value.
func (v Values) Has(key string) bool {
	val, ok := v[key]

	return ok && !isEmpty(val)
}

// String returns the string form of a scalar value.
func (v Values) String(key string) (string, bool) {
	if !v.Has(key) {
		return "", false
	}

	return strings.TrimSpace(fmt.Sprint(v[key])), true
}

// Canonical returns a copy with legacy option names renamed. When both the
// legacy and the canonical name are present the canonical value wins.
func (v Values) Canonical() Values {
	canonical := make(Values, len(v))

	for k, val := range v {
		if _, legacy := legacyAliases[k]; legacy {
			continue
		}

		canonical[k] = val
	}

	for legacy, current := range legacyAliases {
		val, ok := v[legacy]
		if !ok || isEmpty(val) || canonical.Has(current) {
			continue
		}

		canonical[current] = val
	}

	return canonical
}

// compact drops empty values and trims strings.
func (v Values) compact() Values {
	compacted := make(Values, len(v))

	for k, val := range v {
		if isEmpty(val) {
			continue
		}

		if s, ok := val.(string); ok {
			val = strings.TrimSpace(s)
		}

		compacted[k] = val
	}

	return compacted
}

// require checks keys in order and reports the first missing one.
func (v Values) require(kind Kind, keys ...string) error {
	for _, key := range keys {
		if !v.Has(key) {
			return &MissingFieldError{Kind: kind, Field: key}
		}
	}

	return nil
}

func isEmpty(val any) bool {
	if val == nil {
		return true
	}

	if s, ok := val.(string); ok {
		return strings.TrimSpace(s) == ""
	}

	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	default:
		return false
	}
}

// decode maps values onto a typed options struct. Scalars are weakly typed
// so that "5" and 5 decode alike, and comma separated strings decode into
// string slices.
func decode(values Values, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("creating decoder: %w", err)
	}

	if err := decoder.Decode(map[string]any(values)); err != nil {
		return fmt.Errorf("decoding options: %w", err)
	}

	return nil
}
