package workflow

import (
	"strconv"
	"strings"
)

// Inputs is the flat, insertion-ordered dispatch payload of a workflow.
type Inputs struct {
	keys   []string
	values map[string]string
}

// NewInputs creates an empty payload.
func NewInputs() *Inputs {
	return &Inputs{values: make(map[string]string, 8)}
}

// Set stores a value. Re-setting a key keeps its original position.
func (in *Inputs) Set(key, value string) {
	if _, exists := in.values[key]; !exists {
		in.keys = append(in.keys, key)
	}

	in.values[key] = value
}

// Get returns the value stored for key.
func (in *Inputs) Get(key string) (string, bool) {
	v, ok := in.values[key]

	return v, ok
}

// Keys returns the keys in insertion order.
func (in *Inputs) Keys() []string {
	keys := make([]string, len(in.keys))
	copy(keys, in.keys)

	return keys
}

// Len returns the number of inputs.
func (in *Inputs) Len() int {
	return len(in.keys)
}

// Map returns the inputs as a plain map for JSON encoding.
func (in *Inputs) Map() map[string]string {
	m := make(map[string]string, len(in.values))
	for k, v := range in.values {
		m[k] = v
	}

	return m
}

func (in *Inputs) setString(key, value string) {
	if value != "" {
		in.Set(key, value)
	}
}

func (in *Inputs) setInt(key string, value *int) {
	if value != nil {
		in.Set(key, strconv.Itoa(*value))
	}
}

func (in *Inputs) setBool(key string, value *bool) {
	if value != nil {
		in.Set(key, strconv.FormatBool(*value))
	}
}

func (in *Inputs) setList(key string, values []string) {
	if list := joinList(values); list != "" {
		in.Set(key, list)
	}
}

// joinList trims entries, drops empty ones and joins the rest with commas.
func joinList(values []string) string {
	parts := make([]string, 0, len(values))

	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}

	return strings.Join(parts, ",")
}

// argList accumulates command line flags for the argument-string inputs.
type argList []string

func (a *argList) add(flag, value string) {
	if value != "" {
		*a = append(*a, "--"+flag, value)
	}
}

func (a *argList) addInt(flag string, value *int) {
	if value != nil {
		*a = append(*a, "--"+flag, strconv.Itoa(*value))
	}
}

func (a *argList) addSwitch(flag string, value *bool) {
	if value != nil && *value {
		*a = append(*a, "--"+flag)
	}
}

func (a argList) String() string {
	return strings.Join(a, " ")
}
