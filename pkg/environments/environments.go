package environments

import (
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/txforge/txforge/pkg/types"
)

// DefaultEnvironment is the name of the base set merged under every
// selected environment.
const DefaultEnvironment = "default"

// Environment is one named set of input values.
type Environment map[string]interface{}

// Manifest models an environment manifest file.
type Manifest struct {
	// Name labels the manifest.
	Name string `yaml:"name" validate:"required"`

	// Description gives optional detail about the manifest.
	Description string `yaml:"description"`

	// Environments maps environment names to their value sets.
	Environments map[string]Environment `yaml:"environments" validate:"required,min=1"`
}

// Loader parses and validates environment manifests.
type Loader struct {
	validator *validator.Validate
}

// NewLoader creates a manifest loader.
func NewLoader() *Loader {
	return &Loader{
		validator: validator.New(),
	}
}

// Load reads a manifest from a YAML file.
func (l *Loader) Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read environment manifest %s: %w", path, err)
	}
	manifest, err := l.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment manifest %s: %w", path, err)
	}
	return manifest, nil
}

// Parse parses a manifest from YAML bytes.
func (l *Loader) Parse(data []byte) (*Manifest, error) {
	manifest := &Manifest{}
	if err := yaml.Unmarshal(data, manifest); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if err := l.validator.Struct(manifest); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return manifest, nil
}

// Names returns the environment names in sorted order, with the default
// set excluded.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Environments))
	for name := range m.Environments {
		if name == DefaultEnvironment {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select resolves the named environment into engine values. Keys from the
// default set are merged under the selected set, and the result is ordered
// by key so fingerprints stay stable across loads.
func (m *Manifest) Select(name string) (*types.ValueStore, error) {
	env, ok := m.Environments[name]
	if !ok {
		return nil, fmt.Errorf("environment %q not found in manifest %s", name, m.Name)
	}

	merged := make(map[string]interface{})
	for k, v := range m.Environments[DefaultEnvironment] {
		merged[k] = v
	}
	for k, v := range env {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := types.NewValueStore(name)
	for _, k := range keys {
		v, err := valueFromYAML(merged[k])
		if err != nil {
			return nil, fmt.Errorf("environment %q key %q: %w", name, k, err)
		}
		values.Insert(k, v)
	}
	return values, nil
}

// valueFromYAML converts a decoded YAML node into an engine value.
func valueFromYAML(raw interface{}) (types.Value, error) {
	switch v := raw.(type) {
	case nil:
		return types.NullValue(), nil
	case bool:
		return types.BoolValue(v), nil
	case int:
		return types.IntValue(int64(v)), nil
	case int64:
		return types.IntValue(v), nil
	case uint64:
		return types.IntValue(int64(v)), nil
	case float64:
		return types.FloatValue(v), nil
	case string:
		return types.StringValue(v), nil
	case []interface{}:
		elems := make([]types.Value, 0, len(v))
		for _, e := range v {
			ev, err := valueFromYAML(e)
			if err != nil {
				return types.Value{}, err
			}
			elems = append(elems, ev)
		}
		return types.ArrayValue(elems), nil
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := types.ObjectValue()
		for _, k := range keys {
			kv, err := valueFromYAML(v[k])
			if err != nil {
				return types.Value{}, err
			}
			obj.SetKey(k, kv)
		}
		return obj, nil
	default:
		return types.Value{}, fmt.Errorf("unsupported value type %T", raw)
	}
}
