package transform

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Chain applies an ordered list of transforms, feeding each output into the
// next.
type Chain struct {
	transforms []Transform
}

// NewChain builds a chain from already-constructed transforms.
func NewChain(transforms ...Transform) *Chain {
	return &Chain{transforms: transforms}
}

// Transform runs the chain left to right.
func (c *Chain) Transform(input map[string]interface{}) (map[string]interface{}, error) {
	current := input
	for i, t := range c.transforms {
		next, err := t.Transform(current)
		if err != nil {
			return nil, fmt.Errorf("chain step %d: %w", i, err)
		}
		current = next
	}
	return current, nil
}

// Len returns the number of steps in the chain.
func (c *Chain) Len() int {
	return len(c.transforms)
}

// ChainEntry is one step of a declarative chain spec.
type ChainEntry struct {
	Operation string                 `json:"operation" yaml:"operation"`
	Spec      map[string]interface{} `json:"spec" yaml:"spec"`
}

// ChainFromEntries compiles a declarative chain. Supported operations are
// "modify-overwrite" and "modify-default".
func ChainFromEntries(entries []ChainEntry, opts ...Option) (*Chain, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("chain spec has no entries")
	}
	transforms := make([]Transform, 0, len(entries))
	for i, entry := range entries {
		if entry.Spec == nil {
			return nil, fmt.Errorf("chain entry %d: missing spec", i)
		}
		var stepOpts []Option
		switch entry.Operation {
		case "modify-overwrite":
			stepOpts = opts
		case "modify-default":
			stepOpts = append(append([]Option{}, opts...), AsDefaults())
		default:
			return nil, fmt.Errorf("chain entry %d: unknown operation %q", i, entry.Operation)
		}
		mod, err := NewModifier(entry.Spec, stepOpts...)
		if err != nil {
			return nil, fmt.Errorf("chain entry %d: %w", i, err)
		}
		transforms = append(transforms, mod)
	}
	return NewChain(transforms...), nil
}

// ChainFromJSON parses and compiles a JSON chain spec.
func ChainFromJSON(data []byte, opts ...Option) (*Chain, error) {
	var entries []ChainEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing chain spec json: %w", err)
	}
	return ChainFromEntries(entries, opts...)
}

// ChainFromYAML parses and compiles a YAML chain spec.
func ChainFromYAML(data []byte, opts ...Option) (*Chain, error) {
	var entries []ChainEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing chain spec yaml: %w", err)
	}
	return ChainFromEntries(entries, opts...)
}
