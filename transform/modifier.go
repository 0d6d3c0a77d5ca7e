package transform

import (
	"fmt"
	"sort"
	"strings"

	"github.com/reshape/reshape-go/document"
	"github.com/reshape/reshape-go/function"
)

// Transform is anything that turns one document into another.
type Transform interface {
	Transform(input map[string]interface{}) (map[string]interface{}, error)
}

// Mode selects how a Modifier treats destination keys that already exist.
type Mode int

const (
	// Overwrite writes every produced value, replacing existing ones.
	Overwrite Mode = iota
	// Defaults writes only where the destination key is missing.
	Defaults
)

// Modifier is a compiled modifier spec. The spec tree mirrors the document's
// shape; a leaf string starting with "=" is a function expression, an array
// leaf is a fallback chain tried in order, and any other leaf is a literal.
//
// A Modifier is immutable after construction and safe for concurrent use.
type Modifier struct {
	spec     compiledMap
	registry *function.Registry
	mode     Mode
}

type compiledMap map[string]interface{}

// Option configures a Modifier.
type Option func(*Modifier)

// AsDefaults makes the Modifier write only into missing keys.
func AsDefaults() Option {
	return func(m *Modifier) { m.mode = Defaults }
}

// WithRegistry overrides the stock function registry, typically with one
// extended via Registry.With.
func WithRegistry(reg *function.Registry) Option {
	return func(m *Modifier) { m.registry = reg }
}

// NewModifier compiles a modifier spec. All function expressions are parsed
// here, once; Transform only evaluates.
func NewModifier(spec map[string]interface{}, opts ...Option) (*Modifier, error) {
	m := &Modifier{registry: function.NewRegistry()}
	for _, opt := range opts {
		opt(m)
	}
	compiled, err := compileSpecMap(spec)
	if err != nil {
		return nil, err
	}
	m.spec = compiled
	return m, nil
}

// Transform applies the spec to a deep copy of the input. Function results
// that are absent leave their destination keys exactly as they were; that is
// the engine's only failure signal, so Transform itself never errors at
// evaluation time.
func (m *Modifier) Transform(input map[string]interface{}) (map[string]interface{}, error) {
	out := document.DeepCopy(input)
	if out == nil {
		out = make(map[string]interface{})
	}
	ctx := NewWalkContext(out)
	m.walk(m.spec, out, ctx)
	return out, nil
}

func (m *Modifier) walk(spec compiledMap, node map[string]interface{}, ctx *WalkContext) {
	// Spec keys are visited in sorted order so that expressions referencing
	// sibling keys see deterministic results.
	keys := make([]string, 0, len(spec))
	for k := range spec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		rhs := spec[key]
		value, exists := node[key]

		switch r := rhs.(type) {
		case *Expression:
			if m.mode == Defaults && exists {
				continue
			}
			ctx.push(key, value, exists)
			result := m.apply(r, ctx)
			ctx.pop()
			if result.IsPresent() {
				node[key] = result.Value()
			}

		case compiledMap:
			if exists {
				child, ok := value.(map[string]interface{})
				if !ok {
					continue
				}
				ctx.push(key, child, true)
				m.walk(r, child, ctx)
				ctx.pop()
				continue
			}
			// Descend into a key the input lacks: expressions below may
			// still produce values from references elsewhere. Drop the
			// scaffold again if nothing was written.
			child := make(map[string]interface{})
			node[key] = child
			ctx.push(key, child, true)
			m.walk(r, child, ctx)
			ctx.pop()
			if len(child) == 0 {
				delete(node, key)
			}

		case []interface{}:
			if m.mode == Defaults && exists {
				continue
			}
			for _, entry := range r {
				expr, ok := entry.(*Expression)
				if !ok {
					node[key] = document.DeepCopyValue(entry)
					break
				}
				ctx.push(key, value, exists)
				result := m.apply(expr, ctx)
				ctx.pop()
				if result.IsPresent() {
					node[key] = result.Value()
					break
				}
			}

		default:
			if m.mode == Overwrite || !exists {
				node[key] = document.DeepCopyValue(r)
			}
		}
	}
}

// apply resolves the expression's arguments and dispatches to the registry.
// Unknown function names and unresolved arguments fail silently, per the
// absence-only error policy.
func (m *Modifier) apply(expr *Expression, ctx *WalkContext) function.Result {
	fn, ok := m.registry.Lookup(expr.Name)
	if !ok {
		return function.Empty()
	}

	var args []interface{}
	if expr.Shorthand {
		// "=name" implies the matched value as the sole argument; a
		// missing key means an empty argument list.
		if v, ok := ctx.MatchedValue(); ok {
			args = []interface{}{v}
		}
	} else {
		args = make([]interface{}, 0, len(expr.Args))
		for _, arg := range expr.Args {
			v, ok := arg.Resolve(ctx)
			if !ok {
				continue
			}
			args = append(args, v)
		}
	}
	return fn.Apply(args...)
}

func compileSpecMap(spec map[string]interface{}) (compiledMap, error) {
	compiled := make(compiledMap, len(spec))
	for key, rhs := range spec {
		node, err := compileSpecNode(rhs)
		if err != nil {
			return nil, fmt.Errorf("spec key %q: %w", key, err)
		}
		compiled[key] = node
	}
	return compiled, nil
}

func compileSpecNode(rhs interface{}) (interface{}, error) {
	switch t := rhs.(type) {
	case string:
		if IsExpression(t) {
			return ParseExpression(t)
		}
		// "\=" escapes a literal leading equals sign.
		if strings.HasPrefix(t, `\=`) {
			return t[1:], nil
		}
		return t, nil
	case map[string]interface{}:
		return compileSpecMap(t)
	case []interface{}:
		entries := make([]interface{}, len(t))
		for i, entry := range t {
			compiled, err := compileSpecNode(entry)
			if err != nil {
				return nil, err
			}
			if _, isMap := compiled.(compiledMap); isMap {
				return nil, fmt.Errorf("fallback chains cannot contain objects")
			}
			entries[i] = compiled
		}
		return entries, nil
	default:
		return rhs, nil
	}
}
