// Package reshape is a declarative JSON-to-JSON transformation engine. A
// chain spec describes a sequence of modifier transforms; each modifier spec
// mirrors the shape of the documents it rewrites, with =function(...)
// expressions from the built-in registry on its leaves.
package reshape

import (
	"fmt"

	"github.com/reshape/reshape-go/document"
	"github.com/reshape/reshape-go/transform"
)

// Compile parses and compiles a JSON chain spec. The returned chain is
// immutable and safe to share across goroutines.
func Compile(chainSpec []byte) (*transform.Chain, error) {
	return transform.ChainFromJSON(chainSpec)
}

// CompileYAML parses and compiles a YAML chain spec.
func CompileYAML(chainSpec []byte) (*transform.Chain, error) {
	return transform.ChainFromYAML(chainSpec)
}

// Apply compiles a JSON chain spec and applies it to a JSON document in one
// step. Callers transforming many documents should Compile once and reuse
// the chain instead.
func Apply(chainSpec, input []byte) ([]byte, error) {
	chain, err := Compile(chainSpec)
	if err != nil {
		return nil, err
	}
	doc, err := document.FromJSON(input)
	if err != nil {
		return nil, err
	}
	out, err := chain.Transform(doc)
	if err != nil {
		return nil, fmt.Errorf("applying chain: %w", err)
	}
	return document.ToJSON(out)
}
