// Package specstore loads chain specs from external backends: a local
// directory, a git repository, or redis. Stores hand back raw spec bytes;
// compilation stays in the transform package.
package specstore

import (
	"bytes"
	"context"

	"github.com/reshape/reshape-go/transform"
)

// Store is a read view over named chain specs.
type Store interface {
	// Load returns the raw spec bytes for a name, without extension.
	Load(ctx context.Context, name string) ([]byte, error)
	// List returns the available spec names, sorted.
	List(ctx context.Context) ([]string, error)
	Close() error
}

// Writer is implemented by stores that accept spec uploads.
type Writer interface {
	Save(ctx context.Context, name string, data []byte) error
}

// Watcher is implemented by stores that can report spec changes. The
// channel carries the names of changed specs and closes when ctx ends.
type Watcher interface {
	Watch(ctx context.Context) (<-chan string, error)
}

// CompileChain compiles raw spec bytes into a chain, accepting either JSON
// or YAML.
func CompileChain(data []byte, opts ...transform.Option) (*transform.Chain, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		return transform.ChainFromJSON(data, opts...)
	}
	return transform.ChainFromYAML(data, opts...)
}
