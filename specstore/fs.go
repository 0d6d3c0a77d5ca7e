package specstore

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"
)

var specExtensions = []string{".json", ".yaml", ".yml"}

// FSStore reads chain specs from a directory. A spec named "invoice" is the
// file invoice.json, invoice.yaml, or invoice.yml.
type FSStore struct {
	dir string
}

// NewFSStore creates a store over an existing directory.
func NewFSStore(dir string) (*FSStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("spec directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("spec directory %s is not a directory", dir)
	}
	return &FSStore{dir: dir}, nil
}

// Load reads the spec file for a name, trying each known extension.
func (s *FSStore) Load(ctx context.Context, name string) ([]byte, error) {
	for _, ext := range specExtensions {
		data, err := os.ReadFile(filepath.Join(s.dir, name+ext))
		if err == nil {
			return data, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading spec %s: %w", name, err)
		}
	}
	return nil, fmt.Errorf("spec not found: %s", name)
}

// List returns the spec names in the directory, sorted and deduplicated.
func (s *FSStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing specs: %w", err)
	}
	seen := map[string]bool{}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, ok := specName(entry.Name())
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Save writes a spec as <name>.json in the directory.
func (s *FSStore) Save(ctx context.Context, name string, data []byte) error {
	path := filepath.Join(s.dir, name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("saving spec %s: %w", name, err)
	}
	return nil
}

// Watch reports the name of every spec file created or written in the
// directory until ctx is cancelled.
func (s *FSStore) Watch(ctx context.Context) (<-chan string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", s.dir, err)
	}

	out := make(chan string, 16)
	go func() {
		defer close(out)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				name, ok := specName(filepath.Base(event.Name))
				if !ok {
					continue
				}
				select {
				case out <- name:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("spec watcher: %v", err)
			}
		}
	}()
	return out, nil
}

// Close is a no-op; watchers close with their contexts.
func (s *FSStore) Close() error {
	return nil
}

func specName(filename string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, known := range specExtensions {
		if ext == known {
			return strings.TrimSuffix(filename, filepath.Ext(filename)), true
		}
	}
	return "", false
}
