// Package files provides a directory-watching document source and a
// directory sink. The source watches one or more directories with fsnotify
// and emits a message for every JSON file created or written; the sink
// writes each transformed document to its own file.
package files

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/reshape/reshape-go/adapters"
)

// Config holds file adapter configuration.
type Config struct {
	SourceID    string   `json:"source_id" yaml:"source_id"`
	Paths       []string `json:"paths" yaml:"paths"`
	Patterns    []string `json:"patterns" yaml:"patterns"`
	OutputDir   string   `json:"output_dir" yaml:"output_dir"`
	MaxFileSize int64    `json:"max_file_size" yaml:"max_file_size"`
	Recursive   bool     `json:"recursive" yaml:"recursive"`
	BufferSize  int      `json:"buffer_size" yaml:"buffer_size"`
}

func validateSourceConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if len(cfg.Paths) == 0 {
		return fmt.Errorf("at least one path is required")
	}
	for _, path := range cfg.Paths {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("path %s is not accessible: %w", path, err)
		}
	}
	if cfg.SourceID == "" {
		cfg.SourceID = "files"
	}
	if len(cfg.Patterns) == 0 {
		cfg.Patterns = []string{"*.json"}
	}
	if cfg.MaxFileSize == 0 {
		cfg.MaxFileSize = 10 * 1024 * 1024
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = 100
	}
	return nil
}

// Source watches directories and emits a message per JSON file written.
type Source struct {
	config  *Config
	watcher *fsnotify.Watcher
	metrics adapters.Metrics
}

// NewSource creates a file watcher source.
func NewSource(cfg *Config) (*Source, error) {
	if err := validateSourceConfig(cfg); err != nil {
		return nil, err
	}
	return &Source{
		config:  cfg,
		metrics: adapters.GetGlobalMetrics(),
	}, nil
}

// Start begins watching the configured paths. The returned channel is closed
// when ctx is cancelled or the watcher fails.
func (s *Source) Start(ctx context.Context) (<-chan *adapters.Message, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	s.watcher = watcher

	for _, path := range s.config.Paths {
		if err := s.addPath(path); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("watching %s: %w", path, err)
		}
	}

	out := make(chan *adapters.Message, s.config.BufferSize)
	go s.watch(ctx, out)

	log.Printf("file source %s: watching %s", s.config.SourceID, strings.Join(s.config.Paths, ", "))
	return out, nil
}

func (s *Source) addPath(path string) error {
	if !s.config.Recursive {
		return s.watcher.Add(path)
	}
	return filepath.Walk(path, func(walkPath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return s.watcher.Add(walkPath)
		}
		return nil
	})
}

func (s *Source) watch(ctx context.Context, out chan<- *adapters.Message) {
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !s.shouldProcess(event) {
				continue
			}
			msg, err := s.readFile(event.Name)
			if err != nil {
				log.Printf("file source %s: skipping %s: %v", s.config.SourceID, event.Name, err)
				s.metrics.RecordFailed(s.config.SourceID)
				continue
			}
			s.metrics.RecordReceived(s.config.SourceID)
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("file source %s: watcher error: %v", s.config.SourceID, err)
		}
	}
}

func (s *Source) shouldProcess(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return false
	}
	name := filepath.Base(event.Name)
	for _, pattern := range s.config.Patterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func (s *Source) readFile(path string) (*adapters.Message, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("is a directory")
	}
	if info.Size() > s.config.MaxFileSize {
		return nil, fmt.Errorf("file exceeds %d bytes", s.config.MaxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding json: %w", err)
	}

	return &adapters.Message{
		ID:        uuid.NewString(),
		Key:       filepath.Base(path),
		Document:  doc,
		SourceID:  s.config.SourceID,
		Timestamp: info.ModTime(),
		Metadata: map[string]string{
			"file.path": path,
			"file.size": fmt.Sprintf("%d", info.Size()),
		},
	}, nil
}

// Close stops the watcher.
func (s *Source) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// Sink writes each document to <output_dir>/<message id>.json.
type Sink struct {
	config  *Config
	metrics adapters.Metrics
}

// NewSink creates a directory sink, creating the output directory if needed.
func NewSink(cfg *Config) (*Sink, error) {
	if cfg == nil || cfg.OutputDir == "" {
		return nil, fmt.Errorf("output_dir is required")
	}
	if cfg.SourceID == "" {
		cfg.SourceID = "files"
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}
	return &Sink{
		config:  cfg,
		metrics: adapters.GetGlobalMetrics(),
	}, nil
}

// Write stores one document. A temp file plus rename keeps watchers on the
// output directory from seeing partial writes.
func (s *Sink) Write(msg *adapters.Message) error {
	body, err := json.Marshal(msg.Document)
	if err != nil {
		return adapters.NewAdapterError(s.config.SourceID, "encode", err)
	}

	final := filepath.Join(s.config.OutputDir, msg.ID+".json")
	tmp := final + fmt.Sprintf(".tmp-%d", time.Now().UnixNano())
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		s.metrics.RecordFailed(s.config.SourceID)
		return adapters.NewAdapterError(s.config.SourceID, "write", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		s.metrics.RecordFailed(s.config.SourceID)
		return adapters.NewAdapterError(s.config.SourceID, "rename", err)
	}
	s.metrics.RecordDelivered(s.config.SourceID)
	return nil
}

// Close is a no-op.
func (s *Sink) Close() error {
	return nil
}
