// Package runtime runs transform chains against document streams and stores
// named chain specs.
package runtime

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reshape/reshape-go/adapters"
	"github.com/reshape/reshape-go/transform"
)

// EngineConfig configures a pipeline engine.
type EngineConfig struct {
	Workers       int           `json:"workers" yaml:"workers"`
	DrainTimeout  time.Duration `json:"drain_timeout" yaml:"drain_timeout"`
	StopOnError   bool          `json:"stop_on_error" yaml:"stop_on_error"`
	LogTransforms bool          `json:"log_transforms" yaml:"log_transforms"`
}

func (c *EngineConfig) applyDefaults() {
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.DrainTimeout == 0 {
		c.DrainTimeout = 10 * time.Second
	}
}

// Engine pulls documents from a source, applies a compiled chain, and pushes
// the results to a sink. One engine handles one pipeline.
type Engine struct {
	id      string
	config  EngineConfig
	chain   *transform.Chain
	source  adapters.Source
	sink    adapters.Sink
	metrics adapters.Metrics

	mu      sync.Mutex
	running bool
}

// NewEngine creates an engine over an already-compiled chain.
func NewEngine(chain *transform.Chain, source adapters.Source, sink adapters.Sink, config EngineConfig) (*Engine, error) {
	if chain == nil {
		return nil, fmt.Errorf("chain is required")
	}
	if source == nil {
		return nil, fmt.Errorf("source is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("sink is required")
	}
	config.applyDefaults()

	return &Engine{
		id:      uuid.NewString(),
		config:  config,
		chain:   chain,
		source:  source,
		sink:    sink,
		metrics: adapters.GetGlobalMetrics(),
	}, nil
}

// ID returns the engine's instance id.
func (e *Engine) ID() string {
	return e.id
}

// Run consumes the source until it closes or ctx is cancelled. Worker
// goroutines share the source channel; the compiled chain is safe for
// concurrent use.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("engine %s is already running", e.id)
	}
	e.running = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	messages, err := e.source.Start(ctx)
	if err != nil {
		return fmt.Errorf("starting source: %w", err)
	}

	log.Printf("engine %s: started with %d workers", e.id, e.config.Workers)

	errChan := make(chan error, e.config.Workers)
	var wg sync.WaitGroup
	for i := 0; i < e.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for msg := range messages {
				if err := e.process(msg); err != nil {
					log.Printf("engine %s: message %s: %v", e.id, msg.ID, err)
					if e.config.StopOnError {
						select {
						case errChan <- err:
						default:
						}
						return
					}
				}
				if ctx.Err() != nil {
					return
				}
			}
		}()
	}

	wg.Wait()
	close(errChan)
	if err := <-errChan; err != nil {
		return err
	}
	return ctx.Err()
}

func (e *Engine) process(msg *adapters.Message) error {
	start := time.Now()
	out, err := e.chain.Transform(msg.Document)
	if err != nil {
		e.metrics.RecordFailed(e.id)
		return fmt.Errorf("transforming: %w", err)
	}
	if e.config.LogTransforms {
		log.Printf("engine %s: transformed %s in %s", e.id, msg.ID, time.Since(start))
	}

	result := &adapters.Message{
		ID:        msg.ID,
		Key:       msg.Key,
		Document:  out,
		SourceID:  msg.SourceID,
		Timestamp: msg.Timestamp,
		Metadata:  msg.Metadata,
	}
	if err := e.sink.Write(result); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}
	return nil
}

// Close closes the source and sink.
func (e *Engine) Close() error {
	sourceErr := e.source.Close()
	sinkErr := e.sink.Close()
	if sourceErr != nil {
		return sourceErr
	}
	return sinkErr
}
