package main

import (
	"context"
	"fmt"
	"log"

	"github.com/reshape/reshape-go/adapters"
	"github.com/reshape/reshape-go/adapters/amqp"
	"github.com/reshape/reshape-go/adapters/files"
	"github.com/reshape/reshape-go/adapters/kafka"
	"github.com/reshape/reshape-go/adapters/redis"
	"github.com/reshape/reshape-go/adapters/s3"
	"github.com/reshape/reshape-go/runtime"
)

type pipelineConfig struct {
	Enabled bool           `yaml:"enabled" json:"enabled"`
	Spec    string         `yaml:"spec" json:"spec"`
	Workers int            `yaml:"workers" json:"workers"`
	Source  endpointConfig `yaml:"source" json:"source"`
	Sink    endpointConfig `yaml:"sink" json:"sink"`
}

type endpointConfig struct {
	Type  string        `yaml:"type" json:"type"` // kafka, amqp, redis, s3, or files
	Kafka *kafka.Config `yaml:"kafka" json:"kafka"`
	AMQP  *amqp.Config  `yaml:"amqp" json:"amqp"`
	Redis *redis.Config `yaml:"redis" json:"redis"`
	S3    *s3.Config    `yaml:"s3" json:"s3"`
	Files *files.Config `yaml:"files" json:"files"`
}

func buildSource(ctx context.Context, cfg endpointConfig) (adapters.Source, error) {
	switch cfg.Type {
	case "kafka":
		return kafka.NewSource(cfg.Kafka)
	case "amqp":
		return amqp.NewSource(cfg.AMQP)
	case "redis":
		return redis.NewSource(cfg.Redis)
	case "s3":
		return s3.NewSource(ctx, cfg.S3)
	case "files":
		return files.NewSource(cfg.Files)
	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Type)
	}
}

func buildSink(ctx context.Context, cfg endpointConfig) (adapters.Sink, error) {
	switch cfg.Type {
	case "kafka":
		return kafka.NewSink(cfg.Kafka)
	case "amqp":
		return amqp.NewSink(cfg.AMQP)
	case "redis":
		return redis.NewSink(cfg.Redis)
	case "s3":
		return s3.NewSink(ctx, cfg.S3)
	case "files":
		return files.NewSink(cfg.Files)
	default:
		return nil, fmt.Errorf("unknown sink type %q", cfg.Type)
	}
}

// runPipeline wires a broker source through a stored spec into a sink and
// runs the engine until ctx ends.
func runPipeline(ctx context.Context, cfg pipelineConfig, state *serverState) error {
	if cfg.Spec == "" {
		return fmt.Errorf("pipeline.spec is required")
	}
	chain, err := state.chain(ctx, cfg.Spec)
	if err != nil {
		return fmt.Errorf("loading pipeline spec: %w", err)
	}

	source, err := buildSource(ctx, cfg.Source)
	if err != nil {
		return fmt.Errorf("pipeline source: %w", err)
	}
	sink, err := buildSink(ctx, cfg.Sink)
	if err != nil {
		source.Close()
		return fmt.Errorf("pipeline sink: %w", err)
	}

	engine, err := runtime.NewEngine(chain, source, sink, runtime.EngineConfig{
		Workers: cfg.Workers,
	})
	if err != nil {
		source.Close()
		sink.Close()
		return err
	}
	defer engine.Close()

	log.Printf("pipeline: %s -> spec %s -> %s", cfg.Source.Type, cfg.Spec, cfg.Sink.Type)
	if err := engine.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
