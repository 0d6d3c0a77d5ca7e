// Package kafka moves documents through Kafka topics: a Source consuming a
// topic into the pipeline and a Sink publishing transformed documents back
// out.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/reshape/reshape-go/adapters"
)

// Config holds Kafka adapter configuration, shared by Source and Sink.
type Config struct {
	SourceID      string        `json:"source_id" yaml:"source_id"`
	Brokers       []string      `json:"brokers" yaml:"brokers"`
	Topic         string        `json:"topic" yaml:"topic"`
	ConsumerGroup string        `json:"consumer_group" yaml:"consumer_group"`
	StartOffset   string        `json:"start_offset" yaml:"start_offset"` // "earliest" or "latest"
	MinBytes      int           `json:"min_bytes" yaml:"min_bytes"`
	MaxBytes      int           `json:"max_bytes" yaml:"max_bytes"`
	BatchTimeout  time.Duration `json:"batch_timeout" yaml:"batch_timeout"`
	BufferSize    int           `json:"buffer_size" yaml:"buffer_size"`
}

func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if len(c.Brokers) == 0 {
		return fmt.Errorf("at least one broker is required")
	}
	if c.Topic == "" {
		return fmt.Errorf("topic is required")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.SourceID == "" {
		c.SourceID = fmt.Sprintf("kafka-%s", c.Topic)
	}
	if c.ConsumerGroup == "" {
		c.ConsumerGroup = fmt.Sprintf("reshape-%s", c.Topic)
	}
	if c.MinBytes == 0 {
		c.MinBytes = 1e3
	}
	if c.MaxBytes == 0 {
		c.MaxBytes = 10e6
	}
	if c.BufferSize == 0 {
		c.BufferSize = 100
	}
}

// Source consumes JSON documents from a Kafka topic.
type Source struct {
	config  *Config
	reader  *kafka.Reader
	metrics adapters.Metrics
}

// NewSource creates a Kafka source.
func NewSource(config *Config) (*Source, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid kafka config: %w", err)
	}
	config.applyDefaults()

	startOffset := kafka.LastOffset
	if config.StartOffset == "earliest" {
		startOffset = kafka.FirstOffset
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     config.Brokers,
		Topic:       config.Topic,
		GroupID:     config.ConsumerGroup,
		MinBytes:    config.MinBytes,
		MaxBytes:    config.MaxBytes,
		StartOffset: startOffset,
	})

	return &Source{
		config:  config,
		reader:  reader,
		metrics: adapters.GetGlobalMetrics(),
	}, nil
}

// Start begins consuming. The returned channel closes when the context is
// cancelled.
func (s *Source) Start(ctx context.Context) (<-chan *adapters.Message, error) {
	out := make(chan *adapters.Message, s.config.BufferSize)

	go func() {
		defer close(out)
		for {
			kmsg, err := s.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("kafka source %s: read: %v", s.config.SourceID, err)
				s.metrics.RecordFailed(s.config.SourceID)
				continue
			}

			var doc map[string]interface{}
			if err := json.Unmarshal(kmsg.Value, &doc); err != nil {
				log.Printf("kafka source %s: skipping non-JSON message at offset %d: %v",
					s.config.SourceID, kmsg.Offset, err)
				s.metrics.RecordFailed(s.config.SourceID)
				continue
			}

			msg := &adapters.Message{
				ID:        uuid.NewString(),
				Key:       string(kmsg.Key),
				Document:  doc,
				SourceID:  s.config.SourceID,
				Timestamp: kmsg.Time,
				Metadata:  headerMap(kmsg.Headers),
			}
			s.metrics.RecordReceived(s.config.SourceID)

			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Close shuts the underlying reader down.
func (s *Source) Close() error {
	return s.reader.Close()
}

func headerMap(headers []kafka.Header) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	m := make(map[string]string, len(headers))
	for _, h := range headers {
		m[h.Key] = string(h.Value)
	}
	return m
}

// Sink publishes transformed documents to a Kafka topic.
type Sink struct {
	config  *Config
	writer  *kafka.Writer
	metrics adapters.Metrics
}

// NewSink creates a Kafka sink.
func NewSink(config *Config) (*Sink, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid kafka config: %w", err)
	}
	config.applyDefaults()

	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: config.BatchTimeout,
	}

	return &Sink{
		config:  config,
		writer:  writer,
		metrics: adapters.GetGlobalMetrics(),
	}, nil
}

// Write publishes one document, keyed by the message's routing key.
func (s *Sink) Write(msg *adapters.Message) error {
	value, err := json.Marshal(msg.Document)
	if err != nil {
		return adapters.NewAdapterError(s.config.SourceID, "encode", err)
	}

	err = s.writer.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(msg.Key),
		Value: value,
	})
	if err != nil {
		s.metrics.RecordFailed(s.config.SourceID)
		return adapters.NewAdapterError(s.config.SourceID, "write", err)
	}
	s.metrics.RecordDelivered(s.config.SourceID)
	return nil
}

// Close flushes and closes the writer.
func (s *Sink) Close() error {
	return s.writer.Close()
}
