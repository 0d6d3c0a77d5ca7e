// Package redis provides a Redis Streams document source and a keyed
// document sink. The sink writes each transformed document as a JSON value
// under a configurable key prefix, making Redis usable as a result store.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/reshape/reshape-go/adapters"
)

// Config holds Redis adapter configuration.
type Config struct {
	SourceID      string        `json:"source_id" yaml:"source_id"`
	Addr          string        `json:"addr" yaml:"addr"`
	Password      string        `json:"password" yaml:"password"`
	DB            int           `json:"db" yaml:"db"`
	Stream        string        `json:"stream" yaml:"stream"`
	ConsumerGroup string        `json:"consumer_group" yaml:"consumer_group"`
	ConsumerName  string        `json:"consumer_name" yaml:"consumer_name"`
	BatchSize     int64         `json:"batch_size" yaml:"batch_size"`
	BlockTime     time.Duration `json:"block_time" yaml:"block_time"`
	KeyPrefix     string        `json:"key_prefix" yaml:"key_prefix"`
	TTL           time.Duration `json:"ttl" yaml:"ttl"`
	BufferSize    int           `json:"buffer_size" yaml:"buffer_size"`
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.SourceID == "" {
		c.SourceID = "redis"
	}
	if c.ConsumerGroup == "" {
		c.ConsumerGroup = fmt.Sprintf("reshape_%s", c.SourceID)
	}
	if c.ConsumerName == "" {
		c.ConsumerName = fmt.Sprintf("%s_%s", c.ConsumerGroup, uuid.NewString()[:8])
	}
	if c.BatchSize == 0 {
		c.BatchSize = 10
	}
	if c.BlockTime == 0 {
		c.BlockTime = 5 * time.Second
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "reshape:doc:"
	}
	if c.BufferSize == 0 {
		c.BufferSize = 100
	}
}

func newClient(config *Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
}

// Source consumes documents from a Redis Stream through a consumer group.
// The stream entry is expected to carry the JSON document in a "payload"
// field.
type Source struct {
	config  *Config
	client  *redis.Client
	metrics adapters.Metrics
}

// NewSource creates a Redis Streams source and ensures its consumer group
// exists.
func NewSource(config *Config) (*Source, error) {
	if config == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if config.Stream == "" {
		return nil, fmt.Errorf("stream is required")
	}
	config.applyDefaults()

	client := newClient(config)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", config.Addr, err)
	}

	err := client.XGroupCreateMkStream(context.Background(),
		config.Stream, config.ConsumerGroup, "$").Err()
	if err != nil && !isBusyGroup(err) {
		return nil, fmt.Errorf("creating consumer group: %w", err)
	}

	return &Source{
		config:  config,
		client:  client,
		metrics: adapters.GetGlobalMetrics(),
	}, nil
}

func isBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

// Start begins reading the stream.
func (s *Source) Start(ctx context.Context) (<-chan *adapters.Message, error) {
	out := make(chan *adapters.Message, s.config.BufferSize)

	go func() {
		defer close(out)
		for {
			if ctx.Err() != nil {
				return
			}
			streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
				Group:    s.config.ConsumerGroup,
				Consumer: s.config.ConsumerName,
				Streams:  []string{s.config.Stream, ">"},
				Count:    s.config.BatchSize,
				Block:    s.config.BlockTime,
			}).Result()
			if err != nil {
				if err == redis.Nil || ctx.Err() != nil {
					continue
				}
				log.Printf("redis source %s: read: %v", s.config.SourceID, err)
				s.metrics.RecordFailed(s.config.SourceID)
				continue
			}

			for _, stream := range streams {
				for _, entry := range stream.Messages {
					msg, err := s.convert(entry)
					if err != nil {
						log.Printf("redis source %s: skipping entry %s: %v",
							s.config.SourceID, entry.ID, err)
						s.metrics.RecordFailed(s.config.SourceID)
						s.ack(ctx, entry.ID)
						continue
					}
					s.metrics.RecordReceived(s.config.SourceID)
					select {
					case out <- msg:
						s.ack(ctx, entry.ID)
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return out, nil
}

func (s *Source) convert(entry redis.XMessage) (*adapters.Message, error) {
	payload, ok := entry.Values["payload"].(string)
	if !ok {
		return nil, fmt.Errorf("entry has no payload field")
	}
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	return &adapters.Message{
		ID:        entry.ID,
		Document:  doc,
		SourceID:  s.config.SourceID,
		Timestamp: time.Now(),
	}, nil
}

func (s *Source) ack(ctx context.Context, entryID string) {
	if err := s.client.XAck(ctx, s.config.Stream, s.config.ConsumerGroup, entryID).Err(); err != nil {
		log.Printf("redis source %s: ack %s: %v", s.config.SourceID, entryID, err)
	}
}

// Close closes the client.
func (s *Source) Close() error {
	return s.client.Close()
}

// Sink stores each transformed document as JSON under KeyPrefix + message
// key (falling back to the message ID), with an optional TTL.
type Sink struct {
	config  *Config
	client  *redis.Client
	metrics adapters.Metrics
}

// NewSink creates a Redis sink.
func NewSink(config *Config) (*Sink, error) {
	if config == nil {
		return nil, fmt.Errorf("config is nil")
	}
	config.applyDefaults()

	client := newClient(config)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", config.Addr, err)
	}

	return &Sink{
		config:  config,
		client:  client,
		metrics: adapters.GetGlobalMetrics(),
	}, nil
}

// Write stores one document.
func (s *Sink) Write(msg *adapters.Message) error {
	value, err := json.Marshal(msg.Document)
	if err != nil {
		return adapters.NewAdapterError(s.config.SourceID, "encode", err)
	}

	key := msg.Key
	if key == "" {
		key = msg.ID
	}
	err = s.client.Set(context.Background(), s.config.KeyPrefix+key, value, s.config.TTL).Err()
	if err != nil {
		s.metrics.RecordFailed(s.config.SourceID)
		return adapters.NewAdapterError(s.config.SourceID, "set", err)
	}
	s.metrics.RecordDelivered(s.config.SourceID)
	return nil
}

// Close closes the client.
func (s *Sink) Close() error {
	return s.client.Close()
}
