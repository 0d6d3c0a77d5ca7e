// Package amqp moves documents through RabbitMQ: a Source consuming a queue
// and a Sink publishing transformed documents to an exchange.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/reshape/reshape-go/adapters"
)

// Config holds AMQP adapter configuration.
type Config struct {
	SourceID     string `json:"source_id" yaml:"source_id"`
	URL          string `json:"url" yaml:"url"`
	Queue        string `json:"queue" yaml:"queue"`
	Exchange     string `json:"exchange" yaml:"exchange"`
	RoutingKey   string `json:"routing_key" yaml:"routing_key"`
	ConsumerTag  string `json:"consumer_tag" yaml:"consumer_tag"`
	AutoAck      bool   `json:"auto_ack" yaml:"auto_ack"`
	Prefetch     int    `json:"prefetch" yaml:"prefetch"`
	QueueDeclare bool   `json:"queue_declare" yaml:"queue_declare"`
	QueueDurable bool   `json:"queue_durable" yaml:"queue_durable"`
	BufferSize   int    `json:"buffer_size" yaml:"buffer_size"`
}

func (c *Config) applyDefaults() {
	if c.SourceID == "" {
		c.SourceID = fmt.Sprintf("amqp-%s", c.Queue)
	}
	if c.ConsumerTag == "" {
		c.ConsumerTag = fmt.Sprintf("reshape-%s", c.SourceID)
	}
	if c.BufferSize == 0 {
		c.BufferSize = 100
	}
}

// Source consumes JSON documents from an AMQP queue.
type Source struct {
	config  *Config
	conn    *amqp.Connection
	channel *amqp.Channel
	metrics adapters.Metrics
}

// NewSource connects and prepares consumption from the configured queue.
func NewSource(config *Config) (*Source, error) {
	if config == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if config.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	if config.Queue == "" {
		return nil, fmt.Errorf("queue is required")
	}
	config.applyDefaults()

	conn, err := amqp.Dial(config.URL)
	if err != nil {
		return nil, fmt.Errorf("connecting to amqp: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	if config.Prefetch > 0 {
		if err := channel.Qos(config.Prefetch, 0, false); err != nil {
			conn.Close()
			return nil, fmt.Errorf("setting prefetch: %w", err)
		}
	}
	if config.QueueDeclare {
		_, err := channel.QueueDeclare(config.Queue, config.QueueDurable, false, false, false, nil)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("declaring queue %s: %w", config.Queue, err)
		}
	}

	return &Source{
		config:  config,
		conn:    conn,
		channel: channel,
		metrics: adapters.GetGlobalMetrics(),
	}, nil
}

// Start begins consuming deliveries. Messages that fail to decode are
// rejected without requeue; decoded messages are acked once handed to the
// pipeline.
func (s *Source) Start(ctx context.Context) (<-chan *adapters.Message, error) {
	deliveries, err := s.channel.Consume(
		s.config.Queue, s.config.ConsumerTag, s.config.AutoAck, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consuming queue %s: %w", s.config.Queue, err)
	}

	out := make(chan *adapters.Message, s.config.BufferSize)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case delivery, ok := <-deliveries:
				if !ok {
					return
				}
				msg, err := s.convert(&delivery)
				if err != nil {
					log.Printf("amqp source %s: skipping message: %v", s.config.SourceID, err)
					s.metrics.RecordFailed(s.config.SourceID)
					if !s.config.AutoAck {
						_ = delivery.Reject(false)
					}
					continue
				}
				s.metrics.RecordReceived(s.config.SourceID)
				select {
				case out <- msg:
					if !s.config.AutoAck {
						_ = delivery.Ack(false)
					}
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (s *Source) convert(delivery *amqp.Delivery) (*adapters.Message, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(delivery.Body, &doc); err != nil {
		return nil, fmt.Errorf("decoding body: %w", err)
	}

	metadata := make(map[string]string, len(delivery.Headers))
	for k, v := range delivery.Headers {
		metadata[k] = fmt.Sprint(v)
	}

	id := delivery.MessageId
	if id == "" {
		id = uuid.NewString()
	}
	timestamp := delivery.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	return &adapters.Message{
		ID:        id,
		Key:       delivery.RoutingKey,
		Document:  doc,
		SourceID:  s.config.SourceID,
		Timestamp: timestamp,
		Metadata:  metadata,
	}, nil
}

// Close cancels the consumer and closes the connection.
func (s *Source) Close() error {
	if err := s.channel.Cancel(s.config.ConsumerTag, false); err != nil {
		log.Printf("amqp source %s: cancel: %v", s.config.SourceID, err)
	}
	return s.conn.Close()
}

// Sink publishes transformed documents to an exchange.
type Sink struct {
	config  *Config
	conn    *amqp.Connection
	channel *amqp.Channel
	metrics adapters.Metrics
}

// NewSink connects and prepares publishing.
func NewSink(config *Config) (*Sink, error) {
	if config == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if config.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	config.applyDefaults()

	conn, err := amqp.Dial(config.URL)
	if err != nil {
		return nil, fmt.Errorf("connecting to amqp: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	return &Sink{
		config:  config,
		conn:    conn,
		channel: channel,
		metrics: adapters.GetGlobalMetrics(),
	}, nil
}

// Write publishes one document. The message's own routing key wins over the
// configured one.
func (s *Sink) Write(msg *adapters.Message) error {
	body, err := json.Marshal(msg.Document)
	if err != nil {
		return adapters.NewAdapterError(s.config.SourceID, "encode", err)
	}

	routingKey := s.config.RoutingKey
	if msg.Key != "" {
		routingKey = msg.Key
	}

	err = s.channel.PublishWithContext(context.Background(),
		s.config.Exchange, routingKey, false, false,
		amqp.Publishing{
			ContentType: "application/json",
			MessageId:   msg.ID,
			Timestamp:   msg.Timestamp,
			Body:        body,
		})
	if err != nil {
		s.metrics.RecordFailed(s.config.SourceID)
		return adapters.NewAdapterError(s.config.SourceID, "publish", err)
	}
	s.metrics.RecordDelivered(s.config.SourceID)
	return nil
}

// Close closes the connection.
func (s *Sink) Close() error {
	return s.conn.Close()
}
