// Package adapters defines the source and sink contracts the pipeline engine
// moves documents through, plus the concrete broker/storage implementations
// in the subpackages.
package adapters

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// Message is one JSON document moving through a pipeline, with enough
// envelope to route and trace it.
type Message struct {
	// ID is assigned by the source, or by the engine when the source
	// leaves it empty.
	ID string `json:"id"`
	// Key is the source's partition/routing key, if any; sinks reuse it
	// where their transport has the concept.
	Key string `json:"key,omitempty"`
	// Document is the decoded JSON document to transform.
	Document map[string]interface{} `json:"document"`
	// SourceID names the source that produced the message.
	SourceID string `json:"source_id"`
	// Timestamp is when the source received the document.
	Timestamp time.Time `json:"timestamp"`
	// Metadata carries transport headers worth keeping.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Source produces documents. Start begins consumption and returns the
// message channel; the source closes the channel when the context is
// cancelled or the stream ends.
type Source interface {
	Start(ctx context.Context) (<-chan *Message, error)
	Close() error
}

// Sink receives transformed documents.
type Sink interface {
	Write(msg *Message) error
	Close() error
}

// AdapterError wraps a transport failure with its source or sink identity.
type AdapterError struct {
	AdapterID string
	Operation string
	Cause     error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter %s: %s: %v", e.AdapterID, e.Operation, e.Cause)
}

func (e *AdapterError) Unwrap() error {
	return e.Cause
}

// NewAdapterError builds an AdapterError.
func NewAdapterError(adapterID, operation string, cause error) *AdapterError {
	return &AdapterError{AdapterID: adapterID, Operation: operation, Cause: cause}
}

// Metrics counts pipeline traffic. The implementation must be safe for
// concurrent use.
type Metrics interface {
	RecordReceived(adapterID string)
	RecordDelivered(adapterID string)
	RecordFailed(adapterID string)
}

// CounterMetrics is the default Metrics: three process-wide atomic counters.
type CounterMetrics struct {
	received  atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
}

func (m *CounterMetrics) RecordReceived(adapterID string)  { m.received.Add(1) }
func (m *CounterMetrics) RecordDelivered(adapterID string) { m.delivered.Add(1) }
func (m *CounterMetrics) RecordFailed(adapterID string)    { m.failed.Add(1) }

// Snapshot returns the current counter values.
func (m *CounterMetrics) Snapshot() (received, delivered, failed uint64) {
	return m.received.Load(), m.delivered.Load(), m.failed.Load()
}

var globalMetrics Metrics = &CounterMetrics{}

// SetGlobalMetrics replaces the process-wide metrics implementation. Call
// before starting any adapter.
func SetGlobalMetrics(m Metrics) {
	globalMetrics = m
}

// GetGlobalMetrics returns the process-wide metrics implementation.
func GetGlobalMetrics() Metrics {
	return globalMetrics
}
