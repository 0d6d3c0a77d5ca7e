package runtime

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reshape/reshape-go/adapters"
	"github.com/reshape/reshape-go/transform"
)

type memorySource struct {
	messages []*adapters.Message
}

func (s *memorySource) Start(ctx context.Context) (<-chan *adapters.Message, error) {
	out := make(chan *adapters.Message, len(s.messages))
	for _, msg := range s.messages {
		out <- msg
	}
	close(out)
	return out, nil
}

func (s *memorySource) Close() error { return nil }

type memorySink struct {
	mu       sync.Mutex
	messages []*adapters.Message
}

func (s *memorySink) Write(msg *adapters.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

func (s *memorySink) Close() error { return nil }

func testChain(t *testing.T) *transform.Chain {
	t.Helper()
	chain, err := transform.ChainFromJSON([]byte(`[
		{"operation": "modify-overwrite", "spec": {"rating": "=abs"}}
	]`))
	require.NoError(t, err)
	return chain
}

func TestEngineRunsChainOverSource(t *testing.T) {
	source := &memorySource{messages: []*adapters.Message{
		{ID: "a", Document: map[string]interface{}{"rating": -3.0}},
		{ID: "b", Document: map[string]interface{}{"rating": 5.0}},
		{ID: "c", Document: map[string]interface{}{"other": "x"}},
	}}
	sink := &memorySink{}

	engine, err := NewEngine(testChain(t), source, sink, EngineConfig{Workers: 2})
	require.NoError(t, err)
	require.NoError(t, engine.Run(context.Background()))

	require.Len(t, sink.messages, 3)
	byID := map[string]*adapters.Message{}
	for _, msg := range sink.messages {
		byID[msg.ID] = msg
	}
	assert.Equal(t, 3.0, byID["a"].Document["rating"])
	assert.Equal(t, 5.0, byID["b"].Document["rating"])
	_, hasRating := byID["c"].Document["rating"]
	assert.False(t, hasRating)
}

func TestEngineRequiresComponents(t *testing.T) {
	chain := testChain(t)
	source := &memorySource{}
	sink := &memorySink{}

	_, err := NewEngine(nil, source, sink, EngineConfig{})
	assert.Error(t, err)
	_, err = NewEngine(chain, nil, sink, EngineConfig{})
	assert.Error(t, err)
	_, err = NewEngine(chain, source, nil, EngineConfig{})
	assert.Error(t, err)
}

func TestEngineRejectsConcurrentRun(t *testing.T) {
	engine, err := NewEngine(testChain(t), &memorySource{}, &memorySink{}, EngineConfig{})
	require.NoError(t, err)

	engine.mu.Lock()
	engine.running = true
	engine.mu.Unlock()

	err = engine.Run(context.Background())
	assert.Error(t, err)
}
