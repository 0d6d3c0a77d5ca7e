package files

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reshape/reshape-go/adapters"
)

func TestNewSourceValidation(t *testing.T) {
	_, err := NewSource(&Config{})
	assert.Error(t, err)

	_, err = NewSource(&Config{Paths: []string{"/no/such/dir"}})
	assert.Error(t, err)

	source, err := NewSource(&Config{Paths: []string{t.TempDir()}})
	require.NoError(t, err)
	assert.Equal(t, "files", source.config.SourceID)
	assert.Equal(t, []string{"*.json"}, source.config.Patterns)
}

func TestShouldProcess(t *testing.T) {
	source, err := NewSource(&Config{Paths: []string{t.TempDir()}, Patterns: []string{"*.json"}})
	require.NoError(t, err)

	assert.True(t, source.shouldProcess(fsnotify.Event{Name: "/tmp/doc.json", Op: fsnotify.Create}))
	assert.True(t, source.shouldProcess(fsnotify.Event{Name: "/tmp/doc.json", Op: fsnotify.Write}))
	assert.False(t, source.shouldProcess(fsnotify.Event{Name: "/tmp/doc.json", Op: fsnotify.Remove}))
	assert.False(t, source.shouldProcess(fsnotify.Event{Name: "/tmp/doc.txt", Op: fsnotify.Create}))
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	source, err := NewSource(&Config{SourceID: "test", Paths: []string{dir}})
	require.NoError(t, err)

	path := filepath.Join(dir, "doc.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"rating":5}`), 0o644))

	msg, err := source.readFile(path)
	require.NoError(t, err)
	assert.Equal(t, "test", msg.SourceID)
	assert.Equal(t, "doc.json", msg.Key)
	assert.Equal(t, float64(5), msg.Document["rating"])
	assert.NotEmpty(t, msg.ID)

	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	_, err = source.readFile(path)
	assert.Error(t, err)
}

func TestSinkWrite(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewSink(&Config{OutputDir: filepath.Join(dir, "out")})
	require.NoError(t, err)

	msg := &adapters.Message{
		ID:       "msg-1",
		Document: map[string]interface{}{"rating": 5.0},
	}
	require.NoError(t, sink.Write(msg))

	data, err := os.ReadFile(filepath.Join(dir, "out", "msg-1.json"))
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, float64(5), doc["rating"])
}
