package specstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSpec(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestFSStoreLoadAndList(t *testing.T) {
	dir := t.TempDir()
	writeSpec(t, dir, "invoice.json", `[{"operation":"modify-overwrite","spec":{"total":"=abs"}}]`)
	writeSpec(t, dir, "orders.yaml", "- operation: modify-default\n  spec:\n    status: new\n")
	writeSpec(t, dir, "notes.txt", "not a spec")

	store, err := NewFSStore(dir)
	require.NoError(t, err)

	names, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"invoice", "orders"}, names)

	data, err := store.Load(context.Background(), "invoice")
	require.NoError(t, err)
	assert.Contains(t, string(data), "modify-overwrite")

	_, err = store.Load(context.Background(), "missing")
	assert.Error(t, err)
}

func TestFSStoreSave(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSStore(dir)
	require.NoError(t, err)

	spec := []byte(`[{"operation":"modify-overwrite","spec":{"n":"=toInteger"}}]`)
	require.NoError(t, store.Save(context.Background(), "numbers", spec))

	data, err := store.Load(context.Background(), "numbers")
	require.NoError(t, err)
	assert.Equal(t, spec, data)
}

func TestNewFSStoreRejectsMissingDir(t *testing.T) {
	_, err := NewFSStore("/no/such/dir")
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = NewFSStore(file)
	assert.Error(t, err)
}

func TestCompileChainDetectsFormat(t *testing.T) {
	jsonSpec := []byte(`[{"operation":"modify-overwrite","spec":{"n":"=abs"}}]`)
	chain, err := CompileChain(jsonSpec)
	require.NoError(t, err)
	assert.Equal(t, 1, chain.Len())

	yamlSpec := []byte("- operation: modify-overwrite\n  spec:\n    n: =abs\n")
	chain, err = CompileChain(yamlSpec)
	require.NoError(t, err)
	assert.Equal(t, 1, chain.Len())

	_, err = CompileChain([]byte(`[{"operation":"unknown","spec":{}}]`))
	assert.Error(t, err)
}
