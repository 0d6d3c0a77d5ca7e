package reshape

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply(t *testing.T) {
	spec := `[{"operation": "modify-overwrite", "spec": {"num": "=abs"}}]`

	out, err := Apply([]byte(spec), []byte(`{"num": -1.0}`))
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, float64(1), doc["num"])
}

func TestApplyErrors(t *testing.T) {
	_, err := Apply([]byte(`broken`), []byte(`{}`))
	assert.Error(t, err)

	spec := `[{"operation": "modify-overwrite", "spec": {}}]`
	_, err = Apply([]byte(spec), []byte(`broken`))
	assert.Error(t, err)
}

func TestCompileReuse(t *testing.T) {
	chain, err := Compile([]byte(`[{"operation": "modify-overwrite", "spec": {"v": "=toUpper"}}]`))
	require.NoError(t, err)

	for _, word := range []string{"a", "b"} {
		out, err := chain.Transform(map[string]interface{}{"v": word})
		require.NoError(t, err)
		assert.NotEqual(t, word, out["v"])
	}
}

func TestCompileYAML(t *testing.T) {
	chain, err := CompileYAML([]byte("- operation: modify-default\n  spec:\n    v: fallback\n"))
	require.NoError(t, err)
	out, err := chain.Transform(map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, "fallback", out["v"])
}
