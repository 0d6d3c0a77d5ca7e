package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainFromJSON(t *testing.T) {
	chainSpec := `[
		{
			"operation": "modify-default",
			"spec": { "rating": { "value": 0 } }
		},
		{
			"operation": "modify-overwrite",
			"spec": { "rating": { "label": "=concat('score: ', @(1,value))" } }
		}
	]`

	chain, err := ChainFromJSON([]byte(chainSpec))
	require.NoError(t, err)
	assert.Equal(t, 2, chain.Len())

	// The default fills the missing value, the overwrite labels it.
	out, err := chain.Transform(map[string]interface{}{
		"rating": map[string]interface{}{},
	})
	require.NoError(t, err)
	rating := out["rating"].(map[string]interface{})
	assert.Equal(t, float64(0), rating["value"])
	assert.Equal(t, "score: 0", rating["label"])

	// An existing value wins over the default.
	out, err = chain.Transform(map[string]interface{}{
		"rating": map[string]interface{}{"value": 4.0},
	})
	require.NoError(t, err)
	rating = out["rating"].(map[string]interface{})
	assert.Equal(t, 4.0, rating["value"])
	assert.Equal(t, "score: 4", rating["label"])
}

func TestChainFromYAML(t *testing.T) {
	chainSpec := `
- operation: modify-overwrite
  spec:
    num: "=abs"
`
	chain, err := ChainFromYAML([]byte(chainSpec))
	require.NoError(t, err)

	out, err := chain.Transform(map[string]interface{}{"num": -1.0})
	require.NoError(t, err)
	assert.Equal(t, 1.0, out["num"])
}

func TestChainErrors(t *testing.T) {
	_, err := ChainFromJSON([]byte(`[]`))
	assert.Error(t, err)

	_, err = ChainFromJSON([]byte(`[{"operation": "shift", "spec": {}}]`))
	assert.Error(t, err)

	_, err = ChainFromJSON([]byte(`[{"operation": "modify-overwrite"}]`))
	assert.Error(t, err)

	_, err = ChainFromJSON([]byte(`not json`))
	assert.Error(t, err)

	_, err = ChainFromYAML([]byte(`: bad yaml`))
	assert.Error(t, err)
}

func TestEmptyChainPassesThrough(t *testing.T) {
	chain := NewChain()
	in := map[string]interface{}{"k": "v"}
	out, err := chain.Transform(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
