package path

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testDoc(t *testing.T) map[string]interface{} {
	t.Helper()
	var doc map[string]interface{}
	err := json.Unmarshal([]byte(`{
		"rating": {
			"primary": { "value": 3 },
			"quality": { "value": null }
		},
		"items": [
			{ "price": 99.5 },
			{ "price": 120 }
		]
	}`), &doc)
	assert.NoError(t, err)
	return doc
}

func TestResolve(t *testing.T) {
	doc := testDoc(t)

	v, ok := ResolveString(doc, "rating.primary.value")
	assert.True(t, ok)
	assert.Equal(t, float64(3), v)

	v, ok = ResolveString(doc, "items[1].price")
	assert.True(t, ok)
	assert.Equal(t, float64(120), v)

	// Null is present, not missing.
	v, ok = ResolveString(doc, "rating.quality.value")
	assert.True(t, ok)
	assert.Nil(t, v)

	// Intermediate nodes resolve too.
	v, ok = ResolveString(doc, "rating.primary")
	assert.True(t, ok)
	assert.Equal(t, map[string]interface{}{"value": float64(3)}, v)
}

func TestResolveMissing(t *testing.T) {
	doc := testDoc(t)

	_, ok := ResolveString(doc, "rating.secondary.value")
	assert.False(t, ok)

	_, ok = ResolveString(doc, "items[5].price")
	assert.False(t, ok)

	// Walking through a leaf fails quietly.
	_, ok = ResolveString(doc, "rating.primary.value.deeper")
	assert.False(t, ok)

	// Index into a map fails quietly.
	_, ok = ResolveString(doc, "rating[0]")
	assert.False(t, ok)

	// Unparseable paths resolve to nothing.
	_, ok = ResolveString(doc, "")
	assert.False(t, ok)
}
