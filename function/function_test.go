package function

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResultPresentVersusAbsent(t *testing.T) {
	r := Of("value")
	assert.True(t, r.IsPresent())
	assert.Equal(t, "value", r.Value())

	// Present null is legal and distinct from absent.
	r = Of(nil)
	assert.True(t, r.IsPresent())
	assert.Nil(t, r.Value())

	r = Empty()
	assert.False(t, r.IsPresent())
	assert.Nil(t, r.Value())

	v, ok := Empty().Get()
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry()

	for _, name := range []string{
		"noop", "isPresent", "notNull", "isNull",
		"toLower", "toUpper", "concat",
		"min", "max", "abs", "toInteger", "toDouble", "toLong",
	} {
		fn, ok := reg.Lookup(name)
		assert.True(t, ok, "expected %q to be registered", name)
		assert.NotNil(t, fn)
	}

	_, ok := reg.Lookup("sort")
	assert.False(t, ok)

	// Lookup is case-sensitive.
	_, ok = reg.Lookup("toLOWER")
	assert.False(t, ok)
	_, ok = reg.Lookup("ToLower")
	assert.False(t, ok)
}

func TestRegistryNames(t *testing.T) {
	names := NewRegistry().Names()
	assert.Len(t, names, 13)
	assert.Contains(t, names, "noop")
	assert.Contains(t, names, "toLong")
	// Names come back sorted.
	for i := 1; i < len(names); i++ {
		assert.Less(t, names[i-1], names[i])
	}
}

func TestRegistryWith(t *testing.T) {
	reg := NewRegistry()
	custom := Func(func(args ...interface{}) Result {
		return Of("custom")
	})

	extended := reg.With("custom", custom)

	fn, ok := extended.Lookup("custom")
	assert.True(t, ok)
	assert.Equal(t, "custom", fn.Apply().Value())

	// The stock registry is untouched.
	_, ok = reg.Lookup("custom")
	assert.False(t, ok)

	// Built-ins remain reachable through the extension.
	_, ok = extended.Lookup("abs")
	assert.True(t, ok)
}

func TestNilRegistryLookup(t *testing.T) {
	var reg *Registry
	_, ok := reg.Lookup("abs")
	assert.False(t, ok)
	assert.Nil(t, reg.Names())
}
