package transform

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reshape/reshape-go/function"
)

func runModifier(t *testing.T, specJSON, inputJSON string, opts ...Option) map[string]interface{} {
	t.Helper()
	var spec, input map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(specJSON), &spec))
	require.NoError(t, json.Unmarshal([]byte(inputJSON), &input))

	mod, err := NewModifier(spec, opts...)
	require.NoError(t, err)
	out, err := mod.Transform(input)
	require.NoError(t, err)
	return out
}

func TestShorthandAppliesToMatchedValue(t *testing.T) {
	// "=abs" passes the value at the same path as the sole argument.
	out := runModifier(t, `{"num": "=abs"}`, `{"num": -1.0}`)
	assert.Equal(t, map[string]interface{}{"num": 1.0}, out)
}

func TestBareValueRefIsMatchedValue(t *testing.T) {
	// "=abs(@)" spells the shorthand's implicit argument out.
	out := runModifier(t, `{"num": "=abs(@)"}`, `{"num": -1.0}`)
	assert.Equal(t, map[string]interface{}{"num": 1.0}, out)
}

func TestAbsentResultIsANoOp(t *testing.T) {
	// abs of a string is absent: no write, the key keeps its prior value.
	out := runModifier(t, `{"value1": "=abs"}`, `{"value1": "xyz"}`)
	assert.Equal(t, map[string]interface{}{"value1": "xyz"}, out)
}

func TestShorthandOnMissingKey(t *testing.T) {
	// A missing key yields an empty argument list, so abs stays absent and
	// nothing is written.
	out := runModifier(t, `{"value2": "=abs"}`, `{"value1": "xyz"}`)
	assert.Equal(t, map[string]interface{}{"value1": "xyz"}, out)
}

func TestValueReferenceArguments(t *testing.T) {
	out := runModifier(t,
		`{"absValue": "=abs(@(1,value))"}`,
		`{"value": -1.0}`)
	assert.Equal(t, map[string]interface{}{
		"value":    -1.0,
		"absValue": 1.0,
	}, out)
}

func TestExplicitNullIsWritten(t *testing.T) {
	// isNull passes its null argument through as a present null; the output
	// key is explicitly null, not removed.
	out := runModifier(t, `{"gone": "=isNull"}`, `{"gone": null}`)
	v, exists := out["gone"]
	assert.True(t, exists)
	assert.Nil(t, v)

	// On a non-null value isNull is absent and the value survives.
	out = runModifier(t, `{"gone": "=isNull"}`, `{"gone": "kept"}`)
	assert.Equal(t, "kept", out["gone"])
}

func TestFallbackChain(t *testing.T) {
	spec := `{"key": ["=isPresent", "otherValue"]}`

	// Present null stays null.
	out := runModifier(t, spec, `{"key": null}`)
	v, exists := out["key"]
	assert.True(t, exists)
	assert.Nil(t, v)

	// Present value stays.
	out = runModifier(t, spec, `{"key": "value"}`)
	assert.Equal(t, "value", out["key"])

	// Missing key falls through to the literal.
	out = runModifier(t, spec, `{}`)
	assert.Equal(t, "otherValue", out["key"])
}

func TestFallbackChainWithNotNull(t *testing.T) {
	spec := `{"key": ["=notNull", "fallback"]}`

	out := runModifier(t, spec, `{"key": null}`)
	assert.Equal(t, "fallback", out["key"])

	out = runModifier(t, spec, `{"key": "value"}`)
	assert.Equal(t, "value", out["key"])
}

func TestNestedWalkWithKeyReferences(t *testing.T) {
	out := runModifier(t,
		`{"rating": {"primary": {"label": "=concat(&1, '-', @(1,value))"}}}`,
		`{"rating": {"primary": {"value": 4}}}`)

	rating := out["rating"].(map[string]interface{})
	primary := rating["primary"].(map[string]interface{})
	assert.Equal(t, "primary-4", primary["label"])
	assert.Equal(t, float64(4), primary["value"])
}

func TestStringFunctions(t *testing.T) {
	out := runModifier(t,
		`{"upper": "=toUpper(@(1,word))", "lower": "=toLower(@(1,word))"}`,
		`{"word": "MiXeD"}`)
	assert.Equal(t, "MIXED", out["upper"])
	assert.Equal(t, "mixed", out["lower"])
}

func TestNumericFunctionsWithLiterals(t *testing.T) {
	out := runModifier(t,
		`{"capped": "=min(@(1,value), 10)", "floored": "=max(@(1,value), 0)"}`,
		`{"capped": 0, "floored": 0, "value": 42.5}`)
	// The winning argument keeps its own type: the literal 10 is integral.
	assert.Equal(t, int64(10), out["capped"])
	assert.Equal(t, 42.5, out["floored"])
}

func TestUnknownFunctionIsANoOp(t *testing.T) {
	out := runModifier(t, `{"key": "=definitelyNotRegistered"}`, `{"key": "kept"}`)
	assert.Equal(t, "kept", out["key"])
}

func TestNoopLeavesEverythingAlone(t *testing.T) {
	out := runModifier(t, `{"key": "=noop"}`, `{"key": "kept"}`)
	assert.Equal(t, map[string]interface{}{"key": "kept"}, out)
}

func TestEmptyScaffoldIsRemoved(t *testing.T) {
	// The spec descends into a branch the input lacks; when nothing gets
	// written there the scaffold map must not leak into the output.
	out := runModifier(t, `{"missing": {"inner": "=noop"}}`, `{"other": 1}`)
	_, exists := out["missing"]
	assert.False(t, exists)
	assert.Equal(t, float64(1), out["other"])
}

func TestScaffoldKeptWhenWritten(t *testing.T) {
	out := runModifier(t,
		`{"derived": {"total": "=max(@(2,a), @(2,b))"}}`,
		`{"a": 3, "b": 7}`)
	derived := out["derived"].(map[string]interface{})
	assert.Equal(t, float64(7), derived["total"])
}

func TestDefaultsMode(t *testing.T) {
	spec := `{"present": "filled", "missing": "filled"}`
	out := runModifier(t, spec, `{"present": "original"}`, AsDefaults())
	assert.Equal(t, "original", out["present"])
	assert.Equal(t, "filled", out["missing"])
}

func TestDefaultsModeSkipsExpressionsOnExistingKeys(t *testing.T) {
	out := runModifier(t, `{"num": "=abs"}`, `{"num": -5}`, AsDefaults())
	assert.Equal(t, float64(-5), out["num"])
}

func TestOverwriteModeLiterals(t *testing.T) {
	out := runModifier(t, `{"tag": "stamped"}`, `{"tag": "old", "other": true}`)
	assert.Equal(t, "stamped", out["tag"])
	assert.Equal(t, true, out["other"])
}

func TestEscapedEqualsIsLiteral(t *testing.T) {
	out := runModifier(t, `{"formula": "\\=abs"}`, `{}`)
	assert.Equal(t, "=abs", out["formula"])
}

func TestCustomRegistry(t *testing.T) {
	reg := function.NewRegistry().With("shout", function.Func(func(args ...interface{}) function.Result {
		if len(args) == 0 {
			return function.Empty()
		}
		s, ok := args[0].(string)
		if !ok {
			return function.Empty()
		}
		return function.Of(s + "!")
	}))

	out := runModifier(t, `{"word": "=shout"}`, `{"word": "hey"}`, WithRegistry(reg))
	assert.Equal(t, "hey!", out["word"])
}

func TestInputIsNotMutated(t *testing.T) {
	input := map[string]interface{}{"num": -1.0}
	mod, err := NewModifier(map[string]interface{}{"num": "=abs"})
	require.NoError(t, err)

	out, err := mod.Transform(input)
	require.NoError(t, err)
	assert.Equal(t, 1.0, out["num"])
	assert.Equal(t, -1.0, input["num"])
}

func TestBadSpecExpression(t *testing.T) {
	_, err := NewModifier(map[string]interface{}{"key": "=abs(1,"})
	assert.Error(t, err)
}

func TestNilInput(t *testing.T) {
	mod, err := NewModifier(map[string]interface{}{"key": "stamped"})
	require.NoError(t, err)
	out, err := mod.Transform(nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"key": "stamped"}, out)
}
