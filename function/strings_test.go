package function

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToLower(t *testing.T) {
	tests := []struct {
		name     string
		args     []interface{}
		present  bool
		expected interface{}
	}{
		{name: "no arguments", args: nil, present: false},
		{name: "null first argument", args: []interface{}{nil}, present: false},
		{name: "mixed case string", args: []interface{}{"HeLLo"}, present: true, expected: "hello"},
		{name: "non-string uses string form", args: []interface{}{true}, present: true, expected: "true"},
		{name: "number uses string form", args: []interface{}{1.5}, present: true, expected: "1.5"},
		{name: "rest ignored", args: []interface{}{"ABC", "DEF"}, present: true, expected: "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToLower.Apply(tt.args...)
			assert.Equal(t, tt.present, got.IsPresent())
			if tt.present {
				assert.Equal(t, tt.expected, got.Value())
			}
		})
	}
}

func TestToUpper(t *testing.T) {
	assert.False(t, ToUpper.Apply().IsPresent())
	assert.False(t, ToUpper.Apply(nil).IsPresent())
	assert.Equal(t, "HELLO", ToUpper.Apply("heLLo").Value())
	assert.Equal(t, "42", ToUpper.Apply(42).Value())
}

func TestConcat(t *testing.T) {
	tests := []struct {
		name     string
		args     []interface{}
		present  bool
		expected interface{}
	}{
		{name: "no arguments", args: nil, present: false},
		{name: "single string", args: []interface{}{"a"}, present: true, expected: "a"},
		{name: "string number bool", args: []interface{}{"a", 1, true}, present: true, expected: "a1true"},
		{name: "whole float has no trailing zero", args: []interface{}{"a", 1.0}, present: true, expected: "a1"},
		{name: "fractional float", args: []interface{}{"v=", 2.5}, present: true, expected: "v=2.5"},
		{name: "null renders as null", args: []interface{}{"a", nil, "b"}, present: true, expected: "anullb"},
		{name: "order is preserved", args: []interface{}{1, 2, 3}, present: true, expected: "123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Concat.Apply(tt.args...)
			assert.Equal(t, tt.present, got.IsPresent())
			if tt.present {
				assert.Equal(t, tt.expected, got.Value())
			}
		})
	}
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "null", stringify(nil))
	assert.Equal(t, "plain", stringify("plain"))
	assert.Equal(t, "false", stringify(false))
	assert.Equal(t, "-1", stringify(-1.0))
	assert.Equal(t, "7", stringify(int64(7)))
	assert.Equal(t, `["a","b"]`, stringify([]interface{}{"a", "b"}))
	assert.Equal(t, `{"k":1}`, stringify(map[string]interface{}{"k": 1}))
}
