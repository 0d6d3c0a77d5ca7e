package function

import (
	"reflect"
	"testing"
)

func TestNoop(t *testing.T) {
	// Noop is absent regardless of argument count or content.
	cases := [][]interface{}{
		nil,
		{},
		{nil},
		{"value"},
		{1, 2.0, "three", nil, true},
	}
	for _, args := range cases {
		if Noop.Apply(args...).IsPresent() {
			t.Errorf("Noop.Apply(%v) should be absent", args)
		}
	}
}

func TestIsPresent(t *testing.T) {
	tests := []struct {
		name     string
		args     []interface{}
		present  bool
		expected interface{}
	}{
		{name: "no arguments", args: nil, present: false},
		{name: "null argument is still present", args: []interface{}{nil}, present: true, expected: nil},
		{name: "string argument", args: []interface{}{"value"}, present: true, expected: "value"},
		{name: "only first argument counts", args: []interface{}{"a", "b"}, present: true, expected: "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsPresent.Apply(tt.args...)
			if got.IsPresent() != tt.present {
				t.Fatalf("IsPresent(%v): present = %v, want %v", tt.args, got.IsPresent(), tt.present)
			}
			if tt.present && !reflect.DeepEqual(got.Value(), tt.expected) {
				t.Errorf("IsPresent(%v) = %v, want %v", tt.args, got.Value(), tt.expected)
			}
		})
	}
}

func TestNotNull(t *testing.T) {
	if NotNull.Apply().IsPresent() {
		t.Error("NotNull() should be absent")
	}
	if NotNull.Apply(nil).IsPresent() {
		t.Error("NotNull(null) should be absent")
	}
	got := NotNull.Apply("x")
	if !got.IsPresent() || got.Value() != "x" {
		t.Errorf("NotNull(\"x\") = %v, want present \"x\"", got.Value())
	}
}

func TestIsNull(t *testing.T) {
	if IsNull.Apply().IsPresent() {
		t.Error("IsNull() should be absent")
	}
	if IsNull.Apply("x").IsPresent() {
		t.Error("IsNull(\"x\") should be absent")
	}
	got := IsNull.Apply(nil)
	if !got.IsPresent() {
		t.Fatal("IsNull(null) should be present")
	}
	if got.Value() != nil {
		t.Errorf("IsNull(null) = %v, want null", got.Value())
	}
}
