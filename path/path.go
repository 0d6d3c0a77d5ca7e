// Package path parses and resolves the dotted path expressions used inside
// modifier function arguments, e.g. rating.primary.value or items[0].price.
// Reference forms that depend on the walked tree location (&n and @(n,...))
// are handled by the transform package on top of this one.
package path

import (
	"fmt"
	"strings"
)

// Element is a single segment of a path: a map key, optionally followed by an
// array index.
type Element struct {
	Name  string
	Index *int
}

// Key returns a plain map-key element.
func Key(name string) Element {
	return Element{Name: name}
}

// HasIndex reports whether this element carries an array index.
func (e Element) HasIndex() bool {
	return e.Index != nil
}

// String returns the segment in source form.
func (e Element) String() string {
	if e.Index != nil {
		if e.Name == "" {
			return fmt.Sprintf("[%d]", *e.Index)
		}
		return fmt.Sprintf("%s[%d]", e.Name, *e.Index)
	}
	return e.Name
}

// Path is an ordered list of elements resolved from the root of a node.
type Path struct {
	Elements []Element
}

// IsEmpty reports whether the path has no elements.
func (p Path) IsEmpty() bool {
	return len(p.Elements) == 0
}

// String returns the path in source form.
func (p Path) String() string {
	parts := make([]string, len(p.Elements))
	for i, elem := range p.Elements {
		parts[i] = elem.String()
	}
	return strings.Join(parts, ".")
}
