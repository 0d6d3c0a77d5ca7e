// Package transform implements the modifier transforms: spec-driven walks
// over a JSON document that evaluate =function(...) expressions from the
// function registry and write their results into the output tree.
package transform

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/reshape/reshape-go/path"
)

// Expression is a compiled function expression from a spec leaf, e.g.
// "=concat(@(1,&0), '-', rating.scale)" or the bare shorthand "=abs".
// Compiled expressions are immutable and shared across concurrent
// transforms.
type Expression struct {
	// Name of the function to look up in the registry.
	Name string
	// Args in spec order; nil for the bare shorthand form.
	Args []Arg
	// Shorthand is true for "=name" with no parentheses, which implies a
	// single argument: the matched value at the current location.
	Shorthand bool
}

// Arg is one compiled argument of a function expression. Resolve returns the
// argument's value for the current walk position and whether it resolved at
// all; unresolved arguments are dropped from the call, they do not become
// nulls.
type Arg interface {
	Resolve(ctx *WalkContext) (interface{}, bool)
}

type exprAST struct {
	Name string   `parser:"'=' @Ident"`
	Call *callAST `parser:"( '(' @@ ')' )?"`
}

type callAST struct {
	Args []*argAST `parser:"( @@ ( ',' @@ )* )?"`
}

type argAST struct {
	ValueRef *valueRefAST `parser:"@@"`
	KeyRef   *string      `parser:"| @KeyRef"`
	Str      *string      `parser:"| @String"`
	Float    *float64     `parser:"| @Float"`
	Int      *int64       `parser:"| @Int"`
	Bool     *string      `parser:"| @( 'true' | 'false' )"`
	Null     bool         `parser:"| @'null'"`
	Path     *refPathAST  `parser:"| @@"`
}

type valueRefAST struct {
	Body *valueRefBodyAST `parser:"'@' ( '(' @@ ')' )?"`
}

type valueRefBodyAST struct {
	Level int         `parser:"@Int"`
	Rel   *refPathAST `parser:"( ',' @@ )?"`
}

type refPathAST struct {
	Segments []*refSegAST `parser:"@@ ( '.' @@ )*"`
}

type refSegAST struct {
	KeyRef *string `parser:"( @KeyRef"`
	Name   *string `parser:"| @Ident )"`
	Index  *int    `parser:"( '[' @Int ']' )?"`
}

var exprLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{Name: "whitespace", Pattern: `\s+`, Action: nil},
		{Name: "Float", Pattern: `-?\d+\.\d+`, Action: nil},
		{Name: "Int", Pattern: `-?\d+`, Action: nil},
		{Name: "String", Pattern: `'[^']*'|"[^"]*"`, Action: nil},
		{Name: "KeyRef", Pattern: `&\d*`, Action: nil},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`, Action: nil},
		{Name: "Punct", Pattern: `[=@(),.\[\]]`, Action: nil},
	},
})

var exprParser = participle.MustBuild[exprAST](
	participle.Lexer(exprLexer),
	participle.Elide("whitespace"),
)

// IsExpression reports whether a spec leaf string is a function expression.
func IsExpression(s string) bool {
	return strings.HasPrefix(s, "=")
}

// ParseExpression compiles a spec leaf of the form "=name(args...)" or
// "=name". Parsing happens once, when the spec is compiled; evaluation
// happens per document.
func ParseExpression(s string) (*Expression, error) {
	ast, err := exprParser.ParseString("", s)
	if err != nil {
		return nil, fmt.Errorf("parsing function expression %q: %w", s, err)
	}

	expr := &Expression{Name: ast.Name, Shorthand: ast.Call == nil}
	if ast.Call != nil {
		expr.Args = make([]Arg, 0, len(ast.Call.Args))
		for _, arg := range ast.Call.Args {
			compiled, err := compileArg(arg)
			if err != nil {
				return nil, fmt.Errorf("in %q: %w", s, err)
			}
			expr.Args = append(expr.Args, compiled)
		}
	}
	return expr, nil
}

func compileArg(arg *argAST) (Arg, error) {
	switch {
	case arg.ValueRef != nil:
		// Bare "@" is the matched value itself, same as "@(0)".
		if arg.ValueRef.Body == nil {
			return valueRefArg{level: 0}, nil
		}
		segs, err := compileRefPath(arg.ValueRef.Body.Rel)
		if err != nil {
			return nil, err
		}
		return valueRefArg{level: arg.ValueRef.Body.Level, segs: segs}, nil
	case arg.KeyRef != nil:
		level, err := keyRefLevel(*arg.KeyRef)
		if err != nil {
			return nil, err
		}
		return keyRefArg{level: level}, nil
	case arg.Str != nil:
		s := *arg.Str
		return literalArg{value: s[1 : len(s)-1]}, nil
	case arg.Float != nil:
		return literalArg{value: *arg.Float}, nil
	case arg.Int != nil:
		return literalArg{value: *arg.Int}, nil
	case arg.Bool != nil:
		return literalArg{value: *arg.Bool == "true"}, nil
	case arg.Null:
		return literalArg{value: nil}, nil
	case arg.Path != nil:
		segs, err := compileRefPath(arg.Path)
		if err != nil {
			return nil, err
		}
		// A bare path resolves against the node containing the matched
		// key, same as @(1,...).
		return valueRefArg{level: 1, segs: segs}, nil
	}
	return nil, fmt.Errorf("unrecognized argument form")
}

func compileRefPath(ast *refPathAST) ([]refSeg, error) {
	if ast == nil {
		return nil, nil
	}
	segs := make([]refSeg, 0, len(ast.Segments))
	for _, seg := range ast.Segments {
		var compiled refSeg
		if seg.KeyRef != nil {
			level, err := keyRefLevel(*seg.KeyRef)
			if err != nil {
				return nil, err
			}
			compiled = refSeg{isKeyRef: true, level: level}
		} else {
			compiled = refSeg{name: *seg.Name}
		}
		compiled.index = seg.Index
		segs = append(segs, compiled)
	}
	return segs, nil
}

func keyRefLevel(token string) (int, error) {
	digits := strings.TrimPrefix(token, "&")
	if digits == "" {
		return 0, nil
	}
	level, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("bad key reference %q: %w", token, err)
	}
	return level, nil
}

// literalArg always resolves to its fixed value.
type literalArg struct {
	value interface{}
}

func (a literalArg) Resolve(*WalkContext) (interface{}, bool) {
	return a.value, true
}

// keyRefArg resolves &n to the key text n levels above the current one.
type keyRefArg struct {
	level int
}

func (a keyRefArg) Resolve(ctx *WalkContext) (interface{}, bool) {
	key, ok := ctx.KeyUp(a.level)
	if !ok {
		return nil, false
	}
	return key, true
}

// valueRefArg resolves @(n,rel): walk n levels up from the matched value,
// then follow rel downward. Key references inside rel substitute the walked
// keys before lookup.
type valueRefArg struct {
	level int
	segs  []refSeg
}

type refSeg struct {
	isKeyRef bool
	level    int
	name     string
	index    *int
}

func (a valueRefArg) Resolve(ctx *WalkContext) (interface{}, bool) {
	current, ok := ctx.NodeUp(a.level)
	if !ok {
		return nil, false
	}
	if len(a.segs) == 0 {
		return current, true
	}
	// Substitute key references, then the descent is a plain path walk.
	elements := make([]path.Element, 0, len(a.segs))
	for _, seg := range a.segs {
		name := seg.name
		if seg.isKeyRef {
			name, ok = ctx.KeyUp(seg.level)
			if !ok {
				return nil, false
			}
		}
		elements = append(elements, path.Element{Name: name, Index: seg.index})
	}
	return path.Resolve(current, path.Path{Elements: elements})
}
