package path

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

type pathAST struct {
	Segments []*segmentAST `parser:"@@ ( '.' @@ )*"`
}

type segmentAST struct {
	Name       string          `parser:"@Ident"`
	Subscripts []*subscriptAST `parser:"( '[' @@ ']' )*"`
}

type subscriptAST struct {
	Index *int    `parser:"@Int"`
	Key   *string `parser:"| @String"`
}

var pathLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{Name: "whitespace", Pattern: `\s+`, Action: nil},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_-]*`, Action: nil},
		{Name: "Int", Pattern: `[0-9]+`, Action: nil},
		{Name: "String", Pattern: `"[^"]*"`, Action: nil},
		{Name: "Punct", Pattern: `[.\[\]]`, Action: nil},
	},
})

var parser = participle.MustBuild[pathAST](
	participle.Lexer(pathLexer),
	participle.Elide("whitespace"),
)

// Parse parses a dotted path string into a Path. Array subscripts use [n]
// and quoted map keys may be written a["key"], equivalent to a.key.
func Parse(pathStr string) (Path, error) {
	if strings.TrimSpace(pathStr) == "" {
		return Path{}, fmt.Errorf("empty path")
	}

	ast, err := parser.ParseString("", pathStr)
	if err != nil {
		return Path{}, fmt.Errorf("parsing path %q: %w", pathStr, err)
	}

	var elements []Element
	for _, seg := range ast.Segments {
		elem := Element{Name: seg.Name}
		for _, sub := range seg.Subscripts {
			switch {
			case sub.Index != nil && elem.Index == nil:
				idx := *sub.Index
				elem.Index = &idx
			case sub.Index != nil:
				// A second index on the same segment starts a nameless
				// element, e.g. matrix[1][2].
				elements = append(elements, elem)
				idx := *sub.Index
				elem = Element{Index: &idx}
			case sub.Key != nil:
				elements = append(elements, elem)
				elem = Element{Name: strings.Trim(*sub.Key, `"`)}
			}
		}
		elements = append(elements, elem)
	}

	return Path{Elements: elements}, nil
}

// Valid reports whether a path string parses.
func Valid(pathStr string) bool {
	_, err := Parse(pathStr)
	return err == nil
}
