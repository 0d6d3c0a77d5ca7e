package document

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Provider answers read-only path lookups against a document. The gjson
// implementation keeps the raw JSON around and converts on access, which is
// cheap for the sparse lookups transform arguments make.
type Provider struct {
	rawJSON string
}

// NewProvider wraps an already-decoded document tree.
func NewProvider(doc interface{}) (*Provider, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding document for provider: %w", err)
	}
	return &Provider{rawJSON: string(raw)}, nil
}

// NewProviderFromJSON wraps raw JSON without decoding it first.
func NewProviderFromJSON(data []byte) (*Provider, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid document json")
	}
	return &Provider{rawJSON: string(data)}, nil
}

// Get resolves a dotted path with optional [n] subscripts. Missing paths
// report (nil, false) without error.
func (p *Provider) Get(pathStr string) (interface{}, bool) {
	// gjson addresses array elements with dots rather than brackets.
	formatted := strings.ReplaceAll(pathStr, "[", ".")
	formatted = strings.ReplaceAll(formatted, "]", "")

	result := gjson.Get(p.rawJSON, formatted)
	if !result.Exists() {
		return nil, false
	}
	return resultToValue(result), true
}

// Raw returns the underlying JSON text.
func (p *Provider) Raw() string {
	return p.rawJSON
}

func resultToValue(result gjson.Result) interface{} {
	switch result.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		if result.Float() == float64(result.Int()) {
			return result.Int()
		}
		return result.Float()
	case gjson.String:
		return result.String()
	case gjson.JSON:
		if result.IsArray() {
			arr := result.Array()
			values := make([]interface{}, len(arr))
			for i, v := range arr {
				values[i] = resultToValue(v)
			}
			return values
		}
		m := result.Map()
		values := make(map[string]interface{}, len(m))
		for k, v := range m {
			values[k] = resultToValue(v)
		}
		return values
	default:
		return nil
	}
}
