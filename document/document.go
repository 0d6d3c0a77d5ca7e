// Package document holds the JSON document model the transforms operate on:
// decoded trees of map[string]interface{}, []interface{}, string, float64,
// bool and nil, plus loading, deep-copy and path-write helpers.
package document

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/reshape/reshape-go/path"
)

// FromJSON decodes a JSON object into a document tree.
func FromJSON(data []byte) (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing document json: %w", err)
	}
	return doc, nil
}

// FromYAML decodes a YAML mapping into a document tree. yaml.v3 already
// decodes mappings as map[string]interface{}, so the result uses the same
// value model as FromJSON except that whole numbers come back as int.
func FromYAML(data []byte) (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing document yaml: %w", err)
	}
	return doc, nil
}

// ToJSON renders a document tree back to JSON.
func ToJSON(doc interface{}) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	return data, nil
}

// DeepCopy copies a document tree so that a transform can build its output
// without aliasing the caller's input.
func DeepCopy(original map[string]interface{}) map[string]interface{} {
	if original == nil {
		return nil
	}
	copied := make(map[string]interface{}, len(original))
	for key, value := range original {
		copied[key] = DeepCopyValue(value)
	}
	return copied
}

// DeepCopyValue copies a single document value of any depth.
func DeepCopyValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		return DeepCopy(v)
	case []interface{}:
		copied := make([]interface{}, len(v))
		for i, item := range v {
			copied[i] = DeepCopyValue(item)
		}
		return copied
	default:
		return v
	}
}

// Set writes value at the given path inside doc, creating intermediate maps
// as needed. Array elements can be replaced but Set does not grow arrays.
func Set(doc map[string]interface{}, p path.Path, value interface{}) error {
	if p.IsEmpty() {
		return fmt.Errorf("cannot set empty path")
	}

	var current interface{} = doc
	last := len(p.Elements) - 1
	for i, elem := range p.Elements {
		m, ok := current.(map[string]interface{})
		if !ok {
			return fmt.Errorf("path %s: segment %q is not an object", p, elem)
		}

		if elem.HasIndex() {
			arr, ok := m[elem.Name].([]interface{})
			if !ok {
				return fmt.Errorf("path %s: segment %q is not an array", p, elem.Name)
			}
			idx := *elem.Index
			if idx < 0 || idx >= len(arr) {
				return fmt.Errorf("path %s: index %d out of range", p, idx)
			}
			if i == last {
				arr[idx] = value
				return nil
			}
			current = arr[idx]
			continue
		}

		if i == last {
			m[elem.Name] = value
			return nil
		}
		next, ok := m[elem.Name]
		if !ok {
			child := make(map[string]interface{})
			m[elem.Name] = child
			current = child
			continue
		}
		current = next
	}
	return nil
}
