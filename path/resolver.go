package path

// Resolve walks a decoded JSON node following the path. A missing key, an
// out-of-range index, or a leaf reached too early all report (nil, false);
// missing data is not an error at this layer, matching the engine's
// fail-silently policy.
func Resolve(node interface{}, p Path) (interface{}, bool) {
	current := node
	for _, elem := range p.Elements {
		if elem.Name != "" {
			m, ok := current.(map[string]interface{})
			if !ok {
				return nil, false
			}
			current, ok = m[elem.Name]
			if !ok {
				return nil, false
			}
		}
		if elem.Index != nil {
			arr, ok := current.([]interface{})
			if !ok {
				return nil, false
			}
			idx := *elem.Index
			if idx < 0 || idx >= len(arr) {
				return nil, false
			}
			current = arr[idx]
		}
	}
	return current, true
}

// ResolveString parses and resolves in one step.
func ResolveString(node interface{}, pathStr string) (interface{}, bool) {
	p, err := Parse(pathStr)
	if err != nil {
		return nil, false
	}
	return Resolve(node, p)
}
