package ir

import "fmt"

// toStringList coerces a decoded YAML value into a []string, accepting
// either a real list of strings or (for a convenient single-entry
// shorthand some attributes allow) a bare string.
func toStringList(v any) ([]string, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{x}, nil
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("expected a string, got %T", e)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a string or list of strings, got %T", v)
	}
}

// toInt64 coerces a decoded YAML scalar (int, int64, or a quoted
// integer literal string) to int64.
func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	case string:
		return parseIntLiteral(x)
	default:
		return 0, fmt.Errorf("expected an integer, got %T", v)
	}
}

// toAttrMap coerces a decoded YAML value into a map[string]any,
// rejecting anything else.
func toAttrMap(v any) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a mapping, got %T", v)
	}
	return m, nil
}

// stringAttr fetches a required string attribute.
func stringAttr(attrs map[string]any, name string) (string, error) {
	v, ok := attrs[name]
	if !ok {
		return "", fmt.Errorf("missing required attribute %q", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("attribute %q must be a string, got %T", name, v)
	}
	return s, nil
}

// truthy reports whether a decoded YAML value is a boolean true, or the
// string "true" (attributes are frequently hand-written).
func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return x == "true"
	default:
		return false
	}
}
