package apimodel

import (
	"bytes"

	json "github.com/goccy/go-json"
)

// Number is the literal form decoded numbers take (see NumberJSONNumber).
type Number = json.Number

// CloneValue deep-copies a decoded value tree. Objects (map[string]any) and
// arrays ([]any) are copied recursively; every other value is returned as-is.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneObject(t)
	case []any:
		if t == nil {
			return []any(nil)
		}
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = CloneValue(e)
		}
		return out
	default:
		return v
	}
}

// CloneObject deep-copies an object. A nil map stays nil.
func CloneObject(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = CloneValue(v)
	}
	return out
}

// NormalizeValue returns v as a decoded value tree that shares no memory with
// the caller. Trees are deep-copied. Other values (typed slices and maps,
// structs, pointers) are converted through their JSON encoding, with numbers
// kept as Number. A value that cannot be encoded is deep-copied as far as
// CloneValue reaches.
func NormalizeValue(v any) any {
	if isValueTree(v) {
		return CloneValue(v)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return CloneValue(v)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return CloneValue(v)
	}
	return out
}

// isValueTree reports whether v holds only objects, arrays and immutable scalars.
func isValueTree(v any) bool {
	switch t := v.(type) {
	case nil, string, bool, Number, float64, float32,
		int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case map[string]any:
		for _, e := range t {
			if !isValueTree(e) {
				return false
			}
		}
		return true
	case []any:
		for _, e := range t {
			if !isValueTree(e) {
				return false
			}
		}
		return true
	}
	return false
}
