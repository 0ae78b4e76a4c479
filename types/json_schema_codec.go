package types

import (
	"bytes"
	"context"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/reoring/apimodel"
)

var (
	_ json.Marshaler   = JSONSchema{}
	_ json.Unmarshaler = (*JSONSchema)(nil)
	_ yaml.Marshaler   = JSONSchema{}
	_ yaml.Unmarshaler = (*JSONSchema)(nil)
)

// wire builds the wire object: retained unknown fields plus every present
// known field, with null for explicit nulls.
func (s JSONSchema) wire() map[string]any {
	known := make(map[string]any, 3)
	putOptional(known, JSONSchemaKeyName, s.name)
	putOptional(known, JSONSchemaKeyStrict, s.strict)
	putOptional(known, JSONSchemaKeySchema, s.schema)
	return apimodel.EncodePreservingObject(known, s.extra)
}

func putOptional[T any](m map[string]any, key string, o apimodel.Optional[T]) {
	switch {
	case o.IsNull():
		m[key] = nil
	case o.IsSet():
		v, _ := o.Get()
		m[key] = v
	}
}

// ToMap returns the wire object as a fresh map.
func (s JSONSchema) ToMap() map[string]any {
	return apimodel.CloneObject(normalizeBody(s.wire()))
}

// normalizeBody widens the typed schema body to map[string]any so callers get
// a plain decoded-value tree.
func normalizeBody(m map[string]any) map[string]any {
	if body, ok := m[JSONSchemaKeySchema].(SchemaBody); ok {
		wide := make(map[string]any, len(body))
		for k, v := range body {
			wide[k] = v
		}
		m[JSONSchemaKeySchema] = wide
	}
	return m
}

// MarshalJSON emits the wire object with sorted keys.
func (s JSONSchema) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.wire())
}

// UnmarshalJSON decodes with the default (passthrough) policy. A failed
// decode leaves s unchanged, and so does a JSON null.
func (s *JSONSchema) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	v, err := ParseJSONSchema(context.Background(), data)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// MarshalYAML emits the same mapping as MarshalJSON. Numbers keep their
// literal text.
func (s JSONSchema) MarshalYAML() (any, error) {
	return yamlValue(normalizeBody(s.wire())), nil
}

// yamlValue rewrites json.Number leaves as tagged scalar nodes; the yaml
// encoder would otherwise quote them as strings.
func yamlValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = yamlValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = yamlValue(e)
		}
		return out
	case apimodel.Number:
		tag := "!!int"
		if strings.ContainsAny(string(t), ".eE") {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: string(t)}
	default:
		return v
	}
}

// UnmarshalYAML decodes a YAML mapping with the default (passthrough) policy.
// A null node leaves s unchanged.
func (s *JSONSchema) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null" {
		return nil
	}
	v, err := apimodel.ParseFrom(context.Background(), defaultJSONSchemaParser, apimodel.YAMLNode(node))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
