package types

import (
	"bytes"
	"sort"

	json "github.com/goccy/go-json"

	"github.com/reoring/apimodel"
)

// Wire keys of JSONSchema.
const (
	JSONSchemaKeyName   = "name"
	JSONSchemaKeyStrict = "strict"
	JSONSchemaKeySchema = "schema"
)

// SchemaBody is the nested schema mapping: keyword -> keyword attributes.
type SchemaBody = map[string]map[string]any

// JSONSchema is a named, optionally strict JSON schema definition as sent in
// structured-output requests.
//
// The zero value is the empty object {}.
type JSONSchema struct {
	name   apimodel.Optional[string]
	strict apimodel.Optional[bool]
	schema apimodel.Optional[SchemaBody]
	// unknown wire fields, never keyed by a known field name
	extra map[string]any
}

// JSONSchemaOption sets one attribute while building a JSONSchema.
type JSONSchemaOption func(*JSONSchema)

// NewJSONSchema builds a JSONSchema. Attributes not set by an option are absent.
func NewJSONSchema(opts ...JSONSchemaOption) JSONSchema {
	var s JSONSchema
	for _, o := range opts {
		if o != nil {
			o(&s)
		}
	}
	return s
}

// With returns a copy of s with opts applied. s itself is left unchanged.
func (s JSONSchema) With(opts ...JSONSchemaOption) JSONSchema {
	out := JSONSchema{
		name:   s.name,
		strict: s.strict,
		schema: s.schema,
		extra:  apimodel.CloneObject(s.extra),
	}
	for _, o := range opts {
		if o != nil {
			o(&out)
		}
	}
	return out
}

// WithName sets name.
func WithName(name string) JSONSchemaOption {
	return func(s *JSONSchema) { s.name = apimodel.Some(name) }
}

// WithNullName sets name to an explicit null.
func WithNullName() JSONSchemaOption {
	return func(s *JSONSchema) { s.name = apimodel.Null[string]() }
}

// WithoutName removes name.
func WithoutName() JSONSchemaOption {
	return func(s *JSONSchema) { s.name = apimodel.Unset[string]() }
}

// WithStrict sets strict.
func WithStrict(strict bool) JSONSchemaOption {
	return func(s *JSONSchema) { s.strict = apimodel.Some(strict) }
}

// WithNullStrict sets strict to an explicit null.
func WithNullStrict() JSONSchemaOption {
	return func(s *JSONSchema) { s.strict = apimodel.Null[bool]() }
}

// WithoutStrict removes strict.
func WithoutStrict() JSONSchemaOption {
	return func(s *JSONSchema) { s.strict = apimodel.Unset[bool]() }
}

// WithSchema sets the schema body. body is deep-copied, typed attribute values
// taking their decoded JSON form; a nil body is stored as an empty mapping.
func WithSchema(body SchemaBody) JSONSchemaOption {
	cp := cloneSchemaBody(body)
	if cp == nil {
		cp = SchemaBody{}
	}
	return func(s *JSONSchema) { s.schema = apimodel.Some(cp) }
}

// WithNullSchema sets the schema body to an explicit null.
func WithNullSchema() JSONSchemaOption {
	return func(s *JSONSchema) { s.schema = apimodel.Null[SchemaBody]() }
}

// WithoutSchema removes the schema body.
func WithoutSchema() JSONSchemaOption {
	return func(s *JSONSchema) { s.schema = apimodel.Unset[SchemaBody]() }
}

// WithExtraField retains an unknown field. Keys of known fields are ignored.
// Typed values are stored in their decoded JSON form.
func WithExtraField(key string, v any) JSONSchemaOption {
	cp := apimodel.NormalizeValue(v)
	return func(s *JSONSchema) {
		if isJSONSchemaKey(key) {
			return
		}
		if s.extra == nil {
			s.extra = map[string]any{}
		}
		s.extra[key] = cp
	}
}

// WithoutExtraField drops a retained unknown field.
func WithoutExtraField(key string) JSONSchemaOption {
	return func(s *JSONSchema) {
		delete(s.extra, key)
		if len(s.extra) == 0 {
			s.extra = nil
		}
	}
}

// Name returns the schema name.
func (s JSONSchema) Name() apimodel.Optional[string] { return s.name }

// Strict returns whether schema enforcement is strict.
func (s JSONSchema) Strict() apimodel.Optional[bool] { return s.strict }

// Schema returns a copy of the schema body.
func (s JSONSchema) Schema() apimodel.Optional[SchemaBody] {
	return apimodel.Map(s.schema, cloneSchemaBody)
}

// Extra returns a copy of the retained unknown fields, nil when there are none.
func (s JSONSchema) Extra() map[string]any { return apimodel.CloneObject(s.extra) }

// ExtraField returns a copy of one retained unknown field.
func (s JSONSchema) ExtraField(key string) (any, bool) {
	v, ok := s.extra[key]
	if !ok {
		return nil, false
	}
	return apimodel.CloneValue(v), true
}

// ExtraKeys lists the retained unknown field names in sorted order.
func (s JSONSchema) ExtraKeys() []string {
	keys := make([]string, 0, len(s.extra))
	for k := range s.extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports whether both values carry the same fields, including the
// retained unknown ones. Values are compared by their canonical JSON encoding,
// so number literals must match exactly: 1 and 1.0 are different values.
func (s JSONSchema) Equal(other JSONSchema) bool {
	a, err := json.Marshal(s.wire())
	if err != nil {
		return false
	}
	b, err := json.Marshal(other.wire())
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// String returns the JSON encoding, or "<invalid>" when a retained value cannot be encoded.
func (s JSONSchema) String() string {
	b, err := s.MarshalJSON()
	if err != nil {
		return "<invalid>"
	}
	return string(b)
}

func isJSONSchemaKey(k string) bool {
	switch k {
	case JSONSchemaKeyName, JSONSchemaKeyStrict, JSONSchemaKeySchema:
		return true
	}
	return false
}

// cloneSchemaBody deep-copies in, normalizing attribute values to value trees.
func cloneSchemaBody(in SchemaBody) SchemaBody {
	if in == nil {
		return nil
	}
	out := make(SchemaBody, len(in))
	for k, attrs := range in {
		cp, _ := apimodel.NormalizeValue(attrs).(map[string]any)
		if cp == nil {
			cp = map[string]any{}
		}
		out[k] = cp
	}
	return out
}
