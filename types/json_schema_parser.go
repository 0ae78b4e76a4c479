package types

import (
	"context"
	"io"
	"sort"
	"strings"

	"github.com/reoring/apimodel"
	js "github.com/reoring/apimodel/jsonschema"
)

// JSONSchemaParser returns the Schema that decodes JSONSchema values from a
// decoded value tree, handling unknown keys according to policy.
func JSONSchemaParser(policy apimodel.UnknownPolicy) apimodel.Schema[JSONSchema] {
	return jsonSchemaParser{unknown: policy}
}

var defaultJSONSchemaParser = JSONSchemaParser(apimodel.UnknownPassthrough)

// ParseJSONSchema decodes JSON with the passthrough policy.
func ParseJSONSchema(ctx context.Context, data []byte, opts ...apimodel.ParseOpt) (JSONSchema, error) {
	if err := checkSize(len(data), opts); err != nil {
		return JSONSchema{}, err
	}
	return apimodel.ParseFrom(ctx, defaultJSONSchemaParser, apimodel.JSONBytes(data), opts...)
}

// ParseJSONSchemaYAML decodes the single YAML document in data with the passthrough policy.
func ParseJSONSchemaYAML(ctx context.Context, data []byte, opts ...apimodel.ParseOpt) (JSONSchema, error) {
	if err := checkSize(len(data), opts); err != nil {
		return JSONSchema{}, err
	}
	return apimodel.ParseFrom(ctx, defaultJSONSchemaParser, apimodel.YAMLBytes(data), opts...)
}

// DecodeJSONSchema reads one JSON document from r with the passthrough policy.
func DecodeJSONSchema(ctx context.Context, r io.Reader, opts ...apimodel.ParseOpt) (JSONSchema, error) {
	return apimodel.StreamParse(ctx, defaultJSONSchemaParser, r, opts...)
}

func checkSize(n int, opts []apimodel.ParseOpt) error {
	if len(opts) == 0 {
		return nil
	}
	if limit := opts[len(opts)-1].MaxBytes; limit > 0 && int64(n) > limit {
		return apimodel.Issues{{Path: "/", Code: apimodel.CodeTruncated, Message: "max bytes exceeded", Offset: limit}}
	}
	return nil
}

type jsonSchemaParser struct {
	unknown apimodel.UnknownPolicy
}

var _ apimodel.Schema[JSONSchema] = jsonSchemaParser{}

func (p jsonSchemaParser) Parse(ctx context.Context, v any) (JSONSchema, error) {
	return p.parse(ctx, v, nil)
}

func (p jsonSchemaParser) ParseWithMeta(ctx context.Context, v any) (apimodel.Decoded[JSONSchema], error) {
	pm := apimodel.PresenceMap{"/": apimodel.PresenceSeen}
	out, err := p.parse(ctx, v, pm)
	if err != nil {
		return apimodel.Decoded[JSONSchema]{}, err
	}
	return apimodel.Decoded[JSONSchema]{Value: out, Presence: pm}, nil
}

func (p jsonSchemaParser) Validate(ctx context.Context, v any) error {
	_, err := p.parse(ctx, v, nil)
	return err
}

func (p jsonSchemaParser) JSONSchema() (*js.Schema, error) {
	return &js.Schema{
		Type: "object",
		Properties: map[string]*js.Schema{
			JSONSchemaKeyName:   {Type: js.Nullable("string")},
			JSONSchemaKeyStrict: {Type: js.Nullable("boolean")},
			JSONSchemaKeySchema: {
				Type:                 js.Nullable("object"),
				AdditionalProperties: &js.Schema{Type: "object"},
			},
		},
		AdditionalProperties: p.unknown != apimodel.UnknownStrict,
	}, nil
}

var jsonSchemaKnownKeys = []string{JSONSchemaKeyName, JSONSchemaKeySchema, JSONSchemaKeyStrict}

// parse builds a JSONSchema from v. Presence is recorded into pm when non-nil.
// Known keys are checked in key order, then unknown keys; nothing is returned
// unless every present field conforms.
func (p jsonSchemaParser) parse(ctx context.Context, v any, pm apimodel.PresenceMap) (JSONSchema, error) {
	root := apimodel.Root()
	src, ok := v.(map[string]any)
	if !ok {
		return JSONSchema{}, apimodel.Issues{apimodel.IssueAt(root, apimodel.CodeInvalidType, "expected object",
			"expected", "object", "got", apimodel.TypeName(v))}
	}
	failFast := apimodel.IsFailFast(ctx)

	var (
		out JSONSchema
		iss apimodel.Issues
	)
	for _, k := range jsonSchemaKnownKeys {
		raw, exists := src[k]
		if !exists {
			continue
		}
		at := root.Field(k)
		apimodel.MarkPresenceSubtree(pm, at.Pointer(), raw)
		var more apimodel.Issues
		switch k {
		case JSONSchemaKeyName:
			out.name, more = decodeOptional[string](at, raw, "string")
		case JSONSchemaKeyStrict:
			out.strict, more = decodeOptional[bool](at, raw, "boolean")
		case JSONSchemaKeySchema:
			out.schema, more = decodeSchemaBody(at, raw, failFast)
		}
		if len(more) > 0 {
			iss = apimodel.AppendIssues(iss, more...)
			if failFast {
				return JSONSchema{}, iss[:1]
			}
		}
	}

	unknown := make([]string, 0, len(src))
	for k := range src {
		if !isJSONSchemaKey(k) {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		raw := src[k]
		at := root.Field(k)
		apimodel.MarkPresenceSubtree(pm, at.Pointer(), raw)
		switch p.unknown {
		case apimodel.UnknownStrict:
			iss = apimodel.AppendIssues(iss, apimodel.IssueAt(at, apimodel.CodeUnknownKey,
				"allowed keys: "+strings.Join(jsonSchemaKnownKeys, ", "), "key", k))
			if failFast {
				return JSONSchema{}, iss[:1]
			}
		case apimodel.UnknownStrip:
			// drop
		default:
			if out.extra == nil {
				out.extra = make(map[string]any, len(unknown))
			}
			out.extra[k] = apimodel.NormalizeValue(raw)
		}
	}

	if len(iss) > 0 {
		return JSONSchema{}, iss
	}
	return out, nil
}

// decodeOptional accepts null or a value of exactly type T.
func decodeOptional[T any](at apimodel.PathRef, raw any, expected string) (apimodel.Optional[T], apimodel.Issues) {
	if raw == nil {
		return apimodel.Null[T](), nil
	}
	t, ok := raw.(T)
	if !ok {
		return apimodel.Unset[T](), apimodel.Issues{apimodel.IssueAt(at, apimodel.CodeInvalidType, "expected "+expected+" or null",
			"expected", expected, "got", apimodel.TypeName(raw))}
	}
	return apimodel.Some(t), nil
}

// decodeSchemaBody accepts null or an object whose entries are all objects.
func decodeSchemaBody(at apimodel.PathRef, raw any, failFast bool) (apimodel.Optional[SchemaBody], apimodel.Issues) {
	var entries map[string]any
	switch t := raw.(type) {
	case nil:
		return apimodel.Null[SchemaBody](), nil
	case SchemaBody:
		return apimodel.Some(cloneSchemaBody(t)), nil
	case map[string]any:
		entries = t
	default:
		return apimodel.Unset[SchemaBody](), apimodel.Issues{apimodel.IssueAt(at, apimodel.CodeInvalidType, "expected object or null",
			"expected", "object", "got", apimodel.TypeName(raw))}
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	body := make(SchemaBody, len(entries))
	var iss apimodel.Issues
	for _, k := range keys {
		attrs, ok := entries[k].(map[string]any)
		if !ok {
			iss = apimodel.AppendIssues(iss, apimodel.IssueAt(at.Field(k), apimodel.CodeInvalidType, "expected object",
				"expected", "object", "got", apimodel.TypeName(entries[k])))
			if failFast {
				return apimodel.Unset[SchemaBody](), iss
			}
			continue
		}
		if attrs == nil {
			attrs = map[string]any{}
		}
		body[k], _ = apimodel.NormalizeValue(attrs).(map[string]any)
	}
	if len(iss) > 0 {
		return apimodel.Unset[SchemaBody](), iss
	}
	return apimodel.Some(body), nil
}
