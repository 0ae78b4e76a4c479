package types_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/reoring/apimodel"
	"github.com/reoring/apimodel/types"
)

func TestJSONSchema_StrictOnly(t *testing.T) {
	s, err := types.ParseJSONSchema(context.Background(), []byte(`{"strict": true}`))
	require.NoError(t, err)

	assert.False(t, s.Name().IsPresent())
	assert.False(t, s.Schema().IsPresent())
	strict, ok := s.Strict().Get()
	require.True(t, ok)
	assert.True(t, strict)

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `{"strict":true}`, string(out))
}

func TestJSONSchema_RoundTripPresenceCombinations(t *testing.T) {
	names := map[string]types.JSONSchemaOption{"unset": nil, "null": types.WithNullName(), "set": types.WithName("answer")}
	stricts := map[string]types.JSONSchemaOption{"unset": nil, "null": types.WithNullStrict(), "set": types.WithStrict(false)}
	schemas := map[string]types.JSONSchemaOption{
		"unset": nil,
		"null":  types.WithNullSchema(),
		"set":   types.WithSchema(types.SchemaBody{"properties": {"answer": map[string]any{"type": "string"}}}),
	}
	for nk, n := range names {
		for sk, st := range stricts {
			for bk, b := range schemas {
				t.Run(fmt.Sprintf("name=%s/strict=%s/schema=%s", nk, sk, bk), func(t *testing.T) {
					in := types.NewJSONSchema(n, st, b, types.WithExtraField("x-trace", []any{1, "two"}))
					wire, err := json.Marshal(in)
					require.NoError(t, err)

					var out types.JSONSchema
					require.NoError(t, json.Unmarshal(wire, &out))
					assert.True(t, in.Equal(out), "in=%s out=%s", in, out)
					assert.Equal(t, in.Name().IsNull(), out.Name().IsNull())
					assert.Equal(t, in.Strict().IsPresent(), out.Strict().IsPresent())
					assert.Equal(t, in.Schema().IsSet(), out.Schema().IsSet())
				})
			}
		}
	}
}

func TestJSONSchema_UnknownFieldsPreserved(t *testing.T) {
	in := `{"name":"answer","x-vendor":{"k":[1,2.5,"s"]},"other":null,"count":12345678901234567890}`
	s, err := types.ParseJSONSchema(context.Background(), []byte(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"count", "other", "x-vendor"}, s.ExtraKeys())

	out, err := json.Marshal(s)
	require.NoError(t, err)

	var want, got map[string]any
	require.NoError(t, json.Unmarshal([]byte(in), &want))
	require.NoError(t, json.Unmarshal(out, &got))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("re-encoded object mismatch (-want +got):\n%s", diff)
	}
	// number literals survive verbatim
	assert.Contains(t, string(out), `"count":12345678901234567890`)
}

func TestJSONSchema_SchemaKeyRename(t *testing.T) {
	in := `{"schema":{"properties":{"type":"object"},"required":{"answer":true}}}`
	s, err := types.ParseJSONSchema(context.Background(), []byte(in))
	require.NoError(t, err)

	body, ok := s.Schema().Get()
	require.True(t, ok)
	assert.Equal(t, "object", body["properties"]["type"])
	assert.Equal(t, true, body["required"]["answer"])
	assert.Empty(t, s.Extra())

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, in, string(out))
	assert.NotContains(t, string(out), "schema_")
}

func TestJSONSchema_Immutability(t *testing.T) {
	input := types.SchemaBody{"properties": {"type": "object"}}
	s := types.NewJSONSchema(types.WithName("a"), types.WithSchema(input), types.WithExtraField("x", map[string]any{"k": "v"}))

	// mutate the caller's map after construction
	input["properties"]["type"] = "string"
	// mutate the copies handed out by accessors
	body, _ := s.Schema().Get()
	body["properties"]["type"] = "array"
	delete(body, "properties")
	extra := s.Extra()
	extra["x"].(map[string]any)["k"] = "changed"
	extra["y"] = 1
	x, _ := s.ExtraField("x")
	x.(map[string]any)["k"] = "changed again"

	body, _ = s.Schema().Get()
	assert.Equal(t, "object", body["properties"]["type"])
	assert.Equal(t, []string{"x"}, s.ExtraKeys())
	x, _ = s.ExtraField("x")
	assert.Equal(t, map[string]any{"k": "v"}, x)

	// With produces a new value and leaves the receiver alone
	u := s.With(types.WithoutName(), types.WithStrict(true), types.WithExtraField("y", 2))
	assert.Equal(t, "a", s.Name().OrElse(""))
	assert.False(t, s.Strict().IsPresent())
	assert.Equal(t, []string{"x"}, s.ExtraKeys())
	assert.False(t, u.Name().IsPresent())
	assert.True(t, u.Strict().OrElse(false))
	assert.Equal(t, []string{"x", "y"}, u.ExtraKeys())
	assert.False(t, s.Equal(u))
}

func TestJSONSchema_ImmutabilityTypedValues(t *testing.T) {
	required := []string{"answer"}
	labels := map[string]string{"team": "search"}
	s := types.NewJSONSchema(
		types.WithSchema(types.SchemaBody{"object": {"required": required}}),
		types.WithExtraField("x-labels", labels),
		types.WithExtraField("x-body", types.SchemaBody{"a": {"type": "string"}}),
	)
	before := s.String()

	required[0] = "changed"
	labels["team"] = "changed"
	body, _ := s.Schema().Get()
	if list, ok := body["object"]["required"].([]any); ok {
		list[0] = "via accessor"
	}
	x, _ := s.ExtraField("x-body")
	x.(map[string]any)["a"].(map[string]any)["type"] = "via accessor"

	assert.Equal(t, before, s.String())
	assert.Equal(t, `{"schema":{"object":{"required":["answer"]}},"x-body":{"a":{"type":"string"}},"x-labels":{"team":"search"}}`, s.String())

	// typed values are held in their decoded form
	body, _ = s.Schema().Get()
	assert.Equal(t, []any{"answer"}, body["object"]["required"])
}

func TestJSONSchema_OmittedVersusNull(t *testing.T) {
	absent, err := json.Marshal(types.NewJSONSchema())
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(absent))

	null, err := json.Marshal(types.NewJSONSchema(types.WithNullName()))
	require.NoError(t, err)
	assert.Equal(t, `{"name":null}`, string(null))

	s, err := types.ParseJSONSchema(context.Background(), []byte(`{"name":null,"schema":null}`))
	require.NoError(t, err)
	assert.True(t, s.Name().IsNull())
	assert.True(t, s.Schema().IsNull())
	assert.False(t, s.Strict().IsPresent())
	assert.False(t, s.Equal(types.NewJSONSchema()))
	assert.True(t, s.Equal(types.NewJSONSchema(types.WithNullSchema(), types.WithNullName())))
}

func TestJSONSchema_ValidationErrors(t *testing.T) {
	cases := []struct {
		name  string
		input string
		paths []string
	}{
		{"strict not boolean", `{"strict":"yes"}`, []string{"/strict"}},
		{"name not string", `{"name":5}`, []string{"/name"}},
		{"schema not object", `{"schema":"object"}`, []string{"/schema"}},
		{"schema entry not object", `{"schema":{"type":"object","properties":{}}}`, []string{"/schema/type"}},
		{"root not object", `["name"]`, []string{"/"}},
		{"issues in key order", `{"strict":1,"name":false,"schema":[]}`, []string{"/name", "/schema", "/strict"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := types.ParseJSONSchema(context.Background(), []byte(tc.input))
			require.Error(t, err)
			iss, ok := apimodel.AsIssues(err)
			require.True(t, ok, "expected Issues, got %T", err)
			var paths []string
			for _, it := range iss {
				assert.Equal(t, apimodel.CodeInvalidType, it.Code)
				paths = append(paths, it.Path)
			}
			assert.Equal(t, tc.paths, paths)
		})
	}
}

func TestJSONSchema_FailedDecodeIsAtomic(t *testing.T) {
	s := types.NewJSONSchema(types.WithName("keep"))
	err := json.Unmarshal([]byte(`{"name":"replaced","strict":"nope"}`), &s)
	require.Error(t, err)
	assert.Equal(t, "keep", s.Name().OrElse(""))
}

func TestJSONSchema_FailFastStopsAtFirstIssue(t *testing.T) {
	_, err := types.ParseJSONSchema(context.Background(), []byte(`{"strict":1,"name":false}`), apimodel.ParseOpt{FailFast: true})
	iss, ok := apimodel.AsIssues(err)
	require.True(t, ok)
	require.Len(t, iss, 1)
	assert.Equal(t, "/name", iss[0].Path)
}

func TestJSONSchemaParser_UnknownPolicies(t *testing.T) {
	ctx := context.Background()
	in := []byte(`{"name":"a","zzz":1,"yyy":{"nested":true}}`)

	_, err := apimodel.ParseFrom(ctx, types.JSONSchemaParser(apimodel.UnknownStrict), apimodel.JSONBytes(in))
	iss, ok := apimodel.AsIssues(err)
	require.True(t, ok)
	assert.Equal(t, []string{apimodel.CodeUnknownKey, apimodel.CodeUnknownKey}, iss.Codes())
	assert.Equal(t, "/yyy", iss[0].Path)
	assert.Equal(t, "/zzz", iss[1].Path)

	stripped, err := apimodel.ParseFrom(ctx, types.JSONSchemaParser(apimodel.UnknownStrip), apimodel.JSONBytes(in))
	require.NoError(t, err)
	assert.Nil(t, stripped.Extra())
	assert.Equal(t, "a", stripped.Name().OrElse(""))

	kept, err := apimodel.ParseFrom(ctx, types.JSONSchemaParser(apimodel.UnknownPassthrough), apimodel.JSONBytes(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"yyy", "zzz"}, kept.ExtraKeys())
}

func TestJSONSchemaParser_PresenceMeta(t *testing.T) {
	in := []byte(`{"name":null,"schema":{"a/b":{"type":"string"}},"x":[1]}`)
	dm, err := apimodel.ParseFromWithMeta(context.Background(), types.JSONSchemaParser(apimodel.UnknownPassthrough), apimodel.JSONBytes(in))
	require.NoError(t, err)

	pm := dm.Presence
	assert.True(t, pm.Seen("/"))
	assert.True(t, pm.WasNull("/name"))
	assert.True(t, pm.Seen("/schema/a~1b/type"))
	assert.True(t, pm.Seen("/x/0"))
	assert.False(t, pm.Seen("/strict"))
	assert.True(t, dm.Value.Name().IsNull())
}

func TestJSONSchemaParser_PresenceExclude(t *testing.T) {
	in := []byte(`{"name":"n","schema":{"a":{}}}`)
	dm, err := apimodel.ParseFromWithMeta(context.Background(), types.JSONSchemaParser(apimodel.UnknownPassthrough), apimodel.JSONBytes(in),
		apimodel.ParseOpt{Presence: apimodel.PresenceOpt{Collect: true, Exclude: []string{"/schema"}}})
	require.NoError(t, err)
	assert.True(t, dm.Presence.Seen("/name"))
	assert.False(t, dm.Presence.Seen("/schema"))
	assert.False(t, dm.Presence.Seen("/schema/a"))
}

func TestJSONSchemaParser_GoValues(t *testing.T) {
	// Parse also accepts Go-built trees, including the typed schema body.
	s, err := types.JSONSchemaParser(apimodel.UnknownPassthrough).Parse(context.Background(), map[string]any{
		"strict": false,
		"schema": types.SchemaBody{"properties": {"n": 1}},
	})
	require.NoError(t, err)
	assert.False(t, s.Strict().OrElse(true))
	assert.True(t, apimodel.Is(context.Background(), types.JSONSchemaParser(apimodel.UnknownStrict), s.ToMap()))
}

func TestJSONSchemaParser_DescribesWireShape(t *testing.T) {
	d, err := types.JSONSchemaParser(apimodel.UnknownStrict).JSONSchema()
	require.NoError(t, err)
	assert.Equal(t, "object", d.Type)
	assert.Equal(t, false, d.AdditionalProperties)
	require.Contains(t, d.Properties, "schema")
	assert.Equal(t, []string{"boolean", "null"}, d.Properties["strict"].Type)

	d, err = types.JSONSchemaParser(apimodel.UnknownPassthrough).JSONSchema()
	require.NoError(t, err)
	assert.Equal(t, true, d.AdditionalProperties)
}

func TestJSONSchema_DuplicateKeys(t *testing.T) {
	ctx := context.Background()
	in := []byte(`{"name":"a","name":"b"}`)

	s, err := types.ParseJSONSchema(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "b", s.Name().OrElse(""), "last occurrence wins when duplicates are ignored")

	var warned []apimodel.Issue
	_, err = types.ParseJSONSchema(ctx, in, apimodel.ParseOpt{
		Strictness: apimodel.Strictness{OnDuplicateKey: apimodel.Warn},
		Warnings:   func(it apimodel.Issue) { warned = append(warned, it) },
	})
	require.NoError(t, err)
	require.Len(t, warned, 1)
	assert.Equal(t, "/name", warned[0].Path)

	_, err = types.ParseJSONSchema(ctx, in, apimodel.ParseOpt{Strictness: apimodel.Strictness{OnDuplicateKey: apimodel.Error}})
	iss, ok := apimodel.AsIssues(err)
	require.True(t, ok)
	assert.Equal(t, apimodel.CodeDuplicateKey, iss[0].Code)
	assert.Equal(t, "/name", iss[0].Path)
}

func TestJSONSchema_SizeAndDepthLimits(t *testing.T) {
	ctx := context.Background()
	in := `{"schema":{"properties":{"nested":{"deeper":true}}}}`

	_, err := types.ParseJSONSchema(ctx, []byte(in), apimodel.ParseOpt{MaxBytes: 8})
	iss, ok := apimodel.AsIssues(err)
	require.True(t, ok)
	assert.Equal(t, apimodel.CodeTruncated, iss[0].Code)

	_, err = types.DecodeJSONSchema(ctx, strings.NewReader(in), apimodel.ParseOpt{MaxBytes: 8})
	iss, ok = apimodel.AsIssues(err)
	require.True(t, ok)
	assert.Equal(t, apimodel.CodeTruncated, iss[0].Code)

	_, err = types.ParseJSONSchema(ctx, []byte(in), apimodel.ParseOpt{MaxDepth: 3})
	iss, ok = apimodel.AsIssues(err)
	require.True(t, ok)
	assert.Equal(t, apimodel.CodeParseError, iss[0].Code)
	assert.Equal(t, "/schema/properties/nested", iss[0].Path)

	s, err := types.DecodeJSONSchema(ctx, strings.NewReader(in), apimodel.ParseOpt{MaxDepth: 4})
	require.NoError(t, err)
	assert.True(t, s.Schema().IsSet())
}

func TestJSONSchema_MalformedJSON(t *testing.T) {
	for _, in := range []string{`{"name":`, `{"name":"a"} {"name":"b"}`, ``} {
		_, err := types.ParseJSONSchema(context.Background(), []byte(in))
		iss, ok := apimodel.AsIssues(err)
		require.True(t, ok, "input %q: expected Issues, got %v", in, err)
		assert.Equal(t, apimodel.CodeParseError, iss[0].Code, "input %q", in)
	}
}

func TestJSONSchema_EqualComparesValues(t *testing.T) {
	a := types.NewJSONSchema(types.WithExtraField("n", 1), types.WithExtraField("m", map[string]any{"b": 2, "a": 1}))
	b, err := types.ParseJSONSchema(context.Background(), []byte(`{"m":{"a":1,"b":2},"n":1}`))
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
	assert.True(t, b.Equal(a))

	// extras never shadow known fields
	c := types.NewJSONSchema(types.WithExtraField("name", "shadow"))
	assert.True(t, c.Equal(types.NewJSONSchema()))

	// number literals are compared as written
	one, err := types.ParseJSONSchema(context.Background(), []byte(`{"x":1}`))
	require.NoError(t, err)
	oneDotZero, err := types.ParseJSONSchema(context.Background(), []byte(`{"x":1.0}`))
	require.NoError(t, err)
	assert.False(t, one.Equal(oneDotZero))
}

func TestJSONSchema_EmbeddedInRequest(t *testing.T) {
	type responseFormat struct {
		Type       string            `json:"type" yaml:"type"`
		JSONSchema *types.JSONSchema `json:"json_schema,omitempty" yaml:"json_schema,omitempty"`
	}
	in := `{"json_schema":{"name":"answer","strict":true,"x-new":"field"},"type":"json_schema"}`

	var rf responseFormat
	require.NoError(t, json.Unmarshal([]byte(in), &rf))
	require.NotNil(t, rf.JSONSchema)
	assert.Equal(t, "answer", rf.JSONSchema.Name().OrElse(""))

	out, err := json.Marshal(rf)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))

	y, err := yaml.Marshal(rf)
	require.NoError(t, err)
	var back responseFormat
	require.NoError(t, yaml.Unmarshal(y, &back))
	require.NotNil(t, back.JSONSchema)
	assert.True(t, rf.JSONSchema.Equal(*back.JSONSchema))
}

func TestJSONSchema_NullLeavesValueUnchanged(t *testing.T) {
	var holder struct {
		F types.JSONSchema `json:"F"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"F":null}`), &holder))
	assert.True(t, holder.F.Equal(types.NewJSONSchema()))

	s := types.NewJSONSchema(types.WithName("kept"))
	require.NoError(t, s.UnmarshalJSON([]byte(" null\n")))
	assert.Equal(t, "kept", s.Name().OrElse(""))

	require.NoError(t, s.UnmarshalYAML(&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}))
	assert.Equal(t, "kept", s.Name().OrElse(""))

	// a null document is still not a JSONSchema
	_, err := types.ParseJSONSchema(context.Background(), []byte(`null`))
	require.Error(t, err)
}

func TestJSONSchema_YAML(t *testing.T) {
	doc := []byte(`
name: answer
strict: true
schema:
  properties:
    type: object
    minProperties: 1
  required:
    answer: true
x-note: "kept"
`)
	s, err := types.ParseJSONSchemaYAML(context.Background(), doc)
	require.NoError(t, err)

	fromJSON, err := types.ParseJSONSchema(context.Background(),
		[]byte(`{"name":"answer","strict":true,"schema":{"properties":{"type":"object","minProperties":1},"required":{"answer":true}},"x-note":"kept"}`))
	require.NoError(t, err)
	assert.True(t, s.Equal(fromJSON), "yaml=%s json=%s", s, fromJSON)

	out, err := yaml.Marshal(types.NewJSONSchema(types.WithStrict(true)))
	require.NoError(t, err)
	assert.Equal(t, "strict: true\n", string(out))

	out, err = yaml.Marshal(s)
	require.NoError(t, err)
	var back types.JSONSchema
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.True(t, s.Equal(back))
}

func TestJSONSchema_YAMLKeepsNumberLiterals(t *testing.T) {
	s, err := types.ParseJSONSchema(context.Background(), []byte(`{"x-n":1.50,"x-big":12345678901234567890,"schema":{"a":{"maximum":-3}}}`))
	require.NoError(t, err)
	out, err := yaml.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, "schema:\n    a:\n        maximum: -3\nx-big: 12345678901234567890\nx-n: 1.50\n", string(out))
}

func TestJSONSchema_YAMLValidation(t *testing.T) {
	_, err := types.ParseJSONSchemaYAML(context.Background(), []byte("strict: \"true\"\n"))
	iss, ok := apimodel.AsIssues(err)
	require.True(t, ok)
	assert.Equal(t, "/strict", iss[0].Path)

	_, err = types.ParseJSONSchemaYAML(context.Background(), []byte("name: a\nname: b\n"),
		apimodel.ParseOpt{Strictness: apimodel.Strictness{OnDuplicateKey: apimodel.Error}})
	iss, ok = apimodel.AsIssues(err)
	require.True(t, ok)
	assert.Equal(t, apimodel.CodeDuplicateKey, iss[0].Code)
}

func TestJSONSchema_ToMap(t *testing.T) {
	s := types.NewJSONSchema(types.WithName("n"), types.WithSchema(types.SchemaBody{"p": {"k": "v"}}))
	m := s.ToMap()
	want := map[string]any{"name": "n", "schema": map[string]any{"p": map[string]any{"k": "v"}}}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Fatalf("ToMap mismatch (-want +got):\n%s", diff)
	}
	m["schema"].(map[string]any)["p"].(map[string]any)["k"] = "changed"
	body, _ := s.Schema().Get()
	assert.Equal(t, "v", body["p"]["k"])
}
