// Package apimodel provides the shared plumbing behind the REST API model types:
//
// - Optional[T], a tri-state value (unset, null, set) for optional wire fields
// - A stable error model via Issues (JSON Pointer, code, message)
// - Presence metadata collected by the WithMeta parse APIs
// - Token Sources for JSON (goccy/go-json) and YAML (yaml.v3) with duplicate-key/depth/size enforcement
//
// Design policy:
// - Keep only public APIs in the root package; put token plumbing under internal/engine.
// - Model types live under types/, the CLI under cmd/apimodel.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	v, err := apimodel.ParseFrom(ctx, types.JSONSchemaParser(apimodel.UnknownPassthrough), apimodel.JSONBytes(data))
//	dm, err := apimodel.ParseFromWithMeta(ctx, parser, apimodel.YAMLBytes(doc))
package apimodel
