package apimodel

// EncodePreservingObject merges retained unknown fields with the known fields of
// a model into one wire object:
//   - Unknown fields are deep-copied first.
//   - Known fields overwrite unknown ones on key collision.
//   - Known fields that were never set must be absent from known; a nil value
//     in known is emitted as an explicit null.
//
// This function operates only on the top-level object keys.
func EncodePreservingObject(known, extra map[string]any) map[string]any {
	out := make(map[string]any, len(known)+len(extra))
	for k, v := range extra {
		out[k] = CloneValue(v)
	}
	for k, v := range known {
		out[k] = v
	}
	return out
}
