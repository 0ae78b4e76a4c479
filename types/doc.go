// Package types holds the REST API model types. Each type is an immutable
// value: fields are read through accessors that return copies, and updates go
// through With, which returns a new value.
//
// Unknown wire fields are retained by default and written back on encode, so
// a client built against an older API definition round-trips newer payloads
// without loss.
package types
