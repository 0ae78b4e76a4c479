package apimodel

// UnknownPolicy controls how unknown keys are handled. The zero value keeps them.
type UnknownPolicy int

const (
	UnknownPassthrough UnknownPolicy = iota // Preserve unknown keys alongside the known fields.
	UnknownStrip                            // Drop unknown keys.
	UnknownStrict                           // Reject unknown keys with an error.
)

// String returns the flag spelling of the policy.
func (p UnknownPolicy) String() string {
	switch p {
	case UnknownStrip:
		return "strip"
	case UnknownStrict:
		return "strict"
	default:
		return "passthrough"
	}
}

// ParseUnknownPolicy maps "passthrough", "strip" or "strict" to an UnknownPolicy.
func ParseUnknownPolicy(s string) (UnknownPolicy, bool) {
	switch s {
	case "", "passthrough", "allow":
		return UnknownPassthrough, true
	case "strip", "ignore":
		return UnknownStrip, true
	case "strict", "forbid":
		return UnknownStrict, true
	}
	return UnknownPassthrough, false
}

// NumberMode dictates how numbers are interpreted.
type NumberMode int

const (
	NumberJSONNumber NumberMode = iota // Preserve the literal as json.Number.
	NumberFloat64                      // Fast mode (with potential precision loss).
)

// Strictness configures enforcement for duplicate keys.
type Strictness struct {
	OnDuplicateKey Severity // Warn or Error (duplicate JSON keys).
}

// Severity expresses the severity level for issues.
type Severity int

const (
	Ignore Severity = iota
	Warn
	Error
)

// ParseSeverity maps "ignore", "warn" or "error" to a Severity.
func ParseSeverity(s string) (Severity, bool) {
	switch s {
	case "", "ignore":
		return Ignore, true
	case "warn":
		return Warn, true
	case "error":
		return Error, true
	}
	return Ignore, false
}

// PresenceOpt configures presence collection for WithMeta-style parsing.
type PresenceOpt struct {
	Collect bool
	Include []string
	Exclude []string
}

// ParseOpt bundles parsing options.
type ParseOpt struct {
	Strictness Strictness
	MaxDepth   int
	MaxBytes   int64
	Presence   PresenceOpt
	FailFast   bool
	// Warnings receives non-fatal issues such as duplicate keys under Warn.
	Warnings func(Issue)
}
