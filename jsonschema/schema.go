package jsonschema

// Schema is a minimal JSON Schema representation used to describe wire shapes.
type Schema struct {
	Type        any    `json:"type,omitempty" yaml:"type,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Object
	Properties           map[string]*Schema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required             []string           `json:"required,omitempty" yaml:"required,omitempty"`
	AdditionalProperties any                `json:"additionalProperties,omitempty" yaml:"additionalProperties,omitempty"`

	// Array
	Items *Schema `json:"items,omitempty" yaml:"items,omitempty"`
}

// Nullable returns the type list form ["<typ>", "null"].
func Nullable(typ string) []string { return []string{typ, "null"} }
