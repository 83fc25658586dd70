package generation

import (
	"fmt"
	"strings"
)

// FieldType enumerates the JSON types a schema field may declare.
type FieldType string

const (
	FieldString      FieldType = "string"
	FieldNumber      FieldType = "number"
	FieldInteger     FieldType = "integer"
	FieldBoolean     FieldType = "boolean"
	FieldStringArray FieldType = "string_array"
	FieldObject      FieldType = "object"
	FieldObjectArray FieldType = "object_array"
)

// Field declares one property of a structured output schema.
type Field struct {
	Name        string
	Type        FieldType
	Description string
	// Enum restricts a string field to a fixed set of values.
	Enum []string
	// Fields describes the nested object for object and object_array types.
	Fields   []Field
	Required bool
}

// Schema is a backend-neutral declaration of a structured output contract.
// Backends with native schema-constrained modes translate it; others embed
// the textual hint in the prompt.
type Schema struct {
	Name        string
	Description string
	Fields      []Field
}

// RequiredFields returns the names of top-level required fields.
func (s *Schema) RequiredFields() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// Hint renders a compact textual description of the schema suitable for
// embedding in a prompt when the backend has no native schema mode.
func (s *Schema) Hint() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Object %q with fields:\n", s.Name)
	writeFieldHints(&b, s.Fields, 1)
	return b.String()
}

func writeFieldHints(b *strings.Builder, fields []Field, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, f := range fields {
		fmt.Fprintf(b, "%s- %s (%s", indent, f.Name, hintType(f.Type))
		if f.Required {
			b.WriteString(", required")
		}
		if len(f.Enum) > 0 {
			fmt.Fprintf(b, ", one of %s", strings.Join(f.Enum, "|"))
		}
		b.WriteString(")")
		if f.Description != "" {
			fmt.Fprintf(b, ": %s", f.Description)
		}
		b.WriteString("\n")
		if len(f.Fields) > 0 {
			writeFieldHints(b, f.Fields, depth+1)
		}
	}
}

func hintType(t FieldType) string {
	switch t {
	case FieldStringArray:
		return "array of strings"
	case FieldObjectArray:
		return "array of objects"
	default:
		return string(t)
	}
}
