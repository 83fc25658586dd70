package generation

// Shape selects between structured and free-text output contracts.
type Shape int

const (
	ShapeStructured Shape = iota
	ShapeText
)

// Contract pairs a system prompt with a declared output shape. Contracts are
// immutable catalog entries defined at process start.
type Contract struct {
	Name   string
	Prompt string
	Shape  Shape
	// Schema is required for structured contracts, nil for free text.
	Schema *Schema
	// FormatInput prepares the raw input text for the prompt. Nil means
	// identity.
	FormatInput func(string) string
	// NewDefault returns a pointer to a fresh default artifact with all
	// defaultable fields empty. Used for validation targets and degraded
	// outcomes.
	NewDefault func() any
}

// Validator is implemented by artifacts that carry enum or required-string
// constraints beyond what JSON decoding enforces. Validate may also
// normalize nil collections to empty ones.
type Validator interface {
	Validate() error
}

func (c Contract) formatInput(input string) string {
	if c.FormatInput == nil {
		return input
	}
	return c.FormatInput(input)
}
