package generation

import (
	"context"
	"errors"
)

// ErrBackendUnavailable indicates the generation backend could not be
// reached or is misconfigured. This is a fatal configuration error and is
// always surfaced to the caller, unlike validation failures which degrade.
var ErrBackendUnavailable = errors.New("generation: backend unavailable")

// Request is a single outbound generation call. Value type, never shared
// between calls.
type Request struct {
	System string
	Input  string
	Model  string
	// Schema is non-nil for structured output. Backends that report native
	// schema support must constrain decoding to it; the client embeds a
	// textual hint for the rest.
	Schema    *Schema
	MaxTokens int32
}

// Response carries the raw backend text. The raw text is retained on every
// outcome for audit and repair purposes.
type Response struct {
	Text string
}

// Backend is a generative text provider.
type Backend interface {
	Generate(ctx context.Context, req Request) (Response, error)
	// SupportsNativeSchema reports whether the backend can enforce a JSON
	// schema itself. When false the client falls back to a schema hint
	// embedded in the system prompt.
	SupportsNativeSchema() bool
}
