package generation

import (
	"context"
	"log/slog"
)

// FallbackBackend wraps a primary generation backend with a secondary
// provider. If the primary fails, the request is retried once against the
// secondary.
type FallbackBackend struct {
	primary   Backend
	secondary Backend
	logger    *slog.Logger
}

// NewFallbackBackend creates a fallback-enabled backend. If secondary is
// nil only the primary is used.
func NewFallbackBackend(primary, secondary Backend, logger *slog.Logger) *FallbackBackend {
	if primary == nil {
		panic("generation: primary backend cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackBackend{primary: primary, secondary: secondary, logger: logger}
}

func (b *FallbackBackend) SupportsNativeSchema() bool {
	return b.primary.SupportsNativeSchema()
}

// Generate tries the primary backend and retries with the secondary on error.
func (b *FallbackBackend) Generate(ctx context.Context, req Request) (Response, error) {
	resp, err := b.primary.Generate(ctx, req)
	if err == nil {
		return resp, nil
	}

	b.logger.Warn("primary generation backend failed, attempting fallback",
		"error", err.Error(),
		"fallback_available", b.secondary != nil,
	)
	if b.secondary == nil {
		return Response{}, err
	}

	// The secondary may lack the primary's native schema mode. Re-derive
	// the hint so the retried request is still schema-constrained.
	if req.Schema != nil && !b.secondary.SupportsNativeSchema() {
		req.System = req.System + "\nReturn ONLY valid JSON matching this schema:\n" + req.Schema.Hint()
		req.Schema = nil
	}

	fallbackResp, fallbackErr := b.secondary.Generate(ctx, req)
	if fallbackErr != nil {
		b.logger.Error("fallback generation backend also failed",
			"primary_error", err.Error(),
			"fallback_error", fallbackErr.Error(),
		)
		return Response{}, fallbackErr
	}

	b.logger.Info("fallback generation backend succeeded after primary failure")
	return fallbackResp, nil
}
