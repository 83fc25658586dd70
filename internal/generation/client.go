package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/carebridge-health/carebridge-ai-platform/internal/observability/metrics"
)

const repairPrompt = "Fix to valid JSON only for the provided schema."

// phase tracks where a generation call is in its lifecycle. The state
// machine is Requested -> Validating -> (Valid | Repairing -> (Valid |
// Degraded)). Free-text contracts terminate at Requested.
type phase string

const (
	phaseRequested  phase = "requested"
	phaseValidating phase = "validating"
	phaseRepairing  phase = "repairing"
	phaseValid      phase = "valid"
	phaseDegraded   phase = "degraded"
)

// Outcome is the result of a generation call. For structured contracts
// Value holds the decoded artifact; for free text, Text holds the response.
// Raw always carries the backend's last response for audit. Repaired is set
// only when the repair call produced a valid artifact; a degraded outcome
// leaves it false.
type Outcome struct {
	Value    any
	Text     string
	Raw      string
	Repaired bool
	Degraded bool
}

// Client wraps an unreliable generation backend with schema enforcement,
// a single repair retry and graceful degradation to contract defaults.
// It keeps no state between calls.
type Client struct {
	backend   Backend
	model     string
	timeout   time.Duration
	maxTokens int32
	metrics   *metrics.GenerationMetrics
	logger    *slog.Logger
}

// NewClient creates a schema-enforcing generation client.
func NewClient(backend Backend, model string, m *metrics.GenerationMetrics, logger *slog.Logger) *Client {
	if backend == nil {
		panic("generation: backend cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{backend: backend, model: model, maxTokens: 2048, metrics: m, logger: logger}
}

// WithLimits sets the per-call timeout and output token cap. Zero values
// leave the current settings unchanged.
func (c *Client) WithLimits(timeout time.Duration, maxTokens int32) *Client {
	if timeout > 0 {
		c.timeout = timeout
	}
	if maxTokens > 0 {
		c.maxTokens = maxTokens
	}
	return c
}

// Generate runs one contract against the backend. Transport and
// configuration failures are returned as errors wrapping
// ErrBackendUnavailable. Malformed output never is: it degrades to the
// contract's default instance after one repair attempt.
func (c *Client) Generate(ctx context.Context, contract Contract, input string) (Outcome, error) {
	start := time.Now()
	out, err := c.generate(ctx, contract, input)
	c.observe(contract, out, err, time.Since(start))
	return out, err
}

func (c *Client) generate(ctx context.Context, contract Contract, input string) (Outcome, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := Request{
		System:    contract.Prompt,
		Input:     contract.formatInput(input),
		Model:     c.model,
		MaxTokens: c.maxTokens,
	}

	if contract.Shape == ShapeText {
		resp, err := c.invoke(ctx, contract, req)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Text: strings.TrimSpace(resp.Text), Raw: resp.Text}, nil
	}

	if contract.Schema == nil || contract.NewDefault == nil {
		return Outcome{}, fmt.Errorf("generation: contract %q declares no schema", contract.Name)
	}

	if c.backend.SupportsNativeSchema() {
		req.Schema = contract.Schema
	} else {
		req.System = fmt.Sprintf("%s\nReturn ONLY valid JSON matching this schema:\n%s", contract.Prompt, contract.Schema.Hint())
	}

	resp, err := c.invoke(ctx, contract, req)
	if err != nil {
		return Outcome{}, err
	}

	value, vErr := decodeArtifact(contract, resp.Text)
	if vErr == nil {
		return Outcome{Value: value, Raw: resp.Text}, nil
	}
	c.transition(contract, phaseValidating, phaseRepairing, "reason", vErr.Error())

	// Exactly one repair attempt: hand the malformed text back and ask for
	// valid JSON for this schema only.
	fixReq := Request{
		System:    repairPrompt,
		Input:     resp.Text,
		Model:     c.model,
		MaxTokens: c.maxTokens,
	}
	if c.backend.SupportsNativeSchema() {
		fixReq.Schema = contract.Schema
	} else {
		fixReq.System = fmt.Sprintf("%s\nSchema:\n%s", repairPrompt, contract.Schema.Hint())
	}

	fixResp, err := c.invoke(ctx, contract, fixReq)
	if err != nil {
		return Outcome{}, err
	}

	value, vErr = decodeArtifact(contract, fixResp.Text)
	if vErr == nil {
		return Outcome{Value: value, Raw: fixResp.Text, Repaired: true}, nil
	}

	c.transition(contract, phaseRepairing, phaseDegraded, "reason", vErr.Error())
	value = contract.NewDefault()
	if v, ok := value.(Validator); ok {
		// Normalizes nil collections on the default instance.
		_ = v.Validate()
	}
	return Outcome{Value: value, Raw: fixResp.Text, Degraded: true}, nil
}

func (c *Client) invoke(ctx context.Context, contract Contract, req Request) (Response, error) {
	resp, err := c.backend.Generate(ctx, req)
	if err != nil {
		return Response{}, fmt.Errorf("%w: contract %s: %v", ErrBackendUnavailable, contract.Name, err)
	}
	return resp, nil
}

func (c *Client) transition(contract Contract, from, to phase, args ...any) {
	fields := append([]any{"contract", contract.Name, "from", string(from), "to", string(to)}, args...)
	c.logger.Debug("generation state transition", fields...)
}

func (c *Client) observe(contract Contract, out Outcome, err error, elapsed time.Duration) {
	status := "valid"
	switch {
	case err != nil:
		status = "error"
	case out.Degraded:
		status = "degraded"
	case out.Repaired:
		status = "repaired"
	}
	c.metrics.ObserveGeneration(contract.Name, status, elapsed.Seconds())
}

// decodeArtifact parses text as the contract's declared shape: extract the
// JSON payload, decode into a fresh default instance, check required fields
// and run artifact-level validation.
func decodeArtifact(contract Contract, text string) (any, error) {
	raw := extractJSON(text)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("invalid JSON: %v", err)
	}
	for _, name := range contract.Schema.RequiredFields() {
		v, ok := fields[name]
		if !ok || string(v) == "null" {
			return nil, fmt.Errorf("missing required field %q", name)
		}
	}

	value := contract.NewDefault()
	if err := json.Unmarshal([]byte(raw), value); err != nil {
		return nil, fmt.Errorf("decode: %v", err)
	}
	if v, ok := value.(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	return value, nil
}

// extractJSON finds a JSON object or array inside a model response, which
// may be wrapped in markdown fences or prose.
func extractJSON(text string) string {
	objStart := strings.Index(text, "{")
	objEnd := strings.LastIndex(text, "}")
	if objStart != -1 && objEnd > objStart {
		return text[objStart : objEnd+1]
	}
	arrStart := strings.Index(text, "[")
	arrEnd := strings.LastIndex(text, "]")
	if arrStart != -1 && arrEnd > arrStart {
		return text[arrStart : arrEnd+1]
	}
	return ""
}
