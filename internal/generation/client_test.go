package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

type testArtifact struct {
	Level string   `json:"level"`
	Tags  []string `json:"tags"`
}

func (a *testArtifact) Validate() error {
	if a.Tags == nil {
		a.Tags = []string{}
	}
	switch a.Level {
	case "", "LOW", "HIGH":
		return nil
	default:
		return fmt.Errorf("invalid level %q", a.Level)
	}
}

var testContract = Contract{
	Name:   "test_artifact",
	Prompt: "Extract the artifact.",
	Shape:  ShapeStructured,
	Schema: &Schema{
		Name: "test_artifact",
		Fields: []Field{
			{Name: "level", Type: FieldString, Enum: []string{"LOW", "HIGH"}, Required: true},
			{Name: "tags", Type: FieldStringArray},
		},
	},
	NewDefault: func() any { return &testArtifact{Tags: []string{}} },
}

var textContract = Contract{
	Name:   "test_text",
	Prompt: "Write something short.",
	Shape:  ShapeText,
}

type fakeBackend struct {
	native    bool
	responses []string
	err       error
	requests  []Request
}

func (f *fakeBackend) Generate(_ context.Context, req Request) (Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return Response{}, f.err
	}
	if len(f.responses) == 0 {
		return Response{}, nil
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return Response{Text: resp}, nil
}

func (f *fakeBackend) SupportsNativeSchema() bool { return f.native }

func TestGenerateValidFirstTry(t *testing.T) {
	backend := &fakeBackend{native: true, responses: []string{`{"level":"HIGH","tags":["a"]}`}}
	client := NewClient(backend, "test-model", nil, nil)

	out, err := client.Generate(context.Background(), testContract, "some input")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	artifact := out.Value.(*testArtifact)
	if artifact.Level != "HIGH" || len(artifact.Tags) != 1 {
		t.Fatalf("unexpected artifact: %+v", artifact)
	}
	if out.Repaired || out.Degraded {
		t.Fatalf("clean response should not be repaired or degraded: %+v", out)
	}
	if len(backend.requests) != 1 {
		t.Fatalf("expected 1 backend call, got %d", len(backend.requests))
	}
	if backend.requests[0].Schema == nil {
		t.Fatal("native backend should receive the schema")
	}
}

func TestGenerateExtractsFencedJSON(t *testing.T) {
	backend := &fakeBackend{native: true, responses: []string{
		"Here you go:\n```json\n{\"level\":\"LOW\",\"tags\":[]}\n```",
	}}
	client := NewClient(backend, "test-model", nil, nil)

	out, err := client.Generate(context.Background(), testContract, "input")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Value.(*testArtifact).Level != "LOW" {
		t.Fatalf("expected LOW, got %+v", out.Value)
	}
}

func TestGenerateRepairSucceeds(t *testing.T) {
	backend := &fakeBackend{native: true, responses: []string{
		"not json at all",
		`{"level":"LOW","tags":[]}`,
	}}
	client := NewClient(backend, "test-model", nil, nil)

	out, err := client.Generate(context.Background(), testContract, "input")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Repaired || out.Degraded {
		t.Fatalf("expected repaired outcome, got %+v", out)
	}
	if out.Value.(*testArtifact).Level != "LOW" {
		t.Fatalf("unexpected artifact: %+v", out.Value)
	}
	if len(backend.requests) != 2 {
		t.Fatalf("expected 2 backend calls, got %d", len(backend.requests))
	}
	if backend.requests[1].System != repairPrompt {
		t.Fatalf("repair call should use the repair prompt, got %q", backend.requests[1].System)
	}
	if backend.requests[1].Input != "not json at all" {
		t.Fatal("repair call should feed back the malformed response")
	}
}

func TestGenerateDegradesToDefault(t *testing.T) {
	backend := &fakeBackend{native: true, responses: []string{"garbage", "more garbage"}}
	client := NewClient(backend, "test-model", nil, nil)

	out, err := client.Generate(context.Background(), testContract, "input")
	if err != nil {
		t.Fatalf("degradation must not be an error: %v", err)
	}
	if !out.Degraded {
		t.Fatalf("expected degraded outcome, got %+v", out)
	}
	if out.Repaired {
		t.Fatal("a failed repair must not be reported as repaired")
	}
	artifact := out.Value.(*testArtifact)
	if artifact.Level != "" || len(artifact.Tags) != 0 {
		t.Fatalf("degraded value should be the contract default, got %+v", artifact)
	}
	if len(backend.requests) != 2 {
		t.Fatalf("expected exactly one repair attempt, got %d calls", len(backend.requests))
	}
}

func TestGenerateMissingRequiredFieldTriggersRepair(t *testing.T) {
	backend := &fakeBackend{native: true, responses: []string{
		`{"tags":["a"]}`,
		`{"level":"HIGH","tags":["a"]}`,
	}}
	client := NewClient(backend, "test-model", nil, nil)

	out, err := client.Generate(context.Background(), testContract, "input")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Repaired {
		t.Fatal("missing required field should trigger a repair call")
	}
}

func TestGenerateEnumViolationDegrades(t *testing.T) {
	backend := &fakeBackend{native: true, responses: []string{
		`{"level":"BOGUS","tags":[]}`,
		`{"level":"STILL_BOGUS","tags":[]}`,
	}}
	client := NewClient(backend, "test-model", nil, nil)

	out, err := client.Generate(context.Background(), testContract, "input")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Degraded {
		t.Fatalf("enum violation on both attempts should degrade, got %+v", out)
	}
}

func TestGenerateBackendErrorIsFatal(t *testing.T) {
	backend := &fakeBackend{native: true, err: errors.New("connection refused")}
	client := NewClient(backend, "test-model", nil, nil)

	_, err := client.Generate(context.Background(), testContract, "input")
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("transport failures must wrap ErrBackendUnavailable, got %v", err)
	}
}

func TestGenerateHintModeForNonNativeBackend(t *testing.T) {
	backend := &fakeBackend{native: false, responses: []string{`{"level":"LOW","tags":[]}`}}
	client := NewClient(backend, "test-model", nil, nil)

	_, err := client.Generate(context.Background(), testContract, "input")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req := backend.requests[0]
	if req.Schema != nil {
		t.Fatal("non-native backend must not receive a schema")
	}
	if !strings.Contains(req.System, "Return ONLY valid JSON matching this schema:") {
		t.Fatalf("non-native backend should get the schema hint, got %q", req.System)
	}
	if !strings.Contains(req.System, "level") {
		t.Fatal("hint should mention schema fields")
	}
}

func TestGenerateFreeText(t *testing.T) {
	backend := &fakeBackend{native: true, responses: []string{"  a short script \n"}}
	client := NewClient(backend, "test-model", nil, nil)

	out, err := client.Generate(context.Background(), textContract, "input")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Text != "a short script" {
		t.Fatalf("free text should be trimmed, got %q", out.Text)
	}
	if out.Value != nil {
		t.Fatal("free text outcome should carry no structured value")
	}
}

func TestGenerateContractWithoutSchemaFails(t *testing.T) {
	broken := Contract{Name: "broken", Shape: ShapeStructured}
	client := NewClient(&fakeBackend{native: true}, "test-model", nil, nil)

	if _, err := client.Generate(context.Background(), broken, "input"); err == nil {
		t.Fatal("structured contract without schema should error")
	}
}

func TestWithLimitsSetsMaxTokens(t *testing.T) {
	backend := &fakeBackend{native: true, responses: []string{`{"level":"LOW","tags":[]}`}}
	client := NewClient(backend, "test-model", nil, nil).WithLimits(0, 512)

	if _, err := client.Generate(context.Background(), testContract, "input"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if backend.requests[0].MaxTokens != 512 {
		t.Fatalf("expected max tokens 512, got %d", backend.requests[0].MaxTokens)
	}
}
