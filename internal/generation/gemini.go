package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiBackend implements Backend using Google's Gemini API. Gemini has a
// native JSON-schema constrained mode, so structured requests are enforced
// server side.
type GeminiBackend struct {
	client  *genai.Client
	modelID string
}

// NewGeminiBackend creates a Gemini generation backend.
func NewGeminiBackend(ctx context.Context, apiKey, modelID string) (*GeminiBackend, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: gemini api key is required", ErrBackendUnavailable)
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("%w: create gemini client: %v", ErrBackendUnavailable, err)
	}

	return &GeminiBackend{client: client, modelID: modelID}, nil
}

// SupportsNativeSchema reports that Gemini enforces response schemas itself.
func (b *GeminiBackend) SupportsNativeSchema() bool { return true }

// Generate sends one generation request to Gemini.
func (b *GeminiBackend) Generate(ctx context.Context, req Request) (Response, error) {
	modelID := req.Model
	if strings.TrimSpace(modelID) == "" {
		modelID = b.modelID
	}
	model := b.client.GenerativeModel(modelID)

	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(req.MaxTokens)
	}
	if strings.TrimSpace(req.System) != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}
	if req.Schema != nil {
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = toGenAISchema(req.Schema)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Input))
	if err != nil {
		return Response{}, fmt.Errorf("generation: gemini completion failed: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return Response{}, errors.New("generation: gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return Response{}, errors.New("generation: gemini returned empty content")
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	return Response{Text: text.String()}, nil
}

// Close releases resources held by the Gemini client.
func (b *GeminiBackend) Close() error {
	if b.client != nil {
		return b.client.Close()
	}
	return nil
}

func toGenAISchema(s *Schema) *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeObject,
		Description: s.Description,
		Properties:  toGenAIProperties(s.Fields),
		Required:    s.RequiredFields(),
	}
}

func toGenAIProperties(fields []Field) map[string]*genai.Schema {
	props := make(map[string]*genai.Schema, len(fields))
	for _, f := range fields {
		props[f.Name] = toGenAIField(f)
	}
	return props
}

func toGenAIField(f Field) *genai.Schema {
	switch f.Type {
	case FieldString:
		return &genai.Schema{Type: genai.TypeString, Description: f.Description, Enum: f.Enum}
	case FieldNumber:
		return &genai.Schema{Type: genai.TypeNumber, Description: f.Description}
	case FieldInteger:
		return &genai.Schema{Type: genai.TypeInteger, Description: f.Description}
	case FieldBoolean:
		return &genai.Schema{Type: genai.TypeBoolean, Description: f.Description}
	case FieldStringArray:
		return &genai.Schema{
			Type:        genai.TypeArray,
			Description: f.Description,
			Items:       &genai.Schema{Type: genai.TypeString},
		}
	case FieldObject:
		return &genai.Schema{
			Type:        genai.TypeObject,
			Description: f.Description,
			Properties:  toGenAIProperties(f.Fields),
			Required:    requiredNames(f.Fields),
		}
	case FieldObjectArray:
		return &genai.Schema{
			Type:        genai.TypeArray,
			Description: f.Description,
			Items: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: toGenAIProperties(f.Fields),
				Required:   requiredNames(f.Fields),
			},
		}
	default:
		return &genai.Schema{Type: genai.TypeString, Description: f.Description}
	}
}

func requiredNames(fields []Field) []string {
	var out []string
	for _, f := range fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}
