package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// bedrockConverseAPI is the subset of the Bedrock client used for generation.
type bedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockBackend implements Backend using AWS Bedrock's Converse API.
// Converse has no JSON-schema constrained mode, so the client falls back to
// schema hints embedded in the prompt.
type BedrockBackend struct {
	api     bedrockConverseAPI
	modelID string
}

// NewBedrockBackend creates a Bedrock generation backend.
func NewBedrockBackend(api bedrockConverseAPI, modelID string) (*BedrockBackend, error) {
	if api == nil {
		return nil, fmt.Errorf("%w: bedrock converse client is required", ErrBackendUnavailable)
	}
	if strings.TrimSpace(modelID) == "" {
		return nil, fmt.Errorf("%w: bedrock model id is required", ErrBackendUnavailable)
	}
	return &BedrockBackend{api: api, modelID: modelID}, nil
}

// SupportsNativeSchema reports that Bedrock cannot enforce schemas itself.
func (b *BedrockBackend) SupportsNativeSchema() bool { return false }

// Generate sends one generation request through Converse.
func (b *BedrockBackend) Generate(ctx context.Context, req Request) (Response, error) {
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(b.modelID),
		Messages: []brtypes.Message{
			{
				Role: brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: req.Input},
				},
			},
		},
		InferenceConfig: &brtypes.InferenceConfiguration{
			Temperature: aws.Float32(0.0),
		},
	}
	if strings.TrimSpace(req.System) != "" {
		input.System = []brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: req.System},
		}
	}
	if req.MaxTokens > 0 {
		input.InferenceConfig.MaxTokens = aws.Int32(req.MaxTokens)
	}

	resp, err := b.api.Converse(ctx, input)
	if err != nil {
		return Response{}, fmt.Errorf("generation: bedrock converse: %w", err)
	}

	text := extractConverseText(resp)
	if text == "" {
		return Response{}, errors.New("generation: bedrock returned empty content")
	}
	return Response{Text: text}, nil
}

func extractConverseText(resp *bedrockruntime.ConverseOutput) string {
	if resp == nil || resp.Output == nil {
		return ""
	}
	output, ok := resp.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok || len(output.Value.Content) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, block := range output.Value.Content {
		if textBlock, ok := block.(*brtypes.ContentBlockMemberText); ok {
			sb.WriteString(textBlock.Value)
		}
	}
	return sb.String()
}
