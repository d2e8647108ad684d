// Package bedrock generates answers with the Amazon Bedrock Converse API.
package bedrock

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"penny/internal/chat"
	"penny/internal/providers"
)

const (
	ProviderID = "bedrock"

	DefaultMaxTokens   = 512
	DefaultTemperature = 0.5
	DefaultTopP        = 0.999
)

type converseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Generator implements chat.Generator with a single-turn Converse call.
type Generator struct {
	client      converseAPI
	modelID     string
	maxTokens   int32
	temperature float32
	topP        float32
}

type Option func(*Generator)

func WithMaxTokens(n int32) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxTokens = n
		}
	}
}

func WithTemperature(t float32) Option {
	return func(g *Generator) {
		g.temperature = t
	}
}

func NewGenerator(client converseAPI, modelID string, opts ...Option) *Generator {
	g := &Generator{
		client:      client,
		modelID:     modelID,
		maxTokens:   DefaultMaxTokens,
		temperature: DefaultTemperature,
		topP:        DefaultTopP,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) Generate(ctx context.Context, question string, passages []chat.Passage) (string, error) {
	prompt := chat.BuildPrompt(question, passages)
	out, err := g.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(g.modelID),
		System:  []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: prompt.System}},
		Messages: []types.Message{{
			Role:    types.ConversationRoleUser,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: prompt.User}},
		}},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(g.maxTokens),
			Temperature: aws.Float32(g.temperature),
			TopP:        aws.Float32(g.topP),
		},
	})
	if err != nil {
		return "", providers.FromAWS(ProviderID, err)
	}
	return answerText(out)
}

func answerText(out *bedrockruntime.ConverseOutput) (string, error) {
	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", providers.NewProviderError(providers.ErrorInternal, ProviderID, "response has no message", nil)
	}
	var b strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			b.WriteString(text.Value)
		}
	}
	answer := strings.TrimSpace(b.String())
	if answer == "" {
		return "", providers.NewProviderError(providers.ErrorInternal, ProviderID, "response has no text", nil)
	}
	return answer, nil
}
