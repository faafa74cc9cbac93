package classifier

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"github.com/openai/openai-go"

	"github.com/shoptalk-core/server/internal/chat/model"
	logx "github.com/shoptalk-core/server/pkg/logger"
)

// OpenAIClassifier is the alternate provider behind the same Classifier
// contract, using OpenAI Chat Completions. It expects the same delimiter-tuple
// output format as the Gemini provider.
type OpenAIClassifier struct {
	client    *openai.Client
	modelName string
	maxTokens int64
	temp      float64
}

func NewOpenAIClassifier(client *openai.Client, cfg model.ClassifierConfig) *OpenAIClassifier {
	return &OpenAIClassifier{
		client:    client,
		modelName: cfg.Model,
		maxTokens: int64(cfg.MaxTokens),
		temp:      float64(cfg.Temperature),
	}
}

func (o *OpenAIClassifier) Classify(ctx context.Context, message, contextSnapshot string) (*model.Classification, error) {
	systemPrompt, err := RenderSystemPrompt(ctx)
	if err != nil {
		return nil, err
	}
	if contextSnapshot == "" {
		contextSnapshot = "<current_message_to_analyze>\nUserMessage(" + message + ")\n</current_message_to_analyze>"
	}

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.modelName),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(contextSnapshot),
		},
		Temperature:         openai.Float(o.temp),
		MaxCompletionTokens: openai.Int(o.maxTokens),
	})
	if err != nil {
		return nil, fmt.Errorf("openai classify: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai classify: no choices returned")
	}

	logUsage(o.modelName, &schema.Message{
		ResponseMeta: &schema.ResponseMeta{
			Usage: &schema.TokenUsage{
				PromptTokens:     int(resp.Usage.PromptTokens),
				CompletionTokens: int(resp.Usage.CompletionTokens),
				TotalTokens:      int(resp.Usage.TotalTokens),
			},
		},
	})
	logx.Debug().Str("component", "classifier").Str("provider", "openai").Msg("classification received")

	return ParseClassification(resp.Choices[0].Message.Content)
}

var _ Classifier = (*OpenAIClassifier)(nil)
