package classifier

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/shoptalk-core/server/internal/chat/llm"
	"github.com/shoptalk-core/server/internal/chat/model"
	logx "github.com/shoptalk-core/server/pkg/logger"
)

// GeminiClassifier classifies messages with a Gemini chat model through eino.
type GeminiClassifier struct {
	chatModel einomodel.BaseChatModel
	modelName string
}

func NewGeminiClassifier(ctx context.Context, client *genai.Client, cfg model.ClassifierConfig) (*GeminiClassifier, error) {
	cm, err := llm.NewGeminiChatModel(ctx, client, cfg.Model, cfg.Temperature, cfg.MaxTokens)
	if err != nil {
		return nil, err
	}
	return &GeminiClassifier{chatModel: cm, modelName: cfg.Model}, nil
}

func (g *GeminiClassifier) Classify(ctx context.Context, message, contextSnapshot string) (*model.Classification, error) {
	systemPrompt, err := RenderSystemPrompt(ctx)
	if err != nil {
		return nil, err
	}
	if contextSnapshot == "" {
		contextSnapshot = "<current_message_to_analyze>\nUserMessage(" + message + ")\n</current_message_to_analyze>"
	}

	out, err := g.chatModel.Generate(ctx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(contextSnapshot),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini classify: %w", err)
	}

	logUsage(g.modelName, out)

	return ParseClassification(out.Content)
}

// logUsage records token usage and USD cost for one classifier call.
func logUsage(modelName string, out *schema.Message) {
	if out == nil || out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return
	}
	usage := out.ResponseMeta.Usage
	inC, outC, totalC := model.ComputeCost(usage, model.ResolvePricing(modelName))
	logx.Debug().
		Str("component", "classifier").
		Str("model", modelName).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Int("total_tokens", usage.TotalTokens).
		Float64("input_cost_usd", inC).
		Float64("output_cost_usd", outC).
		Float64("total_cost_usd", totalC).
		Msg("LLM usage")
}

var _ Classifier = (*GeminiClassifier)(nil)
