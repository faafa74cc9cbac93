package handlers

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/shoptalk-core/server/internal/chat/model"
	logx "github.com/shoptalk-core/server/pkg/logger"
)

// ===================================
// General handler (general_inquiry)
// ===================================

// Responder produces a conversational answer for messages that match no
// specialized intent. Its external system is the response language model.
type Responder interface {
	Respond(ctx context.Context, message string, profile *model.CustomerProfile) (string, error)
}

type GeneralHandler struct {
	responder Responder
}

func NewGeneralHandler(r Responder) *GeneralHandler {
	return &GeneralHandler{responder: r}
}

func (h *GeneralHandler) Handle(ctx context.Context, message string, focus model.FocusState, profile *model.CustomerProfile) (*model.HandlerResult, error) {
	reply, err := h.responder.Respond(ctx, message, profile)
	if err != nil {
		return nil, fmt.Errorf("responder: %w", err)
	}
	return &model.HandlerResult{Reply: strings.TrimSpace(reply)}, nil
}

// ===================================
// LLM responder
// ===================================

//go:embed template/response_prompt.txt
var responseSystemPrompt string

// LLMResponder answers general inquiries with a chat model.
type LLMResponder struct {
	chatModel einomodel.BaseChatModel
	modelName string
	prompt    model.PromptConfig
}

func NewLLMResponder(cm einomodel.BaseChatModel, modelName string, promptCfg model.PromptConfig) *LLMResponder {
	return &LLMResponder{chatModel: cm, modelName: modelName, prompt: promptCfg}
}

func (r *LLMResponder) Respond(ctx context.Context, message string, profile *model.CustomerProfile) (string, error) {
	sys, err := r.renderSystem(ctx, profile)
	if err != nil {
		return "", err
	}

	out, err := r.chatModel.Generate(ctx, []*schema.Message{
		schema.SystemMessage(sys),
		schema.UserMessage(message),
	})
	if err != nil {
		return "", fmt.Errorf("response model: %w", err)
	}

	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		usage := out.ResponseMeta.Usage
		_, _, totalC := model.ComputeCost(usage, model.ResolvePricing(r.modelName))
		logx.Debug().
			Str("component", "responder").
			Str("model", r.modelName).
			Int("total_tokens", usage.TotalTokens).
			Float64("total_cost_usd", totalC).
			Msg("LLM usage")
	}

	return out.Content, nil
}

// renderSystem renders the response system prompt via the eino prompt
// component so prompt callbacks fire.
func (r *LLMResponder) renderSystem(ctx context.Context, profile *model.CustomerProfile) (string, error) {
	name := ""
	tier := ""
	if profile != nil {
		name = profile.Name
		tier = profile.LoyaltyTier
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(responseSystemPrompt),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"BusinessType": r.prompt.BusinessType,
		"BusinessName": r.prompt.BusinessName,
		"CustomerName": name,
		"LoyaltyTier":  tier,
	})
	if err != nil {
		return "", fmt.Errorf("response prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("response prompt render: empty result")
	}
	return msgs[0].Content, nil
}

// ===================================
// Static responder
// ===================================

// StaticResponder answers without an LLM. Used in tests and as the provider of
// last resort when no model is configured.
type StaticResponder struct {
	BusinessName string
}

func NewStaticResponder(businessName string) *StaticResponder {
	return &StaticResponder{BusinessName: businessName}
}

func (r *StaticResponder) Respond(ctx context.Context, message string, profile *model.CustomerProfile) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	greeting := "Thanks for reaching out"
	if profile != nil && profile.Name != "" {
		greeting = "Thanks for reaching out, " + profile.Name
	}
	return fmt.Sprintf("%s! I can help you find products, track orders, handle returns, or check your cart at %s. What would you like to do?",
		greeting, r.BusinessName), nil
}

var (
	_ Responder = (*LLMResponder)(nil)
	_ Responder = (*StaticResponder)(nil)
)
