package classifier

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/shoptalk-core/server/internal/chat/model"
)

//go:embed template/classifier_prompt.txt
var classifierSystemPrompt string

// knownSlotKeys lists the filter keys the models are told to extract. Other
// keys still parse; this just steers extraction.
const knownSlotKeys = "product_type, brand, size, color, max_price, quantity, order_id, coupon_code, category"

// RenderSystemPrompt renders the classifier system prompt via the eino prompt
// component, which also fires prompt callbacks.
func RenderSystemPrompt(ctx context.Context) (string, error) {
	intents := make([]string, 0, len(model.AllIntents))
	for _, it := range model.AllIntents {
		intents = append(intents, it.String())
	}

	// Safely render known tokens only to avoid interfering with braces in the template
	content := strings.NewReplacer(
		"{TD}", tupDelim,
		"{RD}", recDelim,
		"{CD}", endDelim,
		"{intents}", strings.Join(intents, ", "),
		"{slot_keys}", knownSlotKeys,
	).Replace(classifierSystemPrompt)

	tpl := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("system_messages", false),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"system_messages": []*schema.Message{schema.SystemMessage(content)},
	})
	if err != nil {
		return "", fmt.Errorf("classifier prompt callbacks: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("classifier prompt callbacks: empty result")
	}
	return msgs[0].Content, nil
}
