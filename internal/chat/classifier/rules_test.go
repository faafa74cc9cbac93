package classifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoptalk-core/server/internal/chat/model"
)

func classifyRules(t *testing.T, message string) *model.Classification {
	t.Helper()
	cls, err := NewRulesClassifier().Classify(context.Background(), message, "")
	require.NoError(t, err)
	require.NotEmpty(t, cls.Candidates)
	return cls
}

func TestRulesClassifierIntents(t *testing.T) {
	tests := []struct {
		message string
		intent  model.Intent
	}{
		{"Show me Nike running shoes", model.IntentProductQuery},
		{"Do you have them in size 10?", model.IntentProductQuery},
		{"Only under $150 please", model.IntentProductQuery},
		{"Where is my order #12345?", model.IntentOrderStatus},
		{"I want to return my headphones, they arrived broken", model.IntentReturnRequest},
		{"Can you recommend something similar?", model.IntentRecommendation},
		{"Apply coupon SAVE10 to my cart", model.IntentCartHelp},
		{"What are your opening hours?", model.IntentGeneralInquiry},
	}

	for _, tt := range tests {
		cls := classifyRules(t, tt.message)
		assert.Equal(t, tt.intent, cls.Ranked()[0].Intent, "message %q", tt.message)
	}
}

func TestRulesClassifierReturnBeatsOrder(t *testing.T) {
	// "return my order" mentions both; the return table is checked first
	cls := classifyRules(t, "I need to return my order")
	assert.Equal(t, model.IntentReturnRequest, cls.Ranked()[0].Intent)
	assert.True(t, cls.TopicSwitch)
}

func TestRulesClassifierSlots(t *testing.T) {
	cls := classifyRules(t, "Show me Nike running shoes in black, size 10, under $150")

	assert.Equal(t, "Nike", cls.Slots["brand"])
	assert.Equal(t, "running_shoes", cls.Slots["product_type"])
	assert.Equal(t, "10", cls.Slots["size"])
	assert.Equal(t, "150", cls.Slots["max_price"])
	assert.Equal(t, "black", cls.Slots["color"])
}

func TestRulesClassifierOrderSlot(t *testing.T) {
	cls := classifyRules(t, "Track order #98765 for me")
	assert.Equal(t, model.IntentOrderStatus, cls.Ranked()[0].Intent)
	assert.Equal(t, "98765", cls.Slots["order_id"])
	assert.True(t, cls.TopicSwitch)
}

func TestRulesClassifierCouponSlot(t *testing.T) {
	cls := classifyRules(t, "Can I use coupon SAVE10 at checkout?")
	assert.Equal(t, model.IntentCartHelp, cls.Ranked()[0].Intent)
	assert.Equal(t, "SAVE10", cls.Slots["coupon_code"])
}

func TestRulesClassifierProductTypeWithoutKeyword(t *testing.T) {
	// no query keyword, but a known product type still reads as a product query
	cls := classifyRules(t, "Any good laptop?")
	assert.Equal(t, model.IntentProductQuery, cls.Ranked()[0].Intent)
	assert.Equal(t, "laptop", cls.Slots["product_type"])
}

func TestRulesClassifierAlwaysOffersGeneralFallback(t *testing.T) {
	cls := classifyRules(t, "Show me Nike running shoes")

	found := false
	for _, c := range cls.Candidates {
		if c.Intent == model.IntentGeneralInquiry {
			found = true
		}
	}
	assert.True(t, found, "general_inquiry runner-up always present")
}

func TestRulesClassifierHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRulesClassifier().Classify(ctx, "hello", "")
	assert.ErrorIs(t, err, context.Canceled)
}
