package model

import "fmt"

// Intent is the closed set of things a customer can want from a single turn.
// Every turn resolves to exactly one Intent before dispatch.
type Intent string

const (
	IntentProductQuery   Intent = "product_query"
	IntentOrderStatus    Intent = "order_status"
	IntentRecommendation Intent = "recommendation"
	IntentReturnRequest  Intent = "return_request"
	IntentCartHelp       Intent = "cart_help"
	IntentGeneralInquiry Intent = "general_inquiry"
)

// AllIntents enumerates every Intent value. Dispatch tables and graph branches
// are built from this slice so a missing mapping fails at construction, not at
// runtime.
var AllIntents = []Intent{
	IntentProductQuery,
	IntentOrderStatus,
	IntentRecommendation,
	IntentReturnRequest,
	IntentCartHelp,
	IntentGeneralInquiry,
}

// ParseIntent validates a classifier-provided label against the closed set.
func ParseIntent(s string) (Intent, error) {
	for _, it := range AllIntents {
		if string(it) == s {
			return it, nil
		}
	}
	return "", fmt.Errorf("unknown intent %q", s)
}

func (i Intent) String() string {
	return string(i)
}

// Topic groups intents for the focus-reset rule: switching between topics
// clears accumulated focus filters.
type Topic string

const (
	TopicProduct Topic = "product"
	TopicOrder   Topic = "order"
	TopicSupport Topic = "support"
	TopicCart    Topic = "cart"
	// TopicNone marks intents that ride along with whatever topic is active.
	TopicNone Topic = ""
)

// Topic returns the conversation topic an intent belongs to. General inquiries
// have no topic of their own and never trigger a focus reset.
func (i Intent) Topic() Topic {
	switch i {
	case IntentProductQuery, IntentRecommendation:
		return TopicProduct
	case IntentOrderStatus:
		return TopicOrder
	case IntentReturnRequest:
		return TopicSupport
	case IntentCartHelp:
		return TopicCart
	default:
		return TopicNone
	}
}
