package classifier

import (
	"context"
	"regexp"
	"strings"

	"github.com/shoptalk-core/server/internal/chat/model"
)

// RulesClassifier is a deterministic keyword classifier. It backs tests and
// offline development, and can serve as a last-resort provider when no LLM is
// configured. No external calls, no failure modes.
type RulesClassifier struct{}

func NewRulesClassifier() *RulesClassifier {
	return &RulesClassifier{}
}

// Keyword tables per intent, checked in order: the first table with a hit
// wins. Order matters; "return my order" must resolve to return_request, not
// order_status.
var intentKeywords = []struct {
	intent      model.Intent
	topicSwitch bool
	words       []string
}{
	{model.IntentReturnRequest, true, []string{"return", "refund", "exchange", "broken", "damaged", "wrong item"}},
	{model.IntentOrderStatus, true, []string{"track", "order", "where is", "delivery", "shipping", "arrived"}},
	{model.IntentCartHelp, true, []string{"cart", "checkout", "pay", "coupon", "discount", "promo"}},
	{model.IntentRecommendation, false, []string{"recommend", "suggest", "similar", "like this", "alternative"}},
	{model.IntentProductQuery, false, []string{"show me", "have", "stock", "available", "price", "specs", "feature", "size", "color", "under"}},
}

var (
	orderIDPattern  = regexp.MustCompile(`#(\d+)`)
	sizePattern     = regexp.MustCompile(`(?i)\bsize\s+(\w+)`)
	maxPricePattern = regexp.MustCompile(`(?i)\b(?:under|below|less than|max)\s*\$?(\d+)`)
	couponPattern   = regexp.MustCompile(`(?i)\b(?:coupon|promo|code)\s+([A-Z0-9]{4,})`)
)

var knownBrands = []string{"nike", "adidas", "apple", "samsung", "sony", "dell", "lenovo", "asus"}

var knownColors = []string{"red", "blue", "green", "black", "white", "pink", "gold", "silver"}

// productTypePhrases maps customer phrasing to normalized product_type values.
// Longer phrases first so "running shoes" beats "shoes".
var productTypePhrases = []struct{ phrase, value string }{
	{"running shoes", "running_shoes"},
	{"sneakers", "running_shoes"},
	{"shoes", "shoes"},
	{"laptop", "laptop"},
	{"notebook", "laptop"},
	{"phone", "phone"},
	{"smartphone", "phone"},
	{"headphones", "headphones"},
	{"earbuds", "headphones"},
	{"watch", "watch"},
}

func (r *RulesClassifier) Classify(ctx context.Context, message, contextSnapshot string) (*model.Classification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lower := strings.ToLower(message)

	cls := &model.Classification{
		Slots:    extractSlots(message, lower),
		Metadata: map[string]any{"provider": "rules"},
	}

	matched := false
	for _, tbl := range intentKeywords {
		for _, w := range tbl.words {
			if strings.Contains(lower, w) {
				cls.Candidates = append(cls.Candidates, model.IntentScore{Intent: tbl.intent, Confidence: 0.85})
				cls.TopicSwitch = tbl.topicSwitch
				matched = true
				break
			}
		}
		if matched {
			break
		}
	}
	if !matched {
		// Mentioning a known product type is a product query even without a
		// query keyword.
		if _, ok := cls.Slots["product_type"]; ok {
			cls.Candidates = append(cls.Candidates, model.IntentScore{Intent: model.IntentProductQuery, Confidence: 0.7})
		} else {
			cls.Candidates = append(cls.Candidates, model.IntentScore{Intent: model.IntentGeneralInquiry, Confidence: 0.6})
		}
	}
	cls.Candidates = append(cls.Candidates, model.IntentScore{Intent: model.IntentGeneralInquiry, Confidence: 0.2})

	return cls, nil
}

func extractSlots(message, lower string) map[string]string {
	slots := map[string]string{}

	if m := orderIDPattern.FindStringSubmatch(message); m != nil {
		slots["order_id"] = m[1]
	}
	if m := sizePattern.FindStringSubmatch(message); m != nil {
		slots["size"] = strings.ToLower(m[1])
	}
	if m := maxPricePattern.FindStringSubmatch(message); m != nil {
		slots["max_price"] = m[1]
	}
	if m := couponPattern.FindStringSubmatch(message); m != nil {
		slots["coupon_code"] = m[1]
	}
	for _, b := range knownBrands {
		if strings.Contains(lower, b) {
			slots["brand"] = strings.ToUpper(b[:1]) + b[1:]
			break
		}
	}
	for _, c := range knownColors {
		if strings.Contains(lower, c) {
			slots["color"] = c
			break
		}
	}
	for _, pt := range productTypePhrases {
		if strings.Contains(lower, pt.phrase) {
			slots["product_type"] = pt.value
			break
		}
	}

	return slots
}

var _ Classifier = (*RulesClassifier)(nil)
