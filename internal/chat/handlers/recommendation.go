package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shoptalk-core/server/internal/chat/model"
)

// ===================================
// Recommendation handler (recommendation)
// ===================================

// RecommendRequest combines the active focus with profile preference tags.
type RecommendRequest struct {
	ProductType    string
	Brand          string
	MaxPrice       float64
	PreferenceTags []string
	MaxResults     int
}

// Recommender is the suggestion capability, backed by a recommendation service
// in a real deployment.
type Recommender interface {
	Recommend(ctx context.Context, req RecommendRequest) ([]Product, error)
}

type RecommendationHandler struct {
	recommender Recommender
}

func NewRecommendationHandler(r Recommender) *RecommendationHandler {
	return &RecommendationHandler{recommender: r}
}

func (h *RecommendationHandler) Handle(ctx context.Context, message string, focus model.FocusState, profile *model.CustomerProfile) (*model.HandlerResult, error) {
	req := RecommendRequest{
		ProductType: focus.Filters["product_type"],
		Brand:       focus.Filters["brand"],
		MaxResults:  3,
	}
	if raw, ok := focus.Filters["max_price"]; ok {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			req.MaxPrice = v
		}
	}
	if profile != nil {
		req.PreferenceTags = profile.PreferenceTags
	}

	picks, err := h.recommender.Recommend(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("recommend: %w", err)
	}
	if len(picks) == 0 {
		return &model.HandlerResult{
			Reply: "I don't have a good suggestion yet. Tell me a bit more about what you're looking for, like a category or budget.",
		}, nil
	}

	var b strings.Builder
	b.WriteString("Here's what I'd suggest:\n")
	for i, p := range picks {
		b.WriteString(fmt.Sprintf("%d. %s - $%.2f (rated %.1f)\n", i+1, p.Name, p.Price, p.Rating))
	}
	b.WriteString("Want more details on any of these?")

	return &model.HandlerResult{
		Reply:       strings.TrimRight(b.String(), "\n"),
		SlotUpdates: map[string]string{"last_product_id": picks[0].ID},
	}, nil
}

// ===================================
// Mock recommender
// ===================================

// MockRecommender suggests from the mock catalog, preferring the focused
// product type, then the customer's preference tags, ordered by rating.
type MockRecommender struct{}

func NewMockRecommender() *MockRecommender {
	return &MockRecommender{}
}

func (m *MockRecommender) Recommend(ctx context.Context, req RecommendRequest) ([]Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	max := req.MaxResults
	if max <= 0 {
		max = 3
	}

	scored := make([]Product, 0, len(MockProducts))
	for _, p := range MockProducts {
		if !p.InStock {
			continue
		}
		if req.MaxPrice > 0 && p.Price > req.MaxPrice {
			continue
		}
		if req.ProductType != "" && !strings.EqualFold(p.ProductType, req.ProductType) {
			continue
		}
		if req.ProductType == "" && len(req.PreferenceTags) > 0 && !tagMatch(p, req.PreferenceTags) {
			continue
		}
		scored = append(scored, p)
	}

	// highest rated first
	for i := 0; i < len(scored); i++ {
		for j := i + 1; j < len(scored); j++ {
			if scored[j].Rating > scored[i].Rating {
				scored[i], scored[j] = scored[j], scored[i]
			}
		}
	}
	if len(scored) > max {
		scored = scored[:max]
	}
	return scored, nil
}

func tagMatch(p Product, tags []string) bool {
	for _, t := range tags {
		if strings.EqualFold(p.Category, t) || strings.Contains(strings.ToLower(p.ProductType), strings.ToLower(t)) {
			return true
		}
	}
	return false
}

var _ Recommender = (*MockRecommender)(nil)
