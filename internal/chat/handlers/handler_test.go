package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoptalk-core/server/internal/chat/model"
	"github.com/shoptalk-core/server/internal/chat/repo"
)

func mockDeps() Deps {
	profiles := repo.NewStaticProfileSource()
	return Deps{
		Catalog:     NewMockCatalog(),
		Orders:      NewMockOrderBook(),
		Recommender: NewMockRecommender(),
		Ticketing:   NewMockTicketing(profiles),
		Cart:        NewMockCartService(),
		Responder:   NewStaticResponder("ShopTalk"),
	}
}

func newTestDispatcher(t *testing.T, deps Deps) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(model.HandlerConfig{Timeout: "2s"}, deps)
	require.NoError(t, err)
	return d
}

func goldProfile() *model.CustomerProfile {
	return &model.CustomerProfile{
		CustomerID:     "CUST-12345",
		Name:           "John Doe",
		LoyaltyTier:    "gold",
		PreferenceTags: []string{"electronics", "audio"},
		RecentOrderIDs: []string{"ORD-12345", "ORD-12344"},
	}
}

func TestNewDispatcherCoversEveryIntent(t *testing.T) {
	d := newTestDispatcher(t, mockDeps())

	for _, it := range model.AllIntents {
		assert.NotNil(t, d.HandlerFor(it), "intent %s has no handler", it)
	}
}

func TestNewDispatcherRejectsBadTimeout(t *testing.T) {
	_, err := NewDispatcher(model.HandlerConfig{Timeout: "whenever"}, mockDeps())
	assert.Error(t, err)
}

func TestDispatchUnknownIntentErrors(t *testing.T) {
	d := newTestDispatcher(t, mockDeps())

	_, err := d.Dispatch(context.Background(), model.Intent("escalate"), "hi", model.NewFocusState(), nil)
	assert.Error(t, err)
}

// brokenCatalog simulates a product index outage.
type brokenCatalog struct{}

func (brokenCatalog) Search(ctx context.Context, q CatalogQuery) ([]Product, error) {
	return nil, errors.New("index unavailable")
}

func TestDispatchAbsorbsHandlerFailureIntoApology(t *testing.T) {
	deps := mockDeps()
	deps.Catalog = brokenCatalog{}
	d := newTestDispatcher(t, deps)

	res, err := d.Dispatch(context.Background(), model.IntentProductQuery, "show me shoes", model.NewFocusState(), nil)
	require.NoError(t, err, "handler failure must not surface as an error")
	require.NotNil(t, res)
	assert.Equal(t, ApologyReply, res.Reply)
	assert.True(t, res.Degraded)
	assert.Empty(t, res.SlotUpdates, "a failed handler leaves no slot updates behind")
}

func TestProductHandlerSearchesByFocus(t *testing.T) {
	d := newTestDispatcher(t, mockDeps())

	focus := model.NewFocusState()
	focus.Topic = model.TopicProduct
	focus.Filters["brand"] = "Nike"
	focus.Filters["product_type"] = "running_shoes"
	focus.Filters["size"] = "10"
	focus.Filters["max_price"] = "150"

	res, err := d.Dispatch(context.Background(), model.IntentProductQuery, "under $150 please", focus, nil)
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "Nike Air Max 270")
	assert.Contains(t, res.Reply, "Nike Pegasus 41")
	assert.NotContains(t, res.Reply, "Adidas", "brand filter excludes other brands")
	assert.Equal(t, "PROD-001", res.SlotUpdates["last_product_id"])
	assert.False(t, res.Degraded)
}

func TestProductHandlerNoMatches(t *testing.T) {
	d := newTestDispatcher(t, mockDeps())

	focus := model.NewFocusState()
	focus.Filters["brand"] = "Nike"
	focus.Filters["max_price"] = "20"

	res, err := d.Dispatch(context.Background(), model.IntentProductQuery, "anything cheap?", focus, nil)
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "couldn't find anything")
	assert.Empty(t, res.SlotUpdates)
}

func TestOrderHandlerUsesFocusOrderID(t *testing.T) {
	d := newTestDispatcher(t, mockDeps())

	focus := model.NewFocusState()
	focus.Filters["order_id"] = "12345"

	res, err := d.Dispatch(context.Background(), model.IntentOrderStatus, "where is it?", focus, nil)
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "Order 12345")
	assert.Contains(t, res.Reply, "FedEx")
	assert.Equal(t, "12345", res.SlotUpdates["order_id"])
}

func TestOrderHandlerFallsBackToRecentOrder(t *testing.T) {
	d := newTestDispatcher(t, mockDeps())

	res, err := d.Dispatch(context.Background(), model.IntentOrderStatus, "track my order", model.NewFocusState(), goldProfile())
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "Order ORD-12345")
}

func TestOrderHandlerAsksForOrderID(t *testing.T) {
	d := newTestDispatcher(t, mockDeps())

	res, err := d.Dispatch(context.Background(), model.IntentOrderStatus, "track my order", model.NewFocusState(), nil)
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "order number")
	assert.Empty(t, res.SlotUpdates)
}

func TestCheckoutHandlerAppliesCoupon(t *testing.T) {
	d := newTestDispatcher(t, mockDeps())

	focus := model.NewFocusState()
	focus.Filters["coupon_code"] = "SAVE10"

	res, err := d.Dispatch(context.Background(), model.IntentCartHelp, "apply my coupon", focus, goldProfile())
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "SAVE10 applied")
}

func TestCheckoutHandlerEmptyCart(t *testing.T) {
	d := newTestDispatcher(t, mockDeps())

	res, err := d.Dispatch(context.Background(), model.IntentCartHelp, "what's in my cart?", model.NewFocusState(), nil)
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "cart is empty")
}

func TestGeneralHandlerStaticResponder(t *testing.T) {
	d := newTestDispatcher(t, mockDeps())

	res, err := d.Dispatch(context.Background(), model.IntentGeneralInquiry, "what can you do?", model.NewFocusState(), goldProfile())
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "John Doe")
	assert.Contains(t, res.Reply, "ShopTalk")
	assert.False(t, res.Degraded)
}
