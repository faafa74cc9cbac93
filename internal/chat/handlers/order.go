package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/shoptalk-core/server/internal/chat/model"
)

// ===================================
// Order handler (order_status)
// ===================================

// OrderInfo is the tracking view of one order.
type OrderInfo struct {
	OrderID           string       `json:"order_id"`
	Status            string       `json:"status"`
	Carrier           string       `json:"carrier"`
	TrackingNumber    string       `json:"tracking_number"`
	EstimatedDelivery string       `json:"estimated_delivery"`
	History           []OrderEvent `json:"history"`
}

type OrderEvent struct {
	Date     string `json:"date"`
	Status   string `json:"status"`
	Location string `json:"location"`
}

// OrderBook is the order tracking capability, backed by the order management
// system and shipping carriers in a real deployment.
type OrderBook interface {
	Track(ctx context.Context, orderID string) (*OrderInfo, error)
}

type OrderHandler struct {
	orders OrderBook
}

func NewOrderHandler(orders OrderBook) *OrderHandler {
	return &OrderHandler{orders: orders}
}

func (h *OrderHandler) Handle(ctx context.Context, message string, focus model.FocusState, profile *model.CustomerProfile) (*model.HandlerResult, error) {
	orderID := focus.Filters["order_id"]
	if orderID == "" && profile != nil && len(profile.RecentOrderIDs) > 0 {
		// no explicit order mentioned; assume the most recent one
		orderID = profile.RecentOrderIDs[0]
	}
	if orderID == "" {
		return &model.HandlerResult{
			Reply: "I'd be happy to check on an order. Could you share the order number (for example #12345)?",
		}, nil
	}

	info, err := h.orders.Track(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("track order %s: %w", orderID, err)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Order %s is %s via %s (tracking %s), estimated delivery %s.",
		info.OrderID, strings.ReplaceAll(info.Status, "_", " "), info.Carrier, info.TrackingNumber, info.EstimatedDelivery))
	if len(info.History) > 0 {
		last := info.History[len(info.History)-1]
		b.WriteString(fmt.Sprintf(" Latest update: %s at %s on %s.", last.Status, last.Location, last.Date))
	}

	return &model.HandlerResult{
		Reply:       b.String(),
		SlotUpdates: map[string]string{"order_id": info.OrderID},
	}, nil
}

// ===================================
// Mock order book
// ===================================

type MockOrderBook struct{}

func NewMockOrderBook() *MockOrderBook {
	return &MockOrderBook{}
}

func (m *MockOrderBook) Track(ctx context.Context, orderID string) (*OrderInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &OrderInfo{
		OrderID:           orderID,
		Status:            "in_transit",
		Carrier:           "FedEx",
		TrackingNumber:    "7894561230123",
		EstimatedDelivery: "2026-08-29",
		History: []OrderEvent{
			{Date: "2026-08-24", Status: "Shipped", Location: "Warehouse"},
			{Date: "2026-08-25", Status: "In Transit", Location: "Chicago, IL"},
			{Date: "2026-08-26", Status: "In Transit", Location: "Memphis, TN"},
		},
	}, nil
}

var _ OrderBook = (*MockOrderBook)(nil)
