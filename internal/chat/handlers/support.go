package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/shoptalk-core/server/internal/chat/model"
)

// ===================================
// Support handler (return_request)
// ===================================

// ReturnRequest opens a return case against an order.
type ReturnRequest struct {
	OrderID    string
	CustomerID string
	Reason     string
}

// Ticket is an opened return case.
type Ticket struct {
	RMAID       string `json:"rma_id"`
	OrderID     string `json:"order_id"`
	Status      string `json:"status"`
	FreeReturn  bool   `json:"free_return"`
	Instruction string `json:"instruction"`
}

// Ticketing is the returns capability, backed by the support/ticketing system
// in a real deployment.
type Ticketing interface {
	OpenReturn(ctx context.Context, req ReturnRequest) (*Ticket, error)
}

type SupportHandler struct {
	ticketing Ticketing
}

func NewSupportHandler(t Ticketing) *SupportHandler {
	return &SupportHandler{ticketing: t}
}

func (h *SupportHandler) Handle(ctx context.Context, message string, focus model.FocusState, profile *model.CustomerProfile) (*model.HandlerResult, error) {
	orderID := focus.Filters["order_id"]
	if orderID == "" && profile != nil && len(profile.RecentOrderIDs) > 0 {
		orderID = profile.RecentOrderIDs[0]
	}
	if orderID == "" {
		return &model.HandlerResult{
			Reply: "I can help with a return. Which order is it for? You can give me the order number (for example #12345).",
		}, nil
	}

	req := ReturnRequest{OrderID: orderID, Reason: message}
	if profile != nil {
		req.CustomerID = profile.CustomerID
	}

	ticket, err := h.ticketing.OpenReturn(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("open return for %s: %w", orderID, err)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("I've opened return case %s for order %s. %s", ticket.RMAID, ticket.OrderID, ticket.Instruction))
	if ticket.FreeReturn {
		b.WriteString(" Return shipping is free on your account.")
	}

	return &model.HandlerResult{
		Reply:       b.String(),
		SlotUpdates: map[string]string{"rma_id": ticket.RMAID},
	}, nil
}

// ===================================
// Mock ticketing
// ===================================

type MockTicketing struct {
	// LoyaltyFreeReturns lists tiers that get free return shipping.
	LoyaltyFreeReturns map[string]bool
	profiles           model.ProfileSource
}

func NewMockTicketing(profiles model.ProfileSource) *MockTicketing {
	return &MockTicketing{
		LoyaltyFreeReturns: map[string]bool{"gold": true, "platinum": true},
		profiles:           profiles,
	}
}

func (m *MockTicketing) OpenReturn(ctx context.Context, req ReturnRequest) (*Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	free := false
	if m.profiles != nil && req.CustomerID != "" {
		if p, err := m.profiles.GetProfile(ctx, req.CustomerID); err == nil {
			free = m.LoyaltyFreeReturns[strings.ToLower(p.LoyaltyTier)]
		}
	}

	return &Ticket{
		RMAID:       "RMA-" + strings.ToUpper(uuid.NewString()[:8]),
		OrderID:     req.OrderID,
		Status:      "open",
		FreeReturn:  free,
		Instruction: "You'll receive a prepaid label by email within a few minutes.",
	}, nil
}

var _ Ticketing = (*MockTicketing)(nil)
