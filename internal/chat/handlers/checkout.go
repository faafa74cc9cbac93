package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/shoptalk-core/server/internal/chat/model"
)

// ===================================
// Checkout handler (cart_help)
// ===================================

// CartRequest asks the cart service about the current cart, optionally
// applying a coupon.
type CartRequest struct {
	CustomerID string
	Cart       []model.CartItem
	CouponCode string
}

// CartResult summarizes the cart after the request.
type CartResult struct {
	Subtotal      float64 `json:"subtotal"`
	Discount      float64 `json:"discount"`
	Total         float64 `json:"total"`
	CouponApplied bool    `json:"coupon_applied"`
	CouponNote    string  `json:"coupon_note,omitempty"`
}

// CartService is the cart/checkout capability, backed by the commerce platform
// in a real deployment.
type CartService interface {
	Summarize(ctx context.Context, req CartRequest) (*CartResult, error)
}

type CheckoutHandler struct {
	cart CartService
}

func NewCheckoutHandler(cart CartService) *CheckoutHandler {
	return &CheckoutHandler{cart: cart}
}

func (h *CheckoutHandler) Handle(ctx context.Context, message string, focus model.FocusState, profile *model.CustomerProfile) (*model.HandlerResult, error) {
	req := CartRequest{CouponCode: focus.Filters["coupon_code"]}
	if profile != nil {
		req.CustomerID = profile.CustomerID
	}

	res, err := h.cart.Summarize(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("cart summarize: %w", err)
	}

	var b strings.Builder
	if res.Subtotal == 0 {
		b.WriteString("Your cart is empty right now. Want me to find something to add?")
		return &model.HandlerResult{Reply: b.String()}, nil
	}

	b.WriteString(fmt.Sprintf("Your cart subtotal is $%.2f.", res.Subtotal))
	if req.CouponCode != "" {
		if res.CouponApplied {
			b.WriteString(fmt.Sprintf(" Coupon %s applied, saving you $%.2f.", req.CouponCode, res.Discount))
		} else {
			note := res.CouponNote
			if note == "" {
				note = "that code isn't valid"
			}
			b.WriteString(fmt.Sprintf(" I couldn't apply coupon %s: %s.", req.CouponCode, note))
		}
	}
	b.WriteString(fmt.Sprintf(" Total: $%.2f. Ready to check out?", res.Total))

	return &model.HandlerResult{Reply: b.String()}, nil
}

// ===================================
// Mock cart service
// ===================================

type MockCartService struct {
	// carts keyed by customer id; unknown customers get an empty cart.
	carts   map[string][]model.CartItem
	coupons map[string]float64 // code -> fractional discount
}

func NewMockCartService() *MockCartService {
	return &MockCartService{
		carts: map[string][]model.CartItem{
			"CUST-12345": {
				{ProductID: "PROD-001", Name: "Nike Air Max 270", Quantity: 1, UnitPrice: 150.00},
				{ProductID: "PROD-006", Name: "Sony WH-1000XM5", Quantity: 1, UnitPrice: 349.00},
			},
		},
		coupons: map[string]float64{
			"SAVE10":    0.10,
			"WELCOME15": 0.15,
		},
	}
}

func (m *MockCartService) Summarize(ctx context.Context, req CartRequest) (*CartResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := req.Cart
	if len(items) == 0 {
		items = m.carts[req.CustomerID]
	}

	var subtotal float64
	for _, it := range items {
		subtotal += it.UnitPrice * float64(it.Quantity)
	}

	res := &CartResult{Subtotal: subtotal, Total: subtotal}
	if req.CouponCode != "" {
		if frac, ok := m.coupons[strings.ToUpper(req.CouponCode)]; ok {
			res.Discount = subtotal * frac
			res.Total = subtotal - res.Discount
			res.CouponApplied = true
		} else {
			res.CouponNote = "the code is expired or unknown"
		}
	}
	return res, nil
}

var _ CartService = (*MockCartService)(nil)
