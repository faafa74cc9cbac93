// Package handlers contains the per-intent handlers and the dispatch table
// that maps the closed Intent set onto them. Handlers share one capability
// shape and differ only in which external system they call and how they read
// the focus state, which keeps dispatch a plain table lookup.
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/shoptalk-core/server/internal/chat/model"
	logx "github.com/shoptalk-core/server/pkg/logger"
)

// ApologyReply is returned to the customer whenever a handler's downstream
// call fails. Failures never surface as raw errors in the conversation.
const ApologyReply = "I'm sorry, I'm having trouble with that right now. Please try again in a moment."

// Handler fulfills one intent against its external system. Implementations
// read the focus state and profile but never mutate the session; state changes
// travel back as SlotUpdates on the result.
type Handler interface {
	Handle(ctx context.Context, message string, focus model.FocusState, profile *model.CustomerProfile) (*model.HandlerResult, error)
}

// Deps carries the external capabilities the handlers are built on.
type Deps struct {
	Catalog     Catalog
	Orders      OrderBook
	Recommender Recommender
	Ticketing   Ticketing
	Cart        CartService
	Responder   Responder
}

// Dispatcher is the total mapping intent -> handler. Construction fails if any
// enumerated intent is unmapped, so a gap is caught at build time rather than
// mid-conversation.
type Dispatcher struct {
	table   map[model.Intent]Handler
	timeout time.Duration
}

func NewDispatcher(cfg model.HandlerConfig, deps Deps) (*Dispatcher, error) {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid HANDLER_TIMEOUT %q: %w", cfg.Timeout, err)
	}

	table := map[model.Intent]Handler{
		model.IntentProductQuery:   NewProductHandler(deps.Catalog),
		model.IntentOrderStatus:    NewOrderHandler(deps.Orders),
		model.IntentRecommendation: NewRecommendationHandler(deps.Recommender),
		model.IntentReturnRequest:  NewSupportHandler(deps.Ticketing),
		model.IntentCartHelp:       NewCheckoutHandler(deps.Cart),
		model.IntentGeneralInquiry: NewGeneralHandler(deps.Responder),
	}

	for _, it := range model.AllIntents {
		if table[it] == nil {
			return nil, fmt.Errorf("no handler mapped for intent %s", it)
		}
	}
	if len(table) != len(model.AllIntents) {
		return nil, fmt.Errorf("dispatch table has %d entries, want %d", len(table), len(model.AllIntents))
	}

	return &Dispatcher{table: table, timeout: timeout}, nil
}

// HandlerFor exposes the table entry for an intent.
func (d *Dispatcher) HandlerFor(intent model.Intent) Handler {
	return d.table[intent]
}

// Dispatch runs the handler mapped to intent under the per-handler timeout.
// Handler failures are absorbed into an apology result with no slot updates.
// The only possible error is an intent missing from the table, which
// NewDispatcher rules out; it aborts the turn if it ever happens.
func (d *Dispatcher) Dispatch(ctx context.Context, intent model.Intent, message string, focus model.FocusState, profile *model.CustomerProfile) (*model.HandlerResult, error) {
	h, ok := d.table[intent]
	if !ok {
		return nil, fmt.Errorf("no handler mapped for intent %s", intent)
	}

	hctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	result, err := h.Handle(hctx, message, focus, profile)
	if err != nil {
		logx.Warn().Err(err).Str("intent", intent.String()).Msg("handler failed, returning apology")
		return &model.HandlerResult{Reply: ApologyReply, Degraded: true}, nil
	}
	if result == nil {
		logx.Warn().Str("intent", intent.String()).Msg("handler returned nil result, returning apology")
		return &model.HandlerResult{Reply: ApologyReply, Degraded: true}, nil
	}
	return result, nil
}
