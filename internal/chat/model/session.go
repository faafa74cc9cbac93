package model

import (
	"time"
)

// FocusState accumulates the filter values for the customer's current topic.
// Filters grow monotonically within a topic and are cleared wholesale when the
// topic changes. Cart and profile data live outside FocusState so they survive
// topic resets.
type FocusState struct {
	Topic   Topic             `json:"topic"`
	Filters map[string]string `json:"filters"`
}

// NewFocusState returns an empty focus with an allocated filter map.
func NewFocusState() FocusState {
	return FocusState{Filters: map[string]string{}}
}

// Clone returns an independent copy so a turn can mutate focus without
// aliasing the loaded session.
func (f FocusState) Clone() FocusState {
	out := FocusState{Topic: f.Topic, Filters: make(map[string]string, len(f.Filters))}
	for k, v := range f.Filters {
		out.Filters[k] = v
	}
	return out
}

// Turn is the immutable record of one message exchange.
type Turn struct {
	UserText string    `json:"user_text"`
	Intent   Intent    `json:"intent"`
	Reply    string    `json:"reply"`
	Degraded bool      `json:"degraded,omitempty"`
	At       time.Time `json:"at"`
}

// CartItem is one line of the session's cart snapshot.
type CartItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// Session is the durable conversational state for one customer. It is owned by
// the session store; the context manager holds a transient mutable view for
// the duration of one turn and writes it back wholesale at turn end.
type Session struct {
	ID           string     `json:"id"`
	CustomerID   string     `json:"customer_id"`
	Turns        []Turn     `json:"turns"`
	Focus        FocusState `json:"focus"`
	Cart         []CartItem `json:"cart"`
	CreatedAt    time.Time  `json:"created_at"`
	LastActiveAt time.Time  `json:"last_active_at"`
}

// NewSession creates a fresh session for a customer.
func NewSession(id, customerID string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:           id,
		CustomerID:   customerID,
		Turns:        []Turn{},
		Focus:        NewFocusState(),
		Cart:         []CartItem{},
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

// Clone deep-copies the session so store implementations can hand out
// snapshots without sharing mutable state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Focus = s.Focus.Clone()
	out.Turns = make([]Turn, len(s.Turns))
	copy(out.Turns, s.Turns)
	out.Cart = make([]CartItem, len(s.Cart))
	copy(out.Cart, s.Cart)
	return &out
}
