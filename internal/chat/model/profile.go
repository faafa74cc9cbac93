package model

// CustomerProfile is the read-only customer reference handlers receive. The
// core fetches it by id and never mutates it.
type CustomerProfile struct {
	CustomerID     string   `json:"customer_id"`
	Name           string   `json:"name"`
	LoyaltyTier    string   `json:"loyalty_tier"`
	PreferenceTags []string `json:"preference_tags"`
	RecentOrderIDs []string `json:"recent_order_ids"`
}
