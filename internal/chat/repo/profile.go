package repo

import (
	"context"

	"github.com/shoptalk-core/server/internal/chat/model"
)

// StaticProfileSource serves customer profiles from a fixed seed map. Unknown
// customers get an anonymous profile rather than an error; the core treats
// profiles as best-effort, read-only context.
type StaticProfileSource struct {
	profiles map[string]model.CustomerProfile
}

func NewStaticProfileSource() *StaticProfileSource {
	return &StaticProfileSource{profiles: seedProfiles}
}

func (s *StaticProfileSource) GetProfile(ctx context.Context, customerID string) (*model.CustomerProfile, error) {
	if p, ok := s.profiles[customerID]; ok {
		out := p
		return &out, nil
	}
	return &model.CustomerProfile{
		CustomerID:  customerID,
		LoyaltyTier: "bronze",
	}, nil
}

var seedProfiles = map[string]model.CustomerProfile{
	"CUST-12345": {
		CustomerID:     "CUST-12345",
		Name:           "John Doe",
		LoyaltyTier:    "gold",
		PreferenceTags: []string{"electronics", "audio"},
		RecentOrderIDs: []string{"ORD-12345", "ORD-12344"},
	},
	"CUST-67890": {
		CustomerID:     "CUST-67890",
		Name:           "Jane Miller",
		LoyaltyTier:    "silver",
		PreferenceTags: []string{"footwear", "running"},
		RecentOrderIDs: []string{"ORD-20011"},
	},
}

var _ model.ProfileSource = (*StaticProfileSource)(nil)
