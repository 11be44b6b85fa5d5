package models

import "time"

// RecommendationContext describes what the guest is looking for.
type RecommendationContext struct {
	Kind        string `json:"kind" validate:"omitempty,oneof=room table"`
	Occasion    string `json:"occasion" validate:"max=64"`
	PartySize   int    `json:"party_size" validate:"gte=0,lte=100"`
	TimeSlot    string `json:"time_slot" validate:"max=64"`
	ResultCount int    `json:"result_count" validate:"gte=0,lte=50"`
}

// WithDefaults fills zero fields with the engine defaults.
func (c RecommendationContext) WithDefaults() RecommendationContext {
	if c.Kind == "" {
		c.Kind = KindTable
	}
	if c.PartySize <= 0 {
		c.PartySize = DefaultPartySize
	}
	if c.ResultCount <= 0 {
		c.ResultCount = DefaultResultCount
	}
	if c.ResultCount > MaxResultCount {
		c.ResultCount = MaxResultCount
	}
	return c
}

// RankedRecommendation is one entry of a recommendation list.
type RankedRecommendation struct {
	ResourceID  string    `json:"resource_id"`
	Resource    *Resource `json:"resource,omitempty"`
	Score       float64   `json:"score"`
	Confidence  string    `json:"confidence"`
	Source      string    `json:"source"`
	Rank        int       `json:"rank"`
	Explanation string    `json:"explanation"`
	Image       string    `json:"image"`
}

// RecommendationResult is a ranked list plus its provenance flags.
type RecommendationResult struct {
	Recommendations []RankedRecommendation `json:"recommendations"`
	Source          string                 `json:"source"`
	MLModelActive   bool                   `json:"ml_model_active"`
	FallbackMode    bool                   `json:"fallback_mode"`
	Cached          bool                   `json:"cached"`
	GeneratedAt     time.Time              `json:"generated_at"`
}

// ExternalRecommendation is a personalized record after decoding. Pointer
// fields are nil when the scorer omitted them.
type ExternalRecommendation struct {
	ResourceID  string
	Resource    *Resource
	Rank        *int
	Score       *float64
	Confidence  string
	Explanation string
	Image       string
}

// PersonalizedResponse is what the ML scorer returns.
type PersonalizedResponse struct {
	Success         bool
	Recommendations []ExternalRecommendation
	Fallback        bool
	Cached          bool
}

// PopularResponse is what the popularity source returns.
type PopularResponse struct {
	Success   bool
	Resources []Resource
}
