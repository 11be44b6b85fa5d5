package models

import "time"

// Interaction is a telemetry record of a guest touching a resource.
type Interaction struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	ResourceID string    `json:"resource_id" validate:"required"`
	Kind       string    `json:"kind" validate:"omitempty,oneof=room table"`
	Type       string    `json:"interaction_type" validate:"required,oneof=view inquiry favorite share rating booking"`
	Rating     *float64  `json:"rating,omitempty" validate:"omitempty,gte=1,lte=5"`
	Occasion   string    `json:"occasion,omitempty"`
	PartySize  int       `json:"party_size,omitempty"`
	TimeSlot   string    `json:"time_slot,omitempty"`
	CreatedAt  time.Time `json:"created_at"`

	// Set on booking interactions only.
	ReservationID      string `json:"reservation_id,omitempty"`
	FromRecommendation bool   `json:"from_recommendation,omitempty"`
}

// InteractionFilter selects a user's interactions, newest first.
type InteractionFilter struct {
	UserID             string `json:"user_id" validate:"required"`
	Type               string `json:"interaction_type" validate:"omitempty,oneof=view inquiry favorite share rating booking"`
	FromRecommendation bool   `json:"from_recommendation"`
	Limit              int    `json:"limit" validate:"gte=0"`
}

// InteractionHistory is a user's recent activity plus per-type totals over
// all of it.
type InteractionHistory struct {
	UserID       string         `json:"user_id"`
	Interactions []Interaction  `json:"interactions"`
	Summary      map[string]int `json:"summary"`
	Total        int            `json:"total"`
}

// InteractionAnalytics aggregates every stored interaction.
type InteractionAnalytics struct {
	TotalInteractions   int            `json:"total_interactions"`
	UniqueUsers         int            `json:"unique_users"`
	ByType              map[string]int `json:"by_type"`
	RecommendedBookings int            `json:"recommended_bookings"`
}
