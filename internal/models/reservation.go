package models

import "time"

// Interval is a half-open occupancy window [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ReservationInterval is the occupancy window of one stored reservation.
type ReservationInterval struct {
	ID         string    `json:"id"`
	ResourceID string    `json:"resource_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

// Reservation is a booked room stay or table reservation.
type Reservation struct {
	ID         string    `json:"id"`
	ResourceID string    `json:"resource_id"`
	UserID     string    `json:"user_id"`
	GuestName  string    `json:"guest_name"`
	PartySize  int       `json:"party_size"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Status     string    `json:"status"` // pending, confirmed, cancelled, completed
	TotalPrice float64   `json:"total_price"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Version    int64     `json:"version"`
}

// Interval returns the occupancy window of the reservation.
func (r Reservation) Interval() ReservationInterval {
	return ReservationInterval{ID: r.ID, ResourceID: r.ResourceID, Start: r.Start, End: r.End}
}

// BookingRequest is what a booking or edit form submits for checking.
type BookingRequest struct {
	ResourceID           string    `json:"resource_id" validate:"required"`
	Start                time.Time `json:"start" validate:"required"`
	End                  time.Time `json:"end" validate:"required,gtfield=Start"`
	PartySize            int       `json:"party_size" validate:"gte=1"`
	ExcludeReservationID string    `json:"exclude_reservation_id,omitempty"`
	FromRecommendation   bool      `json:"from_recommendation,omitempty"`
}

// Interval returns the requested window.
func (r BookingRequest) Interval() Interval {
	return Interval{Start: r.Start, End: r.End}
}

// AvailabilityVerdict is the answer given to a booking form.
type AvailabilityVerdict struct {
	IsAvailable bool   `json:"is_available"`
	Message     string `json:"message"`
}

// PriceBreakdown is derived from a rate and a stay window. Values are not rounded.
type PriceBreakdown struct {
	Nights  int     `json:"nights"`
	Rate    float64 `json:"rate"`
	Base    float64 `json:"base"`
	TaxRate float64 `json:"tax_rate"`
	Tax     float64 `json:"tax"`
	Total   float64 `json:"total"`
}
