package models

import "time"

const (
	KindRoom  = "room"
	KindTable = "table"
)

const (
	ResourceStatusAvailable = "Available"
	ResourceStatusBooked    = "Booked"
	ResourceStatusReserved  = "Reserved"
)

const (
	ReservationPending   = "pending"
	ReservationConfirmed = "confirmed"
	ReservationCancelled = "cancelled"
	ReservationCompleted = "completed"
)

const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

const (
	SourcePersonalized = "personalized"
	SourcePopularity   = "popularity"
	SourceHeuristic    = "heuristic"
)

const (
	InteractionView     = "view"
	InteractionInquiry  = "inquiry"
	InteractionFavorite = "favorite"
	InteractionShare    = "share"
	InteractionRating   = "rating"
	InteractionBooking  = "booking"
)

const (
	OccasionRomantic    = "Romantic"
	OccasionBusiness    = "Business"
	OccasionFamily      = "Family"
	OccasionFriends     = "Friends"
	OccasionCelebration = "Celebration"
	OccasionCasual      = "Casual"
)

const (
	AmbianceRomantic = "Romantic"
	AmbianceIntimate = "Intimate"
)

const (
	// TaxRate flat tax applied on top of the base amount
	TaxRate = 0.10

	// DefaultResultCount cap on returned recommendations when the caller gives none
	DefaultResultCount = 8

	// MaxResultCount upper bound accepted from callers
	MaxResultCount = 50

	// DefaultPartySize used when the recommendation context omits it
	DefaultPartySize = 2

	// RecommendationCacheTTL lifetime of a cached recommendation list
	RecommendationCacheTTL = time.Hour

	// GuestUserID cache identity for unauthenticated callers
	GuestUserID = "guest"

	PlaceholderTableImage = "/images/placeholder-table.jpg"
	PlaceholderRoomImage  = "/images/placeholder-room.jpg"
)

// PlaceholderImage returns the placeholder picture for a resource kind.
func PlaceholderImage(kind string) string {
	if kind == KindRoom {
		return PlaceholderRoomImage
	}
	return PlaceholderTableImage
}
