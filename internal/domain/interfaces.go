package domain

import (
	"context"
	"errors"
	"time"

	"hotelbook/internal/models"
)

// ErrDataAccess marks failures of an external data collaborator.
var ErrDataAccess = errors.New("data access failure")

// ErrCacheUnavailable is returned when a cache store could not be reached.
var ErrCacheUnavailable = errors.New("recommendation cache unavailable")

// ReservationSource returns the stored occupancy of a resource.
type ReservationSource interface {
	FetchReservationsForResource(ctx context.Context, resourceID string, window models.Interval) ([]models.ReservationInterval, error)
}

// PersonalizedScorer is the external ML recommendation service.
type PersonalizedScorer interface {
	FetchPersonalized(
		ctx context.Context,
		userID string,
		rc models.RecommendationContext,
		useCache bool,
	) (*models.PersonalizedResponse, error)
}

// ModelReloader asks the ML service to reload its model.
type ModelReloader interface {
	ReloadModel(ctx context.Context) error
}

type PopularitySource interface {
	FetchPopularResources(ctx context.Context, kind string, limit int) (*models.PopularResponse, error)
}

type ResourceCatalog interface {
	FetchAllResources(ctx context.Context, kind string) ([]models.Resource, error)
	GetResource(ctx context.Context, id string) (*models.Resource, error)
}

// ResourceStatusUpdater flips the availability flag of a resource.
type ResourceStatusUpdater interface {
	UpdateResourceStatus(ctx context.Context, id, status string) error
}

// InteractionRecorder accepts telemetry without blocking the caller.
type InteractionRecorder interface {
	RecordInteraction(ctx context.Context, in models.Interaction)
}

// InteractionStore persists interactions.
type InteractionStore interface {
	SaveInteraction(ctx context.Context, in *models.Interaction) error
}

// InteractionHistory reads stored interactions back.
type InteractionHistory interface {
	GetUserInteractions(ctx context.Context, f models.InteractionFilter) ([]models.Interaction, error)
	CountInteractionsByType(ctx context.Context, userID string) (map[string]int, error)
	InteractionSummary(ctx context.Context) (models.InteractionAnalytics, error)
}

// RecommendationCache memoizes recommendation results by context key.
type RecommendationCache interface {
	Get(ctx context.Context, key string) (*models.RecommendationResult, bool, error)
	Set(ctx context.Context, key string, value *models.RecommendationResult, ttl time.Duration) error
	InvalidateAll(ctx context.Context) error
}

// ReservationStore is the write side used by the booking endpoints.
type ReservationStore interface {
	CreateReservationWithLock(ctx context.Context, r *models.Reservation) error
	RescheduleReservation(ctx context.Context, id string, version int64, window models.Interval) error
	CancelReservation(ctx context.Context, id string) error
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	GetReservationsInRange(ctx context.Context, kind string, window models.Interval) ([]*models.Reservation, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}
