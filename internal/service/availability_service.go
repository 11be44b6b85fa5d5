package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"hotelbook/internal/booking"
	"hotelbook/internal/domain"
	"hotelbook/internal/logging"
	"hotelbook/internal/metrics"
	"hotelbook/internal/models"
)

const (
	AvailabilityFree     = "available"
	AvailabilityConflict = "conflict"
	AvailabilityFailOpen = "fail_open"

	defaultFetchTimeout = 3 * time.Second
	verdictTimeLayout   = "Jan 2, 2006 15:04"
)

// AvailabilityService answers booking forms.
type AvailabilityService struct {
	source       domain.ReservationSource
	catalog      domain.ResourceCatalog
	fetchTimeout time.Duration
	logger       *zerolog.Logger
}

// NewAvailabilityService builds the service. catalog is optional and only
// used to put the resource name into messages.
func NewAvailabilityService(
	source domain.ReservationSource,
	catalog domain.ResourceCatalog,
	fetchTimeout time.Duration,
	logger *zerolog.Logger,
) *AvailabilityService {
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	return &AvailabilityService{
		source:       source,
		catalog:      catalog,
		fetchTimeout: fetchTimeout,
		logger:       logging.Component(logger, "availability"),
	}
}

// CheckAvailability reports whether interval is free on resourceID. The
// reservation with excludeID is ignored, which is how the edit flow works.
// When reservations cannot be read the answer is available with an empty
// message.
func (s *AvailabilityService) CheckAvailability(
	ctx context.Context,
	resourceID string,
	interval models.Interval,
	excludeID string,
) models.AvailabilityVerdict {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	existing, err := s.source.FetchReservationsForResource(fetchCtx, resourceID, interval)
	if err != nil {
		metrics.IncAvailability(AvailabilityFailOpen)
		s.logger.Warn().Err(err).Str("resource_id", resourceID).Msg("reservations unavailable, allowing booking")
		return models.AvailabilityVerdict{IsAvailable: true}
	}

	name := s.displayName(ctx, resourceID)
	if !booking.IsAvailable(existing, interval, excludeID) {
		metrics.IncAvailability(AvailabilityConflict)
		return models.AvailabilityVerdict{
			IsAvailable: false,
			Message: fmt.Sprintf("%s is already booked between %s and %s. Please choose a different time.",
				name, interval.Start.Format(verdictTimeLayout), interval.End.Format(verdictTimeLayout)),
		}
	}

	metrics.IncAvailability(AvailabilityFree)
	return models.AvailabilityVerdict{
		IsAvailable: true,
		Message:     fmt.Sprintf("%s is available for your selected time.", name),
	}
}

func (s *AvailabilityService) displayName(ctx context.Context, resourceID string) string {
	if s.catalog == nil {
		return resourceID
	}
	lookupCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()
	res, err := s.catalog.GetResource(lookupCtx, resourceID)
	if err != nil || res == nil || res.Name == "" {
		return resourceID
	}
	return res.Name
}
