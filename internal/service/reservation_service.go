package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"hotelbook/internal/domain"
	"hotelbook/internal/events"
	"hotelbook/internal/logging"
	"hotelbook/internal/models"
	"hotelbook/internal/validation"
)

// ReservationService is the write side behind the booking form.
type ReservationService struct {
	store    domain.ReservationStore
	catalog  domain.ResourceCatalog
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewReservationService(
	store domain.ReservationStore,
	catalog domain.ResourceCatalog,
	eventBus domain.EventPublisher,
	logger *zerolog.Logger,
) *ReservationService {
	return &ReservationService{
		store:    store,
		catalog:  catalog,
		eventBus: eventBus,
		logger:   logging.Component(logger, "reservation_service"),
		now:      time.Now,
	}
}

// CreateReservation validates req and stores it. Overlap is re-checked by the
// store inside its transaction.
func (s *ReservationService) CreateReservation(
	ctx context.Context,
	req models.BookingRequest,
	userID, guestName string,
) (*models.Reservation, error) {
	if err := validation.ValidateBookingRequest(req, s.now()); err != nil {
		return nil, err
	}

	r := &models.Reservation{
		ResourceID: req.ResourceID,
		UserID:     userID,
		GuestName:  guestName,
		PartySize:  req.PartySize,
		Start:      req.Start,
		End:        req.End,
		Status:     models.ReservationConfirmed,
	}
	if err := s.store.CreateReservationWithLock(ctx, r); err != nil {
		return nil, err
	}

	payload := s.eventPayload(ctx, r)
	payload.FromRecommendation = req.FromRecommendation
	s.publish(events.EventReservationCreated, payload)
	return r, nil
}

// Reschedule moves a reservation to a new window.
func (s *ReservationService) Reschedule(ctx context.Context, id string, version int64, window models.Interval) (*models.Reservation, error) {
	if err := validation.ValidateFutureInterval(window, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.RescheduleReservation(ctx, id, version, window); err != nil {
		return nil, err
	}

	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.EventReservationRescheduled, r)
	return r, nil
}

// Cancel frees the reservation's window.
func (s *ReservationService) Cancel(ctx context.Context, id string) error {
	if err := s.store.CancelReservation(ctx, id); err != nil {
		return err
	}

	if r, err := s.store.GetReservation(ctx, id); err == nil {
		s.publishEvent(ctx, events.EventReservationCancelled, r)
	}
	return nil
}

func (s *ReservationService) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	return s.store.GetReservation(ctx, id)
}

func (s *ReservationService) GetReservationsInRange(ctx context.Context, kind string, window models.Interval) ([]*models.Reservation, error) {
	return s.store.GetReservationsInRange(ctx, kind, window)
}

func (s *ReservationService) publishEvent(ctx context.Context, eventType string, r *models.Reservation) {
	s.publish(eventType, s.eventPayload(ctx, r))
}

func (s *ReservationService) eventPayload(ctx context.Context, r *models.Reservation) events.ReservationEventPayload {
	payload := events.ReservationEventPayload{
		ReservationID: r.ID,
		ResourceID:    r.ResourceID,
		UserID:        r.UserID,
		PartySize:     r.PartySize,
		Start:         r.Start,
		End:           r.End,
		Status:        r.Status,
		TotalPrice:    r.TotalPrice,
	}
	if s.catalog != nil {
		if res, err := s.catalog.GetResource(ctx, r.ResourceID); err == nil && res != nil {
			payload.Kind = res.Kind
		}
	}
	return payload
}

func (s *ReservationService) publish(eventType string, payload events.ReservationEventPayload) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("reservation_id", payload.ReservationID).Msg("publish event error")
	}
}
