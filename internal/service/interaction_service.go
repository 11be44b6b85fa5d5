package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"hotelbook/internal/domain"
	"hotelbook/internal/events"
	"hotelbook/internal/logging"
	"hotelbook/internal/models"
	"hotelbook/internal/validation"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// ErrHistoryUnavailable is returned when no interaction history is wired.
var ErrHistoryUnavailable = errors.New("interaction history unavailable")

// InteractionService accepts guest telemetry and reads it back.
type InteractionService struct {
	recorder domain.InteractionRecorder
	history  domain.InteractionHistory
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewInteractionService(
	recorder domain.InteractionRecorder,
	history domain.InteractionHistory,
	eventBus domain.EventPublisher,
	logger *zerolog.Logger,
) *InteractionService {
	return &InteractionService{
		recorder: recorder,
		history:  history,
		eventBus: eventBus,
		logger:   logging.Component(logger, "interaction_service"),
		now:      time.Now,
	}
}

// Record validates in and hands it to the recorder. Storage errors are never
// reported back; only a malformed interaction is.
func (s *InteractionService) Record(ctx context.Context, in models.Interaction) (models.Interaction, error) {
	if err := validation.ValidateInteraction(in); err != nil {
		return in, err
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.UserID == "" {
		in.UserID = models.GuestUserID
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = s.now()
	}

	if s.recorder != nil {
		s.recorder.RecordInteraction(ctx, in)
	}

	if s.eventBus != nil {
		payload := events.InteractionEventPayload{
			InteractionID: in.ID,
			UserID:        in.UserID,
			ResourceID:    in.ResourceID,
			Type:          in.Type,
		}
		if err := s.eventBus.PublishJSON(events.EventInteractionRecorded, payload); err != nil {
			s.logger.Error().Err(err).Str("interaction_id", in.ID).Msg("publish event error")
		}
	}
	return in, nil
}

// SubscribeBookings records a booking interaction for every new reservation.
func (s *InteractionService) SubscribeBookings(bus *events.EventBus) {
	bus.Subscribe(events.EventReservationCreated, func(ev *events.Event) error {
		var p events.ReservationEventPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		_, err := s.Record(context.Background(), models.Interaction{
			UserID:             p.UserID,
			ResourceID:         p.ResourceID,
			Kind:               p.Kind,
			Type:               models.InteractionBooking,
			PartySize:          p.PartySize,
			ReservationID:      p.ReservationID,
			FromRecommendation: p.FromRecommendation,
		})
		return err
	})
}

// History returns a user's newest interactions, optionally of one type, and
// per-type totals over everything the user did.
func (s *InteractionService) History(ctx context.Context, userID, interactionType string, limit int) (models.InteractionHistory, error) {
	filter := models.InteractionFilter{UserID: userID, Type: interactionType, Limit: limit}
	if err := validation.ValidateInteractionFilter(filter); err != nil {
		return models.InteractionHistory{}, err
	}
	if s.history == nil {
		return models.InteractionHistory{}, ErrHistoryUnavailable
	}
	filter.Limit = clampLimit(limit)

	items, err := s.history.GetUserInteractions(ctx, filter)
	if err != nil {
		return models.InteractionHistory{}, err
	}
	summary, err := s.history.CountInteractionsByType(ctx, userID)
	if err != nil {
		return models.InteractionHistory{}, err
	}
	if items == nil {
		items = []models.Interaction{}
	}
	return models.InteractionHistory{
		UserID:       userID,
		Interactions: items,
		Summary:      summary,
		Total:        len(items),
	}, nil
}

// RecommendedBookings lists a user's bookings made from a recommended list.
func (s *InteractionService) RecommendedBookings(ctx context.Context, userID string, limit int) ([]models.Interaction, error) {
	filter := models.InteractionFilter{UserID: userID, Type: models.InteractionBooking, FromRecommendation: true, Limit: limit}
	if err := validation.ValidateInteractionFilter(filter); err != nil {
		return nil, err
	}
	if s.history == nil {
		return nil, ErrHistoryUnavailable
	}
	filter.Limit = clampLimit(limit)

	items, err := s.history.GetUserInteractions(ctx, filter)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Interaction{}
	}
	return items, nil
}

// Analytics aggregates all stored interactions.
func (s *InteractionService) Analytics(ctx context.Context) (models.InteractionAnalytics, error) {
	if s.history == nil {
		return models.InteractionAnalytics{}, ErrHistoryUnavailable
	}
	return s.history.InteractionSummary(ctx)
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultHistoryLimit
	case limit > maxHistoryLimit:
		return maxHistoryLimit
	}
	return limit
}
