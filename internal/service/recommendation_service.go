package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"hotelbook/internal/domain"
	"hotelbook/internal/events"
	"hotelbook/internal/logging"
	"hotelbook/internal/models"
	"hotelbook/internal/recommend"
	"hotelbook/internal/validation"
)

// RecommendationService is the entry point for listing pages and admin
// cache management.
type RecommendationService struct {
	chain    *recommend.Chain
	cache    domain.RecommendationCache
	reloader domain.ModelReloader
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewRecommendationService(
	chain *recommend.Chain,
	cache domain.RecommendationCache,
	reloader domain.ModelReloader,
	eventBus domain.EventPublisher,
	logger *zerolog.Logger,
) *RecommendationService {
	return &RecommendationService{
		chain:    chain,
		cache:    cache,
		reloader: reloader,
		eventBus: eventBus,
		logger:   logging.Component(logger, "recommendation_service"),
	}
}

// Recommend validates the context and runs the fallback chain.
func (s *RecommendationService) Recommend(ctx context.Context, req recommend.Request) (*models.RecommendationResult, error) {
	if err := validation.ValidateRecommendationContext(req.Context); err != nil {
		return nil, err
	}
	return s.chain.Recommend(ctx, req)
}

// RefreshResult reports what an admin refresh did.
type RefreshResult struct {
	CacheCleared  bool   `json:"cache_cleared"`
	ModelReloaded bool   `json:"model_reloaded"`
	ModelError    string `json:"model_error,omitempty"`
}

// Refresh drops every cached list and, if asked, makes the scorer reload its
// model. A failed reload does not fail the refresh.
func (s *RecommendationService) Refresh(ctx context.Context, reloadModel bool, requestedBy string) (RefreshResult, error) {
	var res RefreshResult
	if s.cache != nil {
		if err := s.cache.InvalidateAll(ctx); err != nil {
			return res, fmt.Errorf("invalidate recommendation cache: %w", err)
		}
		res.CacheCleared = true
	}

	if reloadModel && s.reloader != nil {
		if err := s.reloader.ReloadModel(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("model reload failed")
			res.ModelError = err.Error()
		} else {
			res.ModelReloaded = true
		}
	}

	if s.eventBus != nil {
		payload := events.RefreshEventPayload{ModelReloaded: res.ModelReloaded, RequestedBy: requestedBy, At: time.Now()}
		if err := s.eventBus.PublishJSON(events.EventRecommendationsRefresh, payload); err != nil {
			s.logger.Error().Err(err).Msg("publish refresh event")
		}
	}

	s.logger.Info().
		Bool("cache_cleared", res.CacheCleared).
		Bool("model_reloaded", res.ModelReloaded).
		Str("requested_by", requestedBy).
		Msg("recommendations refreshed")
	return res, nil
}
