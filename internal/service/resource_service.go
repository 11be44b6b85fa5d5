package service

import (
	"context"

	"github.com/rs/zerolog"

	"hotelbook/internal/domain"
	"hotelbook/internal/logging"
	"hotelbook/internal/models"
	"hotelbook/internal/validation"
)

// ResourceService holds admin writes to the catalog.
type ResourceService struct {
	catalog  domain.ResourceCatalog
	statuses domain.ResourceStatusUpdater
	cache    domain.RecommendationCache
	logger   *zerolog.Logger
}

func NewResourceService(
	catalog domain.ResourceCatalog,
	statuses domain.ResourceStatusUpdater,
	cache domain.RecommendationCache,
	logger *zerolog.Logger,
) *ResourceService {
	return &ResourceService{
		catalog:  catalog,
		statuses: statuses,
		cache:    cache,
		logger:   logging.Component(logger, "resource_service"),
	}
}

// SetStatus changes a resource's status flag and drops cached recommendation
// lists, since the heuristic only ranks Available resources.
func (s *ResourceService) SetStatus(ctx context.Context, id, status string) (*models.Resource, error) {
	if err := validation.ValidateResourceStatus(status); err != nil {
		return nil, err
	}
	if err := s.statuses.UpdateResourceStatus(ctx, id, status); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateAll(ctx); err != nil {
			s.logger.Warn().Err(err).Str("resource_id", id).Msg("cache not cleared after status change")
		}
	}

	s.logger.Info().Str("resource_id", id).Str("status", status).Msg("resource status changed")
	return s.catalog.GetResource(ctx, id)
}
