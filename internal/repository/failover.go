package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"hotelbook/internal/domain"
	"hotelbook/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverRecommendationCache serves from primary (Redis) and switches to
// fallback (memory) when primary errors, probing primary again after a minute.
type FailoverRecommendationCache struct {
	primary  domain.RecommendationCache
	fallback domain.RecommendationCache
	logger   *zerolog.Logger
	isDown   atomic.Bool
	// flushPending is set when an InvalidateAll never reached primary.
	flushPending atomic.Bool
	mu           sync.Mutex
	lastCheck    time.Time
}

func NewFailoverRecommendationCache(primary, fallback domain.RecommendationCache, logger *zerolog.Logger) *FailoverRecommendationCache {
	return &FailoverRecommendationCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverRecommendationCache) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary recommendation cache failed, falling back to memory")
	r.isDown.Store(true)
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}

// usePrimary reports whether the next call should go to primary.
func (r *FailoverRecommendationCache) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastCheck) > recoveryInterval {
		r.lastCheck = time.Now()
		return true
	}
	return false
}

func (r *FailoverRecommendationCache) recovered() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Primary recommendation cache recovered")
	}
}

// flushPrimary replays a missed InvalidateAll before primary serves again.
func (r *FailoverRecommendationCache) flushPrimary(ctx context.Context) error {
	if !r.flushPending.Load() {
		return nil
	}
	if err := r.primary.InvalidateAll(ctx); err != nil {
		return err
	}
	r.flushPending.Store(false)
	r.logger.Info().Msg("Primary recommendation cache flushed after recovery")
	return nil
}

func (r *FailoverRecommendationCache) Get(ctx context.Context, key string) (*models.RecommendationResult, bool, error) {
	if r.usePrimary() {
		err := r.flushPrimary(ctx)
		if err == nil {
			var (
				res *models.RecommendationResult
				ok  bool
			)
			res, ok, err = r.primary.Get(ctx, key)
			if err == nil {
				r.recovered()
				return res, ok, nil
			}
		}
		r.markDown(err)
	}
	return r.fallback.Get(ctx, key)
}

func (r *FailoverRecommendationCache) Set(ctx context.Context, key string, value *models.RecommendationResult, ttl time.Duration) error {
	if r.usePrimary() {
		err := r.flushPrimary(ctx)
		if err == nil {
			err = r.primary.Set(ctx, key, value, ttl)
			if err == nil {
				r.recovered()
				return nil
			}
		}
		r.markDown(err)
	}
	return r.fallback.Set(ctx, key, value, ttl)
}

// InvalidateAll clears both stores. When primary cannot be cleared the call
// fails and primary is flushed before it is read again.
func (r *FailoverRecommendationCache) InvalidateAll(ctx context.Context) error {
	fbErr := r.fallback.InvalidateAll(ctx)
	if err := r.primary.InvalidateAll(ctx); err != nil {
		r.flushPending.Store(true)
		r.markDown(err)
		return errors.Join(fbErr, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err))
	}
	r.flushPending.Store(false)
	r.recovered()
	return fbErr
}
