package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hotelbook/internal/domain"
	"hotelbook/internal/logging"
	"hotelbook/internal/metrics"
	"hotelbook/internal/models"

	"github.com/rs/zerolog"
)

// ErrExhausted means every strategy came back empty or failed.
var ErrExhausted = errors.New("no recommendations available right now")

// State is a position in the fallback chain.
type State int

const (
	StatePersonalized State = iota
	StatePopularity
	StateHeuristic
	StateExhausted
	StateDone
)

func (s State) String() string {
	switch s {
	case StatePersonalized:
		return "personalized"
	case StatePopularity:
		return "popularity"
	case StateHeuristic:
		return "heuristic"
	case StateExhausted:
		return "exhausted"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome is how a single step ended.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeEmpty
	OutcomeFailed
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailed:
		return "failed"
	case OutcomeSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Next is the transition function of the chain. A successful strategy ends
// the chain; anything else moves on to the next strategy.
func Next(s State, o Outcome) State {
	if o == OutcomeSuccess && s < StateExhausted {
		return StateDone
	}
	switch s {
	case StatePersonalized:
		return StatePopularity
	case StatePopularity:
		return StateHeuristic
	case StateHeuristic:
		return StateExhausted
	default:
		return StateDone
	}
}

// Request is one call into the chain.
type Request struct {
	Context       models.RecommendationContext
	UserID        string
	Authenticated bool
	UseCache      bool
}

// Step is the result of running one state.
type Step struct {
	State   State
	Outcome Outcome
	Result  *models.RecommendationResult
	Err     error
}

// Config tunes the chain.
type Config struct {
	// StepTimeout bounds every external call; zero disables it.
	StepTimeout time.Duration
	CacheTTL    time.Duration
}

// Chain produces ranked recommendations: personalized, then popularity,
// then the local heuristic.
type Chain struct {
	personalized domain.PersonalizedScorer
	popularity   domain.PopularitySource
	catalog      domain.ResourceCatalog
	cache        domain.RecommendationCache
	cfg          Config
	logger       *zerolog.Logger
	now          func() time.Time
}

// NewChain wires the strategies. Any collaborator may be nil; its step is
// then skipped.
func NewChain(
	personalized domain.PersonalizedScorer,
	popularity domain.PopularitySource,
	catalog domain.ResourceCatalog,
	cache domain.RecommendationCache,
	cfg Config,
	logger *zerolog.Logger,
) *Chain {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = models.RecommendationCacheTTL
	}
	return &Chain{
		personalized: personalized,
		popularity:   popularity,
		catalog:      catalog,
		cache:        cache,
		cfg:          cfg,
		logger:       logging.Component(logger, "recommend"),
		now:          time.Now,
	}
}

// Recommend runs the chain. It returns ErrExhausted rather than an empty list.
func (c *Chain) Recommend(ctx context.Context, req Request) (*models.RecommendationResult, error) {
	req.Context = req.Context.WithDefaults()
	key := CacheKey(req.Context, req.UserID, req.Authenticated)

	if req.UseCache && c.cache != nil {
		if hit := c.lookup(ctx, key); hit != nil {
			return hit, nil
		}
	}

	var result *models.RecommendationResult
	state := StatePersonalized
	for state != StateDone {
		step := c.RunState(ctx, state, req)
		metrics.IncRecommendationStep(state.String(), step.Outcome.String())

		ev := c.logger.Debug()
		if step.Outcome == OutcomeFailed {
			ev = c.logger.Warn().Err(step.Err)
		}
		ev.Str("state", state.String()).Str("outcome", step.Outcome.String()).Msg("recommendation step")

		if state == StateExhausted {
			return nil, ErrExhausted
		}
		if step.Outcome == OutcomeSuccess {
			result = step.Result
		}
		state = Next(state, step.Outcome)
	}

	result.GeneratedAt = c.now()
	metrics.IncRecommendation(result.Source)

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, result, c.cfg.CacheTTL); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache recommendations")
		}
	}
	return result, nil
}

func (c *Chain) lookup(ctx context.Context, key string) *models.RecommendationResult {
	cached, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Recommendation cache read failed")
	}
	ok = ok && cached != nil && len(cached.Recommendations) > 0
	metrics.IncCache(ok)
	if !ok {
		return nil
	}
	out := *cached
	out.Cached = true
	return &out
}

// RunState runs a single state of the chain in isolation.
func (c *Chain) RunState(ctx context.Context, state State, req Request) Step {
	req.Context = req.Context.WithDefaults()

	var step Step
	switch state {
	case StatePersonalized:
		step = c.runPersonalized(ctx, req)
	case StatePopularity:
		step = c.runPopularity(ctx, req)
	case StateHeuristic:
		step = c.runHeuristic(ctx, req)
	case StateExhausted:
		step = Step{Outcome: OutcomeFailed, Err: ErrExhausted}
	default:
		step = Step{Outcome: OutcomeSkipped}
	}
	step.State = state
	return step
}

func (c *Chain) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.StepTimeout > 0 {
		return context.WithTimeout(ctx, c.cfg.StepTimeout)
	}
	return context.WithCancel(ctx)
}

func (c *Chain) runPersonalized(ctx context.Context, req Request) Step {
	if !req.Authenticated || c.personalized == nil {
		return Step{Outcome: OutcomeSkipped}
	}

	callCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.personalized.FetchPersonalized(callCtx, req.UserID, req.Context, req.UseCache)
	if err != nil {
		return Step{Outcome: OutcomeFailed, Err: fmt.Errorf("%w: personalized: %v", domain.ErrDataAccess, err)}
	}
	if resp == nil || !resp.Success || len(resp.Recommendations) == 0 {
		return Step{Outcome: OutcomeEmpty}
	}

	return Step{
		Outcome: OutcomeSuccess,
		Result: &models.RecommendationResult{
			Recommendations: NormalizePersonalized(resp.Recommendations, req.Context),
			Source:          models.SourcePersonalized,
			MLModelActive:   !resp.Fallback,
			FallbackMode:    resp.Fallback,
			Cached:          resp.Cached,
		},
	}
}

func (c *Chain) runPopularity(ctx context.Context, req Request) Step {
	if c.popularity == nil {
		return Step{Outcome: OutcomeSkipped}
	}

	callCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.popularity.FetchPopularResources(callCtx, req.Context.Kind, req.Context.ResultCount)
	if err != nil {
		return Step{Outcome: OutcomeFailed, Err: fmt.Errorf("%w: popularity: %v", domain.ErrDataAccess, err)}
	}
	if resp == nil || !resp.Success || len(resp.Resources) == 0 {
		return Step{Outcome: OutcomeEmpty}
	}

	return Step{
		Outcome: OutcomeSuccess,
		Result: &models.RecommendationResult{
			Recommendations: FromPopular(resp.Resources, req.Context),
			Source:          models.SourcePopularity,
			FallbackMode:    true,
		},
	}
}

func (c *Chain) runHeuristic(ctx context.Context, req Request) Step {
	if c.catalog == nil {
		return Step{Outcome: OutcomeSkipped}
	}

	callCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	resources, err := c.catalog.FetchAllResources(callCtx, req.Context.Kind)
	if err != nil {
		return Step{Outcome: OutcomeFailed, Err: fmt.Errorf("%w: catalog: %v", domain.ErrDataAccess, err)}
	}
	if len(resources) == 0 {
		return Step{Outcome: OutcomeEmpty}
	}

	return Step{
		Outcome: OutcomeSuccess,
		Result: &models.RecommendationResult{
			Recommendations: Heuristic(resources, req.Context),
			Source:          models.SourceHeuristic,
			FallbackMode:    true,
		},
	}
}
