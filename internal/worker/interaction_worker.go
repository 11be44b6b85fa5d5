package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"hotelbook/internal/domain"
	"hotelbook/internal/logging"
	"hotelbook/internal/metrics"
	"hotelbook/internal/models"
)

const (
	OutcomeQueued  = "queued"
	OutcomeDropped = "dropped"
	OutcomeStored  = "stored"
	OutcomeFailed  = "failed"

	defaultQueueSize = 500
	deadLetterKey    = "interactions:deadletter"
)

var _ domain.InteractionRecorder = (*InteractionWorker)(nil)

// InteractionWorker writes interactions in the background. Callers never wait
// on storage: a full queue drops the record.
type InteractionWorker struct {
	store       domain.InteractionStore
	redis       *redis.Client
	retryPolicy RetryPolicy
	queue       chan models.Interaction
	logger      *zerolog.Logger
	sleep       func(ctx context.Context, d time.Duration) error

	wg     sync.WaitGroup
	closed atomic.Bool
}

// NewInteractionWorker builds a worker. redisClient is optional and only used
// for the dead letter list.
func NewInteractionWorker(
	store domain.InteractionStore,
	redisClient *redis.Client,
	queueSize int,
	retry RetryPolicy,
	logger *zerolog.Logger,
) *InteractionWorker {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	retry = retry.withDefaults()

	return &InteractionWorker{
		store:       store,
		redis:       redisClient,
		retryPolicy: retry,
		queue:       make(chan models.Interaction, queueSize),
		logger:      logging.Component(logger, "interaction_worker"),
		sleep:       sleepCtx,
	}
}

// RecordInteraction enqueues without blocking.
func (w *InteractionWorker) RecordInteraction(_ context.Context, in models.Interaction) {
	w.Enqueue(in)
}

// Enqueue reports whether the interaction was accepted into the queue. Once
// the worker has stopped nothing is accepted.
func (w *InteractionWorker) Enqueue(in models.Interaction) bool {
	if w.closed.Load() {
		metrics.IncInteraction(OutcomeDropped)
		w.logger.Warn().
			Str("resource_id", in.ResourceID).
			Str("interaction_type", in.Type).
			Msg("interaction worker stopped, dropping")
		return false
	}
	select {
	case w.queue <- in:
		metrics.IncInteraction(OutcomeQueued)
		return true
	default:
		metrics.IncInteraction(OutcomeDropped)
		w.logger.Warn().
			Str("resource_id", in.ResourceID).
			Str("interaction_type", in.Type).
			Msg("interaction queue full, dropping")
		return false
	}
}

// Start consumes the queue until ctx is done, then drains what is left.
func (w *InteractionWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("started")
	defer w.logger.Info().Msg("stopped")

	for {
		select {
		case <-ctx.Done():
			w.closed.Store(true)
			w.drain()
			return
		case in := <-w.queue:
			w.process(ctx, in)
		}
	}
}

// Run starts the consumer in its own goroutine.
func (w *InteractionWorker) Run(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.Start(ctx)
	}()
}

// Wait blocks until the goroutine launched by Run has returned.
func (w *InteractionWorker) Wait() {
	w.wg.Wait()
}

// drain stores queued records once, without retries, on shutdown.
func (w *InteractionWorker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case in := <-w.queue:
			if err := w.store.SaveInteraction(ctx, &in); err != nil {
				metrics.IncInteraction(OutcomeFailed)
				w.logger.Error().Err(err).Str("resource_id", in.ResourceID).Msg("drain save failed")
				continue
			}
			metrics.IncInteraction(OutcomeStored)
		default:
			return
		}
	}
}

func (w *InteractionWorker) process(ctx context.Context, in models.Interaction) {
	var lastErr error
	for attempt := 1; attempt <= w.retryPolicy.MaxRetries; attempt++ {
		lastErr = w.store.SaveInteraction(ctx, &in)
		if lastErr == nil {
			metrics.IncInteraction(OutcomeStored)
			return
		}
		if attempt == w.retryPolicy.MaxRetries {
			break
		}
		w.logger.Warn().Err(lastErr).Int("attempt", attempt).Str("resource_id", in.ResourceID).Msg("save interaction failed, retrying")
		if err := w.sleep(ctx, w.retryPolicy.NextDelay(attempt)); err != nil {
			lastErr = err
			break
		}
	}

	metrics.IncInteraction(OutcomeFailed)
	w.logger.Error().Err(lastErr).Str("resource_id", in.ResourceID).Msg("interaction not stored")
	w.pushDeadLetter(ctx, in)
}

func (w *InteractionWorker) pushDeadLetter(ctx context.Context, in models.Interaction) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(in)
	if err != nil {
		w.logger.Error().Err(err).Msg("encode deadletter")
		return
	}
	if err := w.redis.LPush(context.WithoutCancel(ctx), deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Msg("deadletter push")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
