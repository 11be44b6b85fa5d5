package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hotelbook/internal/api"
	"hotelbook/internal/config"
	"hotelbook/internal/database"
	"hotelbook/internal/domain"
	"hotelbook/internal/events"
	"hotelbook/internal/logging"
	"hotelbook/internal/metrics"
	"hotelbook/internal/mlclient"
	"hotelbook/internal/models"
	"hotelbook/internal/recommend"
	"hotelbook/internal/repository"
	"hotelbook/internal/service"
	"hotelbook/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	resources, err := loadResources(&logger)
	if err != nil {
		return err
	}

	db, err := initDatabase(cfg, resources, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startMetrics(ctx, cfg, &logger)

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	eventBus := events.NewEventBus()
	eventBus.OnError(func(ev *events.Event, err error) {
		logger.Error().Err(err).Str("event", ev.Type).Msg("event handler failed")
	})

	interactionWorker := worker.NewInteractionWorker(
		db, redisClient, cfg.Worker.QueueSize, worker.PolicyFromConfig(cfg.Worker), &logger,
	)
	// Stopped only after the transports have shut down.
	workerCtx, stopWorker := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWorker()
	interactionWorker.Run(workerCtx)

	svc := buildServices(cfg, db, redisClient, eventBus, interactionWorker, &logger)

	if cfg.Backup.Enabled {
		go database.NewBackupService(db, cfg.Backup, &logger).Start(ctx)
	}

	err = startServers(ctx, cfg, svc, &logger)
	stopWorker()
	interactionWorker.Wait()
	return err
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func loadResources(logger *zerolog.Logger) ([]models.Resource, error) {
	resourcesPath := os.Getenv("RESOURCES_PATH")
	if resourcesPath == "" {
		resourcesPath = "configs/resources.yaml"
	}
	data, err := os.ReadFile(resourcesPath)
	if err != nil {
		logger.Error().Err(err).Str("resources_path", resourcesPath).Msg("read resources")
		return nil, err
	}

	var catalog struct {
		Resources []models.Resource `yaml:"resources"`
	}
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		logger.Error().Err(err).Str("resources_path", resourcesPath).Msg("parse resources")
		return nil, err
	}
	if err := config.ValidateResources(catalog.Resources); err != nil {
		return nil, fmt.Errorf("invalid resources in %s: %w", resourcesPath, err)
	}

	return catalog.Resources, nil
}

func initDatabase(cfg *config.Config, resources []models.Resource, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	if err := db.SeedResources(context.Background(), resources); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed resources: %w", err)
	}
	logger.Info().Int("resources", len(resources)).Msg("resource catalog loaded")
	return db, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if !cfg.Redis.Enabled || cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)

	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := repository.Ping(pingCtx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing with in-memory cache")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func buildCache(redisClient *redis.Client, logger *zerolog.Logger) domain.RecommendationCache {
	memory := repository.NewMemoryRecommendationCache()
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverRecommendationCache(
		repository.NewRedisRecommendationCache(redisClient), memory, logging.Component(logger, "cache"),
	)
}

func buildServices(
	cfg *config.Config,
	db *database.DB,
	redisClient *redis.Client,
	eventBus *events.EventBus,
	recorder domain.InteractionRecorder,
	logger *zerolog.Logger,
) api.Services {
	cache := buildCache(redisClient, logger)

	// nil interfaces, not typed nils, switch the personalized step off
	var (
		scorer   domain.PersonalizedScorer
		reloader domain.ModelReloader
	)
	if ml := mlclient.New(cfg.Recommendations, logger); ml.Enabled() {
		scorer, reloader = ml, ml
		logger.Info().Str("ml_base_url", cfg.Recommendations.MLBaseURL).Msg("personalized recommendations enabled")
	} else {
		logger.Warn().Msg("ml_base_url not set, personalized recommendations disabled")
	}

	chain := recommend.NewChain(scorer, db, db, cache, recommend.Config{
		StepTimeout: cfg.Recommendations.StepTimeout,
		CacheTTL:    cfg.Recommendations.CacheTTL,
	}, logger)

	interactions := service.NewInteractionService(recorder, db, eventBus, logger)
	interactions.SubscribeBookings(eventBus)

	return api.Services{
		Availability:    service.NewAvailabilityService(db, db, cfg.Availability.FetchTimeout, logger),
		Recommendations: service.NewRecommendationService(chain, cache, reloader, eventBus, logger),
		Interactions:    interactions,
		Reservations:    service.NewReservationService(db, db, eventBus, logger),
		Resources:       service.NewResourceService(db, db, cache, logger),
		Catalog:         db,
	}
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServers(ctx context.Context, cfg *config.Config, svc api.Services, logger *zerolog.Logger) error {
	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		srv, err := api.NewGRPCServer(cfg.API, svc, logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
		grpcServer = srv
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	httpServer := api.NewHTTPServer(cfg.API, svc, logger)
	if cfg.API.HTTP.Enabled {
		go func() {
			if err := httpServer.Start(); err != nil {
				logger.Error().Err(err).Msg("http server stopped")
			}
		}()
	}

	logger.Info().
		Bool("grpc", cfg.API.GRPC.Enabled).
		Int("grpc_port", cfg.API.GRPC.Port).
		Int("http_port", cfg.API.HTTP.Port).
		Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
