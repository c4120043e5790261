package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tastemap/backend/config"
	httpDelivery "github.com/tastemap/backend/internal/delivery/http"
	"github.com/tastemap/backend/internal/domain"
	"github.com/tastemap/backend/internal/infrastructure/cache"
	"github.com/tastemap/backend/internal/infrastructure/docstore"
	"github.com/tastemap/backend/internal/infrastructure/logging"
	"github.com/tastemap/backend/internal/infrastructure/preferences"
	"github.com/tastemap/backend/internal/usecase"
)

const (
	serviceName     = "tastemap-backend"
	shutdownTimeout = 10 * time.Second
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(serviceName, logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped with error")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("preference_store", cfg.Preferences.Store).
		Dur("cache_ttl", cfg.Recommendation.CacheTTL).
		Msg("starting TasteMap backend v1.0.0")

	// Initialize infrastructure dependencies
	repo, closeRepo, err := openPreferenceRepository(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open preference store: %w", err)
	}
	defer func() {
		if err := closeRepo.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close preference store")
		}
	}()

	recommendationStore := cache.NewMemoryCache[[]domain.RecommendationResult](time.Minute)
	defer recommendationStore.Close()

	// Initialize usecase layer
	scoring := usecase.NewVendorScoringEngine(usecase.VendorScoringConfig{
		MaxResults: cfg.Recommendation.MaxResults,
		Workers:    cfg.Recommendation.ScoringWorkers,
	})

	recommendations := usecase.NewRecommendationService(
		usecase.NewPreferenceService(repo, usecase.PreferenceServiceConfig{
			Timeout:         cfg.Preferences.Timeout,
			BreakerFailures: cfg.Preferences.BreakerFailures,
			BreakerCooldown: cfg.Preferences.BreakerCooldown,
			SessionTTL:      cfg.Recommendation.SessionTTL,
		}, logger),
		usecase.NewRecommendationCache(scoring, recommendationStore, usecase.RecommendationCacheConfig{
			TTL: cfg.Recommendation.CacheTTL,
		}, logger),
		usecase.NewPostRankingEngine(usecase.PostRankingConfig{
			CreatorPenalty: cfg.Recommendation.CreatorPenalty,
		}),
		usecase.RecommendationServiceConfig{
			DiversityWindow: cfg.Recommendation.DiversityWindow,
			CreatorWindow:   cfg.Recommendation.CreatorWindow,
			SessionTTL:      cfg.Recommendation.SessionTTL,
		},
		logger,
	)
	defer recommendations.Close()

	var storeHealth httpDelivery.StoreHealthChecker
	if checker, ok := repo.(httpDelivery.StoreHealthChecker); ok {
		storeHealth = checker
	}

	handler := httpDelivery.NewHandler(recommendations, storeHealth, logger)
	router := httpDelivery.SetupRouter(cfg, handler, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openPreferenceRepository builds the configured preference store.
// The returned closer releases any underlying database handle.
func openPreferenceRepository(
	ctx context.Context,
	cfg *config.Config,
	logger zerolog.Logger,
) (domain.PreferenceRepository, io.Closer, error) {
	switch cfg.Preferences.Store {
	case config.StoreSQLite:
		db, err := preferences.OpenSQLite(cfg.Preferences.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		repo, err := preferences.NewSQLiteRepository(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		logger.Info().Str("path", cfg.Preferences.SQLitePath).Msg("using sqlite preference store")
		return repo, db, nil

	case config.StoreBadger:
		db, err := preferences.OpenBadger(cfg.Preferences.BadgerPath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Str("path", cfg.Preferences.BadgerPath).Msg("using badger preference store")
		return preferences.NewBadgerRepository(db), db, nil

	case config.StoreRemote:
		if cfg.Preferences.RemoteAPIKey == "" {
			logger.Warn().Str("url", cfg.Preferences.RemoteURL).Msg("remote preference store has no API key configured")
		}
		client := docstore.NewClient(docstore.ClientConfig{
			BaseURL:           cfg.Preferences.RemoteURL,
			APIKey:            cfg.Preferences.RemoteAPIKey,
			RequestsPerSecond: cfg.RateLimit.Docstore,
			BaseBackoff:       docstore.BackoffWithin(cfg.Preferences.Timeout, docstore.DefaultMaxAttempts),
		}, logger)
		logger.Info().Str("url", cfg.Preferences.RemoteURL).Msg("using remote preference store")
		return preferences.NewDocstoreRepository(client), io.NopCloser(nil), nil

	default:
		logger.Info().Msg("using in-memory preference store")
		return preferences.NewMemoryRepository(), io.NopCloser(nil), nil
	}
}
