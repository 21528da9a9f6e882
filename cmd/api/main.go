package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"imagestudio/internal/gallery"
	"imagestudio/internal/http/handlers"
	"imagestudio/internal/http/httpapi"
	"imagestudio/internal/infra"
	"imagestudio/internal/infra/geoip"
	"imagestudio/internal/replicate"
	"imagestudio/internal/service"
	"imagestudio/internal/store"
)

func main() {
	// .env is optional.
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	predStore, galleryStore, cleanup, err := buildStores(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("failed to configure store")
	}
	defer cleanup()

	client := replicate.NewClient(replicate.Options{
		BaseURL: cfg.ReplicateBaseURL,
		Token:   cfg.ReplicateAPIToken,
	})

	predictions := service.NewPredictions(predStore, client, logger, service.Options{
		PollInterval:    cfg.PollInterval,
		PollMaxAttempts: cfg.PollMaxAttempts,
	})

	geoResolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	if geoResolver != nil {
		defer geoResolver.Close()
	}

	app := handlers.NewApp(predictions, galleryStore, cfg, logger, geoResolver)
	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.RetentionTTL > 0 {
		g.Go(func() error {
			runJanitor(gctx, predictions, cfg.RetentionTTL, logger)
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("server failed")
	}
	logger.Info().Msg("server stopped")
}

func buildStores(ctx context.Context, cfg *infra.Config) (store.PredictionStore, gallery.Store, func(), error) {
	noop := func() {}
	switch cfg.StoreBackend {
	case infra.StoreBackendRedis:
		client, err := infra.NewRedisClient(ctx, cfg)
		if err != nil {
			return nil, nil, noop, err
		}
		cleanup := func() { _ = client.Close() }
		return store.NewRedis(client, cfg.RetentionTTL), gallery.NewRedis(client), cleanup, nil
	case infra.StoreBackendPostgres:
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, nil, noop, err
		}
		pg := store.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, noop, err
		}
		// Gallery stays in memory with this backend; results worth keeping
		// land in the predictions table anyway.
		return pg, gallery.NewMemory(), pool.Close, nil
	default:
		return store.NewMemory(), gallery.NewMemory(), noop, nil
	}
}

// runJanitor periodically evicts terminal predictions older than the
// retention TTL. The redis backend expires records on its own; its Prune
// only sweeps stale index entries.
func runJanitor(ctx context.Context, predictions *service.Predictions, ttl time.Duration, logger infra.Logger) {
	interval := ttl / 4
	if interval > time.Hour {
		interval = time.Hour
	}
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := predictions.Prune(ctx, time.Now().Add(-ttl))
			if err != nil {
				logger.Error().Err(err).Msg("retention sweep failed")
				continue
			}
			if removed > 0 {
				logger.Info().Int("removed", removed).Msg("evicted expired predictions")
			}
		}
	}
}
