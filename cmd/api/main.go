package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"studio/internal/events"
	"studio/internal/http/handlers"
	httpapi "studio/internal/http/httpapi"
	"studio/internal/infra"
	"studio/internal/providers/genai"
	"studio/internal/storage"
	"studio/internal/studio"
)

func main() {
	// Optional .env
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger := infra.NewLogger(os.Getenv("APP_ENV"))
		logger.Fatal().Err(err).Msg("server stopped with error")
	}
}

// run serves the API until ctx is cancelled.
func run(ctx context.Context) error {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	client, err := genai.NewClient(ctx, genai.Options{
		APIKey:          cfg.GeminiAPIKey,
		BaseURL:         cfg.GeminiBaseURL,
		ImageModel:      cfg.ImageModel,
		SuggestionModel: cfg.SuggestionModel,
		VideoModel:      cfg.VideoModel,
		PollInterval:    cfg.VideoPollInterval,
		RatePerSecond:   cfg.BackendRatePerSec,
		Logger:          &logger,
	})
	if err != nil {
		return fmt.Errorf("create genai client: %w", err)
	}

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		return fmt.Errorf("prepare storage: %w", err)
	}

	hub := events.NewHub()
	registry := studio.NewRegistry(ctx, client, studio.RegistryOptions{
		TTL:       cfg.SessionTTL,
		Debounce:  cfg.SuggestionDebounce,
		Store:     store,
		Publisher: hub,
		Logger:    &logger,
	})

	app := handlers.NewApp(registry, hub, &logger)
	router := httpapi.NewRouter(app, httpapi.RouterOptions{
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Logger:          logger,
	})
	server := infra.NewHTTPServer(cfg, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr()).Msg("API listening")
		return server.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
		defer cancel()
		registry.Close()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
