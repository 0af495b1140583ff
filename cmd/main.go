package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/SanmishaTech/snf-sub001/internal/backend"
	"github.com/SanmishaTech/snf-sub001/internal/catalog"
	"github.com/SanmishaTech/snf-sub001/internal/config"
	snfhttp "github.com/SanmishaTech/snf-sub001/internal/http"
	"github.com/SanmishaTech/snf-sub001/internal/locationstore"
	"github.com/SanmishaTech/snf-sub001/internal/pricing"
	"github.com/SanmishaTech/snf-sub001/internal/resolver"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("redis ping succeeded")

	store := locationstore.NewRedisStore(redisClient)
	client := backend.NewClient(cfg.BackendBaseURL, cfg.RequestTimeout)
	locator := backend.NewPositionAgent(cfg.PositionAgent, cfg.RequestTimeout)

	engine := pricing.NewContext(
		resolver.NewLocationResolver(locator, client, store),
		resolver.NewDepotResolver(client),
		catalog.NewService(client),
		store,
	)
	if err := engine.Run(ctx, cfg.RefreshInterval); err != nil {
		log.Fatal().Err(err).Msg("engine start failed")
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Route("/api/v1", snfhttp.NewHandler(engine).Routes)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("pricing engine listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	cancel() // stops the refresher and the location subscription

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	log.Info().Msg("stopped")
}
