package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rinkworks/gameclock-server-go/internal/clock"
	"github.com/rinkworks/gameclock-server-go/internal/config"
	"github.com/rinkworks/gameclock-server-go/internal/database"
	"github.com/rinkworks/gameclock-server-go/internal/handler"
	"github.com/rinkworks/gameclock-server-go/internal/jobs"
	"github.com/rinkworks/gameclock-server-go/internal/live"
	"github.com/rinkworks/gameclock-server-go/internal/middleware"
	"github.com/rinkworks/gameclock-server-go/internal/redis"
	"github.com/rinkworks/gameclock-server-go/internal/repository"
	"github.com/rinkworks/gameclock-server-go/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("ENV") == "production"
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	sessionRepo := repository.NewGameSessionRepository(db.DB)
	statusRepo := repository.NewPlayerStatusRepository(db.DB)
	eventRepo := repository.NewGameEventRepository(db.DB)
	playerRepo := repository.NewPlayerRepository(db.DB)

	broker := live.NewBroker(redisClient)
	defer broker.Close()

	manager := service.NewGameManager(
		cfg, clock.System(), broker,
		sessionRepo, statusRepo, eventRepo, playerRepo,
	)
	manager.Start()

	eventsHandler := handler.NewEventsHandler(broker, manager)
	gameHandler := handler.NewGameHandler(manager, eventsHandler)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/v1/games", func(r chi.Router) {
		r.Mount("/", gameHandler.Routes())
	})

	retentionJob := jobs.NewRetentionJob(
		db, sessionRepo, statusRepo, eventRepo,
		cfg.RetentionCutoff(), config.RetentionJobInterval,
	)
	retentionJob.Start()
	defer retentionJob.Stop()

	server := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     r,
		ReadTimeout: config.ServerReadTimeout,
		// SSE connections stay open; no write timeout.
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Flush every live game's pending snapshot and event writes before exit.
	manager.Shutdown(shutdownCtx)

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
