package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zentra/emojigen/config"
	"github.com/zentra/emojigen/internal/middleware"
	"github.com/zentra/emojigen/internal/services/emoji"
	"github.com/zentra/emojigen/internal/services/generation"
	"github.com/zentra/emojigen/internal/services/media"
	"github.com/zentra/emojigen/internal/services/user"
	"github.com/zentra/emojigen/pkg/database"
	"github.com/zentra/emojigen/pkg/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Connect to PostgreSQL
	db, err := database.NewPostgresPool(cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer db.Close()
	log.Info().Msg("Connected to PostgreSQL")

	// Connect to Redis
	redisClient, err := database.NewRedisClient(cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()
	log.Info().Msg("Connected to Redis")
	rateCounter := database.NewRateCounter(redisClient)

	// Connect to object storage
	objects, err := storage.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("Failed to connect to object storage")
	}
	log.Info().Str("driver", cfg.Storage.Driver).Str("bucket", cfg.Storage.Bucket).Msg("Connected to object storage")

	// Image provider
	var generator generation.Generator
	if cfg.Generation.Mock {
		generator = generation.StaticGenerator{}
		log.Warn().Msg("GENERATION_MOCK is set, serving placeholder images")
	} else {
		client, err := generation.NewClient(cfg.Generation.APIToken, cfg.Generation.Model, cfg.Generation.Timeout)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create generation client")
		}
		if cfg.Generation.APIToken == "" {
			log.Warn().Msg("REPLICATE_API_TOKEN is not set, generation requests will fail")
		}
		generator = client
	}

	// Initialize services
	uploader := media.NewUploader(objects, nil, cfg.Generation.MaxDimension)
	userService := user.NewService(db, cfg.Generation.DefaultCredits)
	emojiService := emoji.NewService(emoji.NewPostgresStore(db), userService, generator, uploader)

	// Initialize handlers
	userHandler := user.NewHandler(userService)
	emojiHandler := emoji.NewHandler(emojiService)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.RecoveryMiddleware)
	r.Use(chimiddleware.RedirectSlashes)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "Origin"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
		Debug:            cfg.IsDevelopment(),
	}))

	// Security headers
	r.Use(middleware.SecurityHeadersMiddleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
	})

	generateLimit := middleware.StrictRateLimitMiddleware(rateCounter, cfg.Server.GenerateRateLimit)

	r.Route("/api", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(60 * time.Second))

		// Public standalone generator
		r.With(generateLimit).Post("/generate-emoji", emojiHandler.GenerateImage)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
			r.Use(middleware.RateLimitMiddleware(rateCounter, cfg.Server.RateLimitRPS))

			r.Mount("/users", userHandler.Routes())
			r.Mount("/emoji", emojiHandler.Routes(generateLimit))
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:    "0.0.0.0:" + cfg.Server.Port,
		Handler: r,
	}

	// Start server
	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("model", cfg.Generation.Model).Msg("Starting emoji API")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
