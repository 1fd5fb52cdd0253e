package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sanjok-bless/multilingual-ai-tutor/internal/config"
	"github.com/sanjok-bless/multilingual-ai-tutor/internal/database"
	"github.com/sanjok-bless/multilingual-ai-tutor/internal/handlers"
	"github.com/sanjok-bless/multilingual-ai-tutor/internal/repository"
	"github.com/sanjok-bless/multilingual-ai-tutor/internal/router"
	"github.com/sanjok-bless/multilingual-ai-tutor/internal/services"
)

func main() {
	log.Println("🚀 Starting Multilingual AI Tutor API...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	ctx := context.Background()

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Client ────
	redisClient, err := database.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClient.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(ctx, pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	exchangeRepo := repository.NewExchangeRepo(pool)

	// ──── Step 5: Initialize Gemini Tutor ────
	tutorService, err := services.NewTutorService(cfg.GeminiAPIKey, cfg.GeminiConcurrentReqs)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer tutorService.Close()
	log.Println("✓ Gemini Flash client initialized")

	metricsService := services.NewMetricsService(redisClient)

	// ──── Initialize Handlers ────
	tutorHandler := handlers.NewTutorHandler(
		tutorService,
		exchangeRepo,
		metricsService,
		cfg.SupportedLanguages,
		cfg.ChatContextMessages,
		cfg.StartContextMessages,
		cfg.DailyTokenBudget,
	)

	// ──── Step 6: Start HTTP Server ────
	r := router.New(tutorHandler, cfg.FrontendURL, cfg.MaxRequestSizeMB)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Multilingual AI Tutor ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
