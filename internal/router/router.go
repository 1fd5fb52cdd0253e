package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sanjok-bless/multilingual-ai-tutor/internal/handlers"
	"github.com/sanjok-bless/multilingual-ai-tutor/internal/middleware"
)

func New(tutorHandler *handlers.TutorHandler, frontendURL string, maxRequestSizeMB int) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Generation rate limiter (30 req/min per IP)
	genLimiter := middleware.NewRateLimiter(30, time.Minute)

	// Health check
	r.Get("/health", handlers.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/languages", tutorHandler.Languages)
		r.Get("/metrics", tutorHandler.Metrics)
		r.Get("/sessions/{sessionID}/exchanges", tutorHandler.SessionExchanges)

		// ──── Generation Routes ────
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequestSize(maxRequestSizeMB))
			r.Use(genLimiter.Middleware)
			r.Post("/chat", tutorHandler.Chat)
			r.Post("/start", tutorHandler.Start)
		})
	})

	return r
}
