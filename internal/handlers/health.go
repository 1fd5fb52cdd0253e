package handlers

import (
	"net/http"
	"time"

	"github.com/sanjok-bless/multilingual-ai-tutor/internal/models"
)

const version = "0.1.0"

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:    "ok",
		Message:   "Multilingual AI Tutor is running",
		Timestamp: time.Now().Unix(),
		Version:   version,
	})
}
