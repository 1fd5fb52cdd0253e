package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sanjok-bless/multilingual-ai-tutor/internal/models"
	"github.com/sanjok-bless/multilingual-ai-tutor/internal/security"
	"github.com/sanjok-bless/multilingual-ai-tutor/internal/services"
)

const maxMessageChars = 500

// historyPageSize caps the exchange rows returned by the session history view.
const historyPageSize = 50

// Tutor generates tutoring replies. Satisfied by services.TutorService.
type Tutor interface {
	Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
	StartMessage(ctx context.Context, req models.StartRequest) (*models.StartResponse, error)
}

// ExchangeLog persists completed exchanges and serves the history and token
// aggregates derived from them. Satisfied by repository.ExchangeRepo.
type ExchangeLog interface {
	Insert(ctx context.Context, e *models.Exchange) error
	RecentBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]models.Exchange, error)
	TokensBySessionToday(ctx context.Context, sessionID uuid.UUID) (int, error)
}

// Metrics counts requests and token usage. Satisfied by services.MetricsService.
type Metrics interface {
	RecordRequest(ctx context.Context, endpoint string, tokens int)
	Snapshot(ctx context.Context) (*models.MetricsResponse, error)
}

type TutorHandler struct {
	tutor             Tutor
	exchanges         ExchangeLog
	metrics           Metrics
	supported         map[string]bool
	supportedList     []string
	chatContextLimit  int
	startContextLimit int
	dailyTokenBudget  int
}

func NewTutorHandler(tutor Tutor, exchanges ExchangeLog, metrics Metrics, supportedLanguages []string, chatContextLimit, startContextLimit, dailyTokenBudget int) *TutorHandler {
	supported := make(map[string]bool, len(supportedLanguages))
	for _, lang := range supportedLanguages {
		supported[strings.ToLower(lang)] = true
	}
	return &TutorHandler{
		tutor:             tutor,
		exchanges:         exchanges,
		metrics:           metrics,
		supported:         supported,
		supportedList:     supportedLanguages,
		chatContextLimit:  chatContextLimit,
		startContextLimit: startContextLimit,
		dailyTokenBudget:  dailyTokenBudget,
	}
}

// Chat handles POST /api/v1/chat.
func (h *TutorHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fieldErrors := make(map[string]string)

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		fieldErrors["session_id"] = "Must be a valid UUID"
	}

	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		fieldErrors["message"] = "Message is required"
	} else if utf8.RuneCountInString(req.Message) > maxMessageChars {
		fieldErrors["message"] = "Message exceeds 500 characters"
	}

	req.Language = strings.ToLower(strings.TrimSpace(req.Language))
	if !h.supported[req.Language] {
		fieldErrors["language"] = "Unsupported language"
	}

	level, err := models.ParseLevel(string(req.Level))
	if err != nil {
		fieldErrors["level"] = "Must be one of A2, B2, C2"
	}
	req.Level = level

	if len(fieldErrors) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fieldErrors, r))
		return
	}

	cleaned, ok := security.ValidateMessage(req.Message)
	if !ok || !contextIsSafe(req.ContextMessages) {
		writeJSON(w, http.StatusBadRequest, errorResp("UNSAFE_CONTENT", "Potentially unsafe content detected", r))
		return
	}
	req.Message = cleaned
	req.ContextMessages = services.ProcessContext(req.ContextMessages, h.chatContextLimit)

	if !h.withinTokenBudget(r.Context(), sessionID) {
		writeJSON(w, http.StatusTooManyRequests, errorResp("TOKEN_BUDGET_EXCEEDED", "Daily token budget for this session is exhausted", r))
		return
	}

	resp, err := h.tutor.Chat(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.logExchange(r.Context(), sessionID, "chat", req.Language, req.Level, req.Message, resp.AIResponse, resp.TokensUsed)
	h.metrics.RecordRequest(r.Context(), "chat", resp.TokensUsed)

	writeJSON(w, http.StatusOK, resp)
}

// Start handles POST /api/v1/start.
func (h *TutorHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req models.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fieldErrors := make(map[string]string)

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		fieldErrors["session_id"] = "Must be a valid UUID"
	}

	req.Language = strings.ToLower(strings.TrimSpace(req.Language))
	if !h.supported[req.Language] {
		fieldErrors["language"] = "Unsupported language"
	}

	level, err := models.ParseLevel(string(req.Level))
	if err != nil {
		fieldErrors["level"] = "Must be one of A2, B2, C2"
	}
	req.Level = level

	if len(fieldErrors) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fieldErrors, r))
		return
	}

	if !contextIsSafe(req.ContextMessages) {
		writeJSON(w, http.StatusBadRequest, errorResp("UNSAFE_CONTENT", "Potentially unsafe content detected", r))
		return
	}
	req.ContextMessages = services.ProcessContext(req.ContextMessages, h.startContextLimit)

	if !h.withinTokenBudget(r.Context(), sessionID) {
		writeJSON(w, http.StatusTooManyRequests, errorResp("TOKEN_BUDGET_EXCEEDED", "Daily token budget for this session is exhausted", r))
		return
	}

	resp, err := h.tutor.StartMessage(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.logExchange(r.Context(), sessionID, "start", req.Language, req.Level, "", resp.Text(), resp.TokensUsed)
	h.metrics.RecordRequest(r.Context(), "start", resp.TokensUsed)

	writeJSON(w, http.StatusOK, resp)
}

// Languages handles GET /api/v1/languages.
func (h *TutorHandler) Languages(w http.ResponseWriter, r *http.Request) {
	h.metrics.RecordRequest(r.Context(), "languages", 0)
	writeJSON(w, http.StatusOK, h.supportedList)
}

// SessionExchanges handles GET /api/v1/sessions/{sessionID}/exchanges. It
// returns the most recent logged exchanges for a session, newest first.
func (h *TutorHandler) SessionExchanges(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"session_id": "Must be a valid UUID"}, r))
		return
	}

	exchanges, err := h.exchanges.RecentBySession(r.Context(), sessionID, historyPageSize)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if exchanges == nil {
		exchanges = []models.Exchange{}
	}
	writeJSON(w, http.StatusOK, exchanges)
}

// Metrics handles GET /api/v1/metrics.
func (h *TutorHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.metrics.Snapshot(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// logExchange is best effort: a failed insert must not fail the request.
func (h *TutorHandler) logExchange(ctx context.Context, sessionID uuid.UUID, endpoint, language string, level models.Level, userText, tutorText string, tokens int) {
	err := h.exchanges.Insert(ctx, &models.Exchange{
		SessionID:  sessionID,
		Endpoint:   endpoint,
		Language:   language,
		Level:      level,
		UserText:   userText,
		TutorText:  tutorText,
		TokensUsed: tokens,
	})
	if err != nil {
		log.Printf("failed to log %s exchange for session %s: %v", endpoint, sessionID, err)
	}
}

// withinTokenBudget reports whether the session may spend more tokens today.
// A budget of zero or less disables the guard; a failed lookup fails open so
// a database hiccup cannot block tutoring.
func (h *TutorHandler) withinTokenBudget(ctx context.Context, sessionID uuid.UUID) bool {
	if h.dailyTokenBudget <= 0 {
		return true
	}
	used, err := h.exchanges.TokensBySessionToday(ctx, sessionID)
	if err != nil {
		log.Printf("failed to read token usage for session %s: %v", sessionID, err)
		return true
	}
	return used < h.dailyTokenBudget
}

func contextIsSafe(messages []models.ContextMessage) bool {
	contents := make([]string, 0, len(messages))
	for _, m := range messages {
		contents = append(contents, m.Content)
	}
	return security.ValidateContextMessages(contents)
}
