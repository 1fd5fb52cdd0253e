// Package app hosts the client-side orchestration layer: it tracks the
// selected language and level, drives session readiness at startup, executes
// chat turns against the tutor API and routes bounded retries after failures.
//
// One App instance lives for the process lifetime. Collaborator failures are
// never returned to callers; they are converted into Tracker state that the
// UI reads.
package app

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sanjok-bless/multilingual-ai-tutor/internal/health"
	"github.com/sanjok-bless/multilingual-ai-tutor/internal/models"
	"github.com/sanjok-bless/multilingual-ai-tutor/internal/session"
)

// TutorAPI is the slice of the tutor API the orchestration layer needs.
type TutorAPI interface {
	Languages(ctx context.Context) ([]string, error)
	Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
	Start(ctx context.Context, req models.StartRequest) (*models.StartResponse, error)
}

// Config tunes the orchestration layer.
type Config struct {
	// ChatContextLimit caps the context projection for chat turns.
	ChatContextLimit int
	// StartContextLimit caps the context projection for greetings; smaller
	// than chat because greetings need less history.
	StartContextLimit int
	// OfflineLanguages is the single-element catalog fallback.
	OfflineLanguages []string
}

// DefaultConfig returns the standard limits.
func DefaultConfig() Config {
	return Config{
		ChatContextLimit:  40,
		StartContextLimit: 20,
		OfflineLanguages:  []string{models.DefaultLanguage},
	}
}

// noResponseFallback marks an AI turn whose primary text was missing.
const noResponseFallback = "No response received."

// App is the application context object shared by the UI layer.
type App struct {
	cfg      Config
	api      TutorAPI
	registry *session.Registry
	tracker  *health.Tracker

	mu                 sync.Mutex
	selectedLanguage   string // "" until the catalog loads with a usable set
	selectedLevel      models.Level
	availableLanguages []string
	corrections        []models.Correction
	firstRun           bool

	// initializing is the reentrancy lock around the session-readiness
	// decision: at most one decision is in flight at a time.
	initializing atomic.Bool
	loading      atomic.Bool

	bg sync.WaitGroup
}

// New wires the orchestration layer together. The tracker and registry are
// owned by the App for the process lifetime.
func New(api TutorAPI, registry *session.Registry, tracker *health.Tracker, cfg Config) *App {
	if cfg.ChatContextLimit <= 0 {
		cfg.ChatContextLimit = DefaultConfig().ChatContextLimit
	}
	if cfg.StartContextLimit <= 0 {
		cfg.StartContextLimit = DefaultConfig().StartContextLimit
	}
	if len(cfg.OfflineLanguages) == 0 {
		cfg.OfflineLanguages = DefaultConfig().OfflineLanguages
	}
	return &App{
		cfg:           cfg,
		api:           api,
		registry:      registry,
		tracker:       tracker,
		selectedLevel: models.DefaultLevel,
	}
}

// Tracker exposes connection state to the UI layer.
func (a *App) Tracker() *health.Tracker {
	return a.tracker
}

// IsLoading reports whether a network call is in flight.
func (a *App) IsLoading() bool {
	return a.loading.Load()
}

// SelectedLanguage returns the current language, or "" when nothing is
// actionable yet.
func (a *App) SelectedLanguage() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.selectedLanguage
}

// SelectedLevel returns the current proficiency level.
func (a *App) SelectedLevel() models.Level {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.selectedLevel
}

// AvailableLanguages returns a copy of the language catalog.
func (a *App) AvailableLanguages() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.availableLanguages...)
}

// Corrections returns a copy of the most recently published corrections.
func (a *App) Corrections() []models.Correction {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.Correction(nil), a.corrections...)
}

// Transcript returns a copy of the current session's messages.
func (a *App) Transcript() []models.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	sess, _ := a.registry.Current()
	if sess == nil {
		return nil
	}
	return append([]models.Message(nil), sess.Messages...)
}

// Wait drains background continuations (the deferred post-retry
// initialization). Intended for shutdown and tests.
func (a *App) Wait() {
	a.bg.Wait()
}

// ContextWindow reduces the most recent messages (up to limit) to their
// {type, content} projections, preserving order. AI messages project the
// conversational follow-up when present, falling back to the primary text;
// messages whose projected content is blank are dropped.
func ContextWindow(messages []models.Message, limit int) []models.ContextMessage {
	if limit <= 0 || len(messages) == 0 {
		return []models.ContextMessage{}
	}
	start := len(messages) - limit
	if start < 0 {
		start = 0
	}

	out := make([]models.ContextMessage, 0, len(messages)-start)
	for i := start; i < len(messages); i++ {
		m := &messages[i]
		content := m.Content
		if m.Type == models.MessageAI && strings.TrimSpace(m.NextPhrase) != "" {
			content = m.NextPhrase
		}
		if strings.TrimSpace(content) == "" {
			continue
		}
		out = append(out, models.ContextMessage{Type: string(m.Type), Content: content})
	}
	return out
}
