package app

import (
	"context"
	"time"

	"github.com/sanjok-bless/multilingual-ai-tutor/internal/health"
	"github.com/sanjok-bless/multilingual-ai-tutor/internal/models"
)

// Initialize produces a ready-to-chat session at application start:
// load persisted sessions, fetch the language catalog, pick defaults, then
// decide whether the active session needs a greeting or a resend.
func (a *App) Initialize(ctx context.Context) {
	a.mu.Lock()
	a.firstRun = a.registry.Load(ctx)
	a.mu.Unlock()

	a.loadLanguages(ctx)
	a.completeSelection(ctx)
	a.ensureSessionReady(ctx)
}

// SwitchSession selects a (language, level) pair, resuming the existing
// session for it or creating a fresh one, then re-runs the readiness
// decision for the newly current session.
func (a *App) SwitchSession(ctx context.Context, language string, level models.Level) {
	a.mu.Lock()
	a.selectedLanguage = language
	a.selectedLevel = level
	a.registry.GetOrCreate(ctx, language, level)
	a.corrections = nil
	a.mu.Unlock()

	a.ensureSessionReady(ctx)
}

// loadLanguages fetches the catalog and adopts a selection. A single-element
// catalog is the degraded-mode signal: the fallback list is kept and no
// selection is made, so the UI treats the app as not yet actionable.
func (a *App) loadLanguages(ctx context.Context) bool {
	languages, err := a.api.Languages(ctx)
	if err != nil {
		a.mu.Lock()
		a.availableLanguages = append([]string(nil), a.cfg.OfflineLanguages...)
		a.selectedLanguage = ""
		a.mu.Unlock()
		a.tracker.RecordFailure(health.EndpointLanguages, err.Error(), true, "")
		return false
	}

	a.tracker.RecordSuccess(health.EndpointLanguages)

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(languages) <= 1 {
		a.availableLanguages = append([]string(nil), a.cfg.OfflineLanguages...)
		a.selectedLanguage = ""
		return true
	}

	a.availableLanguages = languages
	if mra := a.registry.MostRecentlyActive(); mra != nil {
		a.selectedLanguage = mra.Language
		a.selectedLevel = mra.Level
	} else {
		a.selectedLanguage = models.DefaultLanguage
	}
	return true
}

// completeSelection finishes startup steps that depend on a selection being
// made: the default level and the current-session pointer.
func (a *App) completeSelection(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.selectedLanguage == "" {
		return
	}
	if a.firstRun {
		a.selectedLevel = models.DefaultLevel
	}
	a.registry.GetOrCreate(ctx, a.selectedLanguage, a.selectedLevel)
}

// ensureSessionReady runs the session-readiness decision, in order:
//
//  1. empty transcript, or no activity on the current local calendar day →
//     request a fresh greeting;
//  2. last message is a user turn from today → resend that content in replay
//     mode (recovers a reload that interrupted a turn, without duplicating
//     the stored user message);
//  3. otherwise → no network call; republish the corrections of the most
//     recent AI message that carries any.
//
// The decision is guarded by the initializing reentrancy lock: a second
// concurrent caller returns immediately without effect. When connectivity is
// known to be down the whole decision is skipped rather than queue a doomed
// network call.
func (a *App) ensureSessionReady(ctx context.Context) {
	if !a.initializing.CompareAndSwap(false, true) {
		return
	}
	defer a.initializing.Store(false)

	if connected, known := a.tracker.Connected(); known && !connected {
		return
	}

	a.mu.Lock()
	if a.selectedLanguage == "" {
		a.mu.Unlock()
		return
	}
	sess, _ := a.registry.Current()
	if sess == nil {
		a.mu.Unlock()
		return
	}

	needsGreeting := len(sess.Messages) == 0 || !sess.ActiveOn(time.Now())

	var resendContent string
	if !needsGreeting {
		if last := sess.LastMessage(); last.Type == models.MessageUser {
			resendContent = last.Content
		}
	}

	if !needsGreeting && resendContent == "" {
		a.corrections = sess.LastCorrections()
		a.mu.Unlock()
		return
	}
	a.mu.Unlock()

	if needsGreeting {
		a.RequestGreeting(ctx)
		return
	}
	a.sendTurn(ctx, resendContent, true)
}
