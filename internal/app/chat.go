package app

import (
	"context"
	"strings"
	"time"

	"github.com/sanjok-bless/multilingual-ai-tutor/internal/health"
	"github.com/sanjok-bless/multilingual-ai-tutor/internal/models"
)

// SendMessage executes one user chat turn: optimistic transcript append,
// tutor API call, AI reply append. Failures land in the Tracker.
func (a *App) SendMessage(ctx context.Context, content string) {
	a.sendTurn(ctx, content, false)
}

// sendTurn is the chat workflow. In replay mode (resend after reload, or an
// explicit retry) the user message is already in the transcript and must not
// be appended again.
func (a *App) sendTurn(ctx context.Context, content string, replay bool) {
	if strings.TrimSpace(content) == "" {
		return
	}

	a.mu.Lock()
	sess, key := a.registry.Current()
	if sess == nil {
		a.mu.Unlock()
		a.tracker.RecordFailure(health.EndpointNone, "No active session. Select a language to start practicing.", false, "")
		return
	}

	// Capture by value before the call suspends: a session switch
	// mid-flight must not redirect the reply into the new session.
	sessionID, language, level := sess.ID, sess.Language, sess.Level

	a.loading.Store(true)
	a.tracker.ClearDisplayError()

	if !replay {
		a.registry.AppendMessage(ctx, key, models.Message{
			Type:      models.MessageUser,
			Content:   content,
			Timestamp: time.Now(),
		})
	}
	contextMsgs := ContextWindow(sess.Messages, a.cfg.ChatContextLimit)
	a.mu.Unlock()

	defer a.loading.Store(false)

	resp, err := a.api.Chat(ctx, models.ChatRequest{
		SessionID:       sessionID,
		Message:         content,
		Language:        language,
		Level:           level,
		ContextMessages: contextMsgs,
	})
	if err != nil {
		// Keep the original content so a retry can replay it without
		// re-prompting the user.
		a.tracker.RecordFailure(health.EndpointChat, err.Error(), true, content)
		return
	}

	a.tracker.RecordSuccess(health.EndpointChat)

	primary := resp.AIResponse
	if primary == "" {
		primary = noResponseFallback
	}
	corrections := resp.Corrections
	if corrections == nil {
		corrections = []models.Correction{}
	}

	a.mu.Lock()
	a.registry.AppendMessage(ctx, key, models.Message{
		Type:        models.MessageAI,
		Content:     primary,
		NextPhrase:  resp.NextPhrase,
		Corrections: corrections,
		TokensUsed:  resp.TokensUsed,
		Timestamp:   time.Now(),
	})
	a.corrections = corrections
	a.mu.Unlock()
}

// RequestGreeting asks the tutor to open the conversation. No-ops without an
// active session; on failure no message is appended.
func (a *App) RequestGreeting(ctx context.Context) {
	a.mu.Lock()
	sess, key := a.registry.Current()
	if sess == nil {
		a.mu.Unlock()
		return
	}
	sessionID, language, level := sess.ID, sess.Language, sess.Level

	a.loading.Store(true)
	a.tracker.ClearDisplayError()
	contextMsgs := ContextWindow(sess.Messages, a.cfg.StartContextLimit)
	a.mu.Unlock()

	defer a.loading.Store(false)

	resp, err := a.api.Start(ctx, models.StartRequest{
		SessionID:       sessionID,
		Language:        language,
		Level:           level,
		ContextMessages: contextMsgs,
	})
	if err != nil {
		a.tracker.RecordFailure(health.EndpointStart, err.Error(), true, "")
		return
	}

	a.tracker.RecordSuccess(health.EndpointStart)

	text := resp.Text()
	if text == "" {
		text = noResponseFallback
	}

	a.mu.Lock()
	a.registry.AppendMessage(ctx, key, models.Message{
		Type:        models.MessageAI,
		Content:     text,
		NextPhrase:  resp.NextPhrase,
		Corrections: []models.Correction{},
		TokensUsed:  resp.TokensUsed,
		IsGreeting:  true,
		Timestamp:   time.Now(),
	})
	a.mu.Unlock()
}
