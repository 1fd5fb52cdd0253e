package app

import (
	"context"

	"github.com/sanjok-bless/multilingual-ai-tutor/internal/health"
)

// RetryConnection re-invokes the operation behind the last failing endpoint.
// It no-ops when there is nothing retryable or the retry ceiling has been
// reached. The endpoint set is closed, so the switch is exhaustive.
func (a *App) RetryConnection(ctx context.Context) {
	if !a.tracker.CanShowRetry() {
		return
	}

	switch a.tracker.LastFailingEndpoint() {
	case health.EndpointLanguages:
		a.tracker.IncrementRetryAttempts()
		if a.loadLanguages(ctx) {
			// A catalog failure during startup left the app partially
			// initialized. Finish steps 3-4 in the background, after this
			// call's own state commit, so the UI renders the retry success
			// first.
			a.bg.Add(1)
			go func() {
				defer a.bg.Done()
				bgCtx := context.Background()
				a.completeSelection(bgCtx)
				a.ensureSessionReady(bgCtx)
			}()
		}
	case health.EndpointStart:
		a.tracker.IncrementRetryAttempts()
		a.RequestGreeting(ctx)
	case health.EndpointChat:
		a.retryLastMessage(ctx)
	case health.EndpointNone:
		// Local validation failures carry no endpoint and are not retried.
	}
}

// retryLastMessage replays the user content stashed with the failed chat
// send. It owns its retry-counter increment; the router does not count it.
func (a *App) retryLastMessage(ctx context.Context) {
	lastErr := a.tracker.LastError()
	if lastErr == nil || lastErr.OriginalContent == "" {
		return
	}
	a.tracker.IncrementRetryAttempts()
	a.sendTurn(ctx, lastErr.OriginalContent, true)
}
