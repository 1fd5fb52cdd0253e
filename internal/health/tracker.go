// Package health tracks tutor API connectivity and the bounded retry budget.
package health

import (
	"sync"
	"time"
)

// Endpoint identifies a logical tutor API endpoint. The set is closed: retry
// routing switches over these constants exhaustively instead of falling back
// on an unrecognized-tag default.
type Endpoint string

const (
	// EndpointNone marks a purely local failure that carries no endpoint
	// tag and must not flip connectivity.
	EndpointNone      Endpoint = ""
	EndpointLanguages Endpoint = "languages"
	EndpointStart     Endpoint = "start"
	EndpointChat      Endpoint = "chat"
)

// MaxRetries is the retry ceiling; once reached the UI stops offering retry.
const MaxRetries = 3

// ConnError describes the current error slot. The model is single-slot,
// most-recent-wins: a new failure replaces whatever was displayed before.
type ConnError struct {
	Message         string
	Retryable       bool
	Timestamp       time.Time
	Endpoint        Endpoint
	OriginalContent string // user text to replay when retrying a chat send
}

// Tracker holds process-wide connection state. One instance lives for the
// application lifetime and is shared by every component that issues or
// retries network calls.
type Tracker struct {
	mu            sync.Mutex
	connected     bool
	connKnown     bool // false until the first call completes
	lastErr       *ConnError
	lastFailing   Endpoint
	retryAttempts int
}

// NewTracker returns a tracker in the "unknown connectivity" state.
func NewTracker() *Tracker {
	return &Tracker{}
}

// RecordSuccess marks the API reachable, clears the error slot and resets the
// retry budget. Any endpoint's success counts.
func (t *Tracker) RecordSuccess(endpoint Endpoint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = true
	t.connKnown = true
	t.lastErr = nil
	t.lastFailing = EndpointNone
	t.retryAttempts = 0
}

// RecordFailure stores the error slot. A failure tagged with an endpoint is a
// connectivity failure and flips connected to false; an untagged failure is
// display-only (local validation) and leaves connectivity alone.
func (t *Tracker) RecordFailure(endpoint Endpoint, message string, retryable bool, originalContent string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if endpoint != EndpointNone {
		t.connected = false
		t.connKnown = true
		t.lastFailing = endpoint
	}
	t.lastErr = &ConnError{
		Message:         message,
		Retryable:       retryable,
		Timestamp:       time.Now(),
		Endpoint:        endpoint,
		OriginalContent: originalContent,
	}
}

// ClearDisplayError empties the error slot without touching connectivity.
func (t *Tracker) ClearDisplayError() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastErr = nil
}

// IncrementRetryAttempts counts one explicit retry action. The original
// (non-retry) call never increments.
func (t *Tracker) IncrementRetryAttempts() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.retryAttempts++
}

// ResetRetryAttempts zeroes the retry budget.
func (t *Tracker) ResetRetryAttempts() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.retryAttempts = 0
}

// Connected returns the connectivity flag and whether it is known yet.
func (t *Tracker) Connected() (connected, known bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected, t.connKnown
}

// LastError returns a copy of the current error slot, or nil if empty.
func (t *Tracker) LastError() *ConnError {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastErr == nil {
		return nil
	}
	e := *t.lastErr
	return &e
}

// LastFailingEndpoint returns the endpoint tag of the last connectivity
// failure, or EndpointNone.
func (t *Tracker) LastFailingEndpoint() Endpoint {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastFailing
}

// RetryAttempts returns the current retry count.
func (t *Tracker) RetryAttempts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.retryAttempts
}

// CanShowRetry reports whether a retry action should be offered: the current
// error is retryable and the ceiling has not been reached.
func (t *Tracker) CanShowRetry() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr != nil && t.lastErr.Retryable && t.retryAttempts < MaxRetries
}

// ShouldShowGiveUp reports whether the UI should switch to the static "try
// again later" state.
func (t *Tracker) ShouldShowGiveUp() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr != nil && t.lastErr.Retryable && t.retryAttempts >= MaxRetries
}
