// Package store provides durable key-value persistence for tutoring sessions.
package store

import (
	"context"

	"github.com/sanjok-bless/multilingual-ai-tutor/internal/models"
)

// Store is the persistent session store: one record per (language, level)
// session key, plus a pointer to the last-active session key.
type Store interface {
	// Get retrieves a session record by key, or nil if absent.
	Get(ctx context.Context, key string) (*models.Session, error)

	// Set creates or overwrites the record under key.
	Set(ctx context.Context, key string, session *models.Session) error

	// Enumerate returns all persisted records keyed by session key.
	Enumerate(ctx context.Context) (map[string]*models.Session, error)

	// GetPointer returns the last-active session key, or "" if never set.
	GetPointer(ctx context.Context) (string, error)

	// SetPointer records the last-active session key.
	SetPointer(ctx context.Context, key string) error

	// Close releases underlying resources.
	Close() error
}
