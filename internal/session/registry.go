// Package session tracks tutoring sessions, one per (language, level) pair.
package session

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sanjok-bless/multilingual-ai-tutor/internal/models"
	"github.com/sanjok-bless/multilingual-ai-tutor/internal/store"
)

// Key derives the deterministic storage key for a (language, level) pair.
func Key(language string, level models.Level) string {
	return fmt.Sprintf("session_%s_%s", language, level)
}

// Registry is the in-memory mirror of the persistent session store. It
// creates, looks up and switches sessions, and keeps the last-active pointer
// in sync.
type Registry struct {
	store      store.Store
	sessions   map[string]*models.Session
	currentKey string
}

// NewRegistry creates an empty registry over the given store.
func NewRegistry(s store.Store) *Registry {
	return &Registry{
		store:    s,
		sessions: make(map[string]*models.Session),
	}
}

// Load reads all persisted sessions and the last-active pointer. If nothing
// is persisted (or the store cannot be read), it synthesizes one default
// session and persists it. Load never fails outward; it reports whether the
// store was empty before the default was created.
func (r *Registry) Load(ctx context.Context) (firstRun bool) {
	sessions, err := r.store.Enumerate(ctx)
	if err != nil {
		log.Printf("session store unreadable, starting fresh: %v", err)
		sessions = nil
	}

	if len(sessions) == 0 {
		r.sessions = make(map[string]*models.Session)
		r.create(ctx, models.DefaultLanguage, models.DefaultLevel)
		return true
	}

	r.sessions = sessions

	pointer, err := r.store.GetPointer(ctx)
	if err != nil {
		log.Printf("failed to read session pointer: %v", err)
	}
	if _, ok := r.sessions[pointer]; ok {
		r.currentKey = pointer
	} else if mra, key := r.mostRecentlyActive(); mra != nil {
		r.currentKey = key
	}

	return false
}

// GetOrCreate returns the session for (language, level), creating and
// persisting it if absent, and marks it current either way. Switching to an
// existing session does NOT update its last activity: resuming is not new
// activity.
func (r *Registry) GetOrCreate(ctx context.Context, language string, level models.Level) *models.Session {
	key := Key(language, level)
	if s, ok := r.sessions[key]; ok {
		r.setCurrent(ctx, key)
		return s
	}
	return r.create(ctx, language, level)
}

func (r *Registry) create(ctx context.Context, language string, level models.Level) *models.Session {
	key := Key(language, level)
	s := &models.Session{
		ID:           uuid.New().String(),
		Language:     language,
		Level:        level,
		Messages:     []models.Message{},
		LastActivity: time.Now(),
	}
	r.sessions[key] = s
	if err := r.store.Set(ctx, key, s); err != nil {
		log.Printf("failed to persist new session %s: %v", key, err)
	}
	r.setCurrent(ctx, key)
	return s
}

func (r *Registry) setCurrent(ctx context.Context, key string) {
	r.currentKey = key
	if err := r.store.SetPointer(ctx, key); err != nil {
		log.Printf("failed to persist session pointer: %v", err)
	}
}

// AppendMessage appends to the session transcript, updates last activity and
// persists the mutated record. Unknown keys are silently ignored; the caller
// captured the key before an async suspension and the session may have been
// pruned externally in the meantime.
func (r *Registry) AppendMessage(ctx context.Context, key string, msg models.Message) {
	s, ok := r.sessions[key]
	if !ok {
		return
	}

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	s.Messages = append(s.Messages, msg)
	s.LastActivity = msg.Timestamp

	if err := r.store.Set(ctx, key, s); err != nil {
		log.Printf("failed to persist session %s: %v", key, err)
	}
}

// Current returns the current session and its key, or (nil, "") if no
// session is selected.
func (r *Registry) Current() (*models.Session, string) {
	if s, ok := r.sessions[r.currentKey]; ok {
		return s, r.currentKey
	}
	return nil, ""
}

// MostRecentlyActive returns the session with the greatest last activity, or
// nil if the registry is empty.
func (r *Registry) MostRecentlyActive() *models.Session {
	s, _ := r.mostRecentlyActive()
	return s
}

func (r *Registry) mostRecentlyActive() (*models.Session, string) {
	// Sorted keys keep the tie-break stable across runs.
	keys := make([]string, 0, len(r.sessions))
	for key := range r.sessions {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var (
		best    *models.Session
		bestKey string
	)
	for _, key := range keys {
		s := r.sessions[key]
		if best == nil || s.LastActivity.After(best.LastActivity) {
			best, bestKey = s, key
		}
	}
	return best, bestKey
}

// Len returns the number of known sessions.
func (r *Registry) Len() int {
	return len(r.sessions)
}
