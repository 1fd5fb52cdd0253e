package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sanjok-bless/multilingual-ai-tutor/internal/models"
)

// MemoryStore is an in-memory Store, used in tests and as a throwaway
// fallback when no database path is configured. Records are deep-copied via
// JSON so callers cannot mutate stored state in place.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]string
	pointer  string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]string)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.sessions[key]
	if !ok {
		return nil, nil
	}
	var session models.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", key, err)
	}
	return &session, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[key] = string(data)
	return nil
}

func (s *MemoryStore) Enumerate(ctx context.Context) (map[string]*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]*models.Session, len(s.sessions))
	for key, data := range s.sessions {
		var session models.Session
		if err := json.Unmarshal([]byte(data), &session); err != nil {
			return nil, fmt.Errorf("decode session %s: %w", key, err)
		}
		out[key] = &session
	}
	return out, nil
}

func (s *MemoryStore) GetPointer(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pointer, nil
}

func (s *MemoryStore) SetPointer(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pointer = key
	return nil
}

func (s *MemoryStore) Close() error { return nil }
