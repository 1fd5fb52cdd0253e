package models

import (
	"time"
)

// MessageType distinguishes the two transcript message variants.
type MessageType string

const (
	MessageUser MessageType = "user"
	MessageAI   MessageType = "ai"
)

// Message is one turn in a session transcript. Messages are immutable once
// appended; transcript order is append order, never re-sorted by timestamp.
type Message struct {
	Type        MessageType  `json:"type"`
	Content     string       `json:"content"`
	NextPhrase  string       `json:"next_phrase,omitempty"`
	Corrections []Correction `json:"corrections,omitempty"`
	TokensUsed  int          `json:"tokens_used,omitempty"`
	IsGreeting  bool         `json:"is_greeting,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

// Session is one persisted conversation thread for a (language, level) pair.
// Exactly one session exists per pair; the pair derives the storage key.
type Session struct {
	ID           string    `json:"id"`
	Language     string    `json:"language"`
	Level        Level     `json:"level"`
	Messages     []Message `json:"messages"`
	LastActivity time.Time `json:"last_activity"`
}

// LastMessage returns the most recent transcript message, or nil if the
// transcript is empty.
func (s *Session) LastMessage() *Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return &s.Messages[len(s.Messages)-1]
}

// LastCorrections scans the transcript from the end and returns the
// corrections of the most recent AI message that carries any.
func (s *Session) LastCorrections() []Correction {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		m := &s.Messages[i]
		if m.Type == MessageAI && len(m.Corrections) > 0 {
			return m.Corrections
		}
	}
	return nil
}

// ActiveOn reports whether the session's last activity falls on the same
// local calendar day as t. This is a calendar comparison, not a rolling
// 24h window.
func (s *Session) ActiveOn(t time.Time) bool {
	if s.LastActivity.IsZero() {
		return false
	}
	y1, m1, d1 := s.LastActivity.Local().Date()
	y2, m2, d2 := t.Local().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
