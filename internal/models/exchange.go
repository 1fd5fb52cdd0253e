package models

import (
	"time"

	"github.com/google/uuid"
)

// Exchange is one logged tutor API interaction, persisted for analytics.
type Exchange struct {
	ID         uuid.UUID `json:"id"`
	SessionID  uuid.UUID `json:"session_id"`
	Endpoint   string    `json:"endpoint"` // "chat" or "start"
	Language   string    `json:"language"`
	Level      Level     `json:"level"`
	UserText   string    `json:"user_text"`
	TutorText  string    `json:"tutor_text"`
	TokensUsed int       `json:"tokens_used"`
	CreatedAt  time.Time `json:"created_at"`
}
