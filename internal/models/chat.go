package models

// ContextMessage is the minimal {type, content} projection of a transcript
// message sent to the tutor API to ground its next response.
type ContextMessage struct {
	Type    string `json:"type"` // "user" or "ai"
	Content string `json:"content"`
}

// Correction is a single grammar/vocabulary fix surfaced for a user turn.
// Explanation is a [category, description] pair.
type Correction struct {
	Original    string    `json:"original"`
	Corrected   string    `json:"corrected"`
	ErrorType   ErrorType `json:"error_type"`
	Explanation []string  `json:"explanation"`
}

// ChatRequest is the payload sent to the chat endpoint.
type ChatRequest struct {
	SessionID       string           `json:"session_id"`
	Message         string           `json:"message"`
	Language        string           `json:"language"`
	Level           Level            `json:"level"`
	ContextMessages []ContextMessage `json:"context_messages"`
}

// ChatResponse is the structured tutor reply for one chat turn.
type ChatResponse struct {
	AIResponse  string       `json:"ai_response"`
	NextPhrase  string       `json:"next_phrase,omitempty"`
	Corrections []Correction `json:"corrections"`
	SessionID   string       `json:"session_id"`
	TokensUsed  int          `json:"tokens_used"`
}

// StartRequest asks the tutor for a conversation-opening greeting.
type StartRequest struct {
	SessionID       string           `json:"session_id"`
	Language        string           `json:"language"`
	Level           Level            `json:"level"`
	ContextMessages []ContextMessage `json:"context_messages"`
}

// StartResponse carries the generated greeting. Older servers returned the
// text under "start_message"; the current one uses "message".
type StartResponse struct {
	StartMessage string `json:"start_message,omitempty"`
	Message      string `json:"message,omitempty"`
	NextPhrase   string `json:"next_phrase,omitempty"`
	SessionID    string `json:"session_id"`
	TokensUsed   int    `json:"tokens_used"`
}

// Text returns the greeting regardless of which field the server populated.
func (r *StartResponse) Text() string {
	if r.StartMessage != "" {
		return r.StartMessage
	}
	return r.Message
}
