package services

import (
	"encoding/json"
	"strings"

	"github.com/sanjok-bless/multilingual-ai-tutor/internal/models"
)

// tutorReply is the JSON object the chat prompt asks the model to return.
type tutorReply struct {
	AIResponse  string              `json:"ai_response"`
	Corrections []models.Correction `json:"corrections"`
	NextPhrase  string              `json:"next_phrase"`
}

// stripFences removes a surrounding markdown code fence the model sometimes
// adds despite being told not to.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// parseTutorReply decodes the model's chat reply, tolerating fenced output
// and surrounding prose. If no JSON object can be recovered, the raw text
// becomes the reply itself.
func parseTutorReply(rawText string) tutorReply {
	text := stripFences(rawText)

	var reply tutorReply
	if err := json.Unmarshal([]byte(text), &reply); err == nil {
		return reply
	}

	// Try to extract the JSON object
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(text[start:end+1]), &reply); err == nil {
			return reply
		}
	}

	return tutorReply{AIResponse: strings.TrimSpace(text)}
}

// validateCorrections drops malformed entries and normalizes the error type.
// The result is never nil so the response encodes as [] rather than null.
func validateCorrections(corrections []models.Correction) []models.Correction {
	valid := make([]models.Correction, 0, len(corrections))
	for _, c := range corrections {
		if c.Original == "" || c.Corrected == "" {
			continue
		}
		switch c.ErrorType {
		case models.ErrorTypeGrammar, models.ErrorTypeSpelling, models.ErrorTypeVocabulary,
			models.ErrorTypePunctuation, models.ErrorTypeStyle:
		default:
			c.ErrorType = models.ErrorTypeGrammar
		}
		if c.Explanation == nil {
			c.Explanation = []string{}
		}
		valid = append(valid, c)
	}
	return valid
}

// ProcessContext trims conversation history for prompting: an AI message is
// kept only when the learner actually answered it (a non-empty user message
// immediately after), then the most recent limit messages win.
func ProcessContext(messages []models.ContextMessage, limit int) []models.ContextMessage {
	filtered := make([]models.ContextMessage, 0, len(messages))
	for i, m := range messages {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		if m.Type == "ai" {
			answered := i+1 < len(messages) &&
				messages[i+1].Type == "user" &&
				strings.TrimSpace(messages[i+1].Content) != ""
			if !answered {
				continue
			}
		}
		filtered = append(filtered, m)
	}

	if limit > 0 && len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}
	return filtered
}
