package services

import (
	"fmt"
	"strings"

	"github.com/sanjok-bless/multilingual-ai-tutor/internal/models"
)

func levelGuidance(level models.Level) string {
	switch level {
	case models.LevelBeginner:
		return "Use simple everyday vocabulary and short sentences. Correct only errors that block understanding; let minor style issues pass."
	case models.LevelAdvanced:
		return "Use rich, natural vocabulary including idioms. Correct every error, including subtle style and register issues."
	default:
		return "Use conversational vocabulary of moderate complexity. Correct grammar and vocabulary errors; mention style only when it matters."
	}
}

func buildChatPrompt(language string, level models.Level, context []models.ContextMessage, message string) string {
	var b strings.Builder

	// Role
	b.WriteString(fmt.Sprintf("You are a friendly %s language tutor having a conversation with a %s-level learner.\n\n", language, level.Label()))
	b.WriteString(levelGuidance(level))
	b.WriteString("\n\n")

	// Output contract
	b.WriteString("CRITICAL: Return ONLY a valid JSON object. No preamble, no markdown, no backticks.\n\n")
	b.WriteString(`JSON schema:
{"ai_response": "your reply in the target language", "corrections": [{"original": "string", "corrected": "string", "error_type": "grammar"|"spelling"|"vocabulary"|"punctuation"|"style", "explanation": ["category", "short explanation"]}], "next_phrase": "a question that keeps the conversation going"}

Rules:
- ai_response must react to the learner's message in ` + language + `, staying on their topic
- corrections cover ONLY the learner's latest message; return [] when it is error-free
- explanation entries must be short and in english
- next_phrase must be a single natural question in ` + language + "\n\n")

	// Conversation history
	if len(context) > 0 {
		b.WriteString("---CONVERSATION SO FAR---\n")
		for _, m := range context {
			b.WriteString(fmt.Sprintf("%s: %s\n", m.Type, m.Content))
		}
		b.WriteString("---END---\n\n")
	}

	// The turn to evaluate
	b.WriteString("Learner's message:\n")
	b.WriteString(message)
	b.WriteString("\n")

	return b.String()
}

func buildStartPrompt(language string, level models.Level, context []models.ContextMessage) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("You are a friendly %s language tutor greeting a %s-level learner at the start of a practice session.\n\n", language, level.Label()))
	b.WriteString(levelGuidance(level))
	b.WriteString("\n\n")

	b.WriteString("Write a short greeting in " + language + " (2-3 sentences) that ends with an open question inviting the learner to talk. Return plain text only, no markdown, no JSON.\n")

	if len(context) > 0 {
		b.WriteString("\nThe learner has practiced before. Reference their recent conversation naturally:\n")
		b.WriteString("---RECENT HISTORY---\n")
		for _, m := range context {
			b.WriteString(fmt.Sprintf("%s: %s\n", m.Type, m.Content))
		}
		b.WriteString("---END---\n")
	}

	return b.String()
}
