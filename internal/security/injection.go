// Package security screens learner input before it reaches the model prompt.
package security

import (
	"regexp"
	"strings"
)

// injectionPattern matches common prompt injection attempts while keeping the
// false positive rate low on normal language-practice text.
var injectionPattern = regexp.MustCompile(`(?i)(?:` +
	// Direct instruction override
	`\b(ignore|forget|disregard)\s+(all\s+)?(the\s+)?(previous\s+)?(above\s+)?(instructions?|prompts?|context|rules?)` +
	`|` +
	// System probing
	`\b(reveal|show|print|display|tell)\s+(me\s+)?(your\s+)?(system\s+)?(prompts?|instructions?|configurations?|rules?)` +
	`|` +
	// Role manipulation, restricted to specific role keywords
	`\b(you\s+are\s+now|act\s+as|pretend\s+to\s+be)\s+(a\s+|an\s+)?(different\s+)?(translator|assistant|ai|chatbot|chatgpt)` +
	`|` +
	// Jailbreak keywords
	`\b(jailbreak|dan\s+mode|developer\s+mode)\b` +
	`|` +
	// Bypass/override with flexible targets
	`\b(bypass|override)\s+(all\s+)?(your\s+)?(the\s+)?(restrictions?|rules?|guidelines?)` +
	`|` +
	// Delimiter injection
	`---+\s*(END|BEGIN|SYSTEM|INSTRUCTION|USER\s+INPUT)` +
	`|` +
	// XML/HTML-style tag injection
	`</\w+>\s*<(system|instruction|override|admin)` +
	`)`)

// DetectInjection reports whether text contains a prompt injection pattern.
func DetectInjection(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	return injectionPattern.MatchString(text)
}

// Sanitize removes control characters, preserving tab, newline and carriage
// return.
func Sanitize(text string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, text)
}

// ValidateMessage sanitizes text and reports whether the cleaned form is safe
// to embed in a prompt.
func ValidateMessage(text string) (string, bool) {
	cleaned := Sanitize(text)
	return cleaned, !DetectInjection(cleaned)
}

// ValidateContextMessages checks every content string for injection patterns.
func ValidateContextMessages(contents []string) bool {
	for _, c := range contents {
		if DetectInjection(Sanitize(c)) {
			return false
		}
	}
	return true
}
