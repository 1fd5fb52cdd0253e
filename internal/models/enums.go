package models

import (
	"fmt"
	"strings"
)

// Level is a proficiency tier. The short CEFR-style code is the canonical
// form used in session keys and API payloads; the user-facing label is an
// accepted input alias.
type Level string

const (
	LevelBeginner     Level = "A2"
	LevelIntermediate Level = "B2"
	LevelAdvanced     Level = "C2"
)

// DefaultLevel is the middle proficiency tier, used for first-ever sessions.
const DefaultLevel = LevelIntermediate

// DefaultLanguage is the fallback language when no catalog is available.
const DefaultLanguage = "english"

var levelLabels = map[Level]string{
	LevelBeginner:     "beginner",
	LevelIntermediate: "intermediate",
	LevelAdvanced:     "advanced",
}

// ParseLevel normalizes either vocabulary (short code or label) to the
// canonical short code.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a2", "beginner":
		return LevelBeginner, nil
	case "b2", "intermediate":
		return LevelIntermediate, nil
	case "c2", "advanced":
		return LevelAdvanced, nil
	}
	return "", fmt.Errorf("unknown proficiency level %q", s)
}

// Label returns the user-facing name for the level.
func (l Level) Label() string {
	return levelLabels[l]
}

// Valid reports whether l is one of the three known tiers.
func (l Level) Valid() bool {
	_, ok := levelLabels[l]
	return ok
}

// ErrorType categorizes a language correction.
type ErrorType string

const (
	ErrorTypeGrammar     ErrorType = "grammar"
	ErrorTypeSpelling    ErrorType = "spelling"
	ErrorTypeVocabulary  ErrorType = "vocabulary"
	ErrorTypePunctuation ErrorType = "punctuation"
	ErrorTypeStyle       ErrorType = "style"
)
