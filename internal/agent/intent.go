package agent

import "strings"

// Intent is a coarse classification of what the patient is asking for. It
// steers nothing in the fixed pipeline; it is carried into logs and review
// tasks so a human reviewer sees what kind of request produced the reply.
type Intent string

const (
	IntentSuggestion Intent = "suggestion_request"
	IntentInfo       Intent = "info_request"
	IntentGeneral    Intent = "general_chat"
)

// RecognizeIntent classifies a message by keyword. Matching is
// case-insensitive substring containment, same coarse policy as the
// safety gate.
func RecognizeIntent(message string) Intent {
	q := strings.ToLower(message)
	switch {
	case strings.Contains(q, "suggestion") || strings.Contains(q, "tip"):
		return IntentSuggestion
	case strings.Contains(q, "explain") || strings.Contains(q, "what is"):
		return IntentInfo
	default:
		return IntentGeneral
	}
}
